package tree

import "errors"

// ErrNilNode is returned when a nil node is handed to New.
var ErrNilNode = errors.New("nil node")

// Node is one constituent of a parse tree. A node with no children is a leaf
// (usually a part-of-speech preterminal covering one token). Nodes are
// read-only once their Tree has been built; the parent pointer only serves
// upward navigation.
type Node struct {
	label    string
	span     Span
	token    string
	internal bool
	children []*Node
	parent   *Node
	tree     *Tree
}

// NewLeaf returns a detached leaf. token is the leaf text as it appears in
// bracketed notation; it may differ from the covered text for escaped tokens
// such as -LRB-.
func NewLeaf(label string, span Span, token string) *Node {
	return &Node{label: label, span: span, token: token}
}

// NewInternal returns a detached non-terminal whose span is the union of its
// children's spans.
func NewInternal(label string, children ...*Node) *Node {
	n := &Node{label: label, internal: true, children: children}
	for i, c := range children {
		if c == nil {
			continue
		}
		if i == 0 {
			n.span = c.span
			continue
		}
		n.span = n.span.Union(c.span)
	}
	return n
}

// Label returns the syntactic category or part-of-speech tag.
func (n *Node) Label() string { return n.label }

// Span returns the offsets covered by the node.
func (n *Node) Span() Span { return n.span }

// Start is shorthand for Span().Start.
func (n *Node) Start() int { return n.span.Start }

// End is shorthand for Span().End.
func (n *Node) End() int { return n.span.End }

// Token returns a leaf's token as written in bracketed notation, or "" for
// non-terminals.
func (n *Node) Token() string { return n.token }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// IsEmptyElement reports whether the node is a zero-width trace leaf.
func (n *Node) IsEmptyElement() bool { return n.IsLeaf() && n.label == noneLabel }

// Parent returns the enclosing node, or nil for a root or detached node.
func (n *Node) Parent() *Node { return n.parent }

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.parent == nil }

// NumChildren returns the number of children.
func (n *Node) NumChildren() int { return len(n.children) }

// Child returns the i-th child.
func (n *Node) Child(i int) *Node { return n.children[i] }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Tree returns the tree owning the node, or nil if it is detached.
func (n *Node) Tree() *Tree { return n.tree }

// Text returns the covered text. Detached leaves report their surface token;
// detached non-terminals report "".
func (n *Node) Text() string {
	if n.tree != nil {
		return n.span.Of(n.tree.text)
	}
	if n.IsLeaf() && !n.IsEmptyElement() {
		return surface(n.token)
	}
	return ""
}

// Leaves returns the leaves under n in document order.
func (n *Node) Leaves() []*Node {
	var out []*Node
	Walk(n, func(c *Node, _ int) bool {
		if c.IsLeaf() {
			out = append(out, c)
		}
		return true
	})
	return out
}

// String returns the node in bracketed notation.
func (n *Node) String() string { return Encode(n) }

// Walk visits n and its descendants in preorder. depth is relative to n.
// Returning false from fn skips the children of the visited node.
func Walk(n *Node, fn func(n *Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.children {
		walk(c, depth+1, fn)
	}
}

// Tree is a frozen parse tree over a document text.
type Tree struct {
	text string
	root *Node
	size int
}

// New validates root against the structural invariants of a parse tree,
// attaches parent pointers, and returns the frozen tree. Spans must address
// text. Violations are reported as *PreconditionError and leave the nodes
// untouched.
func New(text string, root *Node) (*Tree, error) {
	t := &Tree{text: text, root: root}
	if root == nil {
		return nil, &PreconditionError{Op: "new tree", Err: ErrNilNode}
	}
	if root.parent != nil || root.tree != nil {
		return nil, &PreconditionError{Op: "new tree", Err: ErrSharedNode, Msg: "root already attached"}
	}
	seen := make(map[*Node]bool)
	if err := validate(t, root, seen); err != nil {
		return nil, err
	}
	t.size = len(seen)
	attach(t, root, nil)
	return t, nil
}

func validate(t *Tree, n *Node, seen map[*Node]bool) error {
	if n == nil {
		return &PreconditionError{Op: "new tree", Err: ErrNilNode}
	}
	if seen[n] || n.tree != nil {
		return &PreconditionError{Op: "new tree", Err: ErrSharedNode, Msg: n.describe()}
	}
	seen[n] = true
	if !n.span.IsValid() {
		return &PreconditionError{Op: "new tree", Err: ErrInvalidSpan, Msg: n.describe()}
	}
	if n.internal && len(n.children) == 0 {
		return &PreconditionError{Op: "new tree", Err: ErrEmptyConstituent, Msg: n.describe()}
	}
	if n.IsLeaf() {
		if n.span.End > len(t.text) {
			return &PreconditionError{Op: "new tree", Err: ErrSpanOutOfBounds, Msg: n.describe()}
		}
		return nil
	}
	var prev *Node
	for _, c := range n.children {
		if c == nil {
			return &PreconditionError{Op: "new tree", Err: ErrNilNode, Msg: "child of " + n.describe()}
		}
		if c.parent != nil && c.parent != n {
			return &PreconditionError{Op: "new tree", Err: ErrSharedNode, Msg: c.describe()}
		}
		if !n.span.Contains(c.span) {
			return &PreconditionError{Op: "new tree", Err: ErrSpanOutOfBounds, Msg: c.describe() + " in " + n.describe()}
		}
		if prev != nil && prev.span.End > c.span.Start {
			return &PreconditionError{Op: "new tree", Err: ErrOverlap, Msg: prev.describe() + " and " + c.describe()}
		}
		if err := validate(t, c, seen); err != nil {
			return err
		}
		prev = c
	}
	return nil
}

func attach(t *Tree, n, parent *Node) {
	n.tree = t
	n.parent = parent
	for _, c := range n.children {
		attach(t, c, n)
	}
}

func (n *Node) describe() string {
	if n.label == "" {
		return n.span.String()
	}
	return n.label + n.span.String()
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Text returns the document text the tree's spans address.
func (t *Tree) Text() string { return t.text }

// Span returns the root span.
func (t *Tree) Span() Span { return t.root.span }

// Size returns the number of nodes.
func (t *Tree) Size() int { return t.size }

// Leaves returns all leaves in document order.
func (t *Tree) Leaves() []*Node { return t.root.Leaves() }

// Nodes returns all nodes in preorder.
func (t *Tree) Nodes() []*Node {
	out := make([]*Node, 0, t.size)
	Walk(t.root, func(n *Node, _ int) bool {
		out = append(out, n)
		return true
	})
	return out
}

func (t *Tree) String() string { return Encode(t.root) }
