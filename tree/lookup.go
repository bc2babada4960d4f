package tree

// SelectMatchingLeaf returns the leaf under root whose span equals q. Partial
// overlap never matches, and empty query spans match nothing.
func SelectMatchingLeaf(root *Node, q Span) (*Node, bool) {
	if root == nil || q.IsEmpty() {
		return nil, false
	}
	var found *Node
	Walk(root, func(n *Node, _ int) bool {
		if found != nil || !n.span.Contains(q) {
			return false
		}
		if n.IsLeaf() && n.span == q {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// SelectHighestCoveredNode returns the shallowest node under root whose span
// equals q. On a unary chain (NP (NNS mice)) this is the top of the chain,
// where SelectMatchingLeaf would return the bottom.
func SelectHighestCoveredNode(root *Node, q Span) (*Node, bool) {
	if root == nil || q.IsEmpty() {
		return nil, false
	}
	var found *Node
	Walk(root, func(n *Node, _ int) bool {
		if found != nil || !n.span.Contains(q) {
			return false
		}
		if n.span == q {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// SpanIndex answers exact-span lookups over one tree in constant time. It is
// read-only after construction.
type SpanIndex struct {
	leaves  map[Span]*Node
	highest map[Span]*Node
}

// NewSpanIndex indexes every non-empty span of t.
func NewSpanIndex(t *Tree) *SpanIndex {
	idx := &SpanIndex{
		leaves:  make(map[Span]*Node),
		highest: make(map[Span]*Node),
	}
	// Preorder visits ancestors first, so the first node seen per span is the
	// shallowest.
	Walk(t.Root(), func(n *Node, _ int) bool {
		if n.span.IsEmpty() {
			return true
		}
		if _, ok := idx.highest[n.span]; !ok {
			idx.highest[n.span] = n
		}
		if n.IsLeaf() {
			idx.leaves[n.span] = n
		}
		return true
	})
	return idx
}

// Leaf is the indexed equivalent of SelectMatchingLeaf.
func (idx *SpanIndex) Leaf(q Span) (*Node, bool) {
	n, ok := idx.leaves[q]
	return n, ok
}

// Highest is the indexed equivalent of SelectHighestCoveredNode.
func (idx *SpanIndex) Highest(q Span) (*Node, bool) {
	n, ok := idx.highest[q]
	return n, ok
}

// Len returns the number of distinct spans indexed.
func (idx *SpanIndex) Len() int { return len(idx.highest) }
