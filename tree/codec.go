package tree

import (
	"fmt"
	"io"
	"strings"
)

// noneLabel marks empty elements (traces, null complementizers). They occupy
// no text and are given a zero-width span: at the start of the first visible
// sibling when they lead a constituent, otherwise at the end of the preceding
// token.
const noneLabel = "-NONE-"

// escapes maps Penn Treebank token escapes to the surface strings they may
// stand for, most likely first.
var escapes = map[string][]string{
	"-LRB-": {"(", "[", "{"},
	"-RRB-": {")", "]", "}"},
	"-LSB-": {"["},
	"-RSB-": {"]"},
	"-LCB-": {"{"},
	"-RCB-": {"}"},
	"``":    {"\"", "“"},
	"''":    {"\"", "”"},
}

// surface returns the preferred surface form of a token.
func surface(token string) string {
	if forms, ok := escapes[token]; ok {
		return forms[0]
	}
	return unslash(token)
}

// surfaceForms returns every string a token may match in the text, the
// literal token first.
func surfaceForms(token string) []string {
	forms := []string{token}
	forms = append(forms, escapes[token]...)
	if u := unslash(token); u != token {
		forms = append(forms, u)
	}
	return forms
}

func unslash(token string) string {
	if !strings.Contains(token, `\`) {
		return token
	}
	return strings.NewReplacer(`\/`, "/", `\*`, "*").Replace(token)
}

// Parse decodes a single tree. The document text is synthesized by joining
// the surface forms of the leaves with single spaces.
func Parse(bracketed string) (*Tree, error) {
	raws, err := parseRaw(bracketed, false)
	if err != nil {
		return nil, err
	}
	d := NewDecoder(synthesize(raws))
	return d.build(raws[0])
}

// ParseAligned decodes a single tree whose leaves are aligned against text.
func ParseAligned(text, bracketed string) (*Tree, error) {
	return NewDecoder(text).Decode(bracketed)
}

// ParseForest decodes a sequence of top-level trees sharing one document
// text. If text is empty it is synthesized, one line per tree.
func ParseForest(text, bracketed string) ([]*Tree, error) {
	raws, err := parseRaw(bracketed, true)
	if err != nil {
		return nil, err
	}
	if text == "" {
		text = synthesize(raws)
	}
	return NewDecoder(text).buildAll(raws)
}

// Decoder aligns successive bracketed trees against one document text,
// carrying the alignment cursor from one tree to the next.
type Decoder struct {
	text   string
	cursor int
}

// NewDecoder returns a Decoder positioned at the start of text.
func NewDecoder(text string) *Decoder {
	return &Decoder{text: text}
}

// Offset returns the text offset at which the next token search starts.
func (d *Decoder) Offset() int { return d.cursor }

// Seek moves the alignment cursor.
func (d *Decoder) Seek(offset int) error {
	if offset < 0 || offset > len(d.text) {
		return fmt.Errorf("tree: seek offset %d outside text of length %d", offset, len(d.text))
	}
	d.cursor = offset
	return nil
}

// Decode parses exactly one tree and aligns it from the current cursor. On
// failure the cursor is left where it was.
func (d *Decoder) Decode(bracketed string) (*Tree, error) {
	raws, err := parseRaw(bracketed, false)
	if err != nil {
		return nil, err
	}
	return d.build(raws[0])
}

// DecodeAll parses and aligns every top-level tree in bracketed.
func (d *Decoder) DecodeAll(bracketed string) ([]*Tree, error) {
	raws, err := parseRaw(bracketed, true)
	if err != nil {
		return nil, err
	}
	return d.buildAll(raws)
}

func (d *Decoder) buildAll(raws []*rawNode) ([]*Tree, error) {
	trees := make([]*Tree, 0, len(raws))
	for _, raw := range raws {
		t, err := d.build(raw)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	return trees, nil
}

func (d *Decoder) build(raw *rawNode) (*Tree, error) {
	cursor := d.cursor
	root, err := d.node(raw)
	if err != nil {
		d.cursor = cursor
		return nil, err
	}
	t, err := New(d.text, root)
	if err != nil {
		d.cursor = cursor
		return nil, err
	}
	return t, nil
}

func (d *Decoder) node(raw *rawNode) (*Node, error) {
	if raw.leaf {
		if raw.label == noneLabel {
			return NewLeaf(raw.label, Span{Start: d.cursor, End: d.cursor}, raw.token), nil
		}
		sp, err := d.align(raw.token)
		if err != nil {
			return nil, err
		}
		return NewLeaf(raw.label, sp, raw.token), nil
	}
	children := make([]*Node, 0, len(raw.children))
	for _, rc := range raw.children {
		c, err := d.node(rc)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	settleLeadingEmpty(children)
	return NewInternal(raw.label, children...), nil
}

// settleLeadingEmpty moves zero-width subtrees that precede the first visible
// child onto that child's start. The cursor still sits before the separating
// whitespace when they are decoded, which would otherwise widen the parent.
func settleLeadingEmpty(children []*Node) {
	first := -1
	for i, c := range children {
		if !c.span.IsEmpty() {
			first = i
			break
		}
	}
	if first <= 0 {
		return
	}
	at := children[first].span.Start
	for _, c := range children[:first] {
		Walk(c, func(n *Node, _ int) bool {
			n.span = Span{Start: at, End: at}
			return true
		})
	}
}

// align finds the earliest occurrence of any surface form of token at or
// after the cursor and advances past it.
func (d *Decoder) align(token string) (Span, error) {
	rest := d.text[d.cursor:]
	best, bestLen := -1, 0
	for _, form := range surfaceForms(token) {
		i := strings.Index(rest, form)
		if i >= 0 && (best < 0 || i < best) {
			best, bestLen = i, len(form)
		}
	}
	if best < 0 {
		return Span{}, &AlignmentError{
			Token:   token,
			Offset:  d.cursor,
			Context: fragmentAround(d.text, d.cursor, 20),
		}
	}
	start := d.cursor + best
	d.cursor = start + bestLen
	return Span{Start: start, End: d.cursor}, nil
}

// synthesize builds a document text from the leaves of raws: tokens joined by
// single spaces, one line per tree.
func synthesize(raws []*rawNode) string {
	var b strings.Builder
	for i, raw := range raws {
		if i > 0 {
			b.WriteByte('\n')
		}
		first := true
		raw.eachLeaf(func(l *rawNode) {
			if l.label == noneLabel {
				return
			}
			if !first {
				b.WriteByte(' ')
			}
			first = false
			b.WriteString(surface(l.token))
		})
	}
	return b.String()
}

// Encode writes n and its descendants in bracketed notation, siblings
// separated by single spaces.
func Encode(n *Node) string {
	var b strings.Builder
	Format{}.encode(&b, n, 0)
	return b.String()
}

// Format controls how EncodeTo renders bracketed notation. The zero value
// produces the canonical form Encode returns.
type Format struct {
	// Indent, when set, starts each child of a constituent on its own line
	// unless every child is a leaf.
	Indent string

	// Label, Token, Empty and Paren decorate labels, tokens, empty-element
	// tokens and parentheses. Nil leaves the text unchanged.
	Label func(string) string
	Token func(string) string
	Empty func(string) string
	Paren func(string) string
}

// EncodeTo writes n to w in the given format, without a trailing newline.
func EncodeTo(w io.Writer, n *Node, f Format) error {
	var b strings.Builder
	f.encode(&b, n, 0)
	_, err := io.WriteString(w, b.String())
	return err
}

func decorate(fn func(string) string, s string) string {
	if fn == nil {
		return s
	}
	return fn(s)
}

func (f Format) encode(b *strings.Builder, n *Node, level int) {
	if n.IsLeaf() {
		token := n.token
		if token == "" {
			token = n.Text()
		}
		if n.label == "" {
			b.WriteString(decorate(f.Token, token))
			return
		}
		style := f.Token
		if n.IsEmptyElement() && f.Empty != nil {
			style = f.Empty
		}
		b.WriteString(decorate(f.Paren, "("))
		b.WriteString(decorate(f.Label, n.label))
		b.WriteByte(' ')
		b.WriteString(decorate(style, token))
		b.WriteString(decorate(f.Paren, ")"))
		return
	}
	b.WriteString(decorate(f.Paren, "("))
	b.WriteString(decorate(f.Label, n.label))
	inline := f.Indent == "" || allLeaves(n)
	for _, c := range n.children {
		if inline {
			b.WriteByte(' ')
		} else {
			b.WriteByte('\n')
			b.WriteString(strings.Repeat(f.Indent, level+1))
		}
		f.encode(b, c, level+1)
	}
	b.WriteString(decorate(f.Paren, ")"))
}

func allLeaves(n *Node) bool {
	for _, c := range n.children {
		if !c.IsLeaf() {
			return false
		}
	}
	return true
}

// rawNode is the purely syntactic result of reading bracketed notation,
// before leaves are aligned to text.
type rawNode struct {
	label    string
	token    string
	leaf     bool
	children []*rawNode
}

func (r *rawNode) eachLeaf(fn func(*rawNode)) {
	if r.leaf {
		fn(r)
		return
	}
	for _, c := range r.children {
		c.eachLeaf(fn)
	}
}

// parseRaw reads one (or, with many, any number of) top-level nodes.
func parseRaw(src string, many bool) ([]*rawNode, error) {
	r := &reader{src: src}
	var out []*rawNode
	for {
		r.skipSpace()
		if r.eof() {
			break
		}
		if len(out) == 1 && !many {
			if r.peek() == ')' {
				return nil, r.fail(r.pos, "unbalanced parentheses: unexpected ')'")
			}
			return nil, r.fail(r.pos, "unexpected input after tree")
		}
		n, err := r.top()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, r.fail(0, "no tree in input")
	}
	return out, nil
}

type reader struct {
	src string
	pos int
}

func (r *reader) eof() bool  { return r.pos >= len(r.src) }
func (r *reader) peek() byte { return r.src[r.pos] }

func (r *reader) skipSpace() {
	for !r.eof() && isSpace(r.peek()) {
		r.pos++
	}
}

func (r *reader) atom() string {
	start := r.pos
	for !r.eof() {
		c := r.peek()
		if c == '(' || c == ')' || isSpace(c) {
			break
		}
		r.pos++
	}
	return r.src[start:r.pos]
}

// top reads a top-level tree. Penn Treebank files wrap each tree in an
// unlabeled bracket, "( (S ...) )"; the wrapper is dropped when it holds exactly
// one constituent or preterminal.
func (r *reader) top() (*rawNode, error) {
	if r.peek() != '(' {
		return r.node()
	}
	open := r.pos
	r.pos++
	r.skipSpace()
	if r.eof() || r.peek() != '(' {
		r.pos = open
		return r.node()
	}
	inner, err := r.node()
	if err != nil {
		return nil, err
	}
	r.skipSpace()
	if r.eof() || r.peek() != ')' {
		return nil, r.fail(open+1, "missing label")
	}
	r.pos++
	return inner, nil
}

func (r *reader) node() (*rawNode, error) {
	switch r.peek() {
	case ')':
		return nil, r.fail(r.pos, "unbalanced parentheses: unexpected ')'")
	case '(':
	default:
		tok := r.atom()
		return &rawNode{token: tok, leaf: true}, nil
	}

	open := r.pos
	r.pos++
	r.skipSpace()
	if r.eof() {
		return nil, r.fail(open, "unbalanced parentheses: missing ')'")
	}
	if c := r.peek(); c == '(' || c == ')' {
		return nil, r.fail(r.pos, "missing label")
	}
	label := r.atom()

	var children []*rawNode
	for {
		r.skipSpace()
		if r.eof() {
			return nil, r.fail(open, "unbalanced parentheses: missing ')'")
		}
		if r.peek() == ')' {
			r.pos++
			break
		}
		c, err := r.node()
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}

	if len(children) == 0 {
		return nil, r.fail(open, fmt.Sprintf("constituent %q has no children", label))
	}
	if len(children) == 1 && children[0].leaf && children[0].label == "" {
		return &rawNode{label: label, token: children[0].token, leaf: true}, nil
	}
	return &rawNode{label: label, children: children}, nil
}

func (r *reader) fail(offset int, msg string) *SyntaxError {
	return &SyntaxError{Offset: offset, Fragment: fragmentAround(r.src, offset, 16), Msg: msg}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
