package treebank

import (
	"fmt"

	"github.com/jward/treebank/internal/store"
	"github.com/jward/treebank/tree"
)

// QueryBuilder provides the read API over an indexed corpus. Lookups take a
// document path and character offsets into the document text.
type QueryBuilder struct {
	store *store.Store
}

// Pagination controls offset+limit paging on list results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// NodeResult describes one node found by a span lookup.
type NodeResult struct {
	Document    string
	TreeOrdinal int
	Label       string
	Start       int
	End         int
	Depth       int
	IsLeaf      bool
	Token       string // leaves only
	Text        string // covered document text
	Bracketed   string // the node's subtree in bracketed notation
}

// PathResult describes the path between two nodes of one tree.
type PathResult struct {
	Source   NodeResult
	Target   NodeResult
	Ancestor NodeResult
	Labels   []string // source side up, ancestor, target side down
	Length   int      // number of edges
}

// Stats summarizes the index.
type Stats struct {
	Documents    int
	Trees        int
	Constituents int
	Labels       int
}

func newNodeResult(doc *store.Document, ordinal int, n *tree.Node) NodeResult {
	return NodeResult{
		Document:    doc.Path,
		TreeOrdinal: ordinal,
		Label:       n.Label(),
		Start:       n.Start(),
		End:         n.End(),
		Depth:       tree.Depth(n),
		IsLeaf:      n.IsLeaf(),
		Token:       n.Token(),
		Text:        n.Text(),
		Bracketed:   tree.Encode(n),
	}
}

// Documents returns a page of indexed documents ordered by path.
func (q *QueryBuilder) Documents(page Pagination) (*PagedResult[Document], error) {
	page = page.normalize()

	docs, err := q.store.Documents()
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}
	result := &PagedResult[Document]{TotalCount: len(docs), Items: []Document{}}
	if page.Offset >= len(docs) {
		return result, nil
	}
	end := min(page.Offset+page.Limit, len(docs))
	for _, d := range docs[page.Offset:end] {
		result.Items = append(result.Items, *d)
	}
	return result, nil
}

// Document returns the document indexed from path, or nil if none.
func (q *QueryBuilder) Document(path string) (*Document, error) {
	d, err := q.store.DocumentByPath(path)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return d, nil
}

// Trees re-decodes every tree of a document. Returns nil if the document is
// not indexed.
func (q *QueryBuilder) Trees(path string) ([]*tree.Tree, error) {
	doc, err := q.Document(path)
	if err != nil || doc == nil {
		return nil, err
	}
	recs, err := q.store.TreesByDocument(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("trees: %w", err)
	}
	return store.LoadTrees(doc, recs)
}

// TreeAt returns the tree of a document whose span contains [start, end), and
// its ordinal. Returns nil if the document is not indexed or no tree covers
// the span.
func (q *QueryBuilder) TreeAt(path string, start, end int) (*tree.Tree, int, error) {
	doc, t, rec, err := q.treeAt(path, start, end)
	if err != nil || doc == nil || t == nil {
		return nil, 0, err
	}
	return t, rec.Ordinal, nil
}

func (q *QueryBuilder) treeAt(path string, start, end int) (*store.Document, *tree.Tree, *store.TreeRecord, error) {
	if _, err := tree.NewSpan(start, end); err != nil {
		return nil, nil, nil, err
	}
	doc, err := q.Document(path)
	if err != nil || doc == nil {
		return nil, nil, nil, err
	}
	rec, err := q.store.TreeCovering(doc.ID, start, end)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("tree at: %w", err)
	}
	if rec == nil {
		return doc, nil, nil, nil
	}
	t, err := store.LoadTree(doc, rec)
	if err != nil {
		return nil, nil, nil, err
	}
	return doc, t, rec, nil
}

// LeafAt returns the leaf whose span is exactly [start, end), or nil.
func (q *QueryBuilder) LeafAt(path string, start, end int) (*NodeResult, error) {
	return q.lookup(path, start, end, tree.SelectMatchingLeaf)
}

// NodeAt returns the shallowest node whose span is exactly [start, end), or
// nil. In a unary chain this is the topmost node of the chain.
func (q *QueryBuilder) NodeAt(path string, start, end int) (*NodeResult, error) {
	return q.lookup(path, start, end, tree.SelectHighestCoveredNode)
}

// DepthAt returns the depth of the node NodeAt finds. found is false when no
// node has the span.
func (q *QueryBuilder) DepthAt(path string, start, end int) (depth int, found bool, err error) {
	n, err := q.NodeAt(path, start, end)
	if err != nil || n == nil {
		return 0, false, err
	}
	return n.Depth, true, nil
}

func (q *QueryBuilder) lookup(path string, start, end int, sel func(*tree.Node, tree.Span) (*tree.Node, bool)) (*NodeResult, error) {
	doc, t, rec, err := q.treeAt(path, start, end)
	if err != nil || t == nil {
		return nil, err
	}
	n, ok := sel(t.Root(), tree.Span{Start: start, End: end})
	if !ok {
		return nil, nil
	}
	r := newNodeResult(doc, rec.Ordinal, n)
	return &r, nil
}

// PathBetween finds the nodes NodeAt returns for source and target and
// describes the path between them. Returns nil if either span has no node.
// Both spans must fall in the same tree.
func (q *QueryBuilder) PathBetween(path string, source, target tree.Span) (*PathResult, error) {
	if !source.IsValid() || !target.IsValid() {
		return nil, fmt.Errorf("path between: invalid span %s or %s", source, target)
	}
	union := source.Union(target)
	doc, t, rec, err := q.treeAt(path, union.Start, union.End)
	if err != nil || doc == nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("path between: %s and %s are not in one tree", source, target)
	}

	idx := tree.NewSpanIndex(t)
	src, ok := idx.Highest(source)
	if !ok {
		return nil, nil
	}
	tgt, ok := idx.Highest(target)
	if !ok {
		return nil, nil
	}
	p, err := tree.LowestCommonAncestorPath(src, tgt)
	if err != nil {
		return nil, fmt.Errorf("path between: %w", err)
	}
	return &PathResult{
		Source:   newNodeResult(doc, rec.Ordinal, src),
		Target:   newNodeResult(doc, rec.Ordinal, tgt),
		Ancestor: newNodeResult(doc, rec.Ordinal, p.CommonAncestor),
		Labels:   p.Labels(),
		Length:   p.Len(),
	}, nil
}

// ConstituentsByLabel returns a page of constituents carrying label across
// all documents.
func (q *QueryBuilder) ConstituentsByLabel(label string, page Pagination) (*PagedResult[Constituent], error) {
	page = page.normalize()

	total, err := q.store.CountConstituentsByLabel(label)
	if err != nil {
		return nil, fmt.Errorf("constituents by label: %w", err)
	}
	cs, err := q.store.ConstituentsByLabel(label, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("constituents by label: %w", err)
	}
	items := make([]Constituent, 0, len(cs))
	for _, c := range cs {
		items = append(items, *c)
	}
	return &PagedResult[Constituent]{Items: items, TotalCount: total}, nil
}

// LabelCounts returns the most frequent labels, most frequent first. A limit
// of zero or less returns every label.
func (q *QueryBuilder) LabelCounts(limit int) ([]LabelCount, error) {
	return q.store.LabelCounts(limit)
}

// Stats returns index totals.
func (q *QueryBuilder) Stats() (*Stats, error) {
	docs, trees, constituents, err := q.store.Counts()
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	labels, err := q.store.LabelCounts(0)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &Stats{
		Documents:    docs,
		Trees:        trees,
		Constituents: constituents,
		Labels:       len(labels),
	}, nil
}
