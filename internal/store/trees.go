package store

import (
	"fmt"

	"github.com/jward/treebank/tree"
)

// WriteTree stores t as the ordinal-th tree of a document: one TreeRecord in
// canonical bracketed notation plus one Constituent per node, in preorder so
// that every parent is written before its children.
func WriteTree(ds DataStore, documentID int64, ordinal int, t *tree.Tree) (int64, error) {
	root := t.Root()
	rec := &TreeRecord{
		DocumentID:  documentID,
		Ordinal:     ordinal,
		Bracketed:   tree.Encode(root),
		StartOffset: root.Start(),
		EndOffset:   root.End(),
		RootLabel:   root.Label(),
		NodeCount:   t.Size(),
	}
	treeID, err := ds.InsertTree(rec)
	if err != nil {
		return 0, fmt.Errorf("write tree %d: %w", ordinal, err)
	}

	ids := make(map[*tree.Node]int64, t.Size())
	var werr error
	tree.Walk(root, func(n *tree.Node, depth int) bool {
		if werr != nil {
			return false
		}
		c := &Constituent{
			TreeID:      treeID,
			DocumentID:  documentID,
			Label:       n.Label(),
			StartOffset: n.Start(),
			EndOffset:   n.End(),
			Depth:       depth,
			IsLeaf:      n.IsLeaf(),
			Token:       n.Token(),
		}
		if p := n.Parent(); p != nil {
			pid := ids[p]
			c.ParentID = &pid
		}
		id, err := ds.InsertConstituent(c)
		if err != nil {
			werr = fmt.Errorf("write constituent %s: %w", n.Span(), err)
			return false
		}
		ids[n] = id
		return true
	})
	if werr != nil {
		return 0, werr
	}
	return treeID, nil
}

// LoadTree re-decodes a stored tree against its document text. The decoder
// starts at the tree's recorded start offset, so repeated tokens realign to
// the same spans they had when the tree was indexed.
func LoadTree(doc *Document, rec *TreeRecord) (*tree.Tree, error) {
	d := tree.NewDecoder(doc.Text)
	if err := d.Seek(rec.StartOffset); err != nil {
		return nil, fmt.Errorf("load tree %d of %s: %w", rec.Ordinal, doc.Path, err)
	}
	t, err := d.Decode(rec.Bracketed)
	if err != nil {
		return nil, fmt.Errorf("load tree %d of %s: %w", rec.Ordinal, doc.Path, err)
	}
	return t, nil
}

// LoadTrees re-decodes every record of a document, in order.
func LoadTrees(doc *Document, recs []*TreeRecord) ([]*tree.Tree, error) {
	trees := make([]*tree.Tree, 0, len(recs))
	for _, rec := range recs {
		t, err := LoadTree(doc, rec)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	return trees, nil
}
