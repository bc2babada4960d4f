package store

import "time"

// Document is an indexed treebank file together with the text its trees are
// aligned against. When no text file accompanies the treebank, Text is the
// text synthesized from the leaves and TextPath is empty.
type Document struct {
	ID          int64
	Path        string
	TextPath    string
	Text        string
	Hash        string
	TreeCount   int
	LastIndexed time.Time
}

// TreeRecord is one top-level tree of a document, stored in canonical
// bracketed notation. StartOffset and EndOffset are the root span.
type TreeRecord struct {
	ID          int64
	DocumentID  int64
	Ordinal     int
	Bracketed   string
	StartOffset int
	EndOffset   int
	RootLabel   string
	NodeCount   int
}

// Constituent is one node of a stored tree, flattened for span and label
// queries.
type Constituent struct {
	ID          int64
	TreeID      int64
	DocumentID  int64
	ParentID    *int64
	Label       string
	StartOffset int
	EndOffset   int
	Depth       int
	IsLeaf      bool
	Token       string
}

// LabelCount is the number of constituents carrying a label.
type LabelCount struct {
	Label string
	Count int
}
