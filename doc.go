// Package treebank indexes and queries corpora of constituency parse trees.
//
// Trees are read in Penn Treebank bracketed notation and aligned against the
// document text they annotate, so every constituent carries a character span.
// The tree package holds the in-memory model (spans, nodes, the bracketed
// codec, span lookups and path analysis); this package adds a SQLite-backed
// corpus index on top of it.
//
// # Usage
//
// Create an Engine, index a directory of treebank files, and query:
//
//	e, err := treebank.New("treebank.db", "")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/corpus")
//
//	q := e.Query()
//	n, err := q.NodeAt("path/to/corpus/wsj_0001.mrg", 0, 13)
//
// # Documents
//
// A document is a treebank file (by default *.mrg, *.tree or *.ptb) holding
// one or more top-level trees, plus an optional sibling text file with the
// same base name and a .txt suffix. Trees are aligned against that text in
// order. Without a text file the text is synthesized from the leaves, one
// line per tree.
//
// # Incremental Indexing
//
// [Engine.IndexFiles] hashes each treebank file together with its text and
// skips documents whose hash is unchanged. [Engine.IndexDirectory] also
// removes documents whose files have disappeared. Malformed documents are
// logged and skipped; the rest of the batch is still committed.
//
// # Scripts
//
// Feature extraction lives in Risor scripts. [Engine.RunScript] runs a script
// with tree navigation and read-only store access exposed as globals and
// returns the rows the script emits. The scripts package embeds the scripts
// shipped with treebank.
package treebank
