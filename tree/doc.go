// Package tree implements constituency parse trees anchored to the character
// offsets of a document's text.
//
// A [Tree] is built once, either by decoding Penn Treebank style bracketed
// notation ([Parse], [ParseAligned], [ParseForest], [Decoder]) or by an
// external producer through [NewLeaf], [NewInternal] and [New], and is
// read-only afterwards. Every operation in this package is a pure function of
// its arguments, so a Tree may be shared between goroutines without locking.
//
// # Lookup
//
//   - [SelectMatchingLeaf] finds the leaf whose span equals a query span.
//   - [SelectHighestCoveredNode] finds the shallowest node with that span. The
//     two differ on unary chains such as (NP (NNS mice)).
//   - [SpanIndex] precomputes both answers for repeated queries.
//
// # Paths
//
//   - [Depth] and [PathToRoot] walk parent pointers.
//   - [LowestCommonAncestorPath] returns the two half-paths that meet at the
//     lowest common ancestor of two nodes of the same tree.
//
// # Bracketed notation
//
// [Encode] is the inverse of decoding: for canonical input (single spaces, no
// extra whitespace) Encode(Parse(s)) == s.
package tree
