package store

import (
	"crypto/sha256"
	"fmt"
)

// ComputeDocumentHash computes a deterministic hash over a treebank file and
// its accompanying text. Either part changing changes the hash; a missing
// text file hashes differently from an empty one.
func ComputeDocumentHash(bracketed []byte, text []byte, hasText bool) string {
	h := sha256.New()

	fmt.Fprintf(h, "trees:%d\n", len(bracketed))
	h.Write(bracketed)

	if hasText {
		fmt.Fprintf(h, "\ntext:%d\n", len(text))
		h.Write(text)
	} else {
		fmt.Fprint(h, "\ntext:none\n")
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
