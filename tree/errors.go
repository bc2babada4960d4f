package tree

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by PreconditionError.
var (
	ErrForeignNode      = errors.New("nodes belong to different trees")
	ErrEmptyConstituent = errors.New("non-terminal has no children")
	ErrSpanOutOfBounds  = errors.New("span lies outside its container")
	ErrOverlap          = errors.New("sibling spans overlap or are out of order")
	ErrSharedNode       = errors.New("node is owned by more than one parent")
	ErrInvalidSpan      = errors.New("invalid span")
)

// SyntaxError reports malformed bracketed notation. Offset is a byte offset
// into the bracketed input and Fragment is the input surrounding it.
type SyntaxError struct {
	Offset   int
	Fragment string
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("tree: syntax error at offset %d near %q: %s", e.Offset, e.Fragment, e.Msg)
}

// AlignmentError reports a leaf token that could not be located in the
// document text at or after the alignment cursor.
type AlignmentError struct {
	Token   string
	Offset  int // text offset where the search started
	Context string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("tree: cannot align token %q at text offset %d near %q", e.Token, e.Offset, e.Context)
}

// PreconditionError reports a violated structural precondition: an invalid
// externally built tree, or an operation applied to nodes of different trees.
type PreconditionError struct {
	Op  string
	Err error
	Msg string
}

func (e *PreconditionError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("tree: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tree: %s: %v: %s", e.Op, e.Err, e.Msg)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// fragmentAround returns up to radius bytes on each side of offset.
func fragmentAround(s string, offset, radius int) string {
	lo := max(offset-radius, 0)
	hi := min(offset+radius, len(s))
	if lo > hi {
		return ""
	}
	return s[lo:hi]
}
