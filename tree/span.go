package tree

import "fmt"

// Span is a half-open character offset interval [Start, End) over a
// document's text.
type Span struct {
	Start int
	End   int
}

// NewSpan returns the span [start, end) or an error if start is negative or
// end precedes start.
func NewSpan(start, end int) (Span, error) {
	s := Span{Start: start, End: end}
	if !s.IsValid() {
		return Span{}, fmt.Errorf("%w: [%d,%d)", ErrInvalidSpan, start, end)
	}
	return s, nil
}

// IsValid reports whether 0 <= Start <= End.
func (s Span) IsValid() bool {
	return s.Start >= 0 && s.End >= s.Start
}

// Len returns the number of offsets covered.
func (s Span) Len() int { return s.End - s.Start }

// IsEmpty reports whether the span covers no text.
func (s Span) IsEmpty() bool { return s.End == s.Start }

// Equal reports span equality: both Start and End match.
func (s Span) Equal(o Span) bool { return s == o }

// Contains reports whether o lies entirely within s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// Overlaps reports whether s and o share at least one offset.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Union returns the smallest span containing both s and o.
func (s Span) Union(o Span) Span {
	return Span{Start: min(s.Start, o.Start), End: max(s.End, o.End)}
}

// Of returns the text covered by s, or "" if s does not fit in text.
func (s Span) Of(text string) string {
	if !s.IsValid() || s.End > len(text) {
		return ""
	}
	return text[s.Start:s.End]
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}
