package textframe

import "fmt"

// Affinity disambiguates a text position that sits exactly on a line-wrap
// boundary: Backward binds it to the end of the previous line, Forward to the
// start of the next.
type Affinity int

// see Affinity
const (
	Forward Affinity = iota
	Backward
)

func (a Affinity) String() string {
	if a == Backward {
		return "Backward"
	}
	return "Forward"
}

// TextPosition is a rune offset into the layout text with an affinity.
type TextPosition struct {
	Offset   int
	Affinity Affinity
}

func (p TextPosition) String() string {
	return fmt.Sprintf("%d%s", p.Offset, map[Affinity]string{Forward: "f", Backward: "b"}[p.Affinity])
}

// TextRange is an ordered pair of positions; Start never exceeds End. A
// zero-length range is a caret position.
type TextRange struct {
	Start, End TextPosition
}

// NewTextRange returns the range between a and b, swapping if given in
// reverse order.
func NewTextRange(a, b TextPosition) TextRange {
	if b.Offset < a.Offset || b.Offset == a.Offset && a.Affinity == Forward && b.Affinity == Backward {
		a, b = b, a
	}
	return TextRange{a, b}
}

// Len returns the number of runes covered by the range.
func (r TextRange) Len() int {
	return r.End.Offset - r.Start.Offset
}

// IsCaret returns true for a zero-length range.
func (r TextRange) IsCaret() bool {
	return r.Start.Offset == r.End.Offset
}
