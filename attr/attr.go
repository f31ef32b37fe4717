// Package attr provides an immutable attributed-string model for the layout
// engine. A Text is a rune sequence with ordered, non-overlapping attribute
// spans covering the whole string. All modifying operations return a new
// Text; a Text handed to a layout can therefore never change underneath it.
package attr

import (
	"image/color"
	"strings"
)

// Range is a half-open rune range [Start,End).
type Range struct {
	Start, End int
}

// Len returns the number of runes in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains returns true if i lies inside the range.
func (r Range) Contains(i int) bool {
	return r.Start <= i && i < r.End
}

// Inside returns true if i lies strictly inside the range.
func (r Range) Inside(i int) bool {
	return r.Start < i && i < r.End
}

// Intersect clamps the range to q. The result may be empty.
func (r Range) Intersect(q Range) Range {
	if r.Start < q.Start {
		r.Start = q.Start
	}
	if r.End > q.End {
		r.End = q.End
	}
	if r.End < r.Start {
		r.End = r.Start
	}
	return r
}

// Clamp limits i to [Start,End].
func (r Range) Clamp(i int) int {
	if i < r.Start {
		return r.Start
	}
	if i > r.End {
		return r.End
	}
	return i
}

// ContentMode controls how attachment content is fitted into its rect.
type ContentMode int

// see ContentMode
const (
	ContentScaleToFill ContentMode = iota
	ContentScaleAspectFit
	ContentScaleAspectFill
	ContentCenter
)

// Attachment embeds non-text content (an image, a view reference) in the
// text flow. The layout engine resolves its rect; rendering it is the
// renderer's job.
type Attachment struct {
	Content       any
	Width, Height float64
	Insets        [4]float64 // top, left, bottom, right
	Mode          ContentMode
}

// Shadow is a drop or inner shadow marker.
type Shadow struct {
	OffsetX, OffsetY float64
	Blur             float64
	Color            color.RGBA
}

// Border is a border or background-border marker.
type Border struct {
	Width        float64
	CornerRadius float64
	Color        color.RGBA
}

// Transform is an affine glyph transform override in row-major
// [a b tx; c d ty] order.
type Transform [6]float64

// Direction overrides the run-level text direction.
type Direction int

// see Direction
const (
	DirectionNatural Direction = iota
	DirectionLTR
	DirectionRTL
)

// Attributes is the per-rune style metadata the layout engine consumes. Font
// rendering details stay opaque in Face; the engine itself only inspects the
// marker fields.
type Attributes struct {
	Face  any     // opaque font face reference passed through to the shaper
	Size  float64 // font size in layout units
	Color color.RGBA

	Underline     bool
	Strikethrough bool
	Highlight     bool

	Shadow           *Shadow
	InnerShadow      *Shadow
	Border           *Border
	BackgroundBorder *Border

	Attachment *Attachment

	// Binding marks the span as an indivisible unit for navigation and
	// hit-testing.
	Binding bool

	Direction      Direction
	GlyphTransform *Transform
}

// stripEffects removes decorations, used when synthesizing truncation tokens.
func (a Attributes) stripEffects() Attributes {
	a.Underline = false
	a.Strikethrough = false
	a.Highlight = false
	a.Shadow = nil
	a.InnerShadow = nil
	a.Border = nil
	a.BackgroundBorder = nil
	a.Attachment = nil
	a.Binding = false
	a.GlyphTransform = nil
	return a
}

// TruncationAttributes derives the attributes for a synthesized truncation
// token from the attributes of the trailing visible content: same face at
// 90% size with all effects stripped.
func (a Attributes) TruncationAttributes() Attributes {
	a = a.stripEffects()
	a.Size *= 0.9
	return a
}

func (a Attributes) equal(b Attributes) bool {
	return a.Face == b.Face && a.Size == b.Size && a.Color == b.Color &&
		a.Underline == b.Underline && a.Strikethrough == b.Strikethrough &&
		a.Highlight == b.Highlight && a.Shadow == b.Shadow &&
		a.InnerShadow == b.InnerShadow && a.Border == b.Border &&
		a.BackgroundBorder == b.BackgroundBorder && a.Attachment == b.Attachment &&
		a.Binding == b.Binding && a.Direction == b.Direction &&
		a.GlyphTransform == b.GlyphTransform
}

// Span is a rune range with uniform attributes.
type Span struct {
	Range Range
	Attrs Attributes
}

// Text is an immutable attributed string. Spans are ordered, non-overlapping
// and cover [0,Len()).
type Text struct {
	runes []rune
	spans []Span
}

// New returns a Text over s with uniform attributes.
func New(s string, attrs Attributes) *Text {
	runes := []rune(s)
	t := &Text{runes: runes}
	if len(runes) > 0 {
		t.spans = []Span{{Range{0, len(runes)}, attrs}}
	}
	return t
}

// Len returns the number of runes.
func (t *Text) Len() int {
	return len(t.runes)
}

// String returns the plain text.
func (t *Text) String() string {
	return string(t.runes)
}

// Runes returns the underlying rune slice. The caller must not modify it.
func (t *Text) Runes() []rune {
	return t.runes
}

// Spans returns the attribute spans. The caller must not modify them.
func (t *Text) Spans() []Span {
	return t.spans
}

// At returns the attributes at rune offset i. Out-of-range offsets return
// zero attributes.
func (t *Text) At(i int) Attributes {
	if s, ok := t.spanAt(i); ok {
		return s.Attrs
	}
	return Attributes{}
}

// SpanAt returns the span covering rune offset i.
func (t *Text) SpanAt(i int) (Span, bool) {
	return t.spanAt(i)
}

func (t *Text) spanAt(i int) (Span, bool) {
	for _, s := range t.spans {
		if s.Range.Contains(i) {
			return s, true
		}
	}
	return Span{}, false
}

// BindingAt returns the atomic binding range covering rune offset i, if any.
func (t *Text) BindingAt(i int) (Range, bool) {
	s, ok := t.spanAt(i)
	if !ok || !s.Attrs.Binding {
		return Range{}, false
	}
	return s.Range, true
}

// Append returns a new Text that concatenates u after t.
func (t *Text) Append(u *Text) *Text {
	runes := make([]rune, 0, len(t.runes)+len(u.runes))
	runes = append(runes, t.runes...)
	runes = append(runes, u.runes...)
	spans := make([]Span, 0, len(t.spans)+len(u.spans))
	spans = append(spans, t.spans...)
	for _, s := range u.spans {
		s.Range.Start += len(t.runes)
		s.Range.End += len(t.runes)
		spans = append(spans, s)
	}
	return normalize(&Text{runes: runes, spans: spans})
}

// Slice returns the attributed substring over rng.
func (t *Text) Slice(rng Range) *Text {
	rng = rng.Intersect(Range{0, len(t.runes)})
	runes := make([]rune, rng.Len())
	copy(runes, t.runes[rng.Start:rng.End])
	var spans []Span
	for _, s := range t.spans {
		r := s.Range.Intersect(rng)
		if r.Len() == 0 {
			continue
		}
		spans = append(spans, Span{Range{r.Start - rng.Start, r.End - rng.Start}, s.Attrs})
	}
	return normalize(&Text{runes: runes, spans: spans})
}

// WithAttributes returns a new Text with set applied to the attributes over
// rng. Spans straddling the range boundaries are split.
func (t *Text) WithAttributes(rng Range, set func(*Attributes)) *Text {
	rng = rng.Intersect(Range{0, len(t.runes)})
	if rng.Len() == 0 {
		return t
	}
	var spans []Span
	for _, s := range t.spans {
		in := s.Range.Intersect(rng)
		if in.Len() == 0 {
			spans = append(spans, s)
			continue
		}
		if s.Range.Start < in.Start {
			spans = append(spans, Span{Range{s.Range.Start, in.Start}, s.Attrs})
		}
		attrs := s.Attrs
		set(&attrs)
		spans = append(spans, Span{in, attrs})
		if in.End < s.Range.End {
			spans = append(spans, Span{Range{in.End, s.Range.End}, s.Attrs})
		}
	}
	runes := t.runes // shared; Text never mutates its runes
	return normalize(&Text{runes: runes, spans: spans})
}

// normalize merges adjacent spans with equal attributes. Binding spans are
// never merged: each one is its own atomic unit even when two sit side by
// side with identical attributes.
func normalize(t *Text) *Text {
	var spans []Span
	for _, s := range t.spans {
		if s.Range.Len() == 0 {
			continue
		}
		if n := len(spans); n > 0 {
			last := &spans[n-1]
			if last.Range.End == s.Range.Start && last.Attrs.equal(s.Attrs) &&
				!s.Attrs.Binding {
				last.Range.End = s.Range.End
				continue
			}
		}
		spans = append(spans, s)
	}
	t.spans = spans
	return t
}

// Builder incrementally assembles a Text from attributed pieces.
type Builder struct {
	sb    strings.Builder
	spans []Span
	n     int
}

// Add appends s with the given attributes.
func (b *Builder) Add(s string, attrs Attributes) *Builder {
	runes := []rune(s)
	if len(runes) == 0 {
		return b
	}
	b.sb.WriteString(s)
	b.spans = append(b.spans, Span{Range{b.n, b.n + len(runes)}, attrs})
	b.n += len(runes)
	return b
}

// Text returns the assembled immutable Text.
func (b *Builder) Text() *Text {
	return normalize(&Text{runes: []rune(b.sb.String()), spans: append([]Span(nil), b.spans...)})
}
