package textframe

import (
	"errors"
	"fmt"
	"math"

	"github.com/textframe/textframe/attr"
)

var (
	// ErrInvalidRange is returned when the requested range does not lie
	// within the text.
	ErrInvalidRange = errors.New("textframe: range out of bounds")

	// ErrEmptyContainer is returned when the container has no positive size
	// and no path.
	ErrEmptyContainer = errors.New("textframe: container has no area")
)

// Attachment is an embedded content item resolved by the layout: the
// caller's content reference, its rune range, and its rect in layout space.
type Attachment struct {
	Content any
	Range   attr.Range
	Rect    Rect
}

// Layout is the immutable result of laying out attributed text into a
// container. All exported fields are read-only after construction and every
// query method is a pure function of them, so a Layout may be shared freely
// between goroutines.
type Layout struct {
	Container *Container
	Text      *attr.Text
	Range     attr.Range

	Lines []Line

	// TruncatedLine replaces the line with the same Index during rendering
	// when the layout was truncated; nil otherwise.
	TruncatedLine *Line

	Attachments []Attachment

	// VisibleRange is the subset of Range actually rendered; shorter than
	// Range when rows were clipped or the container ran out of space.
	VisibleRange attr.Range

	RowCount int

	TextBoundingRect Rect
	TextBoundingSize Point

	ContainsHighlight     bool
	NeedsUnderline        bool
	NeedsStrikethrough    bool
	NeedsShadow           bool
	NeedsInnerShadow      bool
	NeedsBorder           bool
	NeedsBackgroundBorder bool
	NeedsAttachment       bool
	NeedsText             bool

	vertical        bool
	clip            *Path
	clipIsRect      bool
	inner           Rect
	rowEdges        []rowEdge
	rowLines        [][2]int
	truncationToken *attr.Text
}

// NewLayout lays out text[rng] into the container using the given shaper.
// The container becomes read-only once consumed. Construction is the only
// partial operation of the engine: an invalid range or an area-less container
// yields an error and no layout.
func NewLayout(container *Container, text *attr.Text, rng attr.Range, shaper Shaper) (*Layout, error) {
	if container == nil || text == nil || shaper == nil {
		return nil, ErrInvalidRange
	}
	if rng.Start < 0 || rng.End < rng.Start || rng.End > text.Len() {
		return nil, ErrInvalidRange
	}
	w, h := container.Size()
	if container.Path() == nil && (w < Epsilon || h < Epsilon) {
		return nil, ErrEmptyContainer
	}

	container.attach()
	vertical := container.VerticalForm()
	clip, isRect, separable := container.clipPath()
	frame := FrameAttributes{
		FillRule:      container.FillRule(),
		PathLineWidth: container.PathLineWidth(),
		VerticalForm:  vertical,
	}

	lines, err := shaper.Typeset(text, rng, clip, frame)
	if err != nil {
		container.detach()
		return nil, fmt.Errorf("textframe: typeset: %w", err)
	}

	l := &Layout{
		Container:  container,
		Text:       text,
		Range:      rng,
		vertical:   vertical,
		clip:       clip,
		clipIsRect: isRect,
	}
	l.inner = Rect{0.0, 0.0, w, h}.Inset(container.Insets())
	if p := container.Path(); p != nil {
		l.inner = p.Bounds()
	}

	// shaper space -> layout space
	clipB := clip.Bounds()
	for i := range lines {
		lines[i].Origin = Point{
			clipB.X + lines[i].Origin.X,
			clipB.Y + clipB.H - lines[i].Origin.Y,
		}
		lines[i].Vertical = vertical
	}

	l.assignRows(lines, separable)
	lines, truncated := l.limitRows(lines, container.MaximumRows())

	if len(lines) > 0 {
		l.VisibleRange = attr.Range{Start: rng.Start, End: lines[len(lines)-1].Range.End}
	} else {
		l.VisibleRange = attr.Range{Start: rng.Start, End: rng.Start}
	}
	if !truncated && l.VisibleRange.End < rng.End {
		// the shaper ran out of space before the end of the range
		truncated = true
	}

	if m := container.LinePositionModifier(); m != nil {
		m(lines)
	}
	l.Lines = lines
	l.buildRowIndex()
	l.RowCount = len(l.rowEdges)

	l.TextBoundingRect = Rect{}
	for i := range l.Lines {
		l.TextBoundingRect = l.TextBoundingRect.Add(l.Lines[i].Bounds())
	}
	l.TextBoundingSize = l.boundingSize(container, w, h)

	if truncated && container.TruncationType() != TruncationNone && len(l.Lines) > 0 {
		l.synthesizeTruncation(container, shaper)
	}

	if vertical {
		for i := range l.Lines {
			classifyVerticalForm(&l.Lines[i])
		}
		if l.TruncatedLine != nil {
			classifyVerticalForm(l.TruncatedLine)
		}
	}

	l.scanAttributes(container)
	l.collectAttachments()
	return l, nil
}

// assignRows walks lines in shaper order and groups them into visual rows. A
// new row starts unless rows may be separated and the line's perpendicular
// band overlaps the immediately preceding line's band; the overlap test uses
// whichever of the two bands is wider as the reference. This merges same-row
// fragments produced by exclusion-path carving. The heuristic only considers
// the immediately preceding line; complex shapes producing 3+ fragments per
// row in non-adjacent order can mis-merge, and downstream behavior depends on
// these exact tie-breaks.
func (l *Layout) assignRows(lines []Line, separable bool) {
	row := 0
	for i := range lines {
		lines[i].Index = i
		if i > 0 && !(separable && sameRowBand(&lines[i-1], &lines[i])) {
			row++
		}
		lines[i].Row = row
	}
}

// sameRowBand reports whether b's band overlaps a's along the perpendicular
// axis, testing the narrower line's baseline against the wider line's band.
func sameRowBand(a, b *Line) bool {
	aHead, aFoot := lineRowExtent(a)
	bHead, bFoot := lineRowExtent(b)
	aBase, bBase := baselineRowCoord(a), baselineRowCoord(b)
	if bFoot-bHead > aFoot-aHead {
		return bHead < aBase && aBase < bFoot
	}
	return aHead < bBase && bBase < aFoot
}

func baselineRowCoord(ln *Line) float64 {
	if ln.Vertical {
		return -ln.Origin.X
	}
	return ln.Origin.Y
}

// limitRows drops trailing lines belonging to rows beyond the container's
// limit and reports whether any were dropped.
func (l *Layout) limitRows(lines []Line, maxRows int) ([]Line, bool) {
	if maxRows <= 0 {
		return lines, false
	}
	for i := range lines {
		if lines[i].Row >= maxRows {
			return lines[:i], true
		}
	}
	return lines, false
}

// boundingSize expands the text bounding rect to include the margins on the
// side away from the writing direction, clamps negative components and
// rounds up, avoiding sub-pixel layout thrash.
func (l *Layout) boundingSize(container *Container, w, h float64) Point {
	r := l.TextBoundingRect
	in := container.Insets()
	var size Point
	if l.vertical {
		// columns grow leftwards; measure from the right container edge
		size.X = w - r.X + in.Left
		size.Y = r.Y + r.H + in.Bottom
	} else {
		size.X = r.X + r.W + in.Right
		size.Y = r.Y + r.H + in.Bottom
	}
	if size.X < 0.0 {
		size.X = 0.0
	}
	if size.Y < 0.0 {
		size.Y = 0.0
	}
	return Point{math.Ceil(size.X), math.Ceil(size.Y)}
}

// synthesizeTruncation builds the truncation token (caller-supplied or
// derived from the trailing attributes) and asks the shaper for a truncated
// version of the last line, stored under the same index.
func (l *Layout) synthesizeTruncation(container *Container, shaper Shaper) {
	last := l.Lines[len(l.Lines)-1]
	token := container.TruncationToken()
	if token == nil {
		i := l.VisibleRange.End - 1
		if i < l.VisibleRange.Start {
			i = l.VisibleRange.Start
		}
		token = attr.New("…", l.Text.At(i).TruncationAttributes())
	}
	l.truncationToken = token

	truncated, err := shaper.Truncate(last, token, l.lineAvailableExtent(&last), container.TruncationType())
	if err != nil {
		return
	}
	truncated.Index = last.Index
	truncated.Row = last.Row
	l.TruncatedLine = &truncated
}

// lineAvailableExtent returns the inline extent available to the line within
// its band of the clip path.
func (l *Layout) lineAvailableExtent(ln *Line) float64 {
	inlineExtent := l.inner.W
	if l.vertical {
		inlineExtent = l.inner.H
	}
	if l.clipIsRect {
		return inlineExtent
	}
	head, foot := lineRowExtent(ln)
	lo, hi := head, foot
	if l.vertical {
		lo, hi = -foot, -head
	}
	ivals := l.clip.BandIntervals(l.vertical, lo, hi, l.Container.FillRule())
	start := ln.inlineStart()
	for _, iv := range ivals {
		if iv[0]-Epsilon <= start && start <= iv[1]+Epsilon {
			return iv[1] - start
		}
	}
	return inlineExtent
}

// scanAttributes enumerates attribute spans over the visible range once and
// sets the aggregate presence flags, including the truncation token's
// attributes when one is present.
func (l *Layout) scanAttributes(container *Container) {
	scan := func(s attr.Span) {
		a := s.Attrs
		if a.Highlight {
			l.ContainsHighlight = true
		}
		if a.Underline {
			l.NeedsUnderline = true
		}
		if a.Strikethrough {
			l.NeedsStrikethrough = true
		}
		if a.Shadow != nil {
			l.NeedsShadow = true
		}
		if a.InnerShadow != nil {
			l.NeedsInnerShadow = true
		}
		if a.Border != nil {
			l.NeedsBorder = true
		}
		if a.BackgroundBorder != nil {
			l.NeedsBackgroundBorder = true
		}
		if a.Attachment != nil {
			l.NeedsAttachment = true
		}
	}
	for _, s := range l.Text.Spans() {
		if s.Range.Intersect(l.VisibleRange).Len() > 0 {
			scan(s)
		}
	}
	if l.truncationToken != nil {
		for _, s := range l.truncationToken.Spans() {
			scan(s)
		}
	}
	l.NeedsText = l.VisibleRange.Len() > 0
}

// collectAttachments gathers attachment content, ranges and container-
// relative rects per line, substituting the truncated line where applicable.
func (l *Layout) collectAttachments() {
	for i := range l.Lines {
		ln := &l.Lines[i]
		if l.TruncatedLine != nil && l.TruncatedLine.Index == ln.Index {
			ln = l.TruncatedLine
		}
		for _, s := range l.Text.Spans() {
			if s.Attrs.Attachment == nil {
				continue
			}
			r := s.Range.Intersect(ln.Range)
			if r.Len() == 0 {
				continue
			}
			x0, ok0 := ln.caretInline(r.Start, false)
			x1, ok1 := ln.caretInline(r.End, true)
			if !ok0 || !ok1 {
				continue
			}
			if x1 < x0 {
				x0, x1 = x1, x0
			}
			var rect Rect
			if l.vertical {
				rect = Rect{ln.Origin.X - ln.Descent, ln.Origin.Y + x0, ln.Ascent + ln.Descent, x1 - x0}
			} else {
				rect = Rect{ln.Origin.X + x0, ln.Origin.Y - ln.Ascent, x1 - x0, ln.Ascent + ln.Descent}
			}
			l.Attachments = append(l.Attachments, Attachment{
				Content: s.Attrs.Attachment.Content,
				Range:   r,
				Rect:    rect,
			})
		}
	}
}

// LineAt returns the line at index i, substituting the truncated line; this
// is the renderer-facing accessor.
func (l *Layout) LineAt(i int) *Line {
	if i < 0 || i >= len(l.Lines) {
		return nil
	}
	if l.TruncatedLine != nil && l.TruncatedLine.Index == i {
		return l.TruncatedLine
	}
	return &l.Lines[i]
}

// LineCount returns the number of lines.
func (l *Layout) LineCount() int {
	return len(l.Lines)
}

// VerticalForm returns whether the layout uses the vertical writing axis.
func (l *Layout) VerticalForm() bool {
	return l.vertical
}
