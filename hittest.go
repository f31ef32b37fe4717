package textframe

import (
	"math"

	"github.com/rivo/uniseg"

	"github.com/textframe/textframe/attr"
)

// hitNudge is the tiny offset added along the writing axis before hit-testing
// to sidestep a ligature-boundary ambiguity in shaper index lookups.
const hitNudge = 1e-4

// inlineCoord returns p's inline-axis coordinate relative to the line origin.
func (l *Layout) inlineCoord(p Point, ln *Line) float64 {
	if l.vertical {
		return p.Y - ln.Origin.Y
	}
	return p.X - ln.Origin.X
}

// closestLineForPoint returns the index of the line closest to p: the closest
// row first, then the line within that row whose inline extent contains (or
// lies nearest to) p.
func (l *Layout) closestLineForPoint(p Point) int {
	axis := p.Y
	if l.vertical {
		axis = p.X
	}
	row := l.ClosestRowIndexAt(axis)
	if row < 0 {
		return -1
	}
	first, last := l.linesInRow(row)
	best, bestDist := first, math.Inf(1)
	for i := first; i <= last; i++ {
		ln := &l.Lines[i]
		inline := l.inlineCoord(p, ln)
		d := 0.0
		if inline < 0.0 {
			d = -inline
		} else if inline > ln.Width {
			d = inline - ln.Width
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// LineIndexForPosition returns the index of the line containing the position,
// honoring affinity at wrap boundaries.
func (l *Layout) LineIndexForPosition(pos TextPosition) int {
	if len(l.Lines) == 0 {
		return -1
	}
	for i := range l.Lines {
		r := l.Lines[i].Range
		if r.Inside(pos.Offset) {
			return i
		}
		if pos.Offset == r.Start && (pos.Affinity == Forward || i == 0) {
			return i
		}
		if pos.Offset == r.End && pos.Affinity == Backward {
			return i
		}
	}
	if pos.Offset <= l.Lines[0].Range.Start {
		return 0
	}
	return len(l.Lines) - 1
}

// OffsetForPosition returns the inline-axis layout coordinate of the caret
// at pos: an x coordinate in horizontal form, a y coordinate in vertical
// form. It returns NaN when the layout has no lines.
func (l *Layout) OffsetForPosition(pos TextPosition) float64 {
	li := l.LineIndexForPosition(pos)
	if li < 0 {
		return math.NaN()
	}
	return l.inlineCaret(&l.Lines[li], l.VisibleRange.Clamp(pos.Offset), pos.Affinity == Backward)
}

// clusterRange returns the grapheme cluster containing rune offset i. Emoji
// sequences and CRLF pairs are single clusters.
func (l *Layout) clusterRange(i int) attr.Range {
	off := 0
	gr := uniseg.NewGraphemes(l.Text.String())
	for gr.Next() {
		n := len(gr.Runes())
		if i < off+n {
			return attr.Range{Start: off, End: off + n}
		}
		off += n
	}
	return attr.Range{Start: i, End: i}
}

// unitRange returns the atomic editable unit at rune offset i: the binding
// range when i falls inside one, otherwise the grapheme cluster.
func (l *Layout) unitRange(i int) attr.Range {
	if br, ok := l.Text.BindingAt(i); ok {
		return br
	}
	return l.clusterRange(i)
}

// nextUnitBoundary returns the end of the unit starting at or covering i.
func (l *Layout) nextUnitBoundary(i int) int {
	if i >= l.VisibleRange.End {
		return l.VisibleRange.End
	}
	return l.VisibleRange.Clamp(l.unitRange(i).End)
}

// prevUnitBoundary returns the start of the unit ending at or covering i.
func (l *Layout) prevUnitBoundary(i int) int {
	if i <= l.VisibleRange.Start {
		return l.VisibleRange.Start
	}
	return l.VisibleRange.Clamp(l.unitRange(i - 1).Start)
}

// ClosestPositionToPoint maps a point to the closest valid text position. It
// is aware of grapheme clusters, emoji sequences, atomic binding ranges and
// bidi affinity. It returns false only when the layout has no lines.
func (l *Layout) ClosestPositionToPoint(p Point) (TextPosition, bool) {
	if len(l.Lines) == 0 {
		return TextPosition{}, false
	}
	if l.vertical {
		p.Y += hitNudge
	} else {
		p.X += hitNudge
	}

	li := l.closestLineForPoint(p)
	ln := &l.Lines[li]
	inline := l.inlineCoord(p, ln)
	idx, rtl := ln.indexForInline(inline)
	idx = l.VisibleRange.Clamp(idx)

	if br, ok := l.Text.BindingAt(idx); ok && br.Inside(idx) {
		idx = l.snapBinding(br, li, p, inline)
	}

	if ln.Range.Len() == 0 {
		aff := Forward
		if li == len(l.Lines)-1 {
			aff = Backward
		}
		return TextPosition{ln.Range.Start, aff}, true
	}

	if cr := l.clusterRange(idx); cr.Inside(idx) {
		idx = l.snapCluster(cr, ln, inline)
	}

	if idx >= ln.Range.End && ln.Range.End > ln.Range.Start {
		return TextPosition{ln.Range.End, Backward}, true
	}
	if idx <= ln.Range.Start {
		return TextPosition{ln.Range.Start, Forward}, true
	}
	cx, ok := ln.caretInline(idx, false)
	aff := Forward
	if ok {
		before := inline < cx
		if rtl {
			before = !before
		}
		if before {
			aff = Backward
		}
	}
	return TextPosition{idx, aff}, true
}

// snapBinding snaps an offset inside an atomic binding range to whichever end
// is geometrically closer. When the binding spans several lines, the nearer
// line's boundary of the binding wins.
func (l *Layout) snapBinding(br attr.Range, li int, p Point, inline float64) int {
	ln := &l.Lines[li]
	startIn := br.Start >= ln.Range.Start
	endIn := br.End <= ln.Range.End
	if startIn && endIn {
		x0, ok0 := ln.caretInline(br.Start, false)
		x1, ok1 := ln.caretInline(br.End, true)
		if ok0 && ok1 && math.Abs(inline-x1) < math.Abs(inline-x0) {
			return br.End
		}
		return br.Start
	}
	if startIn {
		return br.Start
	}
	if endIn {
		return br.End
	}
	// the binding covers this whole line; pick the end whose line band lies
	// closer to the point
	sd := l.rowDistance(p, l.LineIndexForPosition(TextPosition{br.Start, Forward}))
	ed := l.rowDistance(p, l.LineIndexForPosition(TextPosition{br.End, Backward}))
	if ed < sd {
		return br.End
	}
	return br.Start
}

// rowDistance returns the perpendicular distance from p to the band of the
// given line.
func (l *Layout) rowDistance(p Point, li int) float64 {
	if li < 0 {
		return math.Inf(1)
	}
	head, foot := lineRowExtent(&l.Lines[li])
	u := l.rowCoord(p)
	if u < head {
		return head - u
	}
	if u > foot {
		return u - foot
	}
	return 0.0
}

// snapCluster snaps an offset strictly inside a grapheme cluster to whichever
// boundary is closer along the writing axis.
func (l *Layout) snapCluster(cr attr.Range, ln *Line, inline float64) int {
	start := cr.Start
	if start < ln.Range.Start {
		start = ln.Range.Start
	}
	end := cr.End
	if end > ln.Range.End {
		end = ln.Range.End
	}
	x0, ok0 := ln.caretInline(start, false)
	x1, ok1 := ln.caretInline(end, true)
	if !ok0 || !ok1 {
		return start
	}
	if math.Abs(inline-x1) < math.Abs(inline-x0) {
		return end
	}
	return start
}

// TextRangeByExtending returns the atomic editable unit enclosing the
// position: a binding range, an emoji or composed-character cluster, or a
// CRLF pair. A position not inside any such unit yields a zero-length range.
// This is the single source of truth for "what is one editable unit here."
func (l *Layout) TextRangeByExtending(pos TextPosition) TextRange {
	off := l.VisibleRange.Clamp(pos.Offset)
	if br, ok := l.Text.BindingAt(off); ok && br.Inside(off) {
		return NewTextRange(TextPosition{br.Start, Forward}, TextPosition{br.End, Backward})
	}
	if cr := l.clusterRange(off); cr.Inside(off) {
		return NewTextRange(TextPosition{cr.Start, Forward}, TextPosition{cr.End, Backward})
	}
	return TextRange{TextPosition{off, pos.Affinity}, TextPosition{off, pos.Affinity}}
}

// TextRangeAtPoint returns the single-unit range under the point, or false
// when the point lies outside the laid-out text.
func (l *Layout) TextRangeAtPoint(p Point) (TextRange, bool) {
	if !l.TextBoundingRect.Contains(p) {
		return TextRange{}, false
	}
	return l.ClosestTextRangeAtPoint(p)
}

// ClosestTextRangeAtPoint resolves the closest position and extends it by one
// unit away from the clicked side, producing a one-character (or atomic-unit)
// range. It returns false only when the layout has no lines.
func (l *Layout) ClosestTextRangeAtPoint(p Point) (TextRange, bool) {
	pos, ok := l.ClosestPositionToPoint(p)
	if !ok {
		return TextRange{}, false
	}
	if r := l.TextRangeByExtending(pos); !r.IsCaret() {
		return r, true
	}
	if pos.Affinity == Backward {
		start := l.prevUnitBoundary(pos.Offset)
		if start < pos.Offset {
			return NewTextRange(TextPosition{start, Forward}, pos), true
		}
		pos.Affinity = Forward
	}
	end := l.nextUnitBoundary(pos.Offset)
	if end > pos.Offset {
		return NewTextRange(pos, TextPosition{end, Backward}), true
	}
	start := l.prevUnitBoundary(pos.Offset)
	return NewTextRange(TextPosition{start, Forward}, pos), true
}
