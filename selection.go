package textframe

import (
	"sort"

	"github.com/textframe/textframe/attr"
)

// SelectionRect is one rectangle of a selection's geometry. The two
// zero-thickness grabber rects carry ContainsStart/ContainsEnd; fill rects
// carry neither. RTL reports the writing direction at the rect.
type SelectionRect struct {
	Rect          Rect
	ContainsStart bool
	ContainsEnd   bool
	RTL           bool
}

// lineCaretRect returns the zero-thickness caret rect at rune offset off on
// the given line, spanning the line's ascent and descent.
func (l *Layout) lineCaretRect(ln *Line, off int, trailing bool) Rect {
	if off < ln.Range.Start {
		off = ln.Range.Start
	} else if off > ln.Range.End {
		off = ln.Range.End
	}
	x, ok := ln.caretInline(off, trailing)
	if !ok {
		x = 0.0
		if off >= ln.Range.End {
			x = ln.Width
		}
	}
	if l.vertical {
		return Rect{ln.Origin.X - ln.Descent, ln.Origin.Y + x, ln.Ascent + ln.Descent, 0.0}
	}
	return Rect{ln.Origin.X + x, ln.Origin.Y - ln.Ascent, 0.0, ln.Ascent + ln.Descent}
}

// inlineCaret returns the absolute inline-axis coordinate of the caret at off
// on the line.
func (l *Layout) inlineCaret(ln *Line, off int, trailing bool) float64 {
	x, ok := ln.caretInline(off, trailing)
	if !ok {
		x = 0.0
		if off >= ln.Range.End {
			x = ln.Width
		}
	}
	if l.vertical {
		return ln.Origin.Y + x
	}
	return ln.Origin.X + x
}

// inlineExtent returns the container's inline-axis bounds, the full extent a
// selection row band can span.
func (l *Layout) inlineExtent() (float64, float64) {
	if l.vertical {
		return l.inner.Y, l.inner.Y + l.inner.H
	}
	return l.inner.X, l.inner.X + l.inner.W
}

// CaretRectForPosition returns the caret rect for a position: zero width in
// horizontal form, zero height in vertical form.
func (l *Layout) CaretRectForPosition(pos TextPosition) Rect {
	li := l.LineIndexForPosition(pos)
	if li < 0 {
		return Rect{}
	}
	return l.lineCaretRect(&l.Lines[li], l.VisibleRange.Clamp(pos.Offset), pos.Affinity == Backward)
}

// lineSelectionSpans returns the absolute inline-axis intervals covered by
// sel on the line, one interval per intersected run so partially selected
// bidi lines yield disjoint pieces.
func (l *Layout) lineSelectionSpans(ln *Line, sel attr.Range) [][2]float64 {
	base := ln.Origin.X
	if l.vertical {
		base = ln.Origin.Y
	}
	var spans [][2]float64
	for ri := range ln.Runs {
		rn := &ln.Runs[ri]
		if rn.Token {
			continue
		}
		rr := rn.Range.Intersect(sel)
		if rr.Len() <= 0 {
			continue
		}
		x0, ok0 := ln.caretInline(rr.Start, false)
		x1, ok1 := ln.caretInline(rr.End, true)
		if !ok0 || !ok1 {
			continue
		}
		if x1 < x0 {
			x0, x1 = x1, x0
		}
		spans = append(spans, [2]float64{base + x0, base + x1})
	}
	if len(spans) == 0 && ln.Range.Len() == 0 && sel.Contains(ln.Range.Start) {
		spans = append(spans, [2]float64{base, base})
	}
	return mergeSpans(spans)
}

// mergeSpans sorts the intervals and merges ones that touch or overlap.
func mergeSpans(spans [][2]float64) [][2]float64 {
	if len(spans) < 2 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	out := spans[:1]
	for _, sp := range spans[1:] {
		last := &out[len(out)-1]
		if sp[0] <= last[1]+Epsilon {
			if sp[1] > last[1] {
				last[1] = sp[1]
			}
			continue
		}
		out = append(out, sp)
	}
	return out
}

// rowSelectionSpans merges the selection intervals of every line in the row.
func (l *Layout) rowSelectionSpans(row int, sel attr.Range) [][2]float64 {
	first, last := l.linesInRow(row)
	var spans [][2]float64
	for i := first; i <= last; i++ {
		spans = append(spans, l.lineSelectionSpans(&l.Lines[i], sel)...)
	}
	return mergeSpans(spans)
}

// rowBandRect builds a rect covering the fenced band of a row between two
// absolute inline coordinates. Because row bands are fenced, rects of
// adjacent rows tile with no gaps.
func (l *Layout) rowBandRect(row int, lo, hi float64) Rect {
	head, foot := l.rowExtent(row)
	if hi < lo {
		lo, hi = hi, lo
	}
	if l.vertical {
		return Rect{-foot, lo, foot - head, hi - lo}
	}
	return Rect{lo, head, hi - lo, foot - head}
}

// bandRect is rowBandRect over an explicit head/foot band.
func (l *Layout) bandRect(head, foot, lo, hi float64) Rect {
	if l.vertical {
		return Rect{-foot, lo, foot - head, hi - lo}
	}
	return Rect{lo, head, hi - lo, foot - head}
}

// SelectionRects returns the full selection geometry for a range: the two
// zero-thickness grabber rects first, then the fill rects. A selection
// spanning several rows yields a start-row partial reaching the row's far
// edge, a single merged rect spanning the container's inline extent for all
// rows in between, and an end-row partial from the near edge; the partials
// and the merged rect tile along the fenced row bands.
func (l *Layout) SelectionRects(rng TextRange) []SelectionRect {
	if len(l.Lines) == 0 {
		return nil
	}
	sOff := l.VisibleRange.Clamp(rng.Start.Offset)
	eOff := l.VisibleRange.Clamp(rng.End.Offset)
	if eOff < sOff {
		sOff, eOff = eOff, sOff
	}
	sLi := l.LineIndexForPosition(TextPosition{sOff, Forward})
	eLi := l.LineIndexForPosition(TextPosition{eOff, Backward})
	if sLi < 0 || eLi < 0 {
		return nil
	}
	if eLi < sLi {
		sLi, eLi = eLi, sLi
	}
	startLn, endLn := &l.Lines[sLi], &l.Lines[eLi]

	rects := []SelectionRect{
		{
			Rect:          l.lineCaretRect(startLn, sOff, false),
			ContainsStart: true,
			RTL:           startLn.rtlAt(sOff),
		},
		{
			Rect:        l.lineCaretRect(endLn, eOff, true),
			ContainsEnd: true,
			RTL:         endLn.rtlAt(eOff - 1),
		},
	}
	if sOff >= eOff {
		return rects
	}

	sel := attr.Range{Start: sOff, End: eOff}
	sRow, eRow := startLn.Row, endLn.Row

	if sRow == eRow {
		for _, sp := range l.rowSelectionSpans(sRow, sel) {
			rects = append(rects, SelectionRect{Rect: l.rowBandRect(sRow, sp[0], sp[1])})
		}
		return rects
	}

	// start-row partial: from the start offset to the row's far edge,
	// flipped when the boundary run is RTL
	inLo, inHi := l.inlineExtent()
	sx := l.inlineCaret(startLn, sOff, false)
	if rects[0].RTL {
		rects = append(rects, SelectionRect{Rect: l.rowBandRect(sRow, inLo, sx)})
	} else {
		rects = append(rects, SelectionRect{Rect: l.rowBandRect(sRow, sx, inHi)})
	}
	// the merged middle rect spans the container's full inline extent
	if eRow-sRow >= 2 {
		head, _ := l.rowExtent(sRow + 1)
		_, foot := l.rowExtent(eRow - 1)
		rects = append(rects, SelectionRect{Rect: l.bandRect(head, foot, inLo, inHi)})
	}
	ex := l.inlineCaret(endLn, eOff, true)
	if rects[1].RTL {
		rects = append(rects, SelectionRect{Rect: l.rowBandRect(eRow, ex, inHi)})
	} else {
		rects = append(rects, SelectionRect{Rect: l.rowBandRect(eRow, inLo, ex)})
	}
	return rects
}

// RectForRange returns the union of the selection's fill rects, or the caret
// rect for a zero-length range.
func (l *Layout) RectForRange(rng TextRange) Rect {
	var u Rect
	for _, sr := range l.SelectionRects(rng) {
		if sr.ContainsStart || sr.ContainsEnd {
			continue
		}
		u = u.Add(sr.Rect)
	}
	if u.Empty() {
		return l.CaretRectForPosition(rng.Start)
	}
	return u
}

// FirstRectForRange returns the fill rect on the first row touched by the
// range, falling back to the caret rect.
func (l *Layout) FirstRectForRange(rng TextRange) Rect {
	for _, sr := range l.SelectionRects(rng) {
		if sr.ContainsStart || sr.ContainsEnd {
			continue
		}
		return sr.Rect
	}
	return l.CaretRectForPosition(rng.Start)
}
