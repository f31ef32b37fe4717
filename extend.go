package textframe

import "math"

// LayoutDirection is a visual direction used when extending a position, as a
// caret would move under arrow keys.
type LayoutDirection int

// see LayoutDirection
const (
	DirectionLeft LayoutDirection = iota
	DirectionRight
	DirectionUp
	DirectionDown
)

func (d LayoutDirection) opposite() LayoutDirection {
	switch d {
	case DirectionLeft:
		return DirectionRight
	case DirectionRight:
		return DirectionLeft
	case DirectionUp:
		return DirectionDown
	default:
		return DirectionUp
	}
}

// directionStep maps a visual direction onto the layout's axes: sameAxis is
// true when the direction runs along the writing axis, forward gives the
// logical direction for same-axis moves, and rowDelta the row step for
// cross-axis moves. Vertical form swaps the roles: Up/Down run along columns
// and Left/Right step between them, with Left advancing because columns
// progress right to left.
func (l *Layout) directionStep(dir LayoutDirection) (sameAxis, forward bool, rowDelta int) {
	if l.vertical {
		switch dir {
		case DirectionUp:
			return true, false, 0
		case DirectionDown:
			return true, true, 0
		case DirectionLeft:
			return false, false, 1
		default: // DirectionRight
			return false, false, -1
		}
	}
	switch dir {
	case DirectionLeft:
		return true, false, 0
	case DirectionRight:
		return true, true, 0
	case DirectionUp:
		return false, false, -1
	default: // DirectionDown
		return false, false, 1
	}
}

// lineBreakTail returns the number of trailing line-break runes of the line:
// 2 for CRLF, 1 for a lone break character, 0 otherwise.
func (l *Layout) lineBreakTail(ln *Line) int {
	r := ln.Range
	if r.Len() == 0 {
		return 0
	}
	runes := l.Text.Runes()
	switch runes[r.End-1] {
	case '\n':
		if r.Len() > 1 && runes[r.End-2] == '\r' {
			return 2
		}
		return 1
	case '\r', '\u0085', '\u2028', '\u2029':
		return 1
	}
	return 0
}

// TextRangeByExtendingInDirection extends a position by count units in a
// visual direction and returns the covered range. Along the writing axis it
// walks atomic units (graphemes, emoji sequences, bindings, CRLF pairs) and
// clamps at the visible range, returning whatever remains. Across rows it
// moves count rows, clamped to the first or last row, and resolves the
// position in the target row closest to the anchor's inline coordinate,
// never landing inside the target line's trailing line break.
func (l *Layout) TextRangeByExtendingInDirection(pos TextPosition, dir LayoutDirection, count int) TextRange {
	if count < 0 {
		count, dir = -count, dir.opposite()
	}
	if count == 0 || len(l.Lines) == 0 {
		return TextRange{pos, pos}
	}

	sameAxis, forward, rowDelta := l.directionStep(dir)
	if sameAxis {
		off := l.VisibleRange.Clamp(pos.Offset)
		for i := 0; i < count; i++ {
			var next int
			if forward {
				next = l.nextUnitBoundary(off)
			} else {
				next = l.prevUnitBoundary(off)
			}
			if next == off {
				break
			}
			off = next
		}
		aff := Forward
		if forward {
			aff = Backward
		}
		return NewTextRange(pos, TextPosition{off, aff})
	}

	li := l.LineIndexForPosition(pos)
	if li < 0 {
		return TextRange{pos, pos}
	}
	ln := &l.Lines[li]
	row := ln.Row + rowDelta*count
	if row < 0 {
		row = 0
	} else if row >= l.RowCount {
		row = l.RowCount - 1
	}
	if row == ln.Row {
		return TextRange{pos, pos}
	}

	off := pos.Offset
	if off < ln.Range.Start {
		off = ln.Range.Start
	} else if off > ln.Range.End {
		off = ln.Range.End
	}
	x, ok := ln.caretInline(off, pos.Affinity == Backward)
	if !ok {
		x = 0.0
	}
	base := ln.Origin.X
	if l.vertical {
		base = ln.Origin.Y
	}
	anchor := base + x

	// the line in the target row whose inline extent contains (or lies
	// closest to) the anchor
	first, last := l.linesInRow(row)
	pick, bestDist := first, math.Inf(1)
	for i := first; i <= last; i++ {
		cand := &l.Lines[i]
		cb := cand.Origin.X
		if l.vertical {
			cb = cand.Origin.Y
		}
		d := 0.0
		if anchor < cb {
			d = cb - anchor
		} else if anchor > cb+cand.Width {
			d = anchor - (cb + cand.Width)
		}
		if d < bestDist {
			pick, bestDist = i, d
		}
	}
	target := &l.Lines[pick]
	tb := target.Origin.X
	if l.vertical {
		tb = target.Origin.Y
	}
	idx, _ := target.indexForInline(anchor - tb)
	idx = l.VisibleRange.Clamp(idx)

	// never land past the target line's break characters
	if tail := l.lineBreakTail(target); tail > 0 && idx > target.Range.End-tail {
		idx = target.Range.End - tail
	}
	aff := Forward
	if idx == target.Range.End && target.Range.Len() > 0 {
		aff = Backward
	}
	return NewTextRange(pos, TextPosition{idx, aff})
}
