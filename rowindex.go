package textframe

import (
	"math"
	"sort"
)

// rowEdge is one row's extent along the axis perpendicular to the writing
// axis, in row coordinates: Y for horizontal form, negated X for vertical
// form (vertical rows progress right to left, so negating X keeps row
// coordinates increasing with the row index). After fencing, row[i].foot ==
// row[i+1].head, so the table partitions the perpendicular space with no
// gaps or overlaps.
type rowEdge struct {
	head, foot float64
}

// rowCoord maps a layout-space point onto the perpendicular row axis.
func (l *Layout) rowCoord(p Point) float64 {
	if l.vertical {
		return -p.X
	}
	return p.Y
}

// lineRowExtent returns a line's head and foot in row coordinates.
func lineRowExtent(ln *Line) (float64, float64) {
	b := ln.Bounds()
	if ln.Vertical {
		return -(b.X + b.W), -b.X
	}
	return b.Y, b.Y + b.H
}

// buildRowIndex builds the fenced per-row edge table and the per-row line
// index ranges from the final line set.
func (l *Layout) buildRowIndex() {
	l.rowEdges = nil
	l.rowLines = nil
	row := -1
	for i := range l.Lines {
		ln := &l.Lines[i]
		head, foot := lineRowExtent(ln)
		if ln.Row != row {
			row = ln.Row
			l.rowEdges = append(l.rowEdges, rowEdge{head, foot})
			l.rowLines = append(l.rowLines, [2]int{i, i})
			continue
		}
		e := &l.rowEdges[len(l.rowEdges)-1]
		e.head = math.Min(e.head, head)
		e.foot = math.Max(e.foot, foot)
		l.rowLines[len(l.rowLines)-1][1] = i
	}
	// fence adjacent rows at the midpoint between one row's trailing edge and
	// the next row's leading edge
	for i := 0; i+1 < len(l.rowEdges); i++ {
		mid := (l.rowEdges[i].foot + l.rowEdges[i+1].head) / 2.0
		l.rowEdges[i].foot = mid
		l.rowEdges[i+1].head = mid
	}
}

// RowIndexAt returns the row containing the given perpendicular offset (Y in
// horizontal form, X in vertical form), or -1 when the offset lies outside
// all rows.
func (l *Layout) RowIndexAt(offset float64) int {
	u := offset
	if l.vertical {
		u = -offset
	}
	return l.rowIndexForCoord(u)
}

func (l *Layout) rowIndexForCoord(u float64) int {
	n := len(l.rowEdges)
	if n == 0 || u < l.rowEdges[0].head || u > l.rowEdges[n-1].foot {
		return -1
	}
	i := sort.Search(n, func(i int) bool {
		return u <= l.rowEdges[i].foot
	})
	if i == n {
		i = n - 1
	}
	return i
}

// ClosestRowIndexAt behaves like RowIndexAt but clamps offsets outside the
// layout to the first or last row. It returns -1 only for an empty layout.
func (l *Layout) ClosestRowIndexAt(offset float64) int {
	u := offset
	if l.vertical {
		u = -offset
	}
	n := len(l.rowEdges)
	if n == 0 {
		return -1
	}
	if u < l.rowEdges[0].head {
		return 0
	}
	if u > l.rowEdges[n-1].foot {
		return n - 1
	}
	return l.rowIndexForCoord(u)
}

// rowExtent returns the fenced head and foot of a row in row coordinates.
func (l *Layout) rowExtent(row int) (float64, float64) {
	e := l.rowEdges[row]
	return e.head, e.foot
}

// linesInRow returns the index range [first,last] of lines belonging to row.
func (l *Layout) linesInRow(row int) (int, int) {
	r := l.rowLines[row]
	return r[0], r[1]
}
