package textframe

import (
	"math"

	"golang.org/x/image/math/fixed"

	"github.com/textframe/textframe/attr"
)

// FrameAttributes carries the container settings a Shaper needs to consume
// the clip path and to pick the writing axis.
type FrameAttributes struct {
	FillRule      FillRule
	PathLineWidth float64
	VerticalForm  bool
}

// Shaper turns a run of attributed text plus a geometric clip path into
// positioned lines of glyph runs. The layout engine treats it as a black box;
// production implementations live in shaper/gotext and shaper/sfnt.
//
// Line origins are returned in shaper space: a Cartesian space whose origin
// sits at the bottom-left corner of the clip path's bounding rectangle with Y
// increasing upwards. The layout builder converts them into the top-left
// layout space. A nil clip requests a single unconstrained line, which the
// engine uses to shape truncation tokens.
type Shaper interface {
	Typeset(text *attr.Text, rng attr.Range, clip *Path, frame FrameAttributes) ([]Line, error)

	// Truncate fits line into maxExtent along the writing axis with the
	// shaped token spliced in at the given edge. Implementations may simply
	// shape the token and delegate to TruncateLine.
	Truncate(line Line, token *attr.Text, maxExtent float64, side TruncationType) (Line, error)
}

// Glyph is one shaped glyph. Cluster is the rune offset of its cluster in the
// layout's source text and Runes the cluster's rune count; several glyphs may
// share a cluster. Metrics are in 26.6 fixed point, in layout units.
type Glyph struct {
	ID      uint32
	Cluster int
	Runes   int

	XAdvance, YAdvance fixed.Int26_6
	XOffset, YOffset   fixed.Int26_6

	// Rune is the representative rune of the cluster, used for vertical-form
	// classification.
	Rune rune
}

// Advance returns the glyph's advance along the writing axis.
func (g Glyph) Advance(vertical bool) float64 {
	if vertical {
		return math.Abs(fromI26_6(g.YAdvance))
	}
	return fromI26_6(g.XAdvance)
}

// GlyphOrientation classifies how a glyph is drawn in vertical form.
type GlyphOrientation int

// see GlyphOrientation
const (
	OrientationHorizontal GlyphOrientation = iota // drawn upright, as in horizontal text
	OrientationRotate                             // rotated 90° clockwise
	OrientationRotateMove                         // rotated and shifted towards the flow
)

// GlyphRotationRange groups contiguous glyphs of a run sharing one vertical-
// form orientation. Start and End index into Run.Glyphs.
type GlyphRotationRange struct {
	Start, End  int
	Orientation GlyphOrientation
}

// Run is a maximal span of glyphs within a line sharing direction and face.
// X is the run's inline-axis offset from the line origin; runs are stored in
// visual order.
type Run struct {
	Glyphs []Glyph
	Range  attr.Range
	RTL    bool

	X       float64
	Advance float64
	Ascent  float64
	Descent float64

	// Face is the opaque face reference the shaper resolved for this run,
	// passed through to the renderer.
	Face any

	// Token marks runs that belong to a spliced-in truncation token; their
	// Range refers to the token text and they are invisible to hit-testing.
	Token bool

	// Rotations is filled during vertical-form layout construction.
	Rotations []GlyphRotationRange
}

// Line is one shaped output unit: ordered glyph runs with a baseline origin.
// Index is its position among all lines of the layout and Row the visual row
// it belongs to; several lines share a row when exclusion paths split a band.
type Line struct {
	Runs    []Run
	Origin  Point
	Ascent  float64
	Descent float64
	Width   float64
	Range   attr.Range

	Index    int
	Row      int
	Vertical bool
}

// Bounds returns the line's bounding rectangle in layout space. In vertical
// form the ascent extends to the right of the baseline and the line runs
// downwards.
func (ln *Line) Bounds() Rect {
	if ln.Vertical {
		return Rect{ln.Origin.X - ln.Descent, ln.Origin.Y, ln.Ascent + ln.Descent, ln.Width}
	}
	return Rect{ln.Origin.X, ln.Origin.Y - ln.Ascent, ln.Width, ln.Ascent + ln.Descent}
}

// inlineStart returns the absolute inline-axis coordinate of the line start.
func (ln *Line) inlineStart() float64 {
	if ln.Vertical {
		return ln.Origin.Y
	}
	return ln.Origin.X
}

// caret is a possible cursor boundary within a line: a rune offset with its
// inline-axis coordinate relative to the line origin.
type caret struct {
	index      int
	x          float64
	rtl        bool
	atRunStart bool
	atRunEnd   bool
}

// carets returns every rune boundary of the line with its inline coordinate,
// in visual order. Boundaries shared by two runs appear twice, once per run,
// which is what lets affinity pick a side on bidi boundaries.
func (ln *Line) carets() []caret {
	var cs []caret
	for _, rn := range ln.Runs {
		if rn.Token {
			continue
		}
		cs = append(cs, rn.boundaries()...)
	}
	return cs
}

// boundaries returns the run's rune boundaries with inline coordinates
// relative to the line origin.
func (rn *Run) boundaries() []caret {
	var cs []caret
	emit := func(index int, x float64) {
		cs = append(cs, caret{
			index:      index,
			x:          rn.X + x,
			rtl:        rn.RTL,
			atRunStart: index == rn.Range.Start,
			atRunEnd:   index == rn.Range.End,
		})
	}
	vertical := rn.vertical()
	x := 0.0
	i := 0
	for i < len(rn.Glyphs) {
		// group glyphs sharing a cluster
		j := i
		width := 0.0
		for j < len(rn.Glyphs) && rn.Glyphs[j].Cluster == rn.Glyphs[i].Cluster {
			width += rn.Glyphs[j].Advance(vertical)
			j++
		}
		start := rn.Glyphs[i].Cluster
		n := rn.Glyphs[i].Runes
		if n < 1 {
			n = 1
		}
		for k := 0; k <= n; k++ {
			frac := float64(k) / float64(n)
			if rn.RTL {
				emit(start+k, x+width*(1.0-frac))
			} else {
				emit(start+k, x+width*frac)
			}
		}
		x += width
		i = j
	}
	if len(rn.Glyphs) == 0 {
		emit(rn.Range.Start, 0.0)
		if rn.Range.End > rn.Range.Start {
			emit(rn.Range.End, 0.0)
		}
	}
	return cs
}

func (rn *Run) vertical() bool {
	for _, g := range rn.Glyphs {
		if g.YAdvance != 0 {
			return true
		}
	}
	return false
}

// indexForInline returns the rune offset whose caret lies closest to the
// given inline coordinate (relative to the line origin), and whether that
// caret belongs to an RTL run.
func (ln *Line) indexForInline(x float64) (int, bool) {
	cs := ln.carets()
	if len(cs) == 0 {
		return ln.Range.Start, false
	}
	best := cs[0]
	bestDist := math.Abs(cs[0].x - x)
	for _, c := range cs[1:] {
		if d := math.Abs(c.x - x); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best.index, best.rtl
}

// caretInline returns the inline coordinate of the caret at rune offset i,
// relative to the line origin. When the boundary is shared between two runs,
// trailing picks the coordinate at the end of the earlier content.
func (ln *Line) caretInline(i int, trailing bool) (float64, bool) {
	var found *caret
	for _, c := range ln.carets() {
		if c.index != i {
			continue
		}
		c := c
		if found == nil {
			found = &c
			continue
		}
		if trailing && c.atRunEnd && !found.atRunEnd {
			found = &c
		} else if !trailing && c.atRunStart && !found.atRunStart {
			found = &c
		}
	}
	if found == nil {
		return 0.0, false
	}
	return found.x, true
}

// rtlAt returns the direction of the run containing rune offset i.
func (ln *Line) rtlAt(i int) bool {
	for _, rn := range ln.Runs {
		if !rn.Token && rn.Range.Contains(i) {
			return rn.RTL
		}
	}
	if n := len(ln.Runs); n > 0 {
		return ln.Runs[n-1].RTL
	}
	return false
}

// TruncateLine fits line into maxExtent along the writing axis, splicing the
// shaped token at the requested edge. Content is removed in logical order at
// cluster boundaries until the remainder plus the token fit. Shaper
// implementations may use this as their Truncate; ones that can re-shape the
// surviving text should prefer that.
func TruncateLine(line Line, token Line, maxExtent float64, side TruncationType) Line {
	if side == TruncationNone {
		return line
	}
	budget := maxExtent - token.Width
	if budget < 0.0 {
		budget = 0.0
	}

	type group struct {
		cluster, runes int
		width          float64
	}
	var groups []group
	for _, rn := range line.Runs {
		vertical := rn.vertical()
		i := 0
		for i < len(rn.Glyphs) {
			j := i
			width := 0.0
			for j < len(rn.Glyphs) && rn.Glyphs[j].Cluster == rn.Glyphs[i].Cluster {
				width += rn.Glyphs[j].Advance(vertical)
				j++
			}
			groups = append(groups, group{rn.Glyphs[i].Cluster, rn.Glyphs[i].Runes, width})
			i = j
		}
	}
	// logical order
	for i := 1; i < len(groups); i++ {
		for j := i; j > 0 && groups[j].cluster < groups[j-1].cluster; j-- {
			groups[j], groups[j-1] = groups[j-1], groups[j]
		}
	}

	keep := func(from int, limit float64) int { // rune offset reached from the front
		w := 0.0
		end := line.Range.Start
		for _, g := range groups {
			if g.cluster < from {
				continue
			}
			if w+g.width > limit {
				break
			}
			w += g.width
			end = g.cluster + g.runes
		}
		return end
	}
	keepBack := func(limit float64) int { // rune offset reached from the back
		w := 0.0
		start := line.Range.End
		for i := len(groups) - 1; i >= 0; i-- {
			g := groups[i]
			if w+g.width > limit {
				break
			}
			w += g.width
			start = g.cluster
		}
		return start
	}

	switch side {
	case TruncationEnd:
		kept := attr.Range{Start: line.Range.Start, End: keep(line.Range.Start, budget)}
		return spliceTruncated(line, token, kept, nil, side)
	case TruncationStart:
		kept := attr.Range{Start: keepBack(budget), End: line.Range.End}
		return spliceTruncated(line, token, kept, nil, side)
	default: // TruncationMiddle
		head := keep(line.Range.Start, budget/2.0)
		tail := keepBack(budget / 2.0)
		if tail < head {
			tail = head
		}
		kept := attr.Range{Start: line.Range.Start, End: head}
		return spliceTruncated(line, token, kept, &attr.Range{Start: tail, End: line.Range.End}, side)
	}
}

// spliceTruncated rebuilds the line keeping the given rune ranges with the
// token between (or at the open edge of) them, repositioning runs
// sequentially along the writing axis.
func spliceTruncated(line Line, token Line, head attr.Range, tail *attr.Range, side TruncationType) Line {
	out := line
	out.Runs = nil
	x := 0.0

	appendRuns := func(runs []Run, keep attr.Range, token bool) {
		for _, rn := range runs {
			vertical := rn.vertical()
			nr := rn
			nr.Glyphs = nil
			nr.Advance = 0.0
			nr.Token = token || rn.Token
			for _, g := range rn.Glyphs {
				if !token && !(keep.Start <= g.Cluster && g.Cluster+g.Runes <= keep.End) {
					continue
				}
				nr.Glyphs = append(nr.Glyphs, g)
				nr.Advance += g.Advance(vertical)
			}
			if len(nr.Glyphs) == 0 {
				continue
			}
			if !token {
				nr.Range = nr.Range.Intersect(keep)
			}
			nr.X = x
			x += nr.Advance
			out.Runs = append(out.Runs, nr)
		}
	}

	all := attr.Range{Start: line.Range.Start, End: line.Range.End}
	if side == TruncationStart {
		appendRuns(token.Runs, all, true)
		appendRuns(line.Runs, head, false)
	} else {
		appendRuns(line.Runs, head, false)
		appendRuns(token.Runs, all, true)
		if tail != nil && tail.Len() > 0 {
			appendRuns(line.Runs, *tail, false)
		}
	}

	out.Width = x
	if token.Ascent > out.Ascent {
		out.Ascent = token.Ascent
	}
	if token.Descent > out.Descent {
		out.Descent = token.Descent
	}
	return out
}
