package textframe

import (
	"math"
	"sort"
)

// FillRule decides how the interior of a path is determined when subpaths
// overlap. EvenOdd is the default for containers since appended exclusion
// paths then carve holes out of the container shape.
type FillRule int

// see FillRule
const (
	EvenOdd FillRule = iota
	NonZero
)

type pathCmd uint8

const (
	moveToCmd pathCmd = iota
	lineToCmd
	quadToCmd
	cubeToCmd
	closeCmd
)

// curveSteps is the subdivision count for curve flattening during scanline
// extraction. Layout bands are coarse relative to curve detail, so a fixed
// subdivision is sufficient.
const curveSteps = 16

// Path is a sequence of subpaths built from move, line, quadratic and cubic
// Bézier commands. It describes the shape a container allows text to occupy.
// A Path must not be mutated after it has been given to a Container.
type Path struct {
	cmds []pathCmd
	pts  []Point
}

// Rectangle returns a closed rectangular path.
func Rectangle(x, y, w, h float64) *Path {
	p := &Path{}
	p.MoveTo(x, y)
	p.LineTo(x+w, y)
	p.LineTo(x+w, y+h)
	p.LineTo(x, y+h)
	p.Close()
	return p
}

// MoveTo starts a new subpath at (x,y).
func (p *Path) MoveTo(x, y float64) {
	p.cmds = append(p.cmds, moveToCmd)
	p.pts = append(p.pts, Point{x, y})
}

// LineTo adds a line segment to (x,y).
func (p *Path) LineTo(x, y float64) {
	p.cmds = append(p.cmds, lineToCmd)
	p.pts = append(p.pts, Point{x, y})
}

// QuadTo adds a quadratic Bézier with control point (cpx,cpy) ending in (x,y).
func (p *Path) QuadTo(cpx, cpy, x, y float64) {
	p.cmds = append(p.cmds, quadToCmd)
	p.pts = append(p.pts, Point{cpx, cpy}, Point{x, y})
}

// CubeTo adds a cubic Bézier with control points (cpx1,cpy1) and (cpx2,cpy2) ending in (x,y).
func (p *Path) CubeTo(cpx1, cpy1, cpx2, cpy2, x, y float64) {
	p.cmds = append(p.cmds, cubeToCmd)
	p.pts = append(p.pts, Point{cpx1, cpy1}, Point{cpx2, cpy2}, Point{x, y})
}

// Close closes the current subpath.
func (p *Path) Close() {
	p.cmds = append(p.cmds, closeCmd)
}

// Empty returns true if the path has no commands.
func (p *Path) Empty() bool {
	return p == nil || len(p.cmds) == 0
}

// Copy returns a deep copy of the path.
func (p *Path) Copy() *Path {
	q := &Path{
		cmds: make([]pathCmd, len(p.cmds)),
		pts:  make([]Point, len(p.pts)),
	}
	copy(q.cmds, p.cmds)
	copy(q.pts, p.pts)
	return q
}

// Append returns a new path that joins q after p as separate subpaths.
func (p *Path) Append(q *Path) *Path {
	if q.Empty() {
		return p.Copy()
	} else if p.Empty() {
		return q.Copy()
	}
	r := p.Copy()
	r.cmds = append(r.cmds, q.cmds...)
	r.pts = append(r.pts, q.pts...)
	return r
}

// Translate returns a new path translated by (dx,dy).
func (p *Path) Translate(dx, dy float64) *Path {
	q := p.Copy()
	for i := range q.pts {
		q.pts[i].X += dx
		q.pts[i].Y += dy
	}
	return q
}

// Bounds returns the bounding rectangle of the path's control polygon, which
// contains the path itself.
func (p *Path) Bounds() Rect {
	if p.Empty() {
		return Rect{}
	}
	x0, y0 := math.Inf(1), math.Inf(1)
	x1, y1 := math.Inf(-1), math.Inf(-1)
	for _, pt := range p.pts {
		x0 = math.Min(x0, pt.X)
		y0 = math.Min(y0, pt.Y)
		x1 = math.Max(x1, pt.X)
		y1 = math.Max(y1, pt.Y)
	}
	return Rect{x0, y0, x1 - x0, y1 - y0}
}

// IsRect returns the rectangle and true when the path consists of a single
// axis-aligned rectangular subpath. Containers use this as a fast path that
// avoids scanline extraction entirely.
func (p *Path) IsRect() (Rect, bool) {
	if p.Empty() {
		return Rect{}, false
	}
	n := len(p.cmds)
	if n < 5 || n > 6 || p.cmds[0] != moveToCmd {
		return Rect{}, false
	}
	for _, cmd := range p.cmds[1:] {
		if cmd != lineToCmd && cmd != closeCmd {
			return Rect{}, false
		}
	}
	if p.cmds[n-1] != closeCmd {
		return Rect{}, false
	}
	pts := p.pts
	if len(pts) == 5 {
		// closing line back to the start written out explicitly
		if !pts[4].Equals(pts[0]) {
			return Rect{}, false
		}
		pts = pts[:4]
	}
	if len(pts) != 4 {
		return Rect{}, false
	}
	for i := range pts {
		q := pts[(i+1)%4]
		if !equal(pts[i].X, q.X) && !equal(pts[i].Y, q.Y) {
			return Rect{}, false
		}
	}
	b := p.Bounds()
	if b.W <= 0.0 || b.H <= 0.0 {
		return Rect{}, false
	}
	return b, true
}

// edge is a flattened path segment used during scanline extraction.
type edge struct {
	p0, p1 Point
}

// flatten converts all commands into line edges, closing every subpath.
func (p *Path) flatten() []edge {
	var edges []edge
	var start, cur Point
	i := 0
	emit := func(q Point) {
		if !cur.Equals(q) {
			edges = append(edges, edge{cur, q})
		}
		cur = q
	}
	for _, cmd := range p.cmds {
		switch cmd {
		case moveToCmd:
			if !cur.Equals(start) {
				edges = append(edges, edge{cur, start})
			}
			cur = p.pts[i]
			start = cur
			i++
		case lineToCmd:
			emit(p.pts[i])
			i++
		case quadToCmd:
			cp, end := p.pts[i], p.pts[i+1]
			p0 := cur
			for k := 1; k <= curveSteps; k++ {
				t := float64(k) / curveSteps
				q := p0.Interpolate(cp, t).Interpolate(cp.Interpolate(end, t), t)
				emit(q)
			}
			i += 2
		case cubeToCmd:
			cp1, cp2, end := p.pts[i], p.pts[i+1], p.pts[i+2]
			p0 := cur
			for k := 1; k <= curveSteps; k++ {
				t := float64(k) / curveSteps
				a := p0.Interpolate(cp1, t)
				b := cp1.Interpolate(cp2, t)
				c := cp2.Interpolate(end, t)
				q := a.Interpolate(b, t).Interpolate(b.Interpolate(c, t), t)
				emit(q)
			}
			i += 3
		case closeCmd:
			if !cur.Equals(start) {
				edges = append(edges, edge{cur, start})
			}
			cur = start
		}
	}
	if !cur.Equals(start) {
		edges = append(edges, edge{cur, start})
	}
	return edges
}

type crossing struct {
	x   float64
	dir int // +1 downward, -1 upward
}

// scanline returns the interior intervals of the path along the horizontal
// line at y (or the vertical line at y when vertical is true, with intervals
// along the Y axis).
func (p *Path) scanline(y float64, vertical bool, rule FillRule) [][2]float64 {
	var crossings []crossing
	for _, e := range p.flatten() {
		a, b := e.p0, e.p1
		if vertical {
			a = Point{a.Y, a.X}
			b = Point{b.Y, b.X}
		}
		if a.Y == b.Y {
			continue
		}
		dir := 1
		if b.Y < a.Y {
			a, b = b, a
			dir = -1
		}
		// half-open interval avoids double-counting shared vertices
		if y < a.Y || b.Y <= y {
			continue
		}
		t := (y - a.Y) / (b.Y - a.Y)
		crossings = append(crossings, crossing{a.X + t*(b.X-a.X), dir})
	}
	sort.Slice(crossings, func(i, j int) bool {
		return crossings[i].x < crossings[j].x
	})

	var ivals [][2]float64
	if rule == EvenOdd {
		for i := 0; i+1 < len(crossings); i += 2 {
			ivals = append(ivals, [2]float64{crossings[i].x, crossings[i+1].x})
		}
	} else {
		winding := 0
		x0 := 0.0
		for _, c := range crossings {
			if winding == 0 {
				x0 = c.x
			}
			winding += c.dir
			if winding == 0 {
				ivals = append(ivals, [2]float64{x0, c.x})
			}
		}
	}
	return ivals
}

// BandIntervals returns the inline-axis intervals available for text within
// the perpendicular band [lo,hi]. For horizontal layout the band is a
// horizontal slab and intervals run along X; for vertical layout the band is
// a vertical slab and intervals run along Y. The band interior is sampled at
// its top, middle and bottom, and the per-sample intervals are intersected so
// that a returned interval is usable over the full band height.
func (p *Path) BandIntervals(vertical bool, lo, hi float64, rule FillRule) [][2]float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	const inset = 1e-6
	samples := []float64{lo + inset, (lo + hi) / 2.0, hi - inset}
	if hi-lo <= 2*inset {
		samples = []float64{(lo + hi) / 2.0}
	}
	ivals := p.scanline(samples[0], vertical, rule)
	for _, y := range samples[1:] {
		ivals = intersectIntervals(ivals, p.scanline(y, vertical, rule))
		if len(ivals) == 0 {
			break
		}
	}
	return ivals
}

// intersectIntervals intersects two sorted interval lists.
func intersectIntervals(a, b [][2]float64) [][2]float64 {
	var out [][2]float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := math.Max(a[i][0], b[j][0])
		hi := math.Min(a[i][1], b[j][1])
		if lo < hi {
			out = append(out, [2]float64{lo, hi})
		}
		if a[i][1] < b[j][1] {
			i++
		} else {
			j++
		}
	}
	return out
}
