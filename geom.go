package textframe

import (
	"fmt"
	"math"

	"golang.org/x/image/math/fixed"
)

// Epsilon is the tolerance used for geometric comparisons.
const Epsilon = 1e-10

// equal returns true if a and b are equal with tolerance Epsilon.
func equal(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

func fromI26_6(f fixed.Int26_6) float64 {
	return float64(f) / 64.0
}

func toI26_6(f float64) fixed.Int26_6 {
	return fixed.Int26_6(f * 64.0)
}

// Point is a coordinate in the layout space, which has its origin in the
// top-left corner with Y increasing downwards.
type Point struct {
	X, Y float64
}

// IsZero returns true if P is exactly zero.
func (p Point) IsZero() bool {
	return p.X == 0.0 && p.Y == 0.0
}

// Equals returns true if P and Q are equal with tolerance Epsilon.
func (p Point) Equals(q Point) bool {
	return equal(p.X, q.X) && equal(p.Y, q.Y)
}

// Add adds Q to P.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Sub subtracts Q from P.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Mul multiplies x and y by f.
func (p Point) Mul(f float64) Point {
	return Point{f * p.X, f * p.Y}
}

// Interpolate returns a point on PQ that is linearly interpolated by t, ie. t=0 returns P and t=1 returns Q.
func (p Point) Interpolate(q Point, t float64) Point {
	return Point{(1-t)*p.X + t*q.X, (1-t)*p.Y + t*q.Y}
}

func (p Point) String() string {
	return fmt.Sprintf("[%g; %g]", p.X, p.Y)
}

// Rect is an axis-aligned rectangle in the layout space.
type Rect struct {
	X, Y, W, H float64
}

// Move translates the rectangle by P.
func (r Rect) Move(p Point) Rect {
	r.X += p.X
	r.Y += p.Y
	return r
}

// Add returns the union of both rectangles. An empty rectangle does not
// contribute to the union.
func (r Rect) Add(q Rect) Rect {
	if q.W == 0.0 || q.H == 0.0 {
		return r
	} else if r.W == 0.0 || r.H == 0.0 {
		return q
	}
	x0 := math.Min(r.X, q.X)
	y0 := math.Min(r.Y, q.Y)
	x1 := math.Max(r.X+r.W, q.X+q.W)
	y1 := math.Max(r.Y+r.H, q.Y+q.H)
	return Rect{x0, y0, x1 - x0, y1 - y0}
}

// Contains returns true if P lies inside the rectangle, including its edges.
func (r Rect) Contains(p Point) bool {
	return r.X <= p.X && p.X <= r.X+r.W && r.Y <= p.Y && p.Y <= r.Y+r.H
}

// Equals returns true if both rectangles are equal with tolerance Epsilon.
func (r Rect) Equals(q Rect) bool {
	return equal(r.X, q.X) && equal(r.Y, q.Y) && equal(r.W, q.W) && equal(r.H, q.H)
}

// Empty returns true if the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0.0 || r.H <= 0.0
}

// Inset shrinks the rectangle by the given insets on each side.
func (r Rect) Inset(in Insets) Rect {
	r.X += in.Left
	r.Y += in.Top
	r.W -= in.Left + in.Right
	r.H -= in.Top + in.Bottom
	if r.W < 0.0 {
		r.W = 0.0
	}
	if r.H < 0.0 {
		r.H = 0.0
	}
	return r
}

func (r Rect) String() string {
	return fmt.Sprintf("[%g; %g]--[%g; %g]", r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Insets are non-negative distances that shrink a rectangle on each side.
type Insets struct {
	Top, Left, Bottom, Right float64
}

// clamp replaces negative insets by zero.
func (in Insets) clamp() Insets {
	if in.Top < 0.0 {
		in.Top = 0.0
	}
	if in.Left < 0.0 {
		in.Left = 0.0
	}
	if in.Bottom < 0.0 {
		in.Bottom = 0.0
	}
	if in.Right < 0.0 {
		in.Right = 0.0
	}
	return in
}
