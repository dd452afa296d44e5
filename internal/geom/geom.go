// Package geom provides the axis-aligned geometry used for placement and
// hit-testing on the editor surface.
//
// Everything here is a pure value type. Nothing in this package knows about
// entities; callers key shapes by whatever identity they use.
package geom

import "math"

// Point is a position (or a displacement) on the editor surface.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Mul returns p scaled by s.
func (p Point) Mul(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Length returns the euclidean length of p seen as a vector.
func (p Point) Length() float64 {
	return math.Hypot(p.X, p.Y)
}

// Distance returns the euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return p.Sub(q).Length()
}

// Lerp interpolates between p (t=0) and q (t=1).
func (p Point) Lerp(q Point, t float64) Point {
	return Point{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

// Box is an axis-aligned bounding box anchored at its top-left corner.
// Edges are inclusive for every query.
type Box struct {
	Pos  Point
	W, H float64
}

// NewBox returns a box anchored at pos with the given extents.
func NewBox(pos Point, w, h float64) Box {
	return Box{Pos: pos, W: w, H: h}
}

// Centered returns a box of the given extents whose centre is c.
func Centered(c Point, w, h float64) Box {
	return Box{Pos: Point{X: c.X - w/2, Y: c.Y - h/2}, W: w, H: h}
}

// Min returns the top-left corner.
func (b Box) Min() Point { return b.Pos }

// Max returns the bottom-right corner.
func (b Box) Max() Point { return Point{X: b.Pos.X + b.W, Y: b.Pos.Y + b.H} }

// Center returns the centre of the box.
func (b Box) Center() Point {
	return Point{X: b.Pos.X + b.W/2, Y: b.Pos.Y + b.H/2}
}

// Empty reports whether the box has no area.
func (b Box) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// Contains reports whether p lies inside b or on its border.
func (b Box) Contains(p Point) bool {
	return p.X >= b.Pos.X && p.X <= b.Pos.X+b.W &&
		p.Y >= b.Pos.Y && p.Y <= b.Pos.Y+b.H
}

// Overlaps reports whether b and o share at least one point.
func (b Box) Overlaps(o Box) bool {
	return b.Pos.X <= o.Pos.X+o.W && o.Pos.X <= b.Pos.X+b.W &&
		b.Pos.Y <= o.Pos.Y+o.H && o.Pos.Y <= b.Pos.Y+b.H
}

// Moved returns the box translated by v when useDelta is set, or re-anchored
// at v otherwise.
func (b Box) Moved(v Point, useDelta bool) Box {
	if useDelta {
		b.Pos = b.Pos.Add(v)
		return b
	}
	b.Pos = v
	return b
}

// Clamp shifts b so it lies within bounds. Boxes larger than bounds are
// pinned to the bounds' top-left corner. An empty bounds box disables
// clamping.
func (b Box) Clamp(bounds Box) Box {
	if bounds.Empty() {
		return b
	}
	maxX := bounds.Pos.X + bounds.W - b.W
	maxY := bounds.Pos.Y + bounds.H - b.H
	b.Pos.X = math.Max(bounds.Pos.X, math.Min(b.Pos.X, maxX))
	b.Pos.Y = math.Max(bounds.Pos.Y, math.Min(b.Pos.Y, maxY))
	return b
}

// Union returns the smallest box containing both b and o.
func (b Box) Union(o Box) Box {
	minX := math.Min(b.Pos.X, o.Pos.X)
	minY := math.Min(b.Pos.Y, o.Pos.Y)
	maxX := math.Max(b.Pos.X+b.W, o.Pos.X+o.W)
	maxY := math.Max(b.Pos.Y+b.H, o.Pos.Y+o.H)
	return Box{Pos: Point{X: minX, Y: minY}, W: maxX - minX, H: maxY - minY}
}
