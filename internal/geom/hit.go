package geom

import (
	"cmp"
	"math"
	"slices"
)

// Shapes is the collision geometry of a single owner. A point hits the owner
// when any of its boxes contains it.
type Shapes []Box

// Contains reports whether any box contains p.
func (s Shapes) Contains(p Point) bool {
	for _, b := range s {
		if b.Contains(p) {
			return true
		}
	}
	return false
}

// Overlaps reports whether any box overlaps region.
func (s Shapes) Overlaps(region Box) bool {
	for _, b := range s {
		if b.Overlaps(region) {
			return true
		}
	}
	return false
}

// Bounds returns the union of all boxes. The zero Box is returned for
// empty shapes.
func (s Shapes) Bounds() Box {
	if len(s) == 0 {
		return Box{}
	}
	out := s[0]
	for _, b := range s[1:] {
		out = out.Union(b)
	}
	return out
}

// Hits returns every key whose shapes contain p, in ascending key order.
// When keys are allocated monotonically this is creation order, so callers
// wanting "first created" take the first element and "topmost" the last.
func Hits[K cmp.Ordered](p Point, shapes map[K]Shapes) []K {
	var out []K
	for k, s := range shapes {
		if s.Contains(p) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Within returns every key whose shapes overlap region, in ascending order.
func Within[K cmp.Ordered](region Box, shapes map[K]Shapes) []K {
	var out []K
	for k, s := range shapes {
		if s.Overlaps(region) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// SegmentBoxes covers the segment a-b with square boxes of side thickness,
// centred at evenly spaced points including both ends. A degenerate segment
// yields a single box.
func SegmentBoxes(a, b Point, thickness float64) Shapes {
	if thickness <= 0 {
		thickness = 1
	}
	n := int(math.Ceil(a.Distance(b) / thickness))
	if n == 0 {
		return Shapes{Centered(a, thickness, thickness)}
	}
	out := make(Shapes, 0, n+1)
	for i := 0; i <= n; i++ {
		c := a.Lerp(b, float64(i)/float64(n))
		out = append(out, Centered(c, thickness, thickness))
	}
	return out
}
