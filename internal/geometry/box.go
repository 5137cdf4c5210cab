package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// Point is a 2D coordinate in planogram space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned rectangle anchored at its top-left corner.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Polygon is an ordered ring of points, typically a detection mask outline.
type Polygon []Point

// Area returns the box area. Boxes with a non-positive side have zero area.
func (b Box) Area() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Right returns the X coordinate of the right edge.
func (b Box) Right() float64 { return b.X + b.Width }

// Bottom returns the Y coordinate of the bottom edge.
func (b Box) Bottom() float64 { return b.Y + b.Height }

// Center returns the center point of the box.
func (b Box) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Contains reports whether p lies inside the box, edges included.
func (b Box) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.Right() && p.Y >= b.Y && p.Y <= b.Bottom()
}

// Intersect returns the overlapping region of a and b. When the boxes do not
// overlap the result has zero width or height.
func Intersect(a, b Box) Box {
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.Right(), b.Right())
	y2 := math.Min(a.Bottom(), b.Bottom())

	return Box{
		X:      x1,
		Y:      y1,
		Width:  math.Max(0, x2-x1),
		Height: math.Max(0, y2-y1),
	}
}

// IoU returns the intersection-over-union of two boxes in the range [0, 1].
//
// Disjoint boxes, boxes that only touch along an edge, and degenerate boxes
// all yield 0.
func IoU(a, b Box) float64 {
	inter := Intersect(a, b).Area()
	if inter == 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// BoundingBoxOf returns the axis-aligned bounding box of a polygon.
//
// An empty polygon yields the zero Box.
func BoundingBoxOf(poly Polygon) Box {
	if len(poly) == 0 {
		return Box{}
	}

	ring := make(orb.Ring, len(poly))
	for i, p := range poly {
		ring[i] = orb.Point{p.X, p.Y}
	}
	bound := ring.Bound()

	return Box{
		X:      bound.Min.X(),
		Y:      bound.Min.Y(),
		Width:  bound.Max.X() - bound.Min.X(),
		Height: bound.Max.Y() - bound.Min.Y(),
	}
}

// RectPolygon returns the four-corner polygon of a box, clockwise from the
// top-left corner.
func RectPolygon(b Box) Polygon {
	return Polygon{
		{X: b.X, Y: b.Y},
		{X: b.Right(), Y: b.Y},
		{X: b.Right(), Y: b.Bottom()},
		{X: b.X, Y: b.Bottom()},
	}
}
