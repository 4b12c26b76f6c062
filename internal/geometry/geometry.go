// Package geometry provides the pure spatial predicates the compliance
// checks and the layout generator are built on. Everything operates on
// axis-aligned rectangles in meters, with the envelope origin at the
// top-left corner (x grows right, y grows toward the rear of the lot).
//
// Tolerances exist to absorb floating rounding in generated coordinates,
// not geometric law. The defaults below are the canonical values; every
// call site that needs a different tolerance passes it explicitly.
package geometry

import "math"

const (
	// DefaultOverlapTol is the slack allowed before two rectangles are
	// considered overlapping. Edge-touching rooms are not overlapping.
	DefaultOverlapTol = 0.1

	// DefaultEdgeTol is the canonical adjacency/edge tolerance: how far
	// apart two facing edges may sit and still count as a shared wall,
	// and how far a room edge may sit from an envelope boundary and
	// still count as external.
	DefaultEdgeTol = 0.3

	// MinSharedWall is the minimum facing-edge overlap for two rooms to
	// be adjacent. A corner touch is not a shared wall.
	MinSharedWall = 0.5
)

// Rect is an axis-aligned rectangle: top-left corner plus extents.
type Rect struct {
	X float64
	Y float64
	W float64
	D float64
}

// Envelope is the buildable footprint, anchored at (0,0).
type Envelope struct {
	Width float64
	Depth float64
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.D }

// Area returns the rectangle area in square meters.
func (r Rect) Area() float64 { return r.W * r.D }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() (x, y float64) {
	return r.X + r.W/2, r.Y + r.D/2
}

// AspectRatio returns the long side divided by the short side, or 0 for
// a degenerate rectangle.
func (r Rect) AspectRatio() float64 {
	short := math.Min(r.W, r.D)
	long := math.Max(r.W, r.D)
	if short <= 0 {
		return 0
	}
	return long / short
}

// MinDimension returns the smaller of width and depth.
func (r Rect) MinDimension() float64 {
	return math.Min(r.W, r.D)
}

// Overlap reports whether the interiors of a and b intersect by more
// than tol on both axes. Rectangles that merely touch along an edge do
// not overlap.
func Overlap(a, b Rect, tol float64) bool {
	ox := math.Min(a.Right(), b.Right()) - math.Max(a.X, b.X)
	oy := math.Min(a.Bottom(), b.Bottom()) - math.Max(a.Y, b.Y)
	return ox > tol && oy > tol
}

// Adjacent reports whether a and b share a wall: one pair of facing
// edges within tol of each other, with more than MinSharedWall of
// overlap along the perpendicular axis.
func Adjacent(a, b Rect, tol float64) bool {
	sharedY := math.Min(a.Bottom(), b.Bottom()) - math.Max(a.Y, b.Y)
	if sharedY > MinSharedWall {
		if math.Abs(a.Right()-b.X) <= tol || math.Abs(b.Right()-a.X) <= tol {
			return true
		}
	}

	sharedX := math.Min(a.Right(), b.Right()) - math.Max(a.X, b.X)
	if sharedX > MinSharedWall {
		if math.Abs(a.Bottom()-b.Y) <= tol || math.Abs(b.Bottom()-a.Y) <= tol {
			return true
		}
	}

	return false
}

// WithinEnvelope reports whether all four edges of r lie inside the
// envelope bounds expanded by tol.
func WithinEnvelope(r Rect, env Envelope, tol float64) bool {
	return r.X >= -tol &&
		r.Y >= -tol &&
		r.Right() <= env.Width+tol &&
		r.Bottom() <= env.Depth+tol
}

// ExternalWallLength sums, over the four envelope boundaries, the length
// of the room edge lying within edgeTol of that boundary. A room in a
// corner counts two walls; an interior room returns 0.
func ExternalWallLength(r Rect, env Envelope, edgeTol float64) float64 {
	total := 0.0

	vert := clampSpan(r.Y, r.Bottom(), 0, env.Depth)
	horiz := clampSpan(r.X, r.Right(), 0, env.Width)

	if math.Abs(r.X) <= edgeTol {
		total += vert
	}
	if math.Abs(r.Right()-env.Width) <= edgeTol {
		total += vert
	}
	if math.Abs(r.Y) <= edgeTol {
		total += horiz
	}
	if math.Abs(r.Bottom()-env.Depth) <= edgeTol {
		total += horiz
	}

	return total
}

// clampSpan returns the length of [a1,a2] clipped to [b1,b2], never
// negative.
func clampSpan(a1, a2, b1, b2 float64) float64 {
	span := math.Min(a2, b2) - math.Max(a1, b1)
	if span < 0 {
		return 0
	}
	return span
}
