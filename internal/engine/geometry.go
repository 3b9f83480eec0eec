package engine

import "math"

// Vec is a 2D point or displacement in canvas space (y grows downward).
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec {
	return Vec{v.X + o.X, v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec {
	return Vec{v.X - o.X, v.Y - o.Y}
}

// Scale returns v scaled by s.
func (v Vec) Scale(s float64) Vec {
	return Vec{v.X * s, v.Y * s}
}

// IsFinite reports whether both coordinates are finite numbers.
func (v Vec) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// Distance returns the Euclidean distance between two points.
func Distance(p1, p2 Vec) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}

// VectorAngle returns the signed angle from v2 to v1 in radians.
// The result is not normalized and lies in (-2π, 2π); a zero-length vector
// contributes an angle of 0.
func VectorAngle(v1, v2 Vec) float64 {
	return math.Atan2(v1.Y, v1.X) - math.Atan2(v2.Y, v2.X)
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// boundsBuilder accumulates points into an axis-aligned bounding box.
type boundsBuilder struct {
	minX, minY, maxX, maxY float64
	empty                  bool
}

func newBoundsBuilder() boundsBuilder {
	return boundsBuilder{empty: true}
}

func (b *boundsBuilder) add(x, y, pad float64) {
	if b.empty {
		b.minX, b.maxX = x-pad, x+pad
		b.minY, b.maxY = y-pad, y+pad
		b.empty = false
		return
	}
	b.minX = math.Min(b.minX, x-pad)
	b.maxX = math.Max(b.maxX, x+pad)
	b.minY = math.Min(b.minY, y-pad)
	b.maxY = math.Max(b.maxY, y+pad)
}

func (b *boundsBuilder) rect() Rect {
	if b.empty {
		return Rect{}
	}
	return Rect{X: b.minX, Y: b.minY, Width: b.maxX - b.minX, Height: b.maxY - b.minY}
}
