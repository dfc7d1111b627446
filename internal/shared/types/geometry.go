package types

import "fmt"

// Point is a position in some frame's local coordinate space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size represents surface dimensions
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle
type Rect struct {
	Origin Point `json:"origin"`
	Size   Size  `json:"size"`
}

// NewRect builds a rect from its components
func NewRect(x, y, width, height float64) Rect {
	return Rect{Origin: Point{X: x, Y: y}, Size: Size{Width: width, Height: height}}
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale divides both coordinates by factor. A non-positive factor is treated as 1.
func (p Point) Scale(factor float64) Point {
	if factor <= 0 {
		return p
	}
	return Point{X: p.X / factor, Y: p.Y / factor}
}

func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

// IsEmpty reports whether the size has no area
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Contains reports whether p lies inside r. The right and bottom edges are exclusive.
func (r Rect) Contains(p Point) bool {
	if r.Size.IsEmpty() {
		return false
	}
	return p.X >= r.Origin.X && p.X < r.Origin.X+r.Size.Width &&
		p.Y >= r.Origin.Y && p.Y < r.Origin.Y+r.Size.Height
}

func (r Rect) String() string {
	return fmt.Sprintf("%gx%g@%s", r.Size.Width, r.Size.Height, r.Origin)
}
