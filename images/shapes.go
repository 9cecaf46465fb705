// Package images - Pixel-space geometry shared by the decoder, suppressor and tracker.
package images

import (
	"fmt"
	"image"
)

// Rect is a lightweight bounding box in frame pixels.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 int
}

// RectFromXYWH builds a Rect from a top-left corner and a size.
func RectFromXYWH(x, y, w, h int) Rect {
	return Rect{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

// Width returns the horizontal extent, or 0 for inverted rectangles.
func (r Rect) Width() int {
	return max(0, r.X2-r.X1)
}

// Height returns the vertical extent, or 0 for inverted rectangles.
func (r Rect) Height() int {
	return max(0, r.Y2-r.Y1)
}

// Area returns Width * Height.
func (r Rect) Area() int {
	return r.Width() * r.Height()
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.X2 <= r.X1 || r.Y2 <= r.Y1
}

// In reports whether r lies entirely inside a frame of the given size.
func (r Rect) In(frame image.Point) bool {
	return r.X1 >= 0 && r.Y1 >= 0 && r.X2 <= frame.X && r.Y2 <= frame.Y
}

// Rectangle converts to the standard library representation, used when drawing.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", r.X1, r.Y1, r.Width(), r.Height())
}

// CalculateIoU returns the Intersection over Union of two rectangles:
//
//	IoU = Area(r ∩ o) / (Area(r) + Area(o) - Area(r ∩ o))
//
// The result lies in [0, 1]. Rectangles that only touch, or do not overlap
// at all, return 0. Integer areas are converted to float32 before division.
//
// Example:
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	CalculateIoU(a, b) // 25 / 175 = 0.142857
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}
	return float32(interArea) / float32(unionArea)
}
