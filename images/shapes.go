// Package images - Image geometry utilities
package images

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Rect is a lightweight axis-aligned bounding box in pixel space.
//
// The origin (X, Y) is the top-left corner, Width and Height extend right and down.
type Rect struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// Right returns the exclusive right edge of the rectangle.
func (r Rect) Right() float32 {
	return r.X + r.Width
}

// Bottom returns the exclusive bottom edge of the rectangle.
func (r Rect) Bottom() float32 {
	return r.Y + r.Height
}

// Area returns the area of the rectangle, or 0 when it is degenerate.
func (r Rect) Area() float32 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Empty reports whether the rectangle has a non-positive extent.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Within reports whether the rectangle lies fully inside [0, width) x [0, height).
func (r Rect) Within(width, height float32) bool {
	return r.X >= 0 && r.Y >= 0 && r.Right() <= width && r.Bottom() <= height
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f, %.2f)", r.X, r.Y, r.Width, r.Height)
}

// CalculateIoU measures the overlap of two rectangles as Intersection over Union.
//
// See also:
//   - http://ronny.rest/tutorials/module/localization_001/iou
//
// It is formally defined by the formula:
//
//	IoU = Area of Intersection / Area of Union
//
//	- A value of 1.0 means the rectangles are identical; they overlap perfectly.
//	- A value of 0.0 means the rectangles don't overlap at all.
//
// The intersection starts at the maximum of the two top-left corners and ends at the
// minimum of the two bottom-right corners. If the resulting width or height is zero or
// negative the rectangles do not overlap and 0 is returned before any division.
//
// The union uses the Principle of Inclusion-Exclusion:
//
//	Area(Union) = Area(A) + Area(B) - Area(Intersection)
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
//
// Example Usage:
// ```go
//
//	rect1 := Rect{X: 0, Y: 0, Width: 10, Height: 10}
//	rect2 := Rect{X: 5, Y: 5, Width: 10, Height: 10}
//
//	iouScore := CalculateIoU(rect1, rect2) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X, o.X)
	iy1 := math32.Max(r.Y, o.Y)
	ix2 := math32.Min(r.Right(), o.Right())
	iy2 := math32.Min(r.Bottom(), o.Bottom())

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

	return interArea / unionArea
}
