package images

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
		epsilon  float32
	}{
		{
			name:     "Identical rectangles",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{0, 0, 100, 100},
			expected: 1.0,
			epsilon:  0.001,
		},
		{
			name:     "No overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{200, 200, 100, 100},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Touching edges",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{100, 0, 100, 100},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Half overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{50, 50, 100, 100},
			expected: 0.142857, // intersection=2500, union=10000+10000-2500=17500
			epsilon:  0.001,
		},
		{
			name:     "Small overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{90, 90, 100, 100},
			expected: 0.005025, // intersection=100, union=19900
			epsilon:  0.001,
		},
		{
			name:     "One inside other",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{25, 25, 50, 50},
			expected: 0.25,
			epsilon:  0.001,
		},
		{
			name:     "Fractional coordinates",
			r1:       Rect{0.5, 0.5, 10, 10},
			r2:       Rect{5.5, 0.5, 10, 10},
			expected: 0.333333, // intersection=50, union=150
			epsilon:  0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			if math.Abs(float64(result-tt.expected)) > float64(tt.epsilon) {
				t.Errorf("IoU() = %v, expected %v (±%v)", result, tt.expected, tt.epsilon)
			}

			// IoU(A, B) should equal IoU(B, A)
			reverse := CalculateIoU(tt.r2, tt.r1)
			if math.Abs(float64(result-reverse)) > float64(tt.epsilon) {
				t.Errorf("IoU not symmetric: IoU(A,B)=%v != IoU(B,A)=%v", result, reverse)
			}
		})
	}
}

// TestIoU_vs_ImageRectangle compares our implementation against image.Rectangle
func TestIoU_vs_ImageRectangle(t *testing.T) {
	testCases := []struct {
		name string
		r1   Rect
		r2   Rect
	}{
		{"No overlap", Rect{0, 0, 100, 100}, Rect{200, 200, 100, 100}},
		{"Partial overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 100, 100}},
		{"Full overlap", Rect{50, 50, 100, 100}, Rect{50, 50, 100, 100}},
		{"One inside other", Rect{0, 0, 100, 100}, Rect{25, 25, 50, 50}},
		{"Large boxes", Rect{0, 0, 1920, 1080}, Rect{960, 540, 960, 540}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			customResult := CalculateIoU(tc.r1, tc.r2)

			imageResult := imageRectangleIoU(toImageRect(tc.r1), toImageRect(tc.r2))

			if math.Abs(float64(customResult-imageResult)) > 0.0001 {
				t.Errorf("Results differ: custom=%v, image.Rectangle=%v", customResult, imageResult)
			}
		})
	}
}

func toImageRect(r Rect) image.Rectangle {
	return image.Rect(int(r.X), int(r.Y), int(r.Right()), int(r.Bottom()))
}

// imageRectangleIoU implements IoU using Go's standard library image.Rectangle
func imageRectangleIoU(r1, r2 image.Rectangle) float32 {
	intersect := r1.Intersect(r2)
	if intersect.Empty() {
		return 0.0
	}

	intersectArea := intersect.Dx() * intersect.Dy()
	r1Area := r1.Dx() * r1.Dy()
	r2Area := r2.Dx() * r2.Dy()
	union := r1Area + r2Area - intersectArea

	return float32(intersectArea) / float32(union)
}

// TestIoU_EdgeCases tests edge cases and boundary conditions
func TestIoU_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		r1   Rect
		r2   Rect
	}{
		{"Zero area rectangle 1", Rect{0, 0, 0, 0}, Rect{0, 0, 100, 100}},
		{"Zero area rectangle 2", Rect{0, 0, 100, 100}, Rect{50, 50, 0, 0}},
		{"Both zero area", Rect{0, 0, 0, 0}, Rect{10, 10, 0, 0}},
		{"Negative coordinates", Rect{-100, -100, 100, 100}, Rect{-50, -50, 100, 100}},
		{"Negative extent", Rect{0, 0, -10, -10}, Rect{0, 0, 10, 10}},
		{"Single pixel", Rect{0, 0, 1, 1}, Rect{0, 0, 1, 1}},
		{"Very large coordinates", Rect{0, 0, 999999, 999999}, Rect{500000, 500000, 499999, 499999}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			if result < 0.0 || result > 1.0 {
				t.Errorf("IoU result %v is outside valid range [0.0, 1.0]", result)
			}

			reverseResult := CalculateIoU(tt.r2, tt.r1)
			if reverseResult < 0.0 || reverseResult > 1.0 {
				t.Errorf("Reverse IoU result %v is outside valid range [0.0, 1.0]", reverseResult)
			}
		})
	}
}

func TestRect_Geometry(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}

	assert.Equal(t, float32(40), r.Right())
	assert.Equal(t, float32(60), r.Bottom())
	assert.Equal(t, float32(1200), r.Area())
	assert.False(t, r.Empty())
	assert.True(t, r.Within(40, 60))
	assert.False(t, r.Within(39, 60))

	assert.True(t, Rect{Width: 0, Height: 5}.Empty())
	assert.Equal(t, float32(0), Rect{Width: -1, Height: 5}.Area())
	assert.Equal(t, "(10.00, 20.00, 30.00, 40.00)", r.String())
}
