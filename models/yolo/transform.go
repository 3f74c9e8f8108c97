package yolo

import (
	"github.com/chewxy/math32"

	"github.com/nvr-ai/go-detect/images"
)

// frameScale maps network input coordinates to source frame pixels.
//
// The frame was resized to the network input independently along each axis, so the
// scale factors differ in general.
type frameScale struct {
	scaleX, scaleY          float32
	frameWidth, frameHeight float32
}

func newFrameScale(c Config, frameWidth, frameHeight int) frameScale {
	return frameScale{
		scaleX:      float32(frameWidth) / float32(c.InputWidth),
		scaleY:      float32(frameHeight) / float32(c.InputHeight),
		frameWidth:  float32(frameWidth),
		frameHeight: float32(frameHeight),
	}
}

// box converts a center-size record into a clamped top-left box in frame pixels.
//
// The origin is clamped to the frame first and the extent is bounded using the clamped
// origin, so a box straddling an edge is truncated rather than discarded.
//
// Returns:
//   - images.Rect: The frame-space box.
//   - bool: false when the clamped box has no positive extent.
func (s frameScale) box(r Record) (images.Rect, bool) {
	width := r.W() * s.scaleX
	height := r.H() * s.scaleY
	x := r.CX()*s.scaleX - width/2
	y := r.CY()*s.scaleY - height/2

	x = math32.Max(0, x)
	y = math32.Max(0, y)
	width = math32.Min(width, s.frameWidth-x)
	height = math32.Min(height, s.frameHeight-y)

	if !(width > 0) || !(height > 0) {
		return images.Rect{}, false
	}

	return images.Rect{X: x, Y: y, Width: width, Height: height}, true
}
