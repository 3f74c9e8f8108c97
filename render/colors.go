package render

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// PersonColor is the overlay colour of class 0.
var PersonColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// goldenAngle spreads consecutive class hues around the colour wheel.
const goldenAngle = 137.50776405

// ClassColor returns a stable, saturated colour for a class id.
func ClassColor(class int) color.RGBA {
	if class <= 0 {
		return PersonColor
	}
	hue := math.Mod(120+float64(class)*goldenAngle, 360)
	r, g, b := colorful.Hsv(hue, 0.85, 0.95).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// TextColor returns black or white, whichever reads better on bg.
func TextColor(bg color.RGBA) color.RGBA {
	c, _ := colorful.MakeColor(bg)
	l, _, _ := c.Lab()
	if l > 0.6 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}
