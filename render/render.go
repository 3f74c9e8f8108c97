// Package render - Draws detection overlays onto frames.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

const (
	// Thickness is the box outline width in pixels.
	Thickness = 2
	// labelPadding is the space around label text in pixels.
	labelPadding = 2
)

var face = basicfont.Face7x13

// Labeler names a class id.
type Labeler func(class int) string

// Label formats a detection caption, e.g. "Person: 85%".
func Label(name string, score float32) string {
	return fmt.Sprintf("%s: %d%%", capitalize(name), int(score*100))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// ClassLabel names a class by its id, e.g. "Class 3".
func ClassLabel(class int) string {
	return fmt.Sprintf("Class %d", class)
}

// Detections draws every detection onto img: an outline in the class colour and a
// filled caption bar above the box, or inside it when the box touches the top edge.
//
// Arguments:
//   - img: The frame to draw on, modified in place.
//   - detections: The detections in img coordinates.
//   - labels: Names class ids; nil prints "Class <id>".
func Detections(img *image.RGBA, detections []postprocess.Detection, labels Labeler) {
	if labels == nil {
		labels = ClassLabel
	}
	for _, d := range detections {
		col := ClassColor(d.Class)
		r := boxRect(d)
		Box(img, r, col, Thickness)
		Caption(img, r.Min, Label(labels(d.Class), d.Score), col)
	}
}

func boxRect(d postprocess.Detection) image.Rectangle {
	x1 := int(d.Box.X)
	y1 := int(d.Box.Y)
	x2 := int(d.Box.Right())
	y2 := int(d.Box.Bottom())
	return image.Rect(x1, y1, x2, y2)
}

// Box draws a rectangle outline of the given thickness, clipped to img.
func Box(img *image.RGBA, r image.Rectangle, col color.Color, thickness int) {
	if thickness <= 0 || r.Empty() {
		return
	}
	src := image.NewUniform(col)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(r).Intersect(img.Bounds()), src, image.Point{}, draw.Src)
	}
}

// Caption draws text on a filled bar whose bottom-left corner is at anchor. When the bar
// would leave the top of img it is drawn below anchor instead.
func Caption(img *image.RGBA, anchor image.Point, text string, bg color.RGBA) {
	metrics := face.Metrics()
	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()

	bar := image.Rect(
		anchor.X,
		anchor.Y-textHeight-2*labelPadding,
		anchor.X+textWidth+2*labelPadding,
		anchor.Y,
	)
	if bar.Min.Y < img.Bounds().Min.Y {
		bar = bar.Add(image.Pt(0, bar.Dy()))
	}
	draw.Draw(img, bar.Intersect(img.Bounds()), image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(TextColor(bg)),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(bar.Min.X + labelPadding),
			Y: fixed.I(bar.Max.Y-labelPadding) - metrics.Descent,
		},
	}
	d.DrawString(strings.TrimSpace(text))
}
