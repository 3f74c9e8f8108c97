package main

import (
	"context"
	"image"
	"image/draw"
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// cameraSource reads frames from a capture device or a video file.
type cameraSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	device  interface{}
}

func openCamera(device interface{}) (*cameraSource, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, errors.Wrapf(err, "open capture device %v", device)
	}
	return &cameraSource{capture: capture, mat: gocv.NewMat(), device: device}, nil
}

// Next returns the next frame as RGBA. Empty frames are skipped.
func (c *cameraSource) Next(ctx context.Context) (image.Image, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ok := c.capture.Read(&c.mat); !ok {
			return nil, io.EOF
		}
		if c.mat.Empty() {
			continue
		}
		img, err := c.mat.ToImage()
		if err != nil {
			return nil, errors.Wrapf(err, "convert frame from %v", c.device)
		}
		return toRGBA(img), nil
	}
}

func (c *cameraSource) Close() error {
	c.mat.Close()
	return c.capture.Close()
}

// toRGBA returns img as an *image.RGBA, copying only when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// preview shows annotated frames in a window.
type preview struct {
	window *gocv.Window
}

func newPreview(title string) *preview {
	return &preview{window: gocv.NewWindow(title)}
}

// Show displays img and reports whether the user asked to quit (Esc or q).
func (p *preview) Show(img image.Image) (bool, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return false, errors.Wrap(err, "convert frame for display")
	}
	defer mat.Close()

	p.window.IMShow(mat)
	key := p.window.WaitKey(1)
	return key == 27 || key == 'q', nil
}

func (p *preview) Close() error {
	return p.window.Close()
}
