package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// PrepareInput converts an image into a network input tensor.
//
// The image is resized (non-uniformly) to width x height, scaled to [0, 1] and split into
// RGB planes, giving a tensor of shape [1, 3, height, width].
//
// Arguments:
//   - img: The source frame.
//   - width: The network input width.
//   - height: The network input height.
//
// Returns:
//   - Tensor: The preprocessed input.
//   - error: An error if the image or the target size is empty.
func PrepareInput(img image.Image, width, height int) (Tensor, error) {
	if width <= 0 || height <= 0 {
		return Tensor{}, errors.Errorf("invalid input size %dx%d", width, height)
	}
	if img == nil || img.Bounds().Empty() {
		return Tensor{}, errors.New("empty input image")
	}

	data := make([]float32, 3*width*height)
	if err := PrepareInputInto(img, width, height, data); err != nil {
		return Tensor{}, err
	}

	return Tensor{
		Data:  data,
		Shape: []int64{1, 3, int64(height), int64(width)},
	}, nil
}

// PrepareInputInto writes the preprocessed planes of img into dst, which must hold at
// least 3 x width x height floats.
func PrepareInputInto(img image.Image, width, height int, dst []float32) error {
	channelSize := width * height
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination tensor only holds %d floats, needs %d "+
			"(make sure it's the right shape!)", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		img = resize.Resize(uint(width), uint(height), img, resize.Bilinear)
		b = img.Bounds()
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(bl>>8) / 255.0
			i++
		}
	}
	return nil
}
