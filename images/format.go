// Package images - Image encodings and geometry utilities.
package images

import (
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
)

// ImageFormat represents supported image formats.
type ImageFormat string

// ImageFormat constants.
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
)

// Formats lists every supported format.
var Formats = []ImageFormat{FormatJPEG, FormatPNG, FormatWebP, FormatBMP}

// ErrUnsupportedFormat is returned for unknown formats or file extensions.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// FormatFromExt maps a file name extension to its format.
func FormatFromExt(name string) (ImageFormat, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".png":
		return FormatPNG, nil
	case ".webp":
		return FormatWebP, nil
	case ".bmp":
		return FormatBMP, nil
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "extension of %q", name)
}

// Ext returns the canonical file extension of the format.
func (f ImageFormat) Ext() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// Encode writes img to w in format f.
//
// Arguments:
//   - w: The destination.
//   - img: The image to encode.
//   - f: The target format.
//
// Returns:
//   - error: ErrUnsupportedFormat or the encoder error.
func Encode(w io.Writer, img image.Image, f ImageFormat) error {
	var err error
	switch f {
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatWebP:
		err = webp.Encode(w, img, &webp.Options{Quality: 90})
	case FormatBMP:
		err = bmp.Encode(w, img)
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "%q", f)
	}
	return errors.Wrapf(err, "encode %s", f)
}

// Decode reads an image of any supported format from r.
func Decode(r io.Reader) (image.Image, ImageFormat, error) {
	img, name, err := image.Decode(r)
	if err != nil {
		return nil, "", errors.Wrap(err, "decode image")
	}
	return img, ImageFormat(name), nil
}
