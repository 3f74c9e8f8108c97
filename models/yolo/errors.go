package yolo

import "github.com/pkg/errors"

var (
	// ErrMalformedOutput is returned when the raw buffer length is inconsistent with its
	// declared shape or with the record stride. The frame should be skipped.
	ErrMalformedOutput = errors.New("malformed output tensor")

	// ErrUnsupportedLayout is returned when the output shape cannot be interpreted as
	// either interleaved [count, stride] or planar [stride, count] records.
	ErrUnsupportedLayout = errors.New("unsupported output tensor layout")

	// ErrInvalidFrame is returned when the source frame dimensions are not positive.
	ErrInvalidFrame = errors.New("invalid frame dimensions")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid decoder configuration")
)
