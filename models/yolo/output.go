// Package yolo - decodes raw YOLO output tensors into detections.
package yolo

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// RawOutput is the inference result for one frame: a flat float buffer plus the shape
// the engine reported for it.
type RawOutput struct {
	// Data is the flat tensor buffer.
	Data []float32
	// Shape is the tensor shape, e.g. [1, 85, 8400] or [1, 8400, 85]. An empty shape
	// means the buffer is a flat sequence of interleaved records.
	Shape []int
}

// Layout describes how records are laid out in a RawOutput buffer.
type Layout int

const (
	// LayoutInterleaved stores all fields of one record contiguously: [count, stride].
	LayoutInterleaved Layout = iota
	// LayoutPlanar stores one field of every record contiguously: [stride, count].
	LayoutPlanar
)

func (l Layout) String() string {
	switch l {
	case LayoutInterleaved:
		return "interleaved"
	case LayoutPlanar:
		return "planar"
	default:
		return "unknown"
	}
}

// Validate checks that the buffer length equals the product of the declared shape.
//
// Returns:
//   - error: Wraps ErrMalformedOutput on mismatch, negative dimensions or a shape whose
//     product overflows.
func (o RawOutput) Validate() error {
	if len(o.Shape) == 0 {
		return nil
	}
	product := 1
	for _, dim := range o.Shape {
		if dim < 0 {
			return errors.Wrapf(ErrMalformedOutput, "negative dimension in shape %v", o.Shape)
		}
		if dim != 0 && product > math.MaxInt/dim {
			return errors.Wrapf(ErrMalformedOutput, "shape %v overflows", o.Shape)
		}
		product *= dim
	}
	if product != len(o.Data) {
		return errors.Wrapf(ErrMalformedOutput, "buffer holds %d floats, shape %v needs %d",
			len(o.Data), o.Shape, product)
	}
	return nil
}

// DetectLayout infers the record layout from the declared shape.
//
// Leading unit dimensions (batch) are ignored. A remaining shape of [count, stride] is
// interleaved, [stride, count] is planar, and a single dimension is a flat interleaved
// buffer. When both dimensions equal stride the interleaved interpretation wins.
//
// Arguments:
//   - o: The raw output. It must already satisfy Validate.
//   - stride: The number of floats per record.
//
// Returns:
//   - Layout: The detected layout.
//   - int: The number of records.
//   - error: ErrMalformedOutput when the buffer is not a whole number of records or the
//     shape declares a different record count, ErrUnsupportedLayout when the shape
//     matches neither layout.
func DetectLayout(o RawOutput, stride int) (Layout, int, error) {
	if stride <= 0 {
		return LayoutInterleaved, 0, errors.Wrapf(ErrMalformedOutput, "record stride %d", stride)
	}
	if len(o.Data)%stride != 0 {
		return LayoutInterleaved, 0, errors.Wrapf(ErrMalformedOutput,
			"buffer of %d floats is not a multiple of record stride %d", len(o.Data), stride)
	}
	count := len(o.Data) / stride

	dims := squeeze(o.Shape)
	switch len(dims) {
	case 0, 1:
		return LayoutInterleaved, count, nil
	case 2:
		layout := LayoutInterleaved
		switch {
		case dims[1] == stride:
		case dims[0] == stride:
			layout = LayoutPlanar
			dims = []int{dims[1], dims[0]}
		default:
			return LayoutInterleaved, 0, errors.Wrapf(ErrUnsupportedLayout,
				"shape %v does not match record stride %d", o.Shape, stride)
		}
		if dims[0] != count {
			return LayoutInterleaved, 0, errors.Wrapf(ErrMalformedOutput,
				"shape %v declares %d records, buffer holds %d", o.Shape, dims[0], count)
		}
		return layout, count, nil
	}
	return LayoutInterleaved, 0, errors.Wrapf(ErrUnsupportedLayout,
		"shape %v does not match record stride %d", o.Shape, stride)
}

// squeeze drops leading unit dimensions.
func squeeze(shape []int) []int {
	for len(shape) > 1 && shape[0] == 1 {
		shape = shape[1:]
	}
	return shape
}

// Records is a bounds-checked, read-only view over interleaved records.
type Records struct {
	data   []float32
	stride int
	count  int
}

// NewRecords validates a raw output and returns an interleaved record view over it.
//
// Interleaved buffers are viewed without copying. Planar buffers are transposed once
// into a new buffer; the caller's buffer is never modified.
//
// Arguments:
//   - o: The raw output from the inference engine.
//   - stride: The number of floats per record, see Config.Stride.
//
// Returns:
//   - Records: The record view.
//   - error: ErrMalformedOutput or ErrUnsupportedLayout.
func NewRecords(o RawOutput, stride int) (Records, error) {
	if err := o.Validate(); err != nil {
		return Records{}, err
	}
	layout, count, err := DetectLayout(o, stride)
	if err != nil {
		return Records{}, err
	}

	data := o.Data
	if layout == LayoutPlanar && count > 1 {
		data, err = transpose(o.Data, stride, count)
		if err != nil {
			return Records{}, err
		}
	}

	return Records{data: data, stride: stride, count: count}, nil
}

// transpose converts a planar [stride, count] buffer into interleaved [count, stride].
func transpose(planar []float32, stride, count int) ([]float32, error) {
	backing := make([]float32, len(planar))
	copy(backing, planar)

	t := tensor.New(tensor.WithShape(stride, count), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, errors.Wrap(err, "transpose planar output")
	}
	if err := t.Transpose(); err != nil {
		return nil, errors.Wrap(err, "materialize planar output")
	}

	data, ok := t.Data().([]float32)
	if !ok || len(data) != stride*count {
		return nil, errors.Wrap(ErrUnsupportedLayout, "transposed tensor has unexpected backing")
	}
	return data, nil
}

// Len returns the number of records.
func (r Records) Len() int {
	return r.count
}

// Stride returns the number of floats per record.
func (r Records) Stride() int {
	return r.stride
}

// At returns the record at index i. It panics when i is out of range, like a slice.
func (r Records) At(i int) Record {
	if i < 0 || i >= r.count {
		panic(errors.Errorf("record index %d out of range [0, %d)", i, r.count))
	}
	start := i * r.stride
	end := start + r.stride
	return Record(r.data[start:end:end])
}

// Record is a view into one candidate: cx, cy, w, h, objectness, class scores.
type Record []float32

// CX returns the box center x in network input pixels.
func (r Record) CX() float32 { return r[0] }

// CY returns the box center y in network input pixels.
func (r Record) CY() float32 { return r[1] }

// W returns the box width in network input pixels.
func (r Record) W() float32 { return r[2] }

// H returns the box height in network input pixels.
func (r Record) H() float32 { return r[3] }

// Objectness returns the class-independent object score.
func (r Record) Objectness() float32 { return r[BoxFields] }

// ClassScores returns the per-class scores.
func (r Record) ClassScores() []float32 { return r[RecordHeader:] }
