// Package inference - This file provides precision helpers for model outputs.
package inference

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/nvr-ai/go-detect/models/yolo"
)

// Precision represents the precision of a model output.
type Precision string

// Precision constants are the supported output precisions.
const (
	PrecisionFP16 Precision = "FP16"
	PrecisionFP32 Precision = "FP32"
)

// ParsePrecision maps a case-insensitive name to a Precision. Empty means FP32.
func ParsePrecision(name string) (Precision, error) {
	switch Precision(strings.ToUpper(strings.TrimSpace(name))) {
	case "", PrecisionFP32:
		return PrecisionFP32, nil
	case PrecisionFP16:
		return PrecisionFP16, nil
	default:
		return "", errors.Errorf("unsupported output precision %q", name)
	}
}

// Float16ToFloat32 widens IEEE 754 half-precision bit patterns to float32.
func Float16ToFloat32(bits []uint16) []float32 {
	out := make([]float32, len(bits))
	for i, b := range bits {
		out[i] = float16.Frombits(b).Float32()
	}
	return out
}

// RawOutputFromFloat16 builds a decoder input from a half-precision output tensor.
func RawOutputFromFloat16(bits []uint16, shape []int64) yolo.RawOutput {
	return yolo.RawOutput{
		Data:  Float16ToFloat32(bits),
		Shape: intShape(shape),
	}
}

// float16Bits reinterprets a little-endian half-precision buffer as bit patterns.
func float16Bits(buf []byte) []uint16 {
	bits := make([]uint16, len(buf)/2)
	for i := range bits {
		bits[i] = binary.LittleEndian.Uint16(buf[2*i:])
	}
	return bits
}

func intShape(shape []int64) []int {
	out := make([]int, len(shape))
	for i, d := range shape {
		out[i] = int(d)
	}
	return out
}
