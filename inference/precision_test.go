package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/models/yolo"
)

func TestFloat16ToFloat32(t *testing.T) {
	got := Float16ToFloat32([]uint16{0x0000, 0x3C00, 0x3800, 0xC000, 0x7BFF})

	assert.Equal(t, []float32{0, 1, 0.5, -2, 65504}, got)
}

func TestRawOutputFromFloat16(t *testing.T) {
	out := RawOutputFromFloat16([]uint16{0x3C00, 0x4000}, []int64{1, 2})

	assert.Equal(t, yolo.RawOutput{Data: []float32{1, 2}, Shape: []int{1, 2}}, out)
	assert.NoError(t, out.Validate())
}

func TestParsePrecision(t *testing.T) {
	tests := []struct {
		in   string
		want Precision
	}{
		{"", PrecisionFP32},
		{"fp32", PrecisionFP32},
		{" FP16 ", PrecisionFP16},
	}
	for _, tt := range tests {
		got, err := ParsePrecision(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParsePrecision("int8")
	assert.Error(t, err)
}

func TestFloat16Bits(t *testing.T) {
	// Little-endian 1.0, -2.0 and 0.5.
	buf := []byte{0x00, 0x3C, 0x00, 0xC0, 0x00, 0x38}

	bits := float16Bits(buf)

	assert.Equal(t, []uint16{0x3C00, 0xC000, 0x3800}, bits)
	assert.Equal(t, []float32{1, -2, 0.5}, Float16ToFloat32(bits))
}

func TestNewONNXEngine_RejectsUnknownPrecision(t *testing.T) {
	cfg := DefaultSessionConfig("yolov5s.onnx")
	cfg.OutputPrecision = "INT8"

	_, err := NewONNXEngine(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "output precision")
}
