package inference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/models/yolo"
)

func TestEngineFunc(t *testing.T) {
	var engine Engine = EngineFunc(func(_ context.Context, input Tensor) (yolo.RawOutput, error) {
		return yolo.RawOutput{Data: input.Data, Shape: []int{len(input.Data)}}, nil
	})

	out, err := engine.Infer(context.Background(), Tensor{Data: []float32{1, 2, 3}, Shape: []int64{3}})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, out.Shape)
	assert.NoError(t, engine.Close())
}

func TestNewONNXEngine_RejectsBadConfig(t *testing.T) {
	_, err := NewONNXEngine(SessionConfig{})
	assert.Error(t, err)

	cfg := DefaultSessionConfig("model.onnx")
	cfg.InputShape = []int64{1, 3}
	_, err = NewONNXEngine(cfg)
	assert.Error(t, err)
}

func TestDefaultSessionConfig(t *testing.T) {
	cfg := DefaultSessionConfig("yolov5s.onnx")

	assert.Equal(t, "images", cfg.InputName)
	assert.Equal(t, "output0", cfg.OutputName)
	assert.Equal(t, []int64{1, 85, 8400}, cfg.OutputShape)
}
