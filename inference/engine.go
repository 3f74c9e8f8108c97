// Package inference - Inference engine interface and implementations.
package inference

import (
	"context"

	"github.com/nvr-ai/go-detect/models/yolo"
)

// Tensor is a preprocessed network input.
type Tensor struct {
	// Data is the flat tensor buffer.
	Data []float32
	// Shape is the tensor shape, [1, 3, height, width] for images.
	Shape []int64
}

// Engine defines the contract of an inference backend.
//
// Infer must return an output whose buffer is owned by the caller: an engine may not
// reuse or modify it after returning.
type Engine interface {
	Infer(ctx context.Context, input Tensor) (yolo.RawOutput, error)
	Close() error
}

// EngineFunc adapts a function to the Engine interface. Close is a no-op.
type EngineFunc func(ctx context.Context, input Tensor) (yolo.RawOutput, error)

// Infer calls f.
func (f EngineFunc) Infer(ctx context.Context, input Tensor) (yolo.RawOutput, error) {
	return f(ctx, input)
}

// Close implements Engine.
func (f EngineFunc) Close() error {
	return nil
}
