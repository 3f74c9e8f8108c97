// Package inference - Inference sessions.
package inference

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/models/yolo"
)

// SessionConfig describes the model an ONNXEngine loads.
type SessionConfig struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// InputName is the input node name.
	InputName string `json:"input_name" yaml:"input_name"`
	// OutputName is the output node name.
	OutputName string `json:"output_name" yaml:"output_name"`
	// InputShape is the network input shape, [1, 3, height, width].
	InputShape []int64 `json:"input_shape" yaml:"input_shape"`
	// OutputShape is the network output shape, e.g. [1, 85, 8400].
	OutputShape []int64 `json:"output_shape" yaml:"output_shape"`
	// OutputPrecision is the element type of the output tensor. Empty means FP32.
	OutputPrecision Precision `json:"output_precision" yaml:"output_precision"`
	// Provider selects the execution provider.
	Provider providers.Config `json:"provider" yaml:"provider"`
}

// DefaultSessionConfig returns the configuration of a 640x640 planar YOLO export with the
// 80 COCO classes.
func DefaultSessionConfig(modelPath string) SessionConfig {
	return SessionConfig{
		ModelPath:       modelPath,
		InputName:       "images",
		OutputName:      "output0",
		InputShape:      []int64{1, 3, 640, 640},
		OutputShape:     []int64{1, 85, 8400},
		OutputPrecision: PrecisionFP32,
		Provider:        providers.DefaultConfig(),
	}
}

var (
	environmentOnce sync.Once
	environmentErr  error
)

// initEnvironment loads the ONNX Runtime shared library once per process.
func initEnvironment() error {
	environmentOnce.Do(func() {
		libPath, err := providers.GetSharedLibPath()
		if err != nil {
			environmentErr = err
			return
		}
		if _, err := os.Stat(libPath); err != nil {
			environmentErr = errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			environmentErr = errors.Wrap(err, "error initializing ORT environment")
		}
	})
	return environmentErr
}

// ONNXEngine runs a YOLO model with ONNX Runtime using preallocated tensors.
//
// Infer calls are serialized; the bound tensors are shared by every run. FP16 outputs
// are widened to float32 before they are returned.
type ONNXEngine struct {
	mu       sync.Mutex
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	output   ort.ArbitraryTensor
	output32 *ort.Tensor[float32]
	output16 *ort.CustomDataTensor
	shape    []int64
}

// NewONNXEngine loads a model and binds its input and output tensors.
//
// Arguments:
//   - cfg: The session configuration.
//
// Returns:
//   - *ONNXEngine: The engine. The caller must Close it.
//   - error: An error if the runtime, the tensors or the session could not be created.
func NewONNXEngine(cfg SessionConfig) (*ONNXEngine, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if len(cfg.InputShape) != 4 || len(cfg.OutputShape) == 0 {
		return nil, errors.Errorf("invalid tensor shapes: input %v, output %v", cfg.InputShape, cfg.OutputShape)
	}
	precision, err := ParsePrecision(string(cfg.OutputPrecision))
	if err != nil {
		return nil, err
	}
	if err := initEnvironment(); err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.InputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	e := &ONNXEngine{input: input, shape: append([]int64(nil), cfg.OutputShape...)}
	outputShape := ort.NewShape(cfg.OutputShape...)
	if precision == PrecisionFP16 {
		e.output16, err = ort.NewCustomDataTensor(outputShape,
			make([]byte, 2*outputShape.FlattenedSize()), ort.TensorElementDataTypeFloat16)
		e.output = e.output16
	} else {
		e.output32, err = ort.NewEmptyTensor[float32](outputShape)
		e.output = e.output32
	}
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}
	output := e.output

	options, err := providers.SessionOptions(cfg.Provider)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	e.session = session
	return e, nil
}

// Infer copies the input into the bound tensor, runs the session and returns a copy of
// the output.
func (e *ONNXEngine) Infer(ctx context.Context, input Tensor) (yolo.RawOutput, error) {
	if err := ctx.Err(); err != nil {
		return yolo.RawOutput{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return yolo.RawOutput{}, errors.New("engine is closed")
	}

	dst := e.input.GetData()
	if len(input.Data) != len(dst) {
		return yolo.RawOutput{}, errors.Errorf("input holds %d floats, session expects %d", len(input.Data), len(dst))
	}
	copy(dst, input.Data)

	if err := e.session.Run(); err != nil {
		return yolo.RawOutput{}, errors.Wrap(err, "error running ORT session")
	}

	if e.output16 != nil {
		return RawOutputFromFloat16(float16Bits(e.output16.GetData()), e.shape), nil
	}

	out := e.output32.GetData()
	data := make([]float32, len(out))
	copy(data, out)

	return yolo.RawOutput{
		Data:  data,
		Shape: intShape(e.shape),
	}, nil
}

// Close releases the session and its tensors.
func (e *ONNXEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.input != nil {
		e.input.Destroy()
		e.input = nil
	}
	if e.output != nil {
		e.output.Destroy()
		e.output, e.output32, e.output16 = nil, nil, nil
	}
	if e.session != nil {
		err := e.session.Destroy()
		e.session = nil
		return err
	}
	return nil
}
