// Package providers - Execution providers for the ONNX runtime.
package providers

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers.
type ProviderBackend string

const (
	// CPUProviderBackend runs on the default CPU provider.
	CPUProviderBackend ProviderBackend = "cpu"
	// CoreMLProviderBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLProviderBackend ProviderBackend = "coreml"
	// CUDAProviderBackend uses NVIDIA CUDA.
	CUDAProviderBackend ProviderBackend = "cuda"
)

// Backends is a list of all supported backends.
var Backends = []ProviderBackend{CPUProviderBackend, CoreMLProviderBackend, CUDAProviderBackend}

// ParseBackend parses a backend name case-insensitively. An empty name selects the CPU.
func ParseBackend(name string) (ProviderBackend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return CPUProviderBackend, nil
	}
	for _, b := range Backends {
		if string(b) == name {
			return b, nil
		}
	}
	return "", errors.Errorf("unsupported provider backend %q", name)
}

// Config selects and tunes an execution provider.
type Config struct {
	// Backend specifies the backend to use.
	Backend ProviderBackend `json:"backend" yaml:"backend"`
	// DeviceID is the CUDA device ordinal.
	DeviceID int `json:"device_id" yaml:"device_id"`
	// IntraOpThreads sets intra-op parallelism; 0 lets the runtime decide.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpThreads sets inter-op parallelism; 0 lets the runtime decide.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
}

// DefaultConfig returns a CPU configuration with runtime-chosen threading.
func DefaultConfig() Config {
	return Config{Backend: CPUProviderBackend}
}

// SessionOptions creates ONNX Runtime session options for the configured backend.
//
// The caller owns the returned options and must Destroy them once the session that uses
// them has been created.
//
// Arguments:
//   - cfg: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: The configured session options.
//   - error: An error if the backend cannot be enabled.
func SessionOptions(cfg Config) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}

	if err := configure(options, cfg); err != nil {
		options.Destroy()
		return nil, err
	}
	return options, nil
}

func configure(options *ort.SessionOptions, cfg Config) error {
	if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
		return errors.Wrap(err, "error setting intra-op threads")
	}
	if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
		return errors.Wrap(err, "error setting inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return errors.Wrap(err, "error setting graph optimization level")
	}

	switch cfg.Backend {
	case CPUProviderBackend, "":
		return nil
	case CoreMLProviderBackend:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			return errors.Wrap(err, "error enabling CoreML")
		}
		return nil
	case CUDAProviderBackend:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return errors.Wrap(err, "error creating CUDA options")
		}
		defer cuda.Destroy()
		if err := cuda.Update(map[string]string{"device_id": strconv.Itoa(cfg.DeviceID)}); err != nil {
			return errors.Wrap(err, "error updating CUDA options")
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return errors.Wrap(err, "error enabling CUDA")
		}
		return nil
	default:
		return errors.Errorf("unsupported provider backend %q", cfg.Backend)
	}
}
