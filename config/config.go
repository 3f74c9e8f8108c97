// Package config - Application configuration from defaults, a .env file and DETECT_* variables.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/models/yolo"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DETECT_"

// Config is the runtime configuration of the detect command.
type Config struct {
	// ModelPath is the ONNX model file.
	ModelPath string `json:"model_path"`
	// Provider is the execution provider backend name.
	Provider string `json:"provider"`
	// Device is the capture device id used when FramesDir is empty.
	Device int `json:"device"`
	// VideoPath reads frames from a video file when set.
	VideoPath string `json:"video_path"`
	// FramesDir replays frame-<n> images from a directory instead of capturing.
	FramesDir string `json:"frames_dir"`
	// InputWidth and InputHeight are the network input size.
	InputWidth  int `json:"input_width"`
	InputHeight int `json:"input_height"`
	// NumClasses is the number of classes the model predicts.
	NumClasses int `json:"num_classes"`
	// Anchors is the number of candidate records per frame, 25200 for a 640 YOLOv5 export.
	Anchors int `json:"anchors"`
	// PlanarOutput declares a [1, stride, anchors] output instead of [1, anchors, stride].
	PlanarOutput bool `json:"planar_output"`
	// OutputPrecision is FP32 or FP16, the element type of the model output.
	OutputPrecision string `json:"output_precision"`
	// Confidence is the combined confidence threshold.
	Confidence float32 `json:"confidence"`
	// Objectness is the objectness pre-filter; zero reuses Confidence.
	Objectness float32 `json:"objectness"`
	// NMS is the IoU suppression threshold.
	NMS float32 `json:"nms"`
	// ClassAgnosticNMS suppresses overlaps across classes.
	ClassAgnosticNMS bool `json:"class_agnostic_nms"`
	// Classes names the target classes; empty keeps every class.
	Classes []string `json:"classes"`
	// HistoryDB is the SQLite history path; empty disables persistence.
	HistoryDB string `json:"history_db"`
	// CSVPath is where the history is exported on exit; empty disables export.
	CSVPath string `json:"csv_path"`
	// Listen is the websocket feed address; empty disables the feed.
	Listen string `json:"listen"`
	// ShowWindow displays annotated frames.
	ShowWindow bool `json:"show_window"`
	// LogLevel is a logrus level name.
	LogLevel string `json:"log_level"`
	// LogFile receives a copy of the log; empty logs to stderr only.
	LogFile string `json:"log_file"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	d := yolo.DefaultConfig()
	return Config{
		ModelPath:       "yolov5s.onnx",
		Provider:        string(providers.CPUProviderBackend),
		InputWidth:      d.InputWidth,
		InputHeight:     d.InputHeight,
		NumClasses:      d.NumClasses,
		Anchors:         25200,
		OutputPrecision: string(inference.PrecisionFP32),
		Confidence:      d.ConfidenceThreshold,
		NMS:             d.NMS.IoUThreshold,
		Classes:         []string{"person"},
		CSVPath:         "detection_history.csv",
		ShowWindow:      true,
		LogLevel:        "info",
	}
}

// Load returns Default overlaid with envFile (when it exists) and then with the process
// environment. Process variables win over the file.
//
// Arguments:
//   - envFile: Path to an optional .env file; empty skips it.
//
// Returns:
//   - Config: The merged configuration.
//   - error: An error if the file is unreadable or a value does not parse.
func Load(envFile string) (Config, error) {
	file := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			file = values
		case !os.IsNotExist(errors.Cause(err)):
			return Config{}, errors.Wrapf(err, "read env file %s", envFile)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			return v, true
		}
		v, ok := file[EnvPrefix+key]
		return v, ok && v != ""
	}

	return apply(Default(), lookup)
}

// apply overlays every key found by lookup onto c.
func apply(c Config, lookup func(string) (string, bool)) (Config, error) {
	var err error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = errors.Wrapf(perr, "%s%s", EnvPrefix, key)
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float32) {
		if v, ok := lookup(key); ok && err == nil {
			f, perr := strconv.ParseFloat(v, 32)
			if perr != nil {
				err = errors.Wrapf(perr, "%s%s", EnvPrefix, key)
				return
			}
			*dst = float32(f)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && err == nil {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				err = errors.Wrapf(perr, "%s%s", EnvPrefix, key)
				return
			}
			*dst = b
		}
	}

	str("MODEL_PATH", &c.ModelPath)
	str("PROVIDER", &c.Provider)
	num("DEVICE", &c.Device)
	str("VIDEO_PATH", &c.VideoPath)
	str("FRAMES_DIR", &c.FramesDir)
	num("INPUT_WIDTH", &c.InputWidth)
	num("INPUT_HEIGHT", &c.InputHeight)
	num("NUM_CLASSES", &c.NumClasses)
	num("ANCHORS", &c.Anchors)
	boolean("PLANAR_OUTPUT", &c.PlanarOutput)
	str("OUTPUT_PRECISION", &c.OutputPrecision)
	float("CONFIDENCE", &c.Confidence)
	float("OBJECTNESS", &c.Objectness)
	float("NMS", &c.NMS)
	boolean("CLASS_AGNOSTIC_NMS", &c.ClassAgnosticNMS)
	if v, ok := lookup("CLASSES"); ok {
		c.Classes = SplitList(v)
	}
	str("HISTORY_DB", &c.HistoryDB)
	str("CSV_PATH", &c.CSVPath)
	str("LISTEN", &c.Listen)
	boolean("SHOW_WINDOW", &c.ShowWindow)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)

	return c, err
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Decoder builds the decoder configuration, resolving class names against classes.
func (c Config) Decoder(classes *models.OutputClassSet) (yolo.Config, error) {
	targets, err := classes.Resolve(c.Classes)
	if err != nil {
		return yolo.Config{}, errors.Wrap(err, "resolve target classes")
	}

	d := yolo.Config{
		InputWidth:          c.InputWidth,
		InputHeight:         c.InputHeight,
		NumClasses:          c.NumClasses,
		ConfidenceThreshold: c.Confidence,
		ObjectnessThreshold: c.Objectness,
		NMS: postprocess.NMSConfig{
			IoUThreshold: c.NMS,
			ClassAware:   !c.ClassAgnosticNMS,
		},
		TargetClasses: targets,
	}
	return d, d.Validate()
}

// ProviderConfig builds the execution provider configuration.
func (c Config) ProviderConfig() (providers.Config, error) {
	backend, err := providers.ParseBackend(c.Provider)
	if err != nil {
		return providers.Config{}, err
	}
	p := providers.DefaultConfig()
	p.Backend = backend
	return p, nil
}

// Session builds the ONNX session configuration.
func (c Config) Session() (inference.SessionConfig, error) {
	provider, err := c.ProviderConfig()
	if err != nil {
		return inference.SessionConfig{}, err
	}
	if c.Anchors <= 0 {
		return inference.SessionConfig{}, errors.Errorf("anchors must be positive, got %d", c.Anchors)
	}
	precision, err := inference.ParsePrecision(c.OutputPrecision)
	if err != nil {
		return inference.SessionConfig{}, err
	}

	s := inference.DefaultSessionConfig(c.ModelPath)
	s.InputShape = []int64{1, 3, int64(c.InputHeight), int64(c.InputWidth)}
	stride := int64(yolo.RecordHeader + c.NumClasses)
	if c.PlanarOutput {
		s.OutputShape = []int64{1, stride, int64(c.Anchors)}
	} else {
		s.OutputShape = []int64{1, int64(c.Anchors), stride}
	}
	s.OutputPrecision = precision
	s.Provider = provider
	return s, nil
}
