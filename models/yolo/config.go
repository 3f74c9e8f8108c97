package yolo

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// BoxFields is the number of leading box fields (cx, cy, w, h) in every record.
const BoxFields = 4

// RecordHeader is the number of fields before the class scores: the box plus objectness.
const RecordHeader = BoxFields + 1

// Config is the immutable decoder configuration.
//
// A Config is a plain value: copy it to derive a variant, never share a mutable one
// between goroutines. TargetClasses is copied by NewDecoder.
type Config struct {
	// InputWidth is the width of the network input the frame was resized to.
	InputWidth int `json:"input_width" yaml:"input_width"`
	// InputHeight is the height of the network input the frame was resized to.
	InputHeight int `json:"input_height" yaml:"input_height"`
	// NumClasses is the number of class scores per record.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
	// ConfidenceThreshold filters candidates whose objectness x class score is below it.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// ObjectnessThreshold is the early-exit cutoff on raw objectness. Zero means
	// ConfidenceThreshold is used for both checks.
	ObjectnessThreshold float32 `json:"objectness_threshold" yaml:"objectness_threshold"`
	// NMS controls Non-Maximum Suppression.
	NMS postprocess.NMSConfig `json:"nms" yaml:"nms"`
	// TargetClasses restricts output to these class ids. Empty means all classes.
	TargetClasses []int `json:"target_classes" yaml:"target_classes"`
}

// DefaultConfig returns the configuration of a COCO-trained YOLO export that only
// reports people.
//
// Returns:
//   - Config: 640x640 input, 80 classes, 0.45 confidence and IoU thresholds, class 0 only.
func DefaultConfig() Config {
	return Config{
		InputWidth:          640,
		InputHeight:         640,
		NumClasses:          80,
		ConfidenceThreshold: 0.45,
		NMS: postprocess.NMSConfig{
			IoUThreshold: 0.45,
			ClassAware:   true,
		},
		TargetClasses: []int{0},
	}
}

// Stride returns the number of floats per record.
func (c Config) Stride() int {
	return RecordHeader + c.NumClasses
}

// objectnessCutoff returns the threshold applied to raw objectness.
func (c Config) objectnessCutoff() float32 {
	if c.ObjectnessThreshold > 0 {
		return c.ObjectnessThreshold
	}
	return c.ConfidenceThreshold
}

// Validate checks that the configuration can decode a tensor.
//
// Returns:
//   - error: Wraps ErrInvalidConfig with the offending field.
func (c Config) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "input size must be positive, got %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.NumClasses <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "num_classes must be positive, got %d", c.NumClasses)
	}
	if !(c.ConfidenceThreshold > 0 && c.ConfidenceThreshold < 1) {
		return errors.Wrapf(ErrInvalidConfig, "confidence_threshold must be in (0, 1), got %f", c.ConfidenceThreshold)
	}
	if !(c.ObjectnessThreshold >= 0 && c.ObjectnessThreshold < 1) {
		return errors.Wrapf(ErrInvalidConfig, "objectness_threshold must be in [0, 1), got %f", c.ObjectnessThreshold)
	}
	if !(c.NMS.IoUThreshold > 0 && c.NMS.IoUThreshold < 1) {
		return errors.Wrapf(ErrInvalidConfig, "nms iou_threshold must be in (0, 1), got %f", c.NMS.IoUThreshold)
	}
	for _, id := range c.TargetClasses {
		if id < 0 || id >= c.NumClasses {
			return errors.Wrapf(ErrInvalidConfig, "target class %d out of range [0, %d)", id, c.NumClasses)
		}
	}
	return nil
}
