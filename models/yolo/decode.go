package yolo

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Decoder turns raw YOLO output tensors into detections in source-frame coordinates.
//
// A Decoder holds only its immutable configuration, so one instance may decode frames
// from several goroutines at once as long as each call gets its own RawOutput.
type Decoder struct {
	config  Config
	targets map[int]struct{}
}

// NewDecoder validates the configuration and returns a decoder for it.
//
// Arguments:
//   - config: The decoder configuration.
//
// Returns:
//   - *Decoder: The decoder.
//   - error: Wraps ErrInvalidConfig when the configuration is unusable.
func NewDecoder(config Config) (*Decoder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var targets map[int]struct{}
	if len(config.TargetClasses) > 0 {
		targets = make(map[int]struct{}, len(config.TargetClasses))
		for _, id := range config.TargetClasses {
			targets[id] = struct{}{}
		}
	}
	config.TargetClasses = append([]int(nil), config.TargetClasses...)

	return &Decoder{config: config, targets: targets}, nil
}

// Config returns a copy of the decoder configuration.
func (d *Decoder) Config() Config {
	c := d.config
	c.TargetClasses = append([]int(nil), d.config.TargetClasses...)
	return c
}

// Candidates decodes and filters every record without suppressing overlaps.
//
// Records are discarded when their objectness or combined confidence is below the
// thresholds, when their best class is not a target class, or when their clamped box is
// degenerate. Candidates keep the index of their originating record.
//
// Arguments:
//   - output: The raw inference output for one frame.
//   - frameWidth: The source frame width in pixels.
//   - frameHeight: The source frame height in pixels.
//
// Returns:
//   - []postprocess.Detection: The surviving candidates in record order.
//   - error: ErrMalformedOutput, ErrUnsupportedLayout or ErrInvalidFrame.
func (d *Decoder) Candidates(output RawOutput, frameWidth, frameHeight int) ([]postprocess.Detection, error) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return nil, errors.Wrapf(ErrInvalidFrame, "%dx%d", frameWidth, frameHeight)
	}

	records, err := NewRecords(output, d.config.Stride())
	if err != nil {
		return nil, err
	}

	scale := newFrameScale(d.config, frameWidth, frameHeight)
	candidates := make([]postprocess.Detection, 0, 16)

	for i := 0; i < records.Len(); i++ {
		record := records.At(i)

		confidence, classID, ok := d.config.score(record)
		if !ok {
			continue
		}
		if !d.isTarget(classID) {
			continue
		}

		box, ok := scale.box(record)
		if !ok {
			continue
		}

		candidates = append(candidates, postprocess.Detection{
			Box:   box,
			Score: confidence,
			Class: classID,
			Index: i,
		})
	}

	return candidates, nil
}

// Decode decodes one frame's raw output into its final detections.
//
// An empty result with a nil error is a normal outcome meaning nothing was detected.
// Errors are local to the frame; retrying the same buffer cannot succeed.
//
// Arguments:
//   - output: The raw inference output for one frame.
//   - frameWidth: The source frame width in pixels.
//   - frameHeight: The source frame height in pixels.
//
// Returns:
//   - []postprocess.Detection: Detections in non-increasing confidence order.
//   - error: ErrMalformedOutput, ErrUnsupportedLayout or ErrInvalidFrame.
func (d *Decoder) Decode(output RawOutput, frameWidth, frameHeight int) ([]postprocess.Detection, error) {
	candidates, err := d.Candidates(output, frameWidth, frameHeight)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []postprocess.Detection{}, nil
	}
	return postprocess.ApplyGreedyNMS(candidates, d.config.NMS), nil
}

func (d *Decoder) isTarget(classID int) bool {
	if d.targets == nil {
		return true
	}
	_, ok := d.targets[classID]
	return ok
}
