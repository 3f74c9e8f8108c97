// Package detector - Runs frames through preprocessing, inference and YOLO decoding.
package detector

import (
	"context"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/models/yolo"
	"github.com/nvr-ai/go-detect/profiler"
)

// Operation names recorded in the profiler.
const (
	OpPreprocess = "preprocess"
	OpInfer      = "infer"
	OpDecode     = "decode"
	OpFrame      = "frame"
)

// Frame is the outcome of processing one image.
type Frame struct {
	// Number is the 1-based sequence number of the frame.
	Number int
	// Timestamp is the time processing started.
	Timestamp time.Time
	// Image is the source frame.
	Image image.Image
	// Width and Height are the source frame dimensions.
	Width  int
	Height int
	// Detections are the final detections, empty when nothing was found.
	Detections []postprocess.Detection
	// Err is set when the frame could not be processed.
	Err error
}

// Count returns the number of detections of a class.
func (f Frame) Count(class int) int {
	n := 0
	for _, d := range f.Detections {
		if d.Class == class {
			n++
		}
	}
	return n
}

// Stats are the counters of a Detector.
type Stats struct {
	Frames     int64 `json:"frames"`
	Failed     int64 `json:"failed"`
	Detections int64 `json:"detections"`
}

// Source yields frames. Next returns io.EOF once the source is exhausted.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (image.Image, error)

// Next calls f.
func (f SourceFunc) Next(ctx context.Context) (image.Image, error) {
	return f(ctx)
}

// Sink receives every processed frame, failed ones included.
type Sink func(Frame)

// Options configures a Detector.
type Options struct {
	// Engine runs the network. Required.
	Engine inference.Engine
	// Decoder turns raw outputs into detections. Required.
	Decoder *yolo.Decoder
	// Classes labels class ids in log fields (default: models.YOLOClasses).
	Classes *models.OutputClassSet
	// Profiler records stage timings; nil disables timing.
	Profiler *profiler.Profiler
	// Logger receives per-frame failures; nil discards them.
	Logger logrus.FieldLogger
	// Now returns the current time (default: time.Now).
	Now func() time.Time
}

// Detector runs the detection pipeline for a stream of frames.
//
// Process may be called concurrently; frame numbers are assigned in call order.
type Detector struct {
	engine   inference.Engine
	decoder  *yolo.Decoder
	classes  *models.OutputClassSet
	profiler *profiler.Profiler
	logger   logrus.FieldLogger
	now      func() time.Time

	inputWidth  int
	inputHeight int

	sequence   atomic.Int64
	frames     atomic.Int64
	failed     atomic.Int64
	detections atomic.Int64

	closeOnce sync.Once
}

// New creates a detector.
//
// Arguments:
//   - opts: The detector options.
//
// Returns:
//   - *Detector: The detector.
//   - error: An error if the engine or the decoder is missing.
func New(opts Options) (*Detector, error) {
	if opts.Engine == nil {
		return nil, errors.New("detector requires an inference engine")
	}
	if opts.Decoder == nil {
		return nil, errors.New("detector requires a decoder")
	}
	if opts.Classes == nil {
		opts.Classes = models.YOLOClasses
	}
	if opts.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		opts.Logger = logger
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cfg := opts.Decoder.Config()
	return &Detector{
		engine:      opts.Engine,
		decoder:     opts.Decoder,
		classes:     opts.Classes,
		profiler:    opts.Profiler,
		logger:      opts.Logger,
		now:         opts.Now,
		inputWidth:  cfg.InputWidth,
		inputHeight: cfg.InputHeight,
	}, nil
}

// Process runs one image through the pipeline.
//
// Failures are reported on the returned frame and never panic; a frame without
// detections is not a failure.
func (d *Detector) Process(ctx context.Context, img image.Image) Frame {
	frame := Frame{
		Number:    int(d.sequence.Add(1)),
		Timestamp: d.now(),
		Image:     img,
	}
	defer d.time(OpFrame)()

	frame.Detections, frame.Err = d.process(ctx, img, &frame)

	d.frames.Add(1)
	if frame.Err != nil {
		d.failed.Add(1)
		d.logger.WithFields(logrus.Fields{
			"frame": frame.Number,
			"error": frame.Err,
		}).Warn("frame processing failed")
		return frame
	}
	d.detections.Add(int64(len(frame.Detections)))

	if len(frame.Detections) > 0 {
		d.logger.WithFields(logrus.Fields{
			"frame":      frame.Number,
			"detections": len(frame.Detections),
			"top":        d.classes.Label(frame.Detections[0].Class),
			"confidence": frame.Detections[0].Score,
		}).Debug("frame processed")
	}
	return frame
}

func (d *Detector) process(ctx context.Context, img image.Image, frame *Frame) ([]postprocess.Detection, error) {
	if img == nil {
		return nil, errors.Wrap(yolo.ErrInvalidFrame, "nil image")
	}
	bounds := img.Bounds()
	frame.Width, frame.Height = bounds.Dx(), bounds.Dy()
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, errors.Wrapf(yolo.ErrInvalidFrame, "%dx%d", frame.Width, frame.Height)
	}

	done := d.time(OpPreprocess)
	input, err := inference.PrepareInput(img, d.inputWidth, d.inputHeight)
	done()
	if err != nil {
		return nil, errors.Wrap(err, "preprocess")
	}

	done = d.time(OpInfer)
	output, err := d.engine.Infer(ctx, input)
	done()
	if err != nil {
		return nil, errors.Wrap(err, "inference")
	}

	done = d.time(OpDecode)
	detections, err := d.decoder.Decode(output, frame.Width, frame.Height)
	done()
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return detections, nil
}

// Run processes frames from src until it is exhausted or ctx is done.
//
// Per-frame failures are passed to sink and counted; only source errors other than
// io.EOF and context cancellation end the loop with an error.
//
// Returns:
//   - Stats: The counters after the loop ends.
//   - error: nil on exhaustion, the context error on cancellation or the source error.
func (d *Detector) Run(ctx context.Context, src Source, sink Sink) (Stats, error) {
	for {
		if err := ctx.Err(); err != nil {
			return d.Stats(), err
		}

		img, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return d.Stats(), nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return d.Stats(), ctxErr
			}
			return d.Stats(), errors.Wrap(err, "read frame")
		}

		frame := d.Process(ctx, img)
		if sink != nil {
			sink(frame)
		}
	}
}

// Stats returns a snapshot of the counters.
func (d *Detector) Stats() Stats {
	return Stats{
		Frames:     d.frames.Load(),
		Failed:     d.failed.Load(),
		Detections: d.detections.Load(),
	}
}

// Close releases the engine.
func (d *Detector) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = d.engine.Close()
	})
	return err
}

func (d *Detector) time(op string) func() {
	if d.profiler == nil {
		return func() {}
	}
	return d.profiler.StartOperation(op)
}
