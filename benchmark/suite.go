package benchmark

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/yolo"
	"github.com/nvr-ai/go-detect/profiler"
)

// OpImageDecode is the profiler operation for decoding an encoded frame.
const OpImageDecode = "image_decode"

// Suite manages and executes benchmark scenarios
type Suite struct {
	config    yolo.Config
	outputDir string
	seed      int64
	logger    logrus.FieldLogger

	mu        sync.RWMutex
	scenarios []Scenario
	results   []PerformanceMetrics
}

// NewSuiteArgs represents the arguments for creating a new benchmark suite.
type NewSuiteArgs struct {
	// Decoder configures YOLO decoding for every scenario (default: yolo.DefaultConfig).
	Decoder *yolo.Config `json:"decoder" yaml:"decoder"`
	// OutputPath is where SaveResults writes (default: ./benchmark_results).
	OutputPath string `json:"outputPath" yaml:"outputPath"`
	// Seed seeds the synthetic outputs.
	Seed int64 `json:"seed" yaml:"seed"`
	// Logger receives progress messages; nil discards them.
	Logger logrus.FieldLogger `json:"-" yaml:"-"`
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - args: The arguments for creating a new benchmark suite.
//
// Returns:
//   - *Suite: The benchmark suite.
//   - error: An error if the decoder configuration is invalid.
func NewSuite(args NewSuiteArgs) (*Suite, error) {
	config := yolo.DefaultConfig()
	if args.Decoder != nil {
		config = *args.Decoder
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if args.OutputPath == "" {
		args.OutputPath = "./benchmark_results"
	}
	if args.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		args.Logger = logger
	}

	return &Suite{
		config:    config,
		outputDir: args.OutputPath,
		seed:      args.Seed,
		logger:    args.Logger,
	}, nil
}

// AddScenario adds a test scenario to the benchmark suite
func (bs *Suite) AddScenario(scenario Scenario) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.scenarios = append(bs.scenarios, scenario)
}

// Scenarios returns the queued scenarios.
func (bs *Suite) Scenarios() []Scenario {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return append([]Scenario(nil), bs.scenarios...)
}

// RunScenario executes a single benchmark scenario.
//
// Each iteration decodes the scenario's encoded frame and runs it through a detector
// backed by a synthetic engine, so the measurement covers image decoding, preprocessing
// and YOLO post-processing without a model file.
//
// Arguments:
//   - ctx: Cancels the run between iterations.
//   - scenario: The scenario to run.
//
// Returns:
//   - *PerformanceMetrics: The measurements.
//   - error: An error if the scenario is invalid, the frame cannot be encoded, or ctx ends.
func (bs *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	decoder, err := yolo.NewDecoder(bs.config)
	if err != nil {
		return nil, err
	}
	engine := NewSyntheticEngine(bs.config, scenario.Candidates, scenario.Objects, scenario.Layout, bs.seed)
	prof := profiler.New(profiler.Options{MaxSamples: scenario.Iterations, Logger: bs.logger})
	det, err := detector.New(detector.Options{
		Engine:   engine,
		Decoder:  decoder,
		Profiler: prof,
		Logger:   bs.logger,
	})
	if err != nil {
		return nil, err
	}
	defer det.Close()

	var encoded bytes.Buffer
	frame := TestFrame(scenario.Resolution.Pixels.Width, scenario.Resolution.Pixels.Height)
	if err := images.Encode(&encoded, frame, scenario.ImageFormat); err != nil {
		return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
	}

	run := func() (int, error) {
		done := prof.StartOperation(OpImageDecode)
		img, _, err := images.Decode(bytes.NewReader(encoded.Bytes()))
		done()
		if err != nil {
			return 0, err
		}
		result := det.Process(ctx, img)
		return len(result.Detections), result.Err
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		if _, err := run(); err != nil {
			continue // Skip warmup errors
		}
	}
	prof.Reset()

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: time.Now(),
		NumCPU:    runtime.NumCPU(),
	}
	failures := 0
	startTime := time.Now()

	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		count, err := run()
		if err != nil {
			failures++
			continue
		}
		metrics.DetectionCount += count
	}

	metrics.TotalDuration = time.Since(startTime)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	if seconds := metrics.TotalDuration.Seconds(); seconds > 0 {
		metrics.FramesPerSecond = float64(scenario.Iterations) / seconds
	}
	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	metrics.Stages = make(map[string]profiler.Summary)
	for _, summary := range prof.Summaries() {
		metrics.Stages[summary.Name] = summary
	}
	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
		HeapSysBytes:    endMem.HeapSys,
	}

	return metrics, nil
}

// RunAllScenarios runs every queued scenario in order and records the results.
//
// A failing scenario is logged and skipped; cancellation stops the run.
func (bs *Suite) RunAllScenarios(ctx context.Context) error {
	for _, scenario := range bs.Scenarios() {
		metrics, err := bs.RunScenario(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			bs.logger.WithError(err).WithField("scenario", scenario.Name).Error("scenario failed")
			continue
		}

		bs.logger.WithFields(logrus.Fields{
			"scenario":   scenario.Name,
			"fps":        metrics.FramesPerSecond,
			"detections": metrics.DetectionCount,
			"decode_ms":  metrics.Stage(detector.OpDecode),
		}).Info("scenario complete")

		bs.mu.Lock()
		bs.results = append(bs.results, *metrics)
		bs.mu.Unlock()
	}
	return nil
}

// GetResults returns the recorded results.
func (bs *Suite) GetResults() []PerformanceMetrics {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return append([]PerformanceMetrics(nil), bs.results...)
}

// summaryHeader is the header row of the CSV summary.
var summaryHeader = []string{
	"scenario", "resolution", "format", "candidates", "layout", "objects",
	"fps", "image_decode_ms", "preprocess_ms", "decode_ms", "detections", "error_rate",
}

// SaveResults writes results.json and summary.csv to the output directory.
func (bs *Suite) SaveResults() error {
	if err := os.MkdirAll(bs.outputDir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", bs.outputDir)
	}
	results := bs.GetResults()

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}
	if err := os.WriteFile(filepath.Join(bs.outputDir, "results.json"), data, 0o644); err != nil {
		return errors.Wrap(err, "write results.json")
	}

	f, err := os.Create(filepath.Join(bs.outputDir, "summary.csv"))
	if err != nil {
		return errors.Wrap(err, "create summary.csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader); err != nil {
		return errors.Wrap(err, "write summary header")
	}
	for _, m := range results {
		row := []string{
			m.Scenario.Name,
			m.Scenario.Resolution.String(),
			string(m.Scenario.ImageFormat),
			strconv.Itoa(m.Scenario.Candidates),
			m.Scenario.Layout.String(),
			strconv.Itoa(m.Scenario.Objects),
			strconv.FormatFloat(m.FramesPerSecond, 'f', 2, 64),
			strconv.FormatFloat(m.Stage(OpImageDecode), 'f', 3, 64),
			strconv.FormatFloat(m.Stage(detector.OpPreprocess), 'f', 3, 64),
			strconv.FormatFloat(m.Stage(detector.OpDecode), 'f', 3, 64),
			strconv.Itoa(m.DetectionCount),
			strconv.FormatFloat(m.ErrorRate, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "write summary row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush summary.csv")
}

// TestFrame generates a deterministic gradient frame of the given size.
func TestFrame(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / max(width, 1)),
				G: uint8(y * 255 / max(height, 1)),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}
