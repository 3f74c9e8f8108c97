// Package profiler - Stage timing and runtime reporting for the detection pipeline.
package profiler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Summary holds timing statistics for one operation, in milliseconds.
type Summary struct {
	Name   string  `json:"name"`
	Count  int64   `json:"count"`
	Mean   float64 `json:"mean_ms"`
	StdDev float64 `json:"stddev_ms"`
	Min    float64 `json:"min_ms"`
	Max    float64 `json:"max_ms"`
	P50    float64 `json:"p50_ms"`
	P95    float64 `json:"p95_ms"`
}

// Options configures a Profiler.
type Options struct {
	// ReportInterval specifies how often Start logs a report (default: 10s).
	ReportInterval time.Duration
	// MaxSamples bounds the samples kept per operation (default: 600).
	MaxSamples int
	// Logger receives the periodic reports (default: the logrus standard logger).
	Logger logrus.FieldLogger
}

// Profiler records operation durations and summarizes them.
//
// All methods are safe for concurrent use.
type Profiler struct {
	reportInterval time.Duration
	maxSamples     int
	logger         logrus.FieldLogger

	mu         sync.RWMutex
	operations map[string]*tracker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// tracker keeps a bounded window of samples plus a lifetime count.
type tracker struct {
	samples []float64
	count   int64
}

// New creates a profiler with the given options.
func New(opts Options) *Profiler {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 10 * time.Second
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = 600
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Profiler{
		reportInterval: opts.ReportInterval,
		maxSamples:     opts.MaxSamples,
		logger:         opts.Logger,
		operations:     make(map[string]*tracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The name of the operation to track.
//
// Returns:
//   - func(): A function to call when the operation completes.
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one duration sample for an operation.
func (p *Profiler) Record(name string, d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)

	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.operations[name]
	if !ok {
		t = &tracker{samples: make([]float64, 0, 64)}
		p.operations[name] = t
	}
	t.samples = append(t.samples, ms)
	if len(t.samples) > p.maxSamples {
		t.samples = t.samples[len(t.samples)-p.maxSamples:]
	}
	t.count++
}

// Summary returns the statistics of an operation over the retained samples.
//
// Returns:
//   - Summary: The statistics.
//   - bool: false when the operation was never recorded.
func (p *Profiler) Summary(name string) (Summary, bool) {
	p.mu.RLock()
	t, ok := p.operations[name]
	if !ok {
		p.mu.RUnlock()
		return Summary{}, false
	}
	samples := append([]float64(nil), t.samples...)
	count := t.count
	p.mu.RUnlock()

	return summarize(name, count, samples), true
}

// Summaries returns the statistics of every operation sorted by name.
func (p *Profiler) Summaries() []Summary {
	p.mu.RLock()
	names := make([]string, 0, len(p.operations))
	for name := range p.operations {
		names = append(names, name)
	}
	p.mu.RUnlock()

	sort.Strings(names)
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		if s, ok := p.Summary(name); ok {
			out = append(out, s)
		}
	}
	return out
}

// Reset discards all recorded samples.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.operations = make(map[string]*tracker)
}

func summarize(name string, count int64, samples []float64) Summary {
	s := Summary{Name: name, Count: count}
	if len(samples) == 0 {
		return s
	}
	sort.Float64s(samples)

	s.Mean = stat.Mean(samples, nil)
	if len(samples) > 1 {
		s.StdDev = stat.StdDev(samples, nil)
	}
	s.Min = samples[0]
	s.Max = samples[len(samples)-1]
	s.P50 = stat.Quantile(0.5, stat.Empirical, samples, nil)
	s.P95 = stat.Quantile(0.95, stat.Empirical, samples, nil)
	return s
}

// Start logs a report every ReportInterval until Stop is called or ctx ends.
// Calling Start on a running profiler is a no-op.
func (p *Profiler) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Report()
			}
		}
	}()
}

// Stop ends the reporting loop and waits for it to exit.
func (p *Profiler) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
}

// Report logs one line per operation.
func (p *Profiler) Report() {
	for _, s := range p.Summaries() {
		p.logger.WithFields(logrus.Fields{
			"operation": s.Name,
			"count":     s.Count,
			"mean_ms":   s.Mean,
			"stddev_ms": s.StdDev,
			"p50_ms":    s.P50,
			"p95_ms":    s.P95,
			"max_ms":    s.Max,
		}).Info("operation timings")
	}
}
