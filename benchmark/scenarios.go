// Package benchmark - Measures detection pipeline throughput across camera scenarios.
package benchmark

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/yolo"
)

// Scenario describes one benchmark configuration.
type Scenario struct {
	Name        string             `json:"name"`
	Resolution  images.Resolution  `json:"resolution"`
	ImageFormat images.ImageFormat `json:"image_format"`
	// Candidates is the number of records in each raw output.
	Candidates int `json:"candidates"`
	// Objects is the number of objects present in each output.
	Objects    int         `json:"objects"`
	Layout     yolo.Layout `json:"layout"`
	Iterations int         `json:"iterations"`
	WarmupRuns int         `json:"warmup_runs"`
}

// ScenarioBuilder helps build test scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a new scenario builder with a 1080p JPEG, 25200-candidate
// interleaved default.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	res, _ := images.GetResolutionByType(images.ResolutionTypeFHD1080p)
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:        name,
			Resolution:  res,
			ImageFormat: images.FormatJPEG,
			Candidates:  25200,
			Objects:     5,
			Layout:      yolo.LayoutInterleaved,
			Iterations:  100,
			WarmupRuns:  10,
		},
	}
}

// WithResolution sets the frame resolution
func (sb *ScenarioBuilder) WithResolution(res images.Resolution) *ScenarioBuilder {
	sb.scenario.Resolution = res
	return sb
}

// WithImageFormat sets the encoding frames are decoded from
func (sb *ScenarioBuilder) WithImageFormat(format images.ImageFormat) *ScenarioBuilder {
	sb.scenario.ImageFormat = format
	return sb
}

// WithCandidates sets the number of records per output
func (sb *ScenarioBuilder) WithCandidates(candidates int) *ScenarioBuilder {
	sb.scenario.Candidates = candidates
	return sb
}

// WithObjects sets the number of objects per output
func (sb *ScenarioBuilder) WithObjects(objects int) *ScenarioBuilder {
	sb.scenario.Objects = objects
	return sb
}

// WithLayout sets the output layout
func (sb *ScenarioBuilder) WithLayout(layout yolo.Layout) *ScenarioBuilder {
	sb.scenario.Layout = layout
	return sb
}

// WithIterations sets the number of test iterations
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of warmup runs
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the configured test scenario
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// Validate checks that a scenario can run.
func (s Scenario) Validate() error {
	switch {
	case s.Name == "":
		return errors.New("scenario name is required")
	case s.Resolution.Pixels.Width <= 0 || s.Resolution.Pixels.Height <= 0:
		return errors.Errorf("scenario %s: invalid resolution %v", s.Name, s.Resolution.Pixels)
	case s.Candidates <= 0:
		return errors.Errorf("scenario %s: candidates must be positive", s.Name)
	case s.Iterations <= 0:
		return errors.Errorf("scenario %s: iterations must be positive", s.Name)
	}
	return nil
}

// ScenarioSet represents a collection of related test scenarios
type ScenarioSet struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Scenarios   []Scenario `json:"scenarios"`
}

// QuickScenarios returns a small set covering common camera resolutions.
func QuickScenarios(iterations int) *ScenarioSet {
	var scenarios []Scenario
	for _, t := range []images.ResolutionType{
		images.ResolutionTypeHD720p,
		images.ResolutionTypeFHD1080p,
		images.ResolutionType4KUHD,
	} {
		res, _ := images.GetResolutionByType(t)
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("quick_%dx%d", res.Pixels.Width, res.Pixels.Height)).
			WithResolution(res).
			WithIterations(iterations).
			WithWarmupRuns(2).
			Build())
	}
	return &ScenarioSet{
		Name:        "Quick Performance Test",
		Description: "720p, 1080p and 4K frames through the full pipeline",
		Scenarios:   scenarios,
	}
}

// ResolutionScenarios compares every known camera resolution.
func ResolutionScenarios(iterations int) *ScenarioSet {
	var scenarios []Scenario
	for _, res := range images.GetAllResolutions() {
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("resolution_%dx%d", res.Pixels.Width, res.Pixels.Height)).
			WithResolution(res).
			WithIterations(iterations).
			Build())
	}
	return &ScenarioSet{
		Name:        "Resolution Comparison",
		Description: "Compares pipeline cost across camera resolutions",
		Scenarios:   scenarios,
	}
}

// FormatScenarios compares the supported frame encodings at one resolution.
func FormatScenarios(res images.Resolution, iterations int) *ScenarioSet {
	var scenarios []Scenario
	for _, format := range images.Formats {
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("format_%s", format)).
			WithResolution(res).
			WithImageFormat(format).
			WithIterations(iterations).
			Build())
	}
	return &ScenarioSet{
		Name:        "Format Comparison",
		Description: fmt.Sprintf("Compares frame encodings at %s", res),
		Scenarios:   scenarios,
	}
}

// DecodeScenarios compares output sizes, layouts and object densities.
func DecodeScenarios(iterations int) *ScenarioSet {
	var scenarios []Scenario
	for _, candidates := range []int{8400, 25200} {
		for _, layout := range []yolo.Layout{yolo.LayoutInterleaved, yolo.LayoutPlanar} {
			for _, objects := range []int{0, 20, 200} {
				scenarios = append(scenarios, NewScenarioBuilder(
					fmt.Sprintf("decode_%d_%s_%d", candidates, layout, objects)).
					WithCandidates(candidates).
					WithLayout(layout).
					WithObjects(objects).
					WithIterations(iterations).
					Build())
			}
		}
	}
	return &ScenarioSet{
		Name:        "Decode Comparison",
		Description: "Compares candidate counts, output layouts and object densities",
		Scenarios:   scenarios,
	}
}

// SaveScenarioSet writes a scenario set as indented JSON.
func SaveScenarioSet(set *ScenarioSet, filename string) error {
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal scenario set")
	}
	return errors.Wrapf(os.WriteFile(filename, data, 0o644), "write %s", filename)
}

// LoadScenarioSet reads a scenario set written by SaveScenarioSet.
func LoadScenarioSet(filename string) (*ScenarioSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", filename)
	}
	var set ScenarioSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal %s", filename)
	}
	return &set, nil
}
