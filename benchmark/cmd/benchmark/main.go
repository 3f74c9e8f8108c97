package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-detect/benchmark"
	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
)

func main() {
	var (
		scenarioFile  = flag.String("scenarios", "", "Path to scenario configuration file")
		saveScenarios = flag.String("save-scenarios", "", "Write the selected scenarios to this file and exit")
		outputDir     = flag.String("output", "./benchmark_results", "Output directory for results")
		iterations    = flag.Int("iterations", 50, "Iterations per scenario")
		seed          = flag.Int64("seed", 1, "Seed for synthetic network outputs")
		quick         = flag.Bool("quick", false, "Run quick benchmark scenarios")
		resolutions   = flag.Bool("resolutions", false, "Compare different input resolutions")
		formats       = flag.Bool("formats", false, "Compare different image formats")
		resolution    = flag.String("resolution", "1920x1080", "Resolution used by -formats")
		decode        = flag.Bool("decode", false, "Compare output sizes, layouts and object densities")
		timeout       = flag.Duration("timeout", 30*time.Minute, "Benchmark timeout duration")
		verbose       = flag.Bool("v", false, "Log per-scenario progress")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	suite, err := benchmark.NewSuite(benchmark.NewSuiteArgs{
		OutputPath: *outputDir,
		Seed:       *seed,
		Logger:     logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create benchmark suite")
	}

	var sets []*benchmark.ScenarioSet
	if *scenarioFile != "" {
		set, err := benchmark.LoadScenarioSet(*scenarioFile)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load scenario file")
		}
		sets = append(sets, set)
	}
	if *quick {
		sets = append(sets, benchmark.QuickScenarios(*iterations))
	}
	if *resolutions {
		sets = append(sets, benchmark.ResolutionScenarios(*iterations))
	}
	if *formats {
		res, err := images.ParseResolution(*resolution)
		if err != nil {
			logger.WithError(err).Fatal("Invalid -resolution")
		}
		sets = append(sets, benchmark.FormatScenarios(res, *iterations))
	}
	if *decode {
		sets = append(sets, benchmark.DecodeScenarios(*iterations))
	}
	// If no specific scenarios requested, use quick by default
	if len(sets) == 0 {
		sets = append(sets, benchmark.QuickScenarios(*iterations))
	}

	combined := &benchmark.ScenarioSet{Name: "Selected Scenarios"}
	for _, set := range sets {
		for _, scenario := range set.Scenarios {
			suite.AddScenario(scenario)
		}
		combined.Scenarios = append(combined.Scenarios, set.Scenarios...)
		logger.WithField("set", set.Name).Infof("Added %d scenarios", len(set.Scenarios))
	}

	if *saveScenarios != "" {
		if err := benchmark.SaveScenarioSet(combined, *saveScenarios); err != nil {
			logger.WithError(err).Fatal("Failed to save scenarios")
		}
		logger.WithField("path", *saveScenarios).Info("Scenarios saved")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger.Info("Starting benchmark execution...")
	start := time.Now()

	if err := suite.RunAllScenarios(ctx); err != nil {
		logger.WithError(err).Fatal("Benchmark execution failed")
	}
	if err := suite.SaveResults(); err != nil {
		logger.WithError(err).Fatal("Failed to save results")
	}

	results := suite.GetResults()
	fmt.Printf("\n=== BENCHMARK RESULTS SUMMARY ===\n")
	fmt.Printf("Completed in %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Total scenarios: %d\n", len(results))
	fmt.Printf("Results saved to: %s\n", *outputDir)

	var bestFPS float64
	var bestScenario string
	for _, result := range results {
		if result.FramesPerSecond > bestFPS {
			bestFPS = result.FramesPerSecond
			bestScenario = result.Scenario.Name
		}
		fmt.Printf("  %s: %.2f FPS, decode %.3fms (%.2f MB allocated)\n",
			result.Scenario.Name,
			result.FramesPerSecond,
			result.Stage(detector.OpDecode),
			float64(result.MemoryStats.TotalAllocBytes)/(1024*1024))
	}

	if bestScenario != "" {
		fmt.Printf("\nBest performing scenario: %s (%.2f FPS)\n", bestScenario, bestFPS)
	}
}

func init() {
	flag.Usage = func() {
		name := filepath.Base(os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", name)
		fmt.Fprintf(os.Stderr, "Benchmark tool for detection pipeline throughput.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -quick\n", name)
		fmt.Fprintf(os.Stderr, "  %s -formats -resolution 1280x720 -iterations 200\n", name)
		fmt.Fprintf(os.Stderr, "  %s -decode -save-scenarios ./scenarios.json\n", name)
		fmt.Fprintf(os.Stderr, "  %s -scenarios ./scenarios.json -output ./results\n", name)
	}
}
