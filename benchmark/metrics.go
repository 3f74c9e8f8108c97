package benchmark

import (
	"time"

	"github.com/nvr-ai/go-detect/profiler"
)

// PerformanceMetrics captures the outcome of one scenario run.
type PerformanceMetrics struct {
	Scenario        Scenario                    `json:"scenario"`
	Timestamp       time.Time                   `json:"timestamp"`
	TotalDuration   time.Duration               `json:"total_duration"`
	FramesPerSecond float64                     `json:"frames_per_second"`
	Stages          map[string]profiler.Summary `json:"stages"`
	MemoryStats     MemoryMetrics               `json:"memory_stats"`
	NumCPU          int                         `json:"num_cpu"`
	DetectionCount  int                         `json:"detection_count"`
	ErrorRate       float64                     `json:"error_rate"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}

// Stage returns the mean duration in milliseconds of a pipeline stage, or 0 if it was
// never recorded.
func (m PerformanceMetrics) Stage(name string) float64 {
	return m.Stages[name].Mean
}
