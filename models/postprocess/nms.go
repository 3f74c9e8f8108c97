// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-detect/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"` // Overlap threshold for suppression.
	ClassAware   bool    `json:"class_aware" yaml:"class_aware"`     // If true, suppress only within same class.
}

// SortDetections orders detections by descending score, breaking ties by ascending
// record index. The slice is sorted in place.
func SortDetections(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		if detections[i].Score != detections[j].Score {
			return detections[i].Score > detections[j].Score
		}
		return detections[i].Index < detections[j].Index
	})
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// The input is copied and sorted (see SortDetections) before suppression, so callers may
// pass candidates in any order. A later candidate is suppressed when its IoU with an
// already kept detection is strictly greater than config.IoUThreshold. With ClassAware
// set, only detections of the same class compete.
//
// Arguments:
//   - detections: Candidate detections.
//   - config: NMS configuration.
//
// Returns:
//   - Kept detections in descending score order. Empty input yields an empty, non-nil slice.
func ApplyGreedyNMS(detections []Detection, config NMSConfig) []Detection {
	n := len(detections)
	if n == 0 {
		return []Detection{}
	}

	sorted := make([]Detection, n)
	copy(sorted, detections)
	SortDetections(sorted)

	filtered := make([]Detection, 0, n)
	suppressed := make([]bool, n)

	for i := 0; i < n; i++ {
		if suppressed[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)

		for j := i + 1; j < n; j++ {
			if suppressed[j] {
				continue
			}
			if config.ClassAware && anchor.Class != sorted[j].Class {
				continue
			}
			if images.CalculateIoU(anchor.Box, sorted[j].Box) > config.IoUThreshold {
				suppressed[j] = true
			}
		}
	}

	return filtered
}
