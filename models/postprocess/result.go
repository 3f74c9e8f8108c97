// Package postprocess - Postprocessing utilities for models.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-detect/images"
)

// Detection represents a single detection result in source-frame pixel space.
//
// Detections are values; they are built fresh for every frame and never mutated after
// NMS has selected them.
type Detection struct {
	// The bounding box of the detection.
	Box images.Rect `json:"box"`
	// The confidence score, objectness multiplied by the best class score.
	Score float32 `json:"confidence"`
	// The predicted class index.
	Class int `json:"class_id"`
	// Index is the position of the originating record in the raw output. It breaks
	// score ties so that suppression is deterministic.
	Index int `json:"-"`
}

func (d Detection) String() string {
	return fmt.Sprintf("class %d (confidence %f): %s", d.Class, d.Score, d.Box)
}
