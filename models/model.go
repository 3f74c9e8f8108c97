// Package models - Definitions for model families and their output class sets.
package models

// ModelFamily is the family of models.
type ModelFamily string

const (
	// ModelFamilyYOLO is the YOLO model family: 80 COCO classes, no background class.
	ModelFamilyYOLO ModelFamily = "yolo"
)
