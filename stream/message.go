package stream

import (
	"time"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Message is the JSON document broadcast for each frame.
type Message struct {
	Frame      int         `json:"frame"`
	Timestamp  time.Time   `json:"timestamp"`
	Detections []Detection `json:"detections"`
}

// Detection is one detection in source-frame pixels.
type Detection struct {
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	Width      float32 `json:"width"`
	Height     float32 `json:"height"`
	Confidence float32 `json:"confidence"`
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
}

// NewMessage builds the message for one frame. labels may be nil.
func NewMessage(frame int, ts time.Time, detections []postprocess.Detection, labels func(int) string) Message {
	msg := Message{
		Frame:      frame,
		Timestamp:  ts,
		Detections: make([]Detection, 0, len(detections)),
	}
	for _, d := range detections {
		det := Detection{
			X:          d.Box.X,
			Y:          d.Box.Y,
			Width:      d.Box.Width,
			Height:     d.Box.Height,
			Confidence: d.Score,
			ClassID:    d.Class,
		}
		if labels != nil {
			det.Label = labels(d.Class)
		}
		msg.Detections = append(msg.Detections, det)
	}
	return msg
}
