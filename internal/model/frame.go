package model

import "time"

// Frame is one captured camera image. Data is an encoded image (JPEG from the
// bundled sources) and must not be modified after it is handed to a pipeline.
type Frame struct {
	Seq        uint64
	Data       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// Classification is a single (label, confidence) pair reported by a classifier.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}
