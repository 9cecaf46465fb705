// Package postprocess - Turns raw detector output into final per-frame detections.
package postprocess

import "github.com/nvr-ai/go-perception/images"

// Candidate is a decoded box that has passed the confidence and area filters
// but not yet non-maximum suppression.
type Candidate struct {
	// The bounding box in frame pixels.
	Box images.Rect
	// The winning class score, in [0, 1].
	Score float32
	// The winning class index.
	Class int
}

// Detection is a labeled box ready to be drawn or tracked. It has no identity.
type Detection struct {
	Label string      `json:"label" yaml:"label"`
	Score float32     `json:"score" yaml:"score"`
	Box   images.Rect `json:"box" yaml:"box"`
}
