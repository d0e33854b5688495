package model

import "encoding/json"

// VisionAnalysis is the typed shape of the vision collaborator's output.
// The pipeline stores the raw JSON on the quote and decodes into this
// view only where fields are actually consumed.
type VisionAnalysis struct {
	Detections       []Detection    `json:"detections"`
	Measurements     Measurements   `json:"measurements"`
	SceneDescription string         `json:"scene_description"`
	Summary          map[string]any `json:"summary,omitempty"`
}

// Detection is one detected object with its confidence.
type Detection struct {
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox,omitempty"`
}

// Measurements holds measurable features extracted from the image.
type Measurements struct {
	EstimatedAreaSqft float64 `json:"estimated_area_sqft"`
}

// DecodeVision parses a raw vision blob, returning an empty analysis
// (not an error) for nil or malformed input so downstream stages can
// degrade instead of aborting.
func DecodeVision(raw json.RawMessage) VisionAnalysis {
	var v VisionAnalysis
	if len(raw) == 0 {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return VisionAnalysis{}
	}
	return v
}
