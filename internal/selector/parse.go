package selector

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/estimategenie/quote-engine/internal/estimate"
)

// Analysis is the structured output of one provider call, the template
// fallback, or a degraded raw-text result when parsing fails.
type Analysis struct {
	Materials      []estimate.MaterialNeed `json:"materials"`
	LaborHours     float64                 `json:"labor_hours"`
	LaborBreakdown map[string]float64      `json:"labor_breakdown,omitempty"`
	Challenges     []string                `json:"challenges,omitempty"`
	Approach       string                  `json:"approach,omitempty"`
	CostFactors    []string                `json:"cost_factors,omitempty"`
	Measurements   *SiteMeasurements       `json:"measurements,omitempty"`
	ModelUsed      string                  `json:"model_used"`
	Note           string                  `json:"note,omitempty"`
	FailureReason  string                  `json:"error,omitempty"`
	ParseError     string                  `json:"parse_error,omitempty"`
	Raw            string                  `json:"raw_response,omitempty"`
}

// SiteMeasurements are the provider's own size estimates, distinct from
// the vision service's measured area.
type SiteMeasurements struct {
	EstimatedSqft float64 `json:"estimated_sqft"`
	CeilingHeight float64 `json:"ceiling_height,omitempty"`
	Complexity    string  `json:"complexity,omitempty"`
}

// Parse decodes a provider response into an Analysis. Markdown code
// fences are stripped first. A response that still fails to decode
// degrades to an Analysis carrying the raw text, never an error.
func Parse(text string) *Analysis {
	cleaned := StripFences(text)

	var a Analysis
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		zap.L().Warn("selector: failed to parse provider response",
			zap.Error(err),
			zap.String("head", head(text, 200)),
		)
		return &Analysis{
			Challenges: []string{"Unable to fully parse AI response"},
			Approach:   head(text, 500),
			Raw:        text,
			ParseError: err.Error(),
		}
	}

	a.Raw = text
	return &a
}

// StripFences removes a surrounding markdown code fence, preferring a
// ```json fence when present.
func StripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if idx := strings.Index(cleaned, "```json"); idx >= 0 {
		cleaned = cleaned[idx+len("```json"):]
		if end := strings.Index(cleaned, "```"); end >= 0 {
			cleaned = cleaned[:end]
		}
		return strings.TrimSpace(cleaned)
	}
	if idx := strings.Index(cleaned, "```"); idx >= 0 {
		cleaned = cleaned[idx+len("```"):]
		if end := strings.Index(cleaned, "```"); end >= 0 {
			cleaned = cleaned[:end]
		}
		return strings.TrimSpace(cleaned)
	}
	return cleaned
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
