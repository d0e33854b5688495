package model

import (
	"encoding/json"
	"time"
)

// QuoteStatus represents the current state of a quote in the pipeline.
type QuoteStatus string

const (
	StatusProcessing     QuoteStatus = "processing"
	StatusVisionComplete QuoteStatus = "vision_complete"
	StatusCostComplete   QuoteStatus = "cost_complete"
	StatusCompleted      QuoteStatus = "completed"
	StatusVisionError    QuoteStatus = "vision_error"
	StatusCostError      QuoteStatus = "cost_error"
	StatusError          QuoteStatus = "error"
)

// Terminal reports whether the status is a final state.
func (s QuoteStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Quote is a single estimate request tracked through the pipeline.
// The orchestrator owns the record until it reaches a terminal state;
// every transition persists a complete snapshot.
type Quote struct {
	ID           string          `json:"id"`
	ProjectType  string          `json:"project_type"`
	Description  string          `json:"description"`
	ZipCode      string          `json:"zip_code,omitempty"`
	ImagePath    string          `json:"image_path,omitempty"`
	Model        string          `json:"model,omitempty"`
	Status       QuoteStatus     `json:"status"`
	Error        string          `json:"error,omitempty"`
	Notes        []string        `json:"notes,omitempty"`
	VisionResult json.RawMessage `json:"vision_result,omitempty"`
	Reasoning    json.RawMessage `json:"reasoning,omitempty"`
	CostBaseline json.RawMessage `json:"cost_baseline,omitempty"`
	Estimate     *Estimate       `json:"estimate,omitempty"`
	Options      Options         `json:"options_applied"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Options holds the resolved option knobs applied to an estimate.
// Values are always the post-clamp, post-default resolution.
type Options struct {
	Quality        string  `json:"quality"`
	Region         string  `json:"region"`
	ContingencyPct float64 `json:"contingency_pct"`
	ProfitPct      float64 `json:"profit_pct"`
}

// Estimate is the priced output of the cost calculator.
type Estimate struct {
	TotalCost       TotalCost      `json:"total_cost"`
	Materials       []MaterialLine `json:"materials"`
	Labor           []LaborLine    `json:"labor"`
	Timeline        Timeline       `json:"timeline"`
	Steps           []WorkStep     `json:"steps"`
	ConfidenceScore float64        `json:"confidence_score"`
}

// TotalCost is the monetary summary of an estimate. Amounts are rounded
// to 2 decimals at assembly time only.
type TotalCost struct {
	Currency  string        `json:"currency"`
	Amount    float64       `json:"amount"`
	Breakdown CostBreakdown `json:"breakdown"`
}

// CostBreakdown itemizes the estimate total.
type CostBreakdown struct {
	Materials   float64 `json:"materials"`
	Labor       float64 `json:"labor"`
	Subtotal    float64 `json:"subtotal"`
	Profit      float64 `json:"profit"`
	Contingency float64 `json:"contingency"`
}

// MaterialLine is one priced material row. Derived, never persisted
// independently of the owning estimate.
type MaterialLine struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// LaborLine is one priced labor row.
type LaborLine struct {
	Trade string  `json:"trade"`
	Hours float64 `json:"hours"`
	Rate  float64 `json:"rate"`
	Total float64 `json:"total"`
}

// Timeline estimates project duration from labor hours.
type Timeline struct {
	EstimatedHours float64 `json:"estimated_hours"`
	EstimatedDays  int     `json:"estimated_days"`
	MinDays        int     `json:"min_days"`
	MaxDays        int     `json:"max_days"`
}

// WorkStep is one entry in the step-by-step plan.
type WorkStep struct {
	Order       int    `json:"order"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
}
