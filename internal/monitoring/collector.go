// Package monitoring aggregates quote throughput and failure metrics
// from the store for the stats endpoint.
package monitoring

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/estimategenie/quote-engine/internal/model"
	"github.com/estimategenie/quote-engine/internal/store"
)

// Snapshot is a point-in-time view of pipeline health over a lookback
// window.
type Snapshot struct {
	QuotesTotal     int            `json:"quotes_total"`
	QuotesCompleted int            `json:"quotes_completed"`
	QuotesFailed    int            `json:"quotes_failed"`
	QuotesInFlight  int            `json:"quotes_in_flight"`
	FailRate        float64        `json:"fail_rate"`
	AvgConfidence   float64        `json:"avg_confidence"`
	AvgQuoteTotal   float64        `json:"avg_quote_total"`
	ByProjectType   map[string]int `json:"by_project_type"`
	ByModel         map[string]int `json:"by_model"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers quote metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector backed by st.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// maxScan bounds how many quotes one Collect call will read.
const maxScan = 10000

// Collect summarizes quotes created within the last lookbackHours.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}

	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
		ByProjectType: make(map[string]int),
		ByModel:       make(map[string]int),
	}
	cutoff := snap.CollectedAt.Add(-time.Duration(lookbackHours) * time.Hour)

	quotes, err := c.store.ListQuotes(ctx, store.QuoteFilter{Limit: maxScan})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list quotes")
	}

	var confidenceSum, totalSum float64
	var priced int
	for i := range quotes {
		q := &quotes[i]
		if q.CreatedAt.Before(cutoff) {
			continue
		}

		snap.QuotesTotal++
		snap.ByProjectType[q.ProjectType]++

		switch q.Status {
		case model.StatusCompleted:
			snap.QuotesCompleted++
		case model.StatusError:
			snap.QuotesFailed++
		default:
			snap.QuotesInFlight++
		}

		if q.Estimate != nil {
			confidenceSum += q.Estimate.ConfidenceScore
			totalSum += q.Estimate.TotalCost.Amount
			priced++
		}
		if used := modelUsed(q); used != "" {
			snap.ByModel[used]++
		}
	}

	if done := snap.QuotesCompleted + snap.QuotesFailed; done > 0 {
		snap.FailRate = float64(snap.QuotesFailed) / float64(done)
	}
	if priced > 0 {
		snap.AvgConfidence = confidenceSum / float64(priced)
		snap.AvgQuoteTotal = totalSum / float64(priced)
	}

	return snap, nil
}

func modelUsed(q *model.Quote) string {
	var a struct {
		ModelUsed string `json:"model_used"`
	}
	if len(q.Reasoning) == 0 || json.Unmarshal(q.Reasoning, &a) != nil {
		return ""
	}
	return a.ModelUsed
}
