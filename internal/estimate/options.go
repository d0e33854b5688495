package estimate

import (
	"strconv"
	"strings"

	"github.com/estimategenie/quote-engine/internal/model"
)

// Recognized option values and their multipliers. Unknown values fall
// back to the documented defaults rather than erroring.
var (
	qualityMultipliers = map[string]float64{
		"standard": 1.0,
		"premium":  1.3,
		"luxury":   1.8,
	}
	regionMultipliers = map[string]float64{
		"midwest":   1.0,
		"south":     0.85,
		"northeast": 1.25,
		"west":      1.35,
	}
)

const (
	defaultQuality    = "standard"
	defaultRegion     = "midwest"
	defaultProfitPct  = 15.0
	maxProfitPct      = 50.0
	maxContingencyPct = 30.0
)

// ResolveOptions normalizes a raw options bag to its applied values:
// unknown quality/region fall back to defaults, percentages are clamped
// to their documented ranges.
func ResolveOptions(raw map[string]any) model.Options {
	opts := model.Options{
		Quality:        defaultQuality,
		Region:         defaultRegion,
		ContingencyPct: 0,
		ProfitPct:      defaultProfitPct,
	}
	if raw == nil {
		return opts
	}

	if q, ok := raw["quality"].(string); ok {
		q = strings.ToLower(strings.TrimSpace(q))
		if _, known := qualityMultipliers[q]; known {
			opts.Quality = q
		}
	}
	if r, ok := raw["region"].(string); ok {
		r = strings.ToLower(strings.TrimSpace(r))
		if _, known := regionMultipliers[r]; known {
			opts.Region = r
		}
	}
	if v, ok := toNumber(raw["contingency_pct"]); ok {
		opts.ContingencyPct = clamp(v, 0, maxContingencyPct)
	}
	if v, ok := toNumber(raw["profit_pct"]); ok {
		opts.ProfitPct = clamp(v, 0, maxProfitPct)
	}

	return opts
}

// QualityMultiplier returns the unit-price multiplier for a resolved
// quality value.
func QualityMultiplier(quality string) float64 {
	if m, ok := qualityMultipliers[quality]; ok {
		return m
	}
	return 1.0
}

// RegionMultiplier returns the labor-rate multiplier for a resolved
// region value.
func RegionMultiplier(region string) float64 {
	if m, ok := regionMultipliers[region]; ok {
		return m
	}
	return 1.0
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
