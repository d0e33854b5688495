package estimate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estimategenie/quote-engine/internal/catalog"
	"github.com/estimategenie/quote-engine/internal/model"
)

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	cat := catalog.New(nil, 10*time.Second)
	return NewCalculator(cat, DefaultConfig())
}

func TestCalculateBathroomTileBaseline(t *testing.T) {
	calc := newTestCalculator(t)

	est := calc.Calculate(context.Background(), Input{
		Materials: []MaterialNeed{
			{Name: "tile", Quantity: 100.0, Unit: "sqft"},
		},
		ProjectType: "bathroom",
		Options:     ResolveOptions(nil),
	})

	require.Len(t, est.Materials, 1)
	assert.Equal(t, 350.00, est.Materials[0].Total)
	assert.Equal(t, 3.50, est.Materials[0].UnitPrice)

	require.Len(t, est.Labor, 1)
	assert.Equal(t, "tile", est.Labor[0].Trade)
	assert.Equal(t, 16.0, est.Labor[0].Hours)
	assert.Equal(t, 55.0, est.Labor[0].Rate)
	assert.Equal(t, 880.00, est.Labor[0].Total)

	assert.Equal(t, 350.00, est.TotalCost.Breakdown.Materials)
	assert.Equal(t, 880.00, est.TotalCost.Breakdown.Labor)
	assert.Equal(t, 1230.00, est.TotalCost.Breakdown.Subtotal)
	assert.Equal(t, 184.50, est.TotalCost.Breakdown.Profit)
	assert.Equal(t, 0.0, est.TotalCost.Breakdown.Contingency)
	assert.Equal(t, 1414.50, est.TotalCost.Amount)
	assert.Equal(t, "USD", est.TotalCost.Currency)
}

func TestCalculateQualityAndRegionMultipliers(t *testing.T) {
	calc := newTestCalculator(t)

	est := calc.Calculate(context.Background(), Input{
		Materials:   []MaterialNeed{{Name: "tile", Quantity: 100.0}},
		ProjectType: "bathroom",
		Options: ResolveOptions(map[string]any{
			"quality": "premium",
			"region":  "west",
		}),
	})

	// 3.50 * 1.3 = 4.55 per sqft; 55 * 1.35 = 74.25 per hour.
	assert.Equal(t, 4.55, est.Materials[0].UnitPrice)
	assert.Equal(t, 455.00, est.Materials[0].Total)
	assert.Equal(t, 74.25, est.Labor[0].Rate)
	assert.Equal(t, 1188.00, est.Labor[0].Total)
}

func TestCalculateUnknownMaterialUsesDefaultPrice(t *testing.T) {
	calc := newTestCalculator(t)

	est := calc.Calculate(context.Background(), Input{
		Materials:   []MaterialNeed{{Name: "mystery widget", Quantity: 2.0}},
		ProjectType: "general",
		Options:     ResolveOptions(nil),
	})

	require.Len(t, est.Materials, 1)
	assert.Equal(t, 10.00, est.Materials[0].UnitPrice)
	assert.Equal(t, 20.00, est.Materials[0].Total)
	assert.Equal(t, "unit", est.Materials[0].Unit)
}

func TestCalculateContingency(t *testing.T) {
	calc := newTestCalculator(t)

	est := calc.Calculate(context.Background(), Input{
		Materials:   []MaterialNeed{{Name: "tile", Quantity: 100.0}},
		ProjectType: "bathroom",
		Options: ResolveOptions(map[string]any{
			"contingency_pct": 10.0,
			"profit_pct":      0.0,
		}),
	})

	assert.Equal(t, 123.00, est.TotalCost.Breakdown.Contingency)
	assert.Equal(t, 0.0, est.TotalCost.Breakdown.Profit)
	assert.Equal(t, 1353.00, est.TotalCost.Amount)
}

func TestAreaFactor(t *testing.T) {
	calc := newTestCalculator(t)

	tests := []struct {
		name        string
		area        float64
		projectType string
		want        float64
	}{
		{"no area measured", 0, "bathroom", 1.0},
		{"baseline area", 50, "bathroom", 1.0},
		{"kitchen baseline", 120, "kitchen", 1.0},
		{"default baseline", 100, "garage", 1.0},
		{"tiny area clamps low", 1, "bathroom", 0.6},
		{"huge area clamps high", 100000, "bathroom", 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, calc.AreaFactor(tt.area, tt.projectType), 1e-9)
		})
	}
}

func TestAreaFactorScalesQuantities(t *testing.T) {
	calc := newTestCalculator(t)

	// 100 sqft bathroom against a 50 sqft baseline: factor 2^0.7.
	est := calc.Calculate(context.Background(), Input{
		Materials:   []MaterialNeed{{Name: "tile", Quantity: 10.0}},
		ProjectType: "bathroom",
		Vision: model.VisionAnalysis{
			Measurements: model.Measurements{EstimatedAreaSqft: 100},
		},
		Options: ResolveOptions(nil),
	})

	assert.InDelta(t, 16.25, est.Materials[0].Quantity, 0.01)
	assert.InDelta(t, 25.99, est.Labor[0].Hours, 0.01)
}

func TestRoofingMultiplier(t *testing.T) {
	calc := newTestCalculator(t)

	in := Input{
		Materials:   []MaterialNeed{{Name: "tile", Quantity: 100.0}},
		ProjectType: "exterior",
		Vision: model.VisionAnalysis{
			SceneDescription: "Asphalt shingle roof with visible storm damage",
		},
		Options: ResolveOptions(map[string]any{"profit_pct": 0.0}),
	}
	roofed := calc.Calculate(context.Background(), in)

	in.Vision.SceneDescription = "Vinyl siding on the south wall"
	plain := calc.Calculate(context.Background(), in)

	assert.InDelta(t, plain.TotalCost.Amount*1.6, roofed.TotalCost.Amount, 0.01)
}

func TestRoofingMultiplierFromDetections(t *testing.T) {
	calc := newTestCalculator(t)
	assert.True(t, calc.isRoofing("exterior", model.VisionAnalysis{
		Detections: []model.Detection{{Class: "roof_shingle", Confidence: 0.9}},
	}))
	assert.False(t, calc.isRoofing("bathroom", model.VisionAnalysis{
		SceneDescription: "roof",
	}))
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"float", 12.5, 12.5},
		{"int", 3, 3},
		{"numeric string", "42", 42},
		{"decimal string", "2.5 gallons", 2.5},
		{"leading text units", "3 50lb bags", 3},
		{"garbage", "a few", 0},
		{"nil", nil, 0},
		{"bool", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuantity(tt.in))
		})
	}
}

func TestSchedule(t *testing.T) {
	tl := Schedule(16)
	assert.Equal(t, 2, tl.EstimatedDays)
	assert.Equal(t, 1, tl.MinDays)
	assert.Equal(t, 4, tl.MaxDays)

	short := Schedule(2)
	assert.Equal(t, 1, short.EstimatedDays)
	assert.Equal(t, 1, short.MinDays)
	assert.Equal(t, 3, short.MaxDays)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.5, Confidence(model.VisionAnalysis{}))

	scored := Confidence(model.VisionAnalysis{
		Detections: []model.Detection{
			{Class: "tile", Confidence: 0.8},
			{Class: "tub", Confidence: 0.6},
		},
	})
	assert.InDelta(t, 0.63, scored, 0.001)

	capped := Confidence(model.VisionAnalysis{
		Detections: []model.Detection{{Class: "wall", Confidence: 0.99}},
	})
	assert.Equal(t, 0.85, capped)
}

func TestResolveOptions(t *testing.T) {
	opts := ResolveOptions(map[string]any{
		"quality":         "LUXURY",
		"region":          "atlantis",
		"profit_pct":      90.0,
		"contingency_pct": -5.0,
	})
	assert.Equal(t, "luxury", opts.Quality)
	assert.Equal(t, "midwest", opts.Region)
	assert.Equal(t, 50.0, opts.ProfitPct)
	assert.Equal(t, 0.0, opts.ContingencyPct)

	defaults := ResolveOptions(nil)
	assert.Equal(t, "standard", defaults.Quality)
	assert.Equal(t, 15.0, defaults.ProfitPct)
}

func TestWorkSteps(t *testing.T) {
	bath := WorkSteps("bathroom")
	require.NotEmpty(t, bath)
	assert.Equal(t, 1, bath[0].Order)
	assert.Contains(t, bath[3].Description, "Tile")

	general := WorkSteps("sunroom")
	require.NotEmpty(t, general)
	assert.Contains(t, general[0].Description, "Site preparation")
}
