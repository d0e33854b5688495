// Package estimate turns a materials/labor list plus option knobs into a
// priced estimate, timeline, and confidence score. All monetary values are
// carried at full precision and rounded to 2 decimals only when the final
// estimate is assembled.
package estimate

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/estimategenie/quote-engine/internal/catalog"
	"github.com/estimategenie/quote-engine/internal/model"
)

// Config holds the calculator's heuristic constants. The damped area
// exponent and the roofing multiplier come from field tuning; keep them
// configurable rather than re-deriving.
type Config struct {
	AreaExponent      float64
	AreaFactorMin     float64
	AreaFactorMax     float64
	RoofMultiplier    float64
	DefaultUnitPrice  float64
	DefaultLaborHours float64
}

// DefaultConfig returns the tuned calculator constants.
func DefaultConfig() Config {
	return Config{
		AreaExponent:      0.7,
		AreaFactorMin:     0.6,
		AreaFactorMax:     3.0,
		RoofMultiplier:    1.6,
		DefaultUnitPrice:  10.0,
		DefaultLaborHours: 16.0,
	}
}

// areaBaselines holds the expected square footage per project type used
// by the area-scaling heuristic.
var areaBaselines = map[string]float64{
	"bathroom": 50,
	"kitchen":  120,
}

const defaultAreaBaseline = 100

// projectTrades maps a project type to the trade whose labor rate applies.
var projectTrades = map[string]string{
	"bathroom":   "tile",
	"kitchen":    "carpentry",
	"electrical": "electrical",
	"painting":   "painting",
	"drywall":    "drywall",
	"plumbing":   "plumbing",
}

// MaterialNeed is one requested material before pricing. Quantity may be
// a JSON number or free text like "3 50lb bags".
type MaterialNeed struct {
	Name     string `json:"name"`
	Quantity any    `json:"quantity"`
	Unit     string `json:"unit,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Input is everything the calculator consumes for one estimate.
type Input struct {
	Materials   []MaterialNeed
	LaborHours  float64
	ProjectType string
	Vision      model.VisionAnalysis
	Options     model.Options
}

// Calculator prices estimates against the catalog. Stateless aside from
// its configuration; safe for concurrent use.
type Calculator struct {
	catalog    *catalog.Catalog
	laborRates map[string]catalog.LaborRate
	cfg        Config
}

// NewCalculator creates a Calculator over the given catalog.
func NewCalculator(cat *catalog.Catalog, cfg Config) *Calculator {
	return &Calculator{
		catalog:    cat,
		laborRates: catalog.DefaultLaborRates(),
		cfg:        cfg,
	}
}

// Calculate produces a complete estimate. Parse failures on individual
// lines degrade those lines; the calculation as a whole never fails.
func (c *Calculator) Calculate(ctx context.Context, in Input) *model.Estimate {
	c.catalog.MaybeReload()

	factor := c.AreaFactor(in.Vision.Measurements.EstimatedAreaSqft, in.ProjectType)
	qualityMul := QualityMultiplier(in.Options.Quality)

	var materialsTotal float64
	lines := make([]model.MaterialLine, 0, len(in.Materials))
	for _, m := range in.Materials {
		qty := ParseQuantity(m.Quantity) * factor

		unitPrice := c.cfg.DefaultUnitPrice
		unit := m.Unit
		entry, ok := c.catalog.Lookup(ctx, m.Name)
		if ok {
			unitPrice = entry.Price
			if unit == "" {
				unit = entry.Unit
			}
		}
		if unit == "" {
			unit = "unit"
		}
		unitPrice *= qualityMul
		lineTotal := qty * unitPrice

		name := strings.TrimSpace(m.Name)
		if name == "" {
			name = strings.ReplaceAll(entry.Key, "_", " ")
		}

		lines = append(lines, model.MaterialLine{
			Name:      name,
			Quantity:  round2(qty),
			Unit:      unit,
			UnitPrice: round2(unitPrice),
			Total:     round2(lineTotal),
		})
		materialsTotal += lineTotal
	}

	hours := in.LaborHours
	if hours <= 0 {
		hours = c.cfg.DefaultLaborHours
	}
	hours *= factor

	trade := c.mapProjectToTrade(in.ProjectType)
	rate := c.laborRates[trade].Rate * RegionMultiplier(in.Options.Region)
	laborTotal := hours * rate

	subtypeMul := 1.0
	if c.isRoofing(in.ProjectType, in.Vision) {
		subtypeMul = c.cfg.RoofMultiplier
	}

	subtotal := (materialsTotal + laborTotal) * subtypeMul
	profit := subtotal * in.Options.ProfitPct / 100
	contingency := subtotal * in.Options.ContingencyPct / 100
	total := subtotal + profit + contingency

	zap.L().Debug("estimate: calculated",
		zap.String("project_type", in.ProjectType),
		zap.Float64("area_factor", factor),
		zap.Float64("subtype_multiplier", subtypeMul),
		zap.Float64("subtotal", subtotal),
		zap.Float64("total", total),
	)

	return &model.Estimate{
		TotalCost: model.TotalCost{
			Currency: "USD",
			Amount:   round2(total),
			Breakdown: model.CostBreakdown{
				Materials:   round2(materialsTotal * subtypeMul),
				Labor:       round2(laborTotal * subtypeMul),
				Subtotal:    round2(subtotal),
				Profit:      round2(profit),
				Contingency: round2(contingency),
			},
		},
		Materials: lines,
		Labor: []model.LaborLine{{
			Trade: trade,
			Hours: round2(hours),
			Rate:  round2(rate),
			Total: round2(laborTotal * subtypeMul),
		}},
		Timeline:        Schedule(hours),
		Steps:           WorkSteps(in.ProjectType),
		ConfidenceScore: Confidence(in.Vision),
	}
}

// AreaFactor computes the damped scaling factor for a detected area:
// clamp((area/baseline)^exponent, min, max). Returns 1.0 when no area
// was measured.
func (c *Calculator) AreaFactor(areaSqft float64, projectType string) float64 {
	if areaSqft <= 0 {
		return 1.0
	}
	baseline, ok := areaBaselines[strings.ToLower(projectType)]
	if !ok {
		baseline = defaultAreaBaseline
	}
	ratio := areaSqft / baseline
	return clamp(math.Pow(ratio, c.cfg.AreaExponent), c.cfg.AreaFactorMin, c.cfg.AreaFactorMax)
}

// isRoofing reports whether the roofing subtype multiplier applies: an
// exterior project whose scene or detections mention a roof.
func (c *Calculator) isRoofing(projectType string, vision model.VisionAnalysis) bool {
	if !strings.Contains(strings.ToLower(projectType), "exterior") {
		return false
	}
	if strings.Contains(strings.ToLower(vision.SceneDescription), "roof") {
		return true
	}
	for _, d := range vision.Detections {
		if strings.Contains(strings.ToLower(d.Class), "roof") {
			return true
		}
	}
	return false
}

func (c *Calculator) mapProjectToTrade(projectType string) string {
	if trade, ok := projectTrades[strings.ToLower(projectType)]; ok {
		return trade
	}
	return "general"
}

// LaborRates returns the rate table, optionally filtered by trade.
func (c *Calculator) LaborRates(trade string) map[string]catalog.LaborRate {
	if trade == "" {
		return c.laborRates
	}
	out := make(map[string]catalog.LaborRate, 1)
	if r, ok := c.laborRates[trade]; ok {
		out[trade] = r
	}
	return out
}

// Schedule derives the project timeline from labor hours: one 8-hour
// day minimum, with a [-1, +2] day range.
func Schedule(hours float64) model.Timeline {
	days := int(math.Round(hours / 8))
	if days < 1 {
		days = 1
	}
	minDays := days - 1
	if minDays < 1 {
		minDays = 1
	}
	return model.Timeline{
		EstimatedHours: round2(hours),
		EstimatedDays:  days,
		MinDays:        minDays,
		MaxDays:        days + 2,
	}
}

// Confidence scores the estimate from the vision detections: the average
// detection confidence damped by 0.9, capped at 0.85, or 0.5 when no
// detections were supplied.
func Confidence(vision model.VisionAnalysis) float64 {
	if len(vision.Detections) == 0 {
		return 0.5
	}
	var sum float64
	for _, d := range vision.Detections {
		sum += d.Confidence
	}
	avg := sum / float64(len(vision.Detections))
	return round2(math.Min(avg*0.9, 0.85))
}

// leadingNumber matches the numeric prefix of a free-text quantity.
var leadingNumber = regexp.MustCompile(`^\s*([0-9]*\.?[0-9]+)`)

// ParseQuantity parses a quantity that may be numeric or a string like
// "3 50lb bags". Unparseable values degrade to 0 rather than failing the
// estimate.
func ParseQuantity(v any) float64 {
	switch q := v.(type) {
	case float64:
		return q
	case int:
		return float64(q)
	case string:
		m := leadingNumber.FindStringSubmatch(q)
		if m == nil {
			return 0
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
