package selector

import (
	"strings"

	"github.com/estimategenie/quote-engine/internal/estimate"
)

// FallbackModel tags analyses produced by the deterministic templates.
const FallbackModel = "fallback"

const fallbackNote = "This is a template estimate. AI models were unavailable."

// Fallback returns the deterministic template analysis for a project
// type, tagged with the failure reason that triggered it.
func Fallback(projectType, reason string) *Analysis {
	var a Analysis
	switch strings.ToLower(projectType) {
	case "bathroom":
		a = Analysis{
			Materials: []estimate.MaterialNeed{
				{Name: "Ceramic tile", Quantity: "50", Unit: "sqft"},
				{Name: "Grout", Quantity: "2", Unit: "bags"},
				{Name: "Tile adhesive", Quantity: "1", Unit: "bucket"},
				{Name: "Waterproof membrane", Quantity: "50", Unit: "sqft"},
			},
			LaborHours:     24,
			LaborBreakdown: map[string]float64{"demo": 4, "installation": 16, "finishing": 4},
			Challenges:     []string{"Requires plumbing work", "Waterproofing critical", "Precise tile cutting needed"},
			Approach:       "1. Remove old fixtures and tile\n2. Install waterproof membrane\n3. Tile installation with proper spacing\n4. Grouting and sealing\n5. Fixture reinstallation",
			CostFactors:    []string{"Tile quality", "Plumbing modifications", "Custom vs standard fixtures"},
			Measurements:   &SiteMeasurements{EstimatedSqft: 50, CeilingHeight: 8, Complexity: "medium"},
		}
	case "kitchen":
		a = Analysis{
			Materials: []estimate.MaterialNeed{
				{Name: "Kitchen cabinets", Quantity: "12", Unit: "linear feet"},
				{Name: "Countertop material", Quantity: "25", Unit: "sqft"},
				{Name: "Backsplash tile", Quantity: "30", Unit: "sqft"},
				{Name: "Cabinet hardware", Quantity: "20", Unit: "pieces"},
			},
			LaborHours:     48,
			LaborBreakdown: map[string]float64{"demo": 8, "installation": 32, "finishing": 8},
			Challenges:     []string{"Plumbing and electrical coordination", "Appliance integration", "Level floor required"},
			Approach:       "1. Demolition and preparation\n2. Cabinet installation with leveling\n3. Countertop templating and installation\n4. Backsplash tile work\n5. Hardware and finishing",
			CostFactors:    []string{"Cabinet quality", "Countertop material", "Appliance modifications"},
			Measurements:   &SiteMeasurements{EstimatedSqft: 120, CeilingHeight: 8, Complexity: "high"},
		}
	default:
		a = Analysis{
			Materials: []estimate.MaterialNeed{
				{Name: "Drywall", Quantity: "10", Unit: "sheets"},
				{Name: "Joint compound", Quantity: "2", Unit: "buckets"},
				{Name: "Paint", Quantity: "2", Unit: "gallons"},
				{Name: "Primer", Quantity: "1", Unit: "gallon"},
			},
			LaborHours:     20,
			LaborBreakdown: map[string]float64{"demo": 4, "installation": 12, "finishing": 4},
			Challenges:     []string{"Requires on-site verification", "Material quantity estimates approximate"},
			Approach:       "1. Site assessment and measurements\n2. Surface preparation\n3. Installation of materials\n4. Finishing and cleanup",
			CostFactors:    []string{"Material quality", "Site accessibility", "Complexity of work"},
			Measurements:   &SiteMeasurements{EstimatedSqft: 100, CeilingHeight: 8, Complexity: "medium"},
		}
	}

	a.ModelUsed = FallbackModel
	a.FailureReason = reason
	a.Note = fallbackNote
	return &a
}
