package estimate

import (
	"strings"

	"github.com/estimategenie/quote-engine/internal/model"
)

// stepTemplates holds the ordered work phases per project type. Projects
// without a dedicated template get the general sequence.
var stepTemplates = map[string][]model.WorkStep{
	"bathroom": {
		{Order: 1, Description: "Demolition and removal of existing fixtures", Duration: "1 day"},
		{Order: 2, Description: "Rough plumbing and electrical", Duration: "1-2 days"},
		{Order: 3, Description: "Substrate preparation and waterproofing", Duration: "1 day"},
		{Order: 4, Description: "Tile installation and grouting", Duration: "2-3 days"},
		{Order: 5, Description: "Fixture installation and finish work", Duration: "1 day"},
	},
	"kitchen": {
		{Order: 1, Description: "Demolition and removal of existing cabinets", Duration: "1 day"},
		{Order: 2, Description: "Rough plumbing and electrical updates", Duration: "1-2 days"},
		{Order: 3, Description: "Cabinet installation", Duration: "2 days"},
		{Order: 4, Description: "Countertop templating and installation", Duration: "1-2 days"},
		{Order: 5, Description: "Backsplash, appliances, and finish work", Duration: "1-2 days"},
	},
}

var generalSteps = []model.WorkStep{
	{Order: 1, Description: "Site preparation and protection", Duration: "0.5 day"},
	{Order: 2, Description: "Demolition and disposal", Duration: "1 day"},
	{Order: 3, Description: "Core construction work", Duration: "2-3 days"},
	{Order: 4, Description: "Finish work and detailing", Duration: "1 day"},
	{Order: 5, Description: "Cleanup and final walkthrough", Duration: "0.5 day"},
}

// WorkSteps returns the work phase sequence for a project type. The
// returned slice is a copy and safe for callers to modify.
func WorkSteps(projectType string) []model.WorkStep {
	tmpl, ok := stepTemplates[strings.ToLower(projectType)]
	if !ok {
		tmpl = generalSteps
	}
	out := make([]model.WorkStep, len(tmpl))
	copy(out, tmpl)
	return out
}
