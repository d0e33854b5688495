package selector

import (
	"fmt"
	"strings"

	"github.com/estimategenie/quote-engine/internal/model"
)

// BuildPrompt assembles the estimator prompt sent to every provider. The
// vision findings are inlined so text-only providers can reason over the
// image content they cannot see.
func BuildPrompt(projectType, description string, vision model.VisionAnalysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert construction estimator analyzing a %s project.\n\n", projectType)
	b.WriteString("Analyze this construction image and provide a detailed estimate.\n\n")

	if description != "" {
		fmt.Fprintf(&b, "Project Description: %s\n\n", description)
	}

	if len(vision.Detections) > 0 || vision.SceneDescription != "" {
		classes := make([]string, 0, len(vision.Detections))
		for _, d := range vision.Detections {
			classes = append(classes, d.Class)
		}
		area := "unknown"
		if vision.Measurements.EstimatedAreaSqft > 0 {
			area = fmt.Sprintf("%.0f", vision.Measurements.EstimatedAreaSqft)
		}
		scene := vision.SceneDescription
		if scene == "" {
			scene = "unclear"
		}
		fmt.Fprintf(&b, "Computer Vision Analysis:\n- Detected objects: [%s]\n- Estimated area: %s sq ft\n- Scene: %s\n\n",
			strings.Join(classes, ", "), area, scene)
	}

	b.WriteString(`Please analyze the image and provide:

1. **Materials List**: Specific materials needed with quantities and units
2. **Labor Estimate**: Hours required for completion
3. **Challenges**: Potential issues or risks
4. **Approach**: Step-by-step recommended approach
5. **Cost Factors**: Key factors that affect pricing

Respond in JSON format:
{
  "materials": [
    {"name": "material name", "quantity": "amount", "unit": "unit", "notes": "optional notes"}
  ],
  "labor_hours": number,
  "labor_breakdown": {
    "demo": hours,
    "installation": hours,
    "finishing": hours
  },
  "challenges": ["challenge 1", "challenge 2"],
  "approach": "detailed step-by-step approach",
  "cost_factors": ["factor 1", "factor 2"],
  "measurements": {
    "estimated_sqft": number,
    "ceiling_height": number,
    "complexity": "low/medium/high"
  }
}

Focus on accuracy and provide realistic estimates based on what you see in the image.
`)

	return b.String()
}
