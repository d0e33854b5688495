package pipeline

import (
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/estimategenie/quote-engine/internal/estimate"
	"github.com/estimategenie/quote-engine/internal/selector"
)

// DeriveMaterials returns the material list to price: the reasoning
// result's own list when it produced one, otherwise the deterministic
// per-project template list.
func DeriveMaterials(projectType string, analysis *selector.Analysis) []estimate.MaterialNeed {
	if analysis != nil && len(analysis.Materials) > 0 {
		return analysis.Materials
	}
	return selector.Fallback(projectType, "").Materials
}

func readImageFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// mimeFromPath guesses the image media type from the file extension,
// defaulting to JPEG.
func mimeFromPath(path string) string {
	if path == "" {
		return "image/jpeg"
	}
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(t, "image/") {
		return "image/jpeg"
	}
	return t
}
