package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// synonyms maps common free-text material names to canonical table keys.
// Checked before the substring heuristics below.
var synonyms = map[string]string{
	"floor & wall tile":         "tile",
	"floor and wall tile":       "tile",
	"tile":                      "tile",
	"unsanded grout":            "grout",
	"grout":                     "grout",
	"grout sealer":              "grout_sealer",
	"thin-set mortar":           "thin_set_mortar",
	"thin set mortar":           "thin_set_mortar",
	"thinset":                   "thin_set_mortar",
	"tile adhesive":             "adhesive",
	"adhesive":                  "adhesive",
	"cement backer board":       "cement_backer_board",
	"backer board":              "cement_backer_board",
	"cement board":              "cement_backer_board",
	"lumber (2x4x8 treated)":    "lumber_2x4_treated",
	"lumber (2x4x8 untreated)":  "lumber_2x4",
	"2x4":                       "lumber_2x4",
	"concrete (3000 psi)":       "concrete_3000psi",
	"concrete":                  "concrete_3000psi",
	"drywall":                   "drywall",
	"joint compound":            "joint_compound",
	"paint":                     "paint",
	"primer":                    "primer",
	"backsplash tile":           "backsplash",
	"countertop":                "countertop",
	"cabinets":                  "cabinets",
}

// NormalizeKey maps a free-text material name to a canonical table key.
// Exact synonyms win, then substring heuristics, then a plain slug.
func NormalizeKey(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if key, ok := synonyms[n]; ok {
		return key
	}

	switch {
	case strings.Contains(n, "tile") && !strings.Contains(n, "backer"):
		return "tile"
	case strings.Contains(n, "grout") && !strings.Contains(n, "sealer"):
		return "grout"
	case strings.Contains(n, "sealer") && strings.Contains(n, "grout"):
		return "grout_sealer"
	case strings.Contains(n, "backer") || strings.Contains(n, "cement board"):
		return "cement_backer_board"
	case strings.Contains(n, "thin") && strings.Contains(n, "mortar"):
		return "thin_set_mortar"
	case strings.Contains(n, "2x4"):
		return "lumber_2x4"
	case strings.Contains(n, "concrete"):
		return "concrete_3000psi"
	}

	return Slugify(n)
}

// foldTransformer strips combining marks so accented material names slug
// to plain ASCII keys.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases a name and replaces whitespace with underscores,
// folding away diacritics first.
func Slugify(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}
	s := strings.ToLower(strings.TrimSpace(folded))
	return strings.Join(strings.Fields(s), "_")
}
