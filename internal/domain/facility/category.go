package facility

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// Category is the fixed set of point dataset kinds classified against the
// risk region.
type Category string

const (
	CategoryHospital             Category = "hospital"
	CategoryBasicHealthUnit      Category = "basic_health_unit"
	CategoryIndigenousSettlement Category = "indigenous_settlement"
	CategorySchool               Category = "school"
	CategoryDam                  Category = "dam"
	CategoryLandslideEvent       Category = "landslide_event"
)

var allCategories = []Category{
	CategoryHospital,
	CategoryBasicHealthUnit,
	CategoryIndigenousSettlement,
	CategorySchool,
	CategoryDam,
	CategoryLandslideEvent,
}

// AllCategories returns every category in display order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// String implements fmt.Stringer.
func (c Category) String() string { return string(c) }

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	for _, k := range allCategories {
		if c == k {
			return true
		}
	}
	return false
}

// DisplayName returns the Portuguese label used by the dashboard.
func (c Category) DisplayName() string {
	switch c {
	case CategoryHospital:
		return "Hospitais"
	case CategoryBasicHealthUnit:
		return "UBS"
	case CategoryIndigenousSettlement:
		return "Aldeias Indígenas"
	case CategorySchool:
		return "Escolas"
	case CategoryDam:
		return "Barragens"
	case CategoryLandslideEvent:
		return "Deslizamentos"
	default:
		return string(c)
	}
}

var categoryAliases = map[string]Category{
	"hospital":              CategoryHospital,
	"hospitals":             CategoryHospital,
	"hospitais":             CategoryHospital,
	"basic_health_unit":     CategoryBasicHealthUnit,
	"ubs":                   CategoryBasicHealthUnit,
	"indigenous_settlement": CategoryIndigenousSettlement,
	"aldeia":                CategoryIndigenousSettlement,
	"aldeias":               CategoryIndigenousSettlement,
	"aldeias_indigenas":     CategoryIndigenousSettlement,
	"school":                CategorySchool,
	"schools":               CategorySchool,
	"escola":                CategorySchool,
	"escolas":               CategorySchool,
	"dam":                   CategoryDam,
	"dams":                  CategoryDam,
	"barragem":              CategoryDam,
	"barragens":             CategoryDam,
	"landslide_event":       CategoryLandslideEvent,
	"landslide":             CategoryLandslideEvent,
	"landslides":            CategoryLandslideEvent,
	"deslizamento":          CategoryLandslideEvent,
	"deslizamentos":         CategoryLandslideEvent,
}

// ParseCategory resolves English or Portuguese category names. Matching
// ignores case, accents, spaces and hyphens.
func ParseCategory(s string) (Category, error) {
	key := strings.NewReplacer(" ", "_", "-", "_").Replace(Fold(s))
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return "", errors.Newf(errors.ErrCodeUnknownCategory, "unknown category %q", s)
}

// Fold lowercases s and strips diacritics, so "São Leopoldo" and
// "SAO LEOPOLDO" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
