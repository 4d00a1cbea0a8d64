package alert

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/turtacn/RiskOverlay/pkg/errors"
)

var (
	descriptionKeys = []string{"description", "descricao", "descrição", "headline", "event", "evento", "severity", "severidade"}
	colorKeys       = []string{"color", "cor", "fill", "aviso_cor"}
	issuedKeys      = []string{"issued", "onset", "inicio", "início", "sent"}
	expiresKeys     = []string{"expires", "fim", "ends"}
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.0",
	"02/01/2006 15:04",
	"2006-01-02",
}

// Normalize validates raws and splits them into usable Polygons and an
// invalid bucket. Polygon and Ring geometries yield one Polygon,
// MultiPolygons one per part. Rings with fewer than three distinct vertices
// or with non-finite coordinates are rejected, as is any other geometry type.
// Normalize never fails as a whole.
func Normalize(raws []Raw) ([]Polygon, []Invalid) {
	var (
		valid   []Polygon
		invalid []Invalid
	)
	for i, raw := range raws {
		id := raw.ID
		if id == "" {
			id = fmt.Sprintf("alert-%d", i)
		}

		var parts []orb.Polygon
		switch g := raw.Geometry.(type) {
		case orb.Polygon:
			parts = []orb.Polygon{g}
		case orb.Ring:
			parts = []orb.Polygon{{g}}
		case orb.MultiPolygon:
			parts = g
			if len(parts) == 0 {
				invalid = append(invalid, reject(i, id, "empty multipolygon"))
				continue
			}
		case nil:
			invalid = append(invalid, reject(i, id, "missing geometry"))
			continue
		default:
			invalid = append(invalid, reject(i, id, fmt.Sprintf("unsupported geometry type %s", g.GeoJSONType())))
			continue
		}

		for j, part := range parts {
			partID := id
			if len(parts) > 1 {
				partID = fmt.Sprintf("%s#%d", id, j)
			}
			if err := ValidatePolygon(part); err != nil {
				invalid = append(invalid, Invalid{Index: i, ID: partID, Reason: err.Error(), Err: errors.Wrapf(err, errors.ErrCodeInvalidGeometry, "alert %s", partID)})
				continue
			}
			valid = append(valid, newPolygon(partID, part, raw.Properties))
		}
	}
	return valid, invalid
}

func reject(i int, id, reason string) Invalid {
	return Invalid{
		Index:  i,
		ID:     id,
		Reason: reason,
		Err:    errors.Newf(errors.ErrCodeInvalidGeometry, "alert %s: %s", id, reason),
	}
}

// ValidatePolygon checks every ring of p for finite coordinates and at least
// three distinct vertices.
func ValidatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("polygon has no rings")
	}
	for i, ring := range p {
		if err := validateRing(ring); err != nil {
			if i == 0 {
				return fmt.Errorf("outer ring: %w", err)
			}
			return fmt.Errorf("hole %d: %w", i, err)
		}
	}
	return nil
}

func validateRing(r orb.Ring) error {
	distinct := make(map[orb.Point]struct{}, len(r))
	for _, pt := range r {
		if !finite(pt[0]) || !finite(pt[1]) {
			return fmt.Errorf("non-finite coordinate")
		}
		distinct[pt] = struct{}{}
	}
	if len(distinct) < 3 {
		return fmt.Errorf("ring has %d distinct vertices, need 3", len(distinct))
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func newPolygon(id string, geom orb.Polygon, props map[string]interface{}) Polygon {
	p := Polygon{
		ID:          id,
		Geometry:    geom.Clone(),
		Description: lookupString(props, descriptionKeys),
		Color:       lookupString(props, colorKeys),
		Issued:      lookupTime(props, issuedKeys),
		Expires:     lookupTime(props, expiresKeys),
		Properties:  props,
	}
	if p.Description == "" {
		p.Description = id
	}
	return p
}

func lookupString(props map[string]interface{}, keys []string) string {
	for _, k := range keys {
		v, ok := props[k]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprint(v))
		if s != "" {
			return s
		}
	}
	return ""
}

func lookupTime(props map[string]interface{}, keys []string) *time.Time {
	s := lookupString(props, keys)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
