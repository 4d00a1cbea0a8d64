// Package alert models weather and risk advisories as planar polygons in
// longitude/latitude space and validates raw feed geometries.
package alert

import (
	"time"

	"github.com/paulmach/orb"
)

// Polygon is one advisory area. It is built from a feed refresh and never
// mutated; the next refresh replaces the whole set.
type Polygon struct {
	// ID identifies the source record. MultiPolygon parts share the feature
	// ID with a "#n" suffix.
	ID string `json:"id"`
	// Geometry holds the outer ring first, followed by any holes.
	Geometry    orb.Polygon            `json:"-"`
	Description string                 `json:"description"`
	Color       string                 `json:"color,omitempty"`
	Issued      *time.Time             `json:"issued,omitempty"`
	Expires     *time.Time             `json:"expires,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
}

// Active reports whether the advisory window contains at. Missing bounds are
// treated as open.
func (p Polygon) Active(at time.Time) bool {
	if p.Issued != nil && at.Before(*p.Issued) {
		return false
	}
	if p.Expires != nil && at.After(*p.Expires) {
		return false
	}
	return true
}

// Raw is a feed record before validation: any orb geometry plus the free-form
// properties map.
type Raw struct {
	ID         string
	Geometry   orb.Geometry
	Properties map[string]interface{}
}

// Invalid describes a rejected feed record or MultiPolygon part.
type Invalid struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}
