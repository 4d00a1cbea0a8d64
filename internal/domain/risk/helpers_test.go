package risk

import (
	"github.com/paulmach/orb"

	"github.com/turtacn/RiskOverlay/internal/domain/alert"
	"github.com/turtacn/RiskOverlay/internal/domain/facility"
)

func square(id string, x0, y0, x1, y1 float64) alert.Polygon {
	return alert.Polygon{
		ID:       id,
		Geometry: orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}},
	}
}

func record(c facility.Category, label string, lon, lat float64) facility.Record {
	return facility.Record{Category: c, Label: label, Longitude: lon, Latitude: lat}
}
