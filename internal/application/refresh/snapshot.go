package refresh

import (
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/turtacn/RiskOverlay/internal/domain/alert"
	"github.com/turtacn/RiskOverlay/internal/domain/facility"
	"github.com/turtacn/RiskOverlay/internal/domain/risk"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// ---------------------------------------------------------------------------
// Feed status
// ---------------------------------------------------------------------------

// FeedState describes how the alert feed fared during a refresh.
type FeedState string

const (
	FeedOK          FeedState = "ok"
	FeedUnavailable FeedState = "unavailable"
	FeedDisabled    FeedState = "disabled"
)

// FeedUnavailableNotice is shown to users when the feed could not be read.
const FeedUnavailableNotice = "Alert feed unavailable: showing no active alerts."

// FeedStatus is the feed outcome of one refresh.
type FeedStatus struct {
	State     FeedState `json:"state"`
	URL       string    `json:"url,omitempty"`
	Notice    string    `json:"notice,omitempty"`
	Error     string    `json:"error,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	Records   int       `json:"records"`
}

// ---------------------------------------------------------------------------
// Alert and dataset reports
// ---------------------------------------------------------------------------

// AlertReport counts how feed records turned into the region.
type AlertReport struct {
	Valid int `json:"valid"`
	// Inactive polygons were valid but outside their issued/expires window.
	Inactive int             `json:"inactive"`
	Invalid  []alert.Invalid `json:"invalid,omitempty"`
	Union    risk.UnionStats `json:"union"`
	Contours int             `json:"contours"`
	Area     float64         `json:"area"`
}

// DatasetResult reports one dataset load.
type DatasetResult struct {
	Name        string            `json:"name"`
	Category    facility.Category `json:"category"`
	Rows        int               `json:"rows"`
	Kept        int               `json:"kept"`
	Dropped     int               `json:"dropped"`
	DroppedRows []int             `json:"dropped_rows,omitempty"`
	Columns     map[string]string `json:"columns,omitempty"`
	Code        errors.ErrorCode  `json:"code,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Failed reports whether the dataset was skipped.
func (d DatasetResult) Failed() bool { return d.Error != "" }

// ---------------------------------------------------------------------------
// Snapshot
// ---------------------------------------------------------------------------

// Snapshot is everything one refresh derived. It is rebuilt from scratch
// every time and never updated in place.
type Snapshot struct {
	ID         string           `json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	Duration   time.Duration    `json:"duration"`
	Feed       FeedStatus       `json:"feed"`
	Alerts     AlertReport      `json:"alerts"`
	Datasets   []DatasetResult  `json:"datasets"`
	Partitions []risk.Partition `json:"partitions"`
	Summary    risk.Summary     `json:"summary"`
	// Categories lists the categories the refresh was restricted to; empty
	// means all.
	Categories []facility.Category `json:"categories,omitempty"`
	Region     *risk.Region        `json:"-"`
}

// Degraded reports whether the feed or any dataset failed.
func (s *Snapshot) Degraded() bool {
	if s.Feed.State == FeedUnavailable {
		return true
	}
	for _, d := range s.Datasets {
		if d.Failed() {
			return true
		}
	}
	return false
}

// Partition merges the partitions of category c in dataset order.
func (s *Snapshot) Partition(c facility.Category) risk.Partition {
	out := risk.Partition{
		Category: c,
		Inside:   []facility.Record{},
		Outside:  []facility.Record{},
	}
	for _, p := range s.Partitions {
		if p.Category != c {
			continue
		}
		if out.Dataset == "" {
			out.Dataset = p.Dataset
		} else {
			out.Dataset += "," + p.Dataset
		}
		out.Inside = append(out.Inside, p.Inside...)
		out.Outside = append(out.Outside, p.Outside...)
		out.Dropped += p.Dropped
	}
	return out
}

// Rows returns the summary rows, limited to the refresh categories when
// the refresh was restricted.
func (s *Snapshot) Rows() []risk.SummaryRow {
	rows := s.Summary.Rows()
	if len(s.Categories) == 0 {
		return rows
	}
	keep := make(map[facility.Category]struct{}, len(s.Categories))
	for _, c := range s.Categories {
		keep[c] = struct{}{}
	}
	out := rows[:0]
	for _, r := range rows {
		if _, ok := keep[r.Category]; ok {
			out = append(out, r)
		}
	}
	return out
}

// RegionFeatureCollection renders the region as GeoJSON, one feature per
// outer contour with its holes.
func (s *Snapshot) RegionFeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if s.Region == nil {
		return fc
	}
	for i, poly := range s.Region.MultiPolygon() {
		f := geojson.NewFeature(poly)
		f.Properties["index"] = i
		f.Properties["snapshot_id"] = s.ID
		fc.Append(f)
	}
	return fc
}

// Document is the archived form of a snapshot, region included.
type Document struct {
	*Snapshot
	Region *geojson.FeatureCollection `json:"region"`
}

// Document returns s with its region rendered as GeoJSON.
func (s *Snapshot) Document() Document {
	return Document{Snapshot: s, Region: s.RegionFeatureCollection()}
}

// ---------------------------------------------------------------------------
// Event
// ---------------------------------------------------------------------------

// Event is the compact form of a snapshot sent to subscribers.
type Event struct {
	SnapshotID    string            `json:"snapshot_id"`
	CreatedAt     time.Time         `json:"created_at"`
	Feed          FeedState         `json:"feed"`
	Notice        string            `json:"notice,omitempty"`
	Valid         int               `json:"valid_alerts"`
	Invalid       int               `json:"invalid_alerts"`
	Dropped       int               `json:"dropped_alerts"`
	Contours      int               `json:"contours"`
	Area          float64           `json:"area"`
	Rows          []risk.SummaryRow `json:"summary"`
	DatasetErrors map[string]string `json:"dataset_errors,omitempty"`
}

// Event summarizes s for publication.
func (s *Snapshot) Event() Event {
	ev := Event{
		SnapshotID: s.ID,
		CreatedAt:  s.CreatedAt,
		Feed:       s.Feed.State,
		Notice:     s.Feed.Notice,
		Valid:      s.Alerts.Valid,
		Invalid:    len(s.Alerts.Invalid),
		Dropped:    s.Alerts.Union.Dropped,
		Contours:   s.Alerts.Contours,
		Area:       s.Alerts.Area,
		Rows:       s.Rows(),
	}
	for _, d := range s.Datasets {
		if d.Failed() {
			if ev.DatasetErrors == nil {
				ev.DatasetErrors = make(map[string]string)
			}
			ev.DatasetErrors[d.Name] = string(d.Code)
		}
	}
	return ev
}
