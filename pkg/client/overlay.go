package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// Subsets accepted by Category.
const (
	SubsetInside  = "inside"
	SubsetOutside = "outside"
	SubsetAll     = "all"
)

// FeedStatus reports how the alert feed fetch went.
type FeedStatus struct {
	State     string    `json:"state"`
	URL       string    `json:"url,omitempty"`
	Notice    string    `json:"notice,omitempty"`
	Error     string    `json:"error,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	Records   int       `json:"records"`
}

// Available reports whether the feed was read successfully.
func (f FeedStatus) Available() bool { return f.State == "ok" }

// AlertCounts summarizes the alert side of a snapshot.
type AlertCounts struct {
	Valid    int     `json:"valid"`
	Inactive int     `json:"inactive"`
	Invalid  int     `json:"invalid"`
	Dropped  int     `json:"dropped"`
	Contours int     `json:"contours"`
	Area     float64 `json:"area"`
}

// SummaryRow is one category line of a risk summary.
type SummaryRow struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Inside   int    `json:"inside"`
	Total    int    `json:"total"`
	Dropped  int    `json:"dropped"`
}

// DatasetResult reports how one dataset loaded.
type DatasetResult struct {
	Name        string            `json:"name"`
	Category    string            `json:"category"`
	Rows        int               `json:"rows"`
	Kept        int               `json:"kept"`
	Dropped     int               `json:"dropped"`
	DroppedRows []int             `json:"dropped_rows,omitempty"`
	Columns     map[string]string `json:"columns,omitempty"`
	Code        string            `json:"code,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Summary is the body of GET /api/v1/summary.
type Summary struct {
	SnapshotID string          `json:"snapshot_id"`
	CreatedAt  time.Time       `json:"created_at"`
	Feed       FeedStatus      `json:"feed"`
	Alerts     AlertCounts     `json:"alerts"`
	Categories []SummaryRow    `json:"categories"`
	Datasets   []DatasetResult `json:"datasets"`
}

// Row returns the row for category, if present.
func (s *Summary) Row(category string) (SummaryRow, bool) {
	for _, r := range s.Categories {
		if r.Category == category {
			return r, true
		}
	}
	return SummaryRow{}, false
}

// Record is a classified facility.
type Record struct {
	Category     string            `json:"category"`
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	Label        string            `json:"label"`
	Municipality string            `json:"municipality,omitempty"`
	Kind         string            `json:"kind,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Row          int               `json:"row"`
	Inside       bool              `json:"inside"`
}

// CategoryResult is the body of GET /api/v1/categories/:category.
type CategoryResult struct {
	SnapshotID string   `json:"snapshot_id"`
	Category   string   `json:"category"`
	Name       string   `json:"name"`
	Subset     string   `json:"subset"`
	Inside     int      `json:"inside"`
	Total      int      `json:"total"`
	Dropped    int      `json:"dropped"`
	Notice     string   `json:"notice,omitempty"`
	Records    []Record `json:"records"`
}

// Region is the merged risk region of one snapshot.
type Region struct {
	SnapshotID string
	// Notice is set when the alert feed was unavailable.
	Notice   string
	Features *geojson.FeatureCollection
}

// Liveness is the body of GET /healthz.
type Liveness struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ComponentCheck is one dependency's readiness.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Readiness is the body of GET /readyz.
type Readiness struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// Ready reports whether every component passed.
func (r *Readiness) Ready() bool { return r.Status == "ready" }

// Summary runs a refresh on the server and returns the per-category counts.
// With no categories the server uses every configured dataset.
func (c *Client) Summary(ctx context.Context, categories ...string) (*Summary, error) {
	q := url.Values{}
	for _, cat := range categories {
		q.Add("category", cat)
	}
	var out Summary
	if _, err := c.getJSON(ctx, "/api/v1/summary", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Category returns the classified records of one category. An empty subset
// means inside.
func (c *Client) Category(ctx context.Context, category, subset string) (*CategoryResult, error) {
	if category == "" {
		return nil, errors.New(errors.ErrCodeValidation, "category is required")
	}
	q := url.Values{}
	if subset != "" {
		q.Set("subset", subset)
	}
	var out CategoryResult
	if _, err := c.getJSON(ctx, "/api/v1/categories/"+url.PathEscape(category), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Region fetches the risk region as a GeoJSON FeatureCollection.
func (c *Client) Region(ctx context.Context) (*Region, error) {
	resp, err := c.get(ctx, "/api/v1/region", nil)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(resp.body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode region")
	}
	return &Region{
		SnapshotID: resp.header.Get("X-Snapshot-ID"),
		Notice:     resp.header.Get("X-Feed-Notice"),
		Features:   fc,
	}, nil
}

// Health calls the liveness probe.
func (c *Client) Health(ctx context.Context) (*Liveness, error) {
	var out Liveness
	if _, err := c.getJSON(ctx, "/healthz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readiness calls the readiness probe. A 503 still yields the component
// report alongside the error.
func (c *Client) Readiness(ctx context.Context) (*Readiness, error) {
	var out Readiness
	_, err := c.getJSON(ctx, "/readyz", nil, &out)
	if err == nil {
		return &out, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		if jerr := json.Unmarshal(apiErr.Body, &out); jerr == nil && out.Status != "" {
			return &out, err
		}
	}
	return nil, err
}
