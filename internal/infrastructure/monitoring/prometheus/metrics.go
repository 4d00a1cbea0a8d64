package prometheus

import (
	"strconv"
	"time"
)

// Metrics holds every RiskOverlay metric.
type Metrics struct {
	RefreshTotal      CounterVec
	RefreshDuration   HistogramVec
	FeedFetchTotal    CounterVec
	AlertPolygons     GaugeVec
	RegionContours    GaugeVec
	DatasetRows       GaugeVec
	DatasetErrors     CounterVec
	FacilitiesInside  GaugeVec
	FacilitiesTotal   GaugeVec
	PublishTotal      CounterVec
	HTTPRequestsTotal CounterVec
	HTTPDuration      HistogramVec
}

// Default buckets.
var (
	DefaultRefreshDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultHTTPDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
)

// NewMetrics registers all metrics on c.
func NewMetrics(c MetricsCollector) *Metrics {
	return &Metrics{
		RefreshTotal:    c.RegisterCounter("refresh_total", "Completed refreshes by status.", "status"),
		RefreshDuration: c.RegisterHistogram("refresh_duration_seconds", "Refresh wall time.", DefaultRefreshDurationBuckets),
		FeedFetchTotal:  c.RegisterCounter("feed_fetch_total", "Alert feed fetches by status.", "status"),
		AlertPolygons:   c.RegisterGauge("alert_polygons", "Alert polygons in the last refresh by state.", "state"),
		RegionContours:  c.RegisterGauge("region_contours", "Contours in the last unioned region."),
		DatasetRows:     c.RegisterGauge("dataset_rows", "Dataset rows in the last refresh by outcome.", "dataset", "outcome"),
		DatasetErrors:   c.RegisterCounter("dataset_errors_total", "Datasets skipped by error code.", "dataset", "code"),
		FacilitiesInside: c.RegisterGauge("facilities_inside",
			"Facilities inside the unioned risk region by category.", "category"),
		FacilitiesTotal:   c.RegisterGauge("facilities_total", "Normalized facilities by category.", "category"),
		PublishTotal:      c.RegisterCounter("publish_total", "Snapshot publications by sink and status.", "sink", "status"),
		HTTPRequestsTotal: c.RegisterCounter("http_requests_total", "HTTP requests.", "method", "path", "status"),
		HTTPDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request latency.",
			DefaultHTTPDurationBuckets, "method", "path"),
	}
}

// ObserveRefresh records one refresh outcome.
func (m *Metrics) ObserveRefresh(status string, d time.Duration) {
	m.RefreshTotal.WithLabelValues(status).Inc()
	m.RefreshDuration.WithLabelValues().Observe(d.Seconds())
}

// ObserveFeed records one feed fetch outcome: ok, unavailable or disabled.
func (m *Metrics) ObserveFeed(status string) {
	m.FeedFetchTotal.WithLabelValues(status).Inc()
}

// SetAlertCounts records valid, invalid and dropped polygon counts and the
// resulting region contour count.
func (m *Metrics) SetAlertCounts(valid, invalid, dropped, contours int) {
	m.AlertPolygons.WithLabelValues("valid").Set(float64(valid))
	m.AlertPolygons.WithLabelValues("invalid").Set(float64(invalid))
	m.AlertPolygons.WithLabelValues("dropped").Set(float64(dropped))
	m.RegionContours.WithLabelValues().Set(float64(contours))
}

// SetDatasetRows records kept and dropped row counts for a dataset.
func (m *Metrics) SetDatasetRows(dataset string, kept, dropped int) {
	m.DatasetRows.WithLabelValues(dataset, "kept").Set(float64(kept))
	m.DatasetRows.WithLabelValues(dataset, "dropped").Set(float64(dropped))
}

// IncDatasetError counts a skipped dataset.
func (m *Metrics) IncDatasetError(dataset, code string) {
	m.DatasetErrors.WithLabelValues(dataset, code).Inc()
}

// SetCategoryCounts records inside and total counts for a category.
func (m *Metrics) SetCategoryCounts(category string, inside, total int) {
	m.FacilitiesInside.WithLabelValues(category).Set(float64(inside))
	m.FacilitiesTotal.WithLabelValues(category).Set(float64(total))
}

// ObservePublish records a snapshot publication.
func (m *Metrics) ObservePublish(sink string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PublishTotal.WithLabelValues(sink, status).Inc()
}

// ObserveHTTP records one HTTP request.
func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
