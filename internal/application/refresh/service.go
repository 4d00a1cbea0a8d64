// Package refresh orchestrates one pass of the overlay pipeline: load the
// point datasets, fetch and validate the alert feed, union the alerts,
// classify every point and aggregate the counts. The geometric core it calls
// is pure; this package owns the I/O, timeouts and degradation policy.
package refresh

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/RiskOverlay/internal/domain/alert"
	"github.com/turtacn/RiskOverlay/internal/domain/facility"
	"github.com/turtacn/RiskOverlay/internal/domain/risk"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/dataset"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/feed"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// ---------------------------------------------------------------------------
// Interfaces and inputs
// ---------------------------------------------------------------------------

// Service runs refreshes.
type Service interface {
	Refresh(ctx context.Context, opts Options) (*Snapshot, error)
}

// Options narrows one refresh.
type Options struct {
	// Categories restricts which datasets are loaded; empty loads all.
	Categories []facility.Category
	// At is the reference time for the active-alert filter. Zero means now.
	At time.Time
	// RegionOnly skips the datasets and builds only the region.
	RegionOnly bool
}

// Dataset is one configured point source.
type Dataset struct {
	Source   dataset.Source
	Category facility.Category
	Filter   facility.RowFilter
	// Columns overrides alias detection per canonical field.
	Columns map[string]string
}

// Config tunes a Refresher.
type Config struct {
	// ActiveOnly drops alerts whose window excludes the refresh time.
	ActiveOnly bool
	Aliases    facility.AliasTable
}

// ---------------------------------------------------------------------------
// Refresher
// ---------------------------------------------------------------------------

// Refresher implements Service.
type Refresher struct {
	datasets []Dataset
	fetcher  feed.Fetcher
	feedURL  string
	cfg      Config
	metrics  *prometheus.Metrics
	logger   logging.Logger
	now      func() time.Time
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithFeed sets the alert feed. Without one every refresh runs against the
// empty region.
func WithFeed(f feed.Fetcher, url string) Option {
	return func(r *Refresher) {
		r.fetcher = f
		r.feedURL = url
	}
}

// WithMetrics records refresh outcomes on m.
func WithMetrics(m *prometheus.Metrics) Option {
	return func(r *Refresher) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Refresher) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// NewRefresher returns a Refresher over datasets.
func NewRefresher(datasets []Dataset, cfg Config, opts ...Option) *Refresher {
	if cfg.Aliases == nil {
		cfg.Aliases = facility.DefaultAliases()
	}
	r := &Refresher{
		datasets: datasets,
		cfg:      cfg,
		logger:   logging.NewNopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("refresh")
	return r
}

var _ Service = (*Refresher)(nil)

// Refresh runs the whole pipeline once. Data problems never fail the call:
// an unavailable feed yields the empty region and a notice, a broken dataset
// is reported in its DatasetResult and the others carry on. The only error
// is a cancelled or expired ctx.
func (r *Refresher) Refresh(ctx context.Context, opts Options) (*Snapshot, error) {
	start := r.now()
	if err := ctx.Err(); err != nil {
		return nil, r.aborted(err, start)
	}
	at := opts.At
	if at.IsZero() {
		at = start
	}

	snap := &Snapshot{
		ID:         uuid.NewString(),
		CreatedAt:  at.UTC(),
		Categories: opts.Categories,
		Datasets:   []DatasetResult{},
		Partitions: []risk.Partition{},
	}
	log := r.logger.With(logging.SnapshotID(snap.ID))

	polys := r.loadAlerts(ctx, snap, at, log)
	if err := ctx.Err(); err != nil {
		return nil, r.aborted(err, start)
	}

	region, stats := risk.Union(polys)
	snap.Region = region
	snap.Alerts.Union = stats
	snap.Alerts.Contours = region.Len()
	snap.Alerts.Area = region.Area()
	for _, f := range stats.Failures {
		log.Warn("alert polygon left out of union", logging.String("alert_id", f.ID), logging.String("reason", f.Reason))
	}

	wanted := categorySet(opts.Categories)
	for _, d := range r.datasets {
		if opts.RegionOnly {
			break
		}
		if len(wanted) > 0 {
			if _, ok := wanted[d.Category]; !ok {
				continue
			}
		}
		res, ds := r.loadDataset(ctx, d, log)
		if err := ctx.Err(); err != nil {
			return nil, r.aborted(err, start)
		}
		snap.Datasets = append(snap.Datasets, res)
		if ds != nil {
			snap.Partitions = append(snap.Partitions, risk.PartitionDataset(region, ds))
		}
	}

	snap.Summary = risk.Aggregate(snap.Partitions)
	snap.Duration = r.now().Sub(start)
	r.record(snap)

	log.Info("refresh completed",
		logging.String("feed", string(snap.Feed.State)),
		logging.Int("alerts", snap.Alerts.Valid),
		logging.Int("contours", snap.Alerts.Contours),
		logging.Int("datasets", len(snap.Datasets)),
		logging.Int("inside", snap.Summary.InsideTotal()),
		logging.Duration("duration", snap.Duration))
	return snap, nil
}

// loadAlerts fetches and validates the feed. Every failure degrades to no
// polygons.
func (r *Refresher) loadAlerts(ctx context.Context, snap *Snapshot, at time.Time, log logging.Logger) []alert.Polygon {
	snap.Feed.URL = r.feedURL
	if r.fetcher == nil {
		snap.Feed.State = FeedDisabled
		return nil
	}

	res, err := r.fetcher.Fetch(ctx)
	if err != nil {
		snap.Feed.State = FeedUnavailable
		snap.Feed.Notice = FeedUnavailableNotice
		snap.Feed.Error = err.Error()
		if ctx.Err() == nil {
			log.Warn("alert feed unavailable, using empty region", logging.Err(err))
		}
		return nil
	}

	snap.Feed.State = FeedOK
	snap.Feed.Attempts = res.Attempts
	snap.Feed.FetchedAt = res.FetchedAt
	snap.Feed.Records = len(res.Raws)

	polys, invalid := alert.Normalize(res.Raws)
	snap.Alerts.Invalid = invalid
	for _, inv := range invalid {
		log.Warn("invalid alert geometry discarded",
			logging.Int("index", inv.Index), logging.String("alert_id", inv.ID), logging.String("reason", inv.Reason))
	}

	if r.cfg.ActiveOnly {
		active := polys[:0:0]
		for _, p := range polys {
			if p.Active(at) {
				active = append(active, p)
			} else {
				snap.Alerts.Inactive++
			}
		}
		polys = active
	}
	snap.Alerts.Valid = len(polys)
	return polys
}

// loadDataset reads, filters and normalizes one dataset. A non-nil error in
// the result means the dataset was skipped and the returned Dataset is nil.
func (r *Refresher) loadDataset(ctx context.Context, d Dataset, log logging.Logger) (DatasetResult, *facility.Dataset) {
	name := d.Source.Name()
	res := DatasetResult{Name: name, Category: d.Category}
	log = log.With(logging.Dataset(name), logging.Category(string(d.Category)))

	fail := func(err error) (DatasetResult, *facility.Dataset) {
		res.Code = errors.GetCode(err)
		res.Error = err.Error()
		if ctx.Err() == nil {
			log.Error("dataset skipped", logging.String("code", string(res.Code)), logging.Err(err))
			if r.metrics != nil {
				r.metrics.IncDatasetError(name, string(res.Code))
			}
		}
		return res, nil
	}

	table, err := d.Source.Load(ctx)
	if err != nil {
		return fail(err)
	}
	table = d.Filter.Apply(table)
	res.Rows = len(table.Rows)

	aliases := r.cfg.Aliases
	if len(d.Columns) > 0 {
		aliases = aliases.With(d.Columns)
	}
	ds, err := facility.NewNormalizer(aliases).Normalize(table, d.Category)
	if err != nil {
		return fail(err)
	}

	res.Kept = len(ds.Records)
	res.Dropped = ds.Dropped
	res.DroppedRows = ds.DroppedRows
	res.Columns = ds.Columns
	if w := facility.CoercionWarning(ds); w != nil {
		log.Warn("rows dropped during coordinate coercion", logging.Int("dropped", ds.Dropped), logging.Err(w))
	}
	if r.metrics != nil {
		r.metrics.SetDatasetRows(name, res.Kept, res.Dropped)
	}
	return res, ds
}

func (r *Refresher) record(snap *Snapshot) {
	if r.metrics == nil {
		return
	}
	status := "ok"
	if snap.Degraded() {
		status = "degraded"
	}
	r.metrics.ObserveRefresh(status, snap.Duration)
	r.metrics.ObserveFeed(string(snap.Feed.State))
	r.metrics.SetAlertCounts(snap.Alerts.Valid, len(snap.Alerts.Invalid), snap.Alerts.Union.Dropped, snap.Alerts.Contours)
	for _, row := range snap.Rows() {
		r.metrics.SetCategoryCounts(string(row.Category), row.Inside, row.Total)
	}
}

func (r *Refresher) aborted(err error, start time.Time) error {
	if r.metrics != nil {
		r.metrics.ObserveRefresh("aborted", r.now().Sub(start))
	}
	code := errors.ErrCodeTimeout
	if err == context.Canceled {
		code = errors.ErrCodeServiceUnavailable
	}
	return errors.Wrap(err, code, "refresh aborted")
}

func categorySet(cs []facility.Category) map[facility.Category]struct{} {
	if len(cs) == 0 {
		return nil
	}
	set := make(map[facility.Category]struct{}, len(cs))
	for _, c := range cs {
		set[c] = struct{}{}
	}
	return set
}
