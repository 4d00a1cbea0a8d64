package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/RiskOverlay/internal/application/refresh"
	"github.com/turtacn/RiskOverlay/internal/domain/facility"
	"github.com/turtacn/RiskOverlay/internal/domain/risk"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// Subsets accepted by the category endpoint.
const (
	SubsetInside  = "inside"
	SubsetOutside = "outside"
	SubsetAll     = "all"
)

// OverlayHandler serves refresh results. Every request runs its own refresh;
// nothing is cached between requests.
type OverlayHandler struct {
	service refresh.Service
	timeout time.Duration
	logger  logging.Logger
}

// NewOverlayHandler creates an OverlayHandler. A positive timeout bounds each
// request's refresh.
func NewOverlayHandler(svc refresh.Service, timeout time.Duration, log logging.Logger) *OverlayHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &OverlayHandler{service: svc, timeout: timeout, logger: log.Named("overlay")}
}

// AlertCounts summarizes the alert side of a snapshot.
type AlertCounts struct {
	Valid    int     `json:"valid"`
	Inactive int     `json:"inactive"`
	Invalid  int     `json:"invalid"`
	Dropped  int     `json:"dropped"`
	Contours int     `json:"contours"`
	Area     float64 `json:"area"`
}

// SummaryResponse is the body of GET /api/v1/summary.
type SummaryResponse struct {
	SnapshotID string                  `json:"snapshot_id"`
	CreatedAt  time.Time               `json:"created_at"`
	Feed       refresh.FeedStatus      `json:"feed"`
	Alerts     AlertCounts             `json:"alerts"`
	Categories []risk.SummaryRow       `json:"categories"`
	Datasets   []refresh.DatasetResult `json:"datasets"`
}

// CategoryResponse is the body of GET /api/v1/categories/:category.
type CategoryResponse struct {
	SnapshotID string             `json:"snapshot_id"`
	Category   facility.Category  `json:"category"`
	Name       string             `json:"name"`
	Subset     string             `json:"subset"`
	Inside     int                `json:"inside"`
	Total      int                `json:"total"`
	Dropped    int                `json:"dropped"`
	Notice     string             `json:"notice,omitempty"`
	Records    []ClassifiedRecord `json:"records"`
}

// ClassifiedRecord is a record tagged with its classification.
type ClassifiedRecord struct {
	facility.Record
	Inside bool `json:"inside"`
}

// Summary handles GET /api/v1/summary[?category=...].
func (h *OverlayHandler) Summary(c *gin.Context) {
	cats, err := parseCategories(c.QueryArray("category"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	snap, ok := h.refresh(c, refresh.Options{Categories: cats})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SummaryResponse{
		SnapshotID: snap.ID,
		CreatedAt:  snap.CreatedAt,
		Feed:       snap.Feed,
		Alerts: AlertCounts{
			Valid:    snap.Alerts.Valid,
			Inactive: snap.Alerts.Inactive,
			Invalid:  len(snap.Alerts.Invalid),
			Dropped:  snap.Alerts.Union.Dropped,
			Contours: snap.Alerts.Contours,
			Area:     snap.Alerts.Area,
		},
		Categories: snap.Rows(),
		Datasets:   snap.Datasets,
	})
}

// Category handles GET /api/v1/categories/:category[?subset=inside|outside|all].
func (h *OverlayHandler) Category(c *gin.Context) {
	cat, err := facility.ParseCategory(c.Param("category"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	subset := c.DefaultQuery("subset", SubsetInside)
	switch subset {
	case SubsetInside, SubsetOutside, SubsetAll:
	default:
		writeAppError(c, errors.Newf(errors.ErrCodeValidation, "subset %q is invalid", subset).
			WithDetail("expected inside, outside or all"))
		return
	}

	snap, ok := h.refresh(c, refresh.Options{Categories: []facility.Category{cat}})
	if !ok {
		return
	}
	p := snap.Partition(cat)
	resp := CategoryResponse{
		SnapshotID: snap.ID,
		Category:   cat,
		Name:       cat.DisplayName(),
		Subset:     subset,
		Inside:     len(p.Inside),
		Total:      p.Total(),
		Dropped:    p.Dropped,
		Notice:     snap.Feed.Notice,
		Records:    []ClassifiedRecord{},
	}
	if subset != SubsetOutside {
		for _, r := range p.Inside {
			resp.Records = append(resp.Records, ClassifiedRecord{Record: r, Inside: true})
		}
	}
	if subset != SubsetInside {
		for _, r := range p.Outside {
			resp.Records = append(resp.Records, ClassifiedRecord{Record: r})
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Region handles GET /api/v1/region and returns the union as GeoJSON.
func (h *OverlayHandler) Region(c *gin.Context) {
	snap, ok := h.refresh(c, refresh.Options{RegionOnly: true})
	if !ok {
		return
	}
	body, err := json.Marshal(snap.RegionFeatureCollection())
	if err != nil {
		writeAppError(c, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode region"))
		return
	}
	c.Header("X-Snapshot-ID", snap.ID)
	if snap.Feed.Notice != "" {
		c.Header("X-Feed-Notice", snap.Feed.Notice)
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}

func (h *OverlayHandler) refresh(c *gin.Context, opts refresh.Options) (*refresh.Snapshot, bool) {
	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	snap, err := h.service.Refresh(ctx, opts)
	if err != nil {
		h.logger.Warn("refresh failed", logging.String("path", c.FullPath()), logging.Err(err))
		writeAppError(c, err)
		return nil, false
	}
	return snap, true
}

func parseCategories(values []string) ([]facility.Category, error) {
	var out []facility.Category
	for _, v := range values {
		c, err := facility.ParseCategory(v)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
