// Package http exposes refresh results over a read-only JSON API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/RiskOverlay/internal/interfaces/http/handlers"
	"github.com/turtacn/RiskOverlay/internal/interfaces/http/middleware"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.
type RouterConfig struct {
	// Handlers
	OverlayHandler *handlers.OverlayHandler
	HealthHandler  *handlers.HealthHandler

	// Middleware
	CORS      *middleware.CORSConfig
	Logging   middleware.LoggingConfig
	RateLimit *middleware.RateLimitConfig

	// Infrastructure
	Logger           logging.Logger
	Metrics          *prometheus.Metrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
	Mode             string
}

// NewRouter builds the route tree: probes and metrics at the root, the API
// under /api/v1.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// --- Global middleware ---
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(log.Named("http"), cfg.Logging))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}

	// --- Metrics ---
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	// --- API v1 ---
	api := r.Group("/api/v1")
	if cfg.RateLimit != nil && cfg.RateLimit.RequestsPerSecond > 0 {
		api.Use(middleware.RateLimit(*cfg.RateLimit))
	}
	registerOverlayRoutes(api, cfg.OverlayHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{
			Code:    string(errors.ErrCodeNotFound),
			Message: errors.DefaultMessageForCode(errors.ErrCodeNotFound),
		})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, handlers.ErrorResponse{
			Code:    string(errors.ErrCodeBadRequest),
			Message: "method not allowed",
		})
	})
	return r
}

func registerOverlayRoutes(g *gin.RouterGroup, h *handlers.OverlayHandler) {
	if h == nil {
		return
	}
	g.GET("/summary", h.Summary)
	g.GET("/categories/:category", h.Category)
	g.GET("/region", h.Region)
}
