package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latency. Paths are the route templates,
// so /api/v1/categories/:category is one series; unmatched requests are
// labelled "unmatched".
func Metrics(m *prometheus.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
