package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiters_BurstThenRefill(t *testing.T) {
	l := NewLimiters(1, 2, 0)
	now := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ok, _ := l.Reserve("a")
	assert.True(t, ok)
	ok, _ = l.Reserve("a")
	assert.True(t, ok)
	ok, wait := l.Reserve("a")
	assert.False(t, ok)
	assert.InDelta(t, time.Second.Seconds(), wait.Seconds(), 0.01)

	// Another client has its own bucket.
	ok, _ = l.Reserve("b")
	assert.True(t, ok)

	now = now.Add(time.Second)
	ok, _ = l.Reserve("a")
	assert.True(t, ok)
}

func TestLimiters_SweepIdle(t *testing.T) {
	l := NewLimiters(1, 1, time.Minute)
	now := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Reserve("a")
	l.Reserve("b")
	require.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	l.Reserve("c")
	assert.Equal(t, 1, l.Len())
}

func TestRateLimit_Rejects(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1}))
	r.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, http.MethodGet, "/api", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0.001", rec.Header().Get("X-RateLimit-Limit"))

	rec = serve(r, http.MethodGet, "/api", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "COMMON_004")
}
