package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64
	// BurstSize is the number of requests a quiet client may send at once.
	BurstSize int
	// KeyFunc extracts the limiter key. Defaults to the client IP.
	KeyFunc func(c *gin.Context) string
	// IdleTTL drops limiters unused for this long.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig allows a dashboard to poll comfortably while keeping
// a single client from driving a refresh per request.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 2,
		BurstSize:         5,
		IdleTTL:           10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiters keeps one token bucket per key.
type Limiters struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

// NewLimiters creates an empty limiter set.
func NewLimiters(rps float64, burst int, ttl time.Duration) *Limiters {
	if burst < 1 {
		burst = int(math.Max(1, math.Ceil(rps)))
	}
	return &Limiters{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Reserve takes a token for key. When none is available it reports how long
// the client should wait.
func (l *Limiters) Reserve(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = now
	l.sweep(now)
	l.mu.Unlock()

	if cl.limiter.AllowN(now, 1) {
		return true, 0
	}
	r := cl.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// Len reports the number of tracked clients.
func (l *Limiters) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// sweep must be called with mu held.
func (l *Limiters) sweep(now time.Time) {
	if l.ttl <= 0 {
		return
	}
	for k, cl := range l.clients {
		if now.Sub(cl.lastSeen) > l.ttl {
			delete(l.clients, k)
		}
	}
}

// RateLimit rejects clients above the configured rate with 429 and a
// Retry-After header.
func RateLimit(config RateLimitConfig) gin.HandlerFunc {
	limiters := NewLimiters(config.RequestsPerSecond, config.BurstSize, config.IdleTTL)
	return rateLimit(limiters, config)
}

func rateLimit(limiters *Limiters, config RateLimitConfig) gin.HandlerFunc {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	limit := strconv.FormatFloat(config.RequestsPerSecond, 'f', -1, 64)

	return func(c *gin.Context) {
		ok, wait := limiters.Reserve(keyFunc(c))
		c.Header("X-RateLimit-Limit", limit)
		if ok {
			c.Next()
			return
		}
		secs := int(math.Ceil(wait.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"code":    string(errors.ErrCodeRateLimited),
			"message": errors.DefaultMessageForCode(errors.ErrCodeRateLimited),
		})
	}
}
