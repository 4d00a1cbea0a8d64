package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/RiskOverlay/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		for _, val := range v {
			req.Header.Add(k, val)
		}
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	rec := serve(r, http.MethodGet, "/x", nil)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))

	rec = serve(r, http.MethodGet, "/x", http.Header{HeaderRequestID: {"abc-123"}})
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
}

func TestRequestLogging_LevelByStatus(t *testing.T) {
	log := testutil.NewMockLogger()
	r := gin.New()
	r.Use(RequestID(), RequestLogging(log, DefaultLoggingConfig()))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/ok", nil)
	serve(r, http.MethodGet, "/bad", nil)
	serve(r, http.MethodGet, "/boom", nil)
	serve(r, http.MethodGet, "/healthz", nil)

	assert.True(t, log.HasMessage("info", "HTTP request completed"))
	assert.True(t, log.HasMessage("warn", "HTTP request completed with client error"))
	assert.True(t, log.HasMessage("error", "HTTP request completed with server error"))
	assert.Len(t, log.GetMessages(), 3)
}

func TestRequestLogging_Slow(t *testing.T) {
	log := testutil.NewMockLogger()
	r := gin.New()
	r.Use(RequestLogging(log, LoggingConfig{SlowThreshold: time.Millisecond}))
	r.GET("/slow", func(c *gin.Context) {
		time.Sleep(5 * time.Millisecond)
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodGet, "/slow", nil)
	assert.True(t, log.HasMessage("warn", "HTTP request completed (slow)"))
}

func TestRecovery(t *testing.T) {
	log := testutil.NewMockLogger()
	r := gin.New()
	r.Use(Recovery(log))
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	rec := serve(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, log.HasMessage("error", "panic recovered"))
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://painel.example.org", "*.defesacivil.rs.gov.br"}
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/api", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	tests := []struct {
		name   string
		method string
		origin string
		allow  string
		status int
	}{
		{"exact origin", http.MethodGet, "https://painel.example.org", "https://painel.example.org", http.StatusOK},
		{"wildcard origin", http.MethodGet, "https://mapa.defesacivil.rs.gov.br", "https://mapa.defesacivil.rs.gov.br", http.StatusOK},
		{"foreign origin", http.MethodGet, "https://evil.example.com", "", http.StatusOK},
		{"no origin", http.MethodGet, "", "", http.StatusOK},
		{"preflight", http.MethodOptions, "https://painel.example.org", "https://painel.example.org", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.origin != "" {
				h.Set("Origin", tt.origin)
			}
			rec := serve(r, tt.method, "/api", h)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.allow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "mw"}, nil)
	require.NoError(t, err)
	m := prometheus.NewMetrics(c)

	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/v1/categories/:category", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/api/v1/categories/hospital", nil)
	serve(r, http.MethodGet, "/api/v1/categories/dam", nil)
	serve(r, http.MethodGet, "/nowhere", nil)

	families, err := c.Gatherer().Gather()
	require.NoError(t, err)
	paths := map[string]float64{}
	for _, fam := range families {
		if fam.GetName() != "mw_http_requests_total" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "path" {
					paths[l.GetValue()] += metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 2.0, paths["/api/v1/categories/:category"])
	assert.Equal(t, 1.0, paths["unmatched"])
}
