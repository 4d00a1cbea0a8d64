package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/RiskOverlay/pkg/errors"
)

const sampleFeed = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "a1",
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]},
     "properties": {"descricao": "Chuvas intensas", "cor": "#FF0000"}},
    {"type": "Feature", "id": 7,
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[2,2],[3,2],[3,3],[2,2]]]]},
     "properties": {}},
    {"type": "Feature", "geometry": null, "properties": {"id": "no-geom"}}
  ]
}`

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithRetryWait(time.Millisecond, 2*time.Millisecond)}, opts...)
	c, err := NewClient(url, opts...)
	require.NoError(t, err)
	return c
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "riskoverlay-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL, WithUserAgent("riskoverlay-test")).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Raws, 3)
	assert.Equal(t, "a1", res.Raws[0].ID)
	assert.Equal(t, "Chuvas intensas", res.Raws[0].Properties["descricao"])
	assert.Equal(t, "7", res.Raws[1].ID)
	assert.Equal(t, "no-geom", res.Raws[2].ID)
	assert.Nil(t, res.Raws[2].Geometry)
	assert.Equal(t, 1, res.Attempts)
}

func TestFetch_Non200IsFeedUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, WithRetryMax(3)).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFeedUnavailable(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx is not retried")
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL, WithRetryMax(2)).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := newTestClient(t, srv.URL, WithTimeout(50*time.Millisecond), WithRetryMax(0)).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFeedUnavailable(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFeedUnavailable(err))
}

func TestFetch_FileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.geojson")
	require.NoError(t, os.WriteFile(path, []byte(sampleFeed), 0o600))

	res, err := newTestClient(t, "file://"+path).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Raws, 3)

	_, err = newTestClient(t, "file://"+filepath.Join(t.TempDir(), "missing.geojson")).Fetch(context.Background())
	assert.True(t, errors.IsFeedUnavailable(err))
}

func TestNewClient_RejectsScheme(t *testing.T) {
	_, err := NewClient("ftp://example.org/alerts")
	require.Error(t, err)
	_, err = NewClient("::not a url")
	require.Error(t, err)
}

func TestCalculateBackoff(t *testing.T) {
	c := newTestClient(t, "http://example.org", WithRetryWait(100*time.Millisecond, 300*time.Millisecond))
	b1 := c.calculateBackoff(1)
	assert.GreaterOrEqual(t, b1, 100*time.Millisecond)
	assert.Less(t, b1, 126*time.Millisecond)
	b5 := c.calculateBackoff(5)
	assert.GreaterOrEqual(t, b5, 300*time.Millisecond)
	assert.Less(t, b5, 376*time.Millisecond)
}
