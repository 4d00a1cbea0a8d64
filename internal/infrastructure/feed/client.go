// Package feed fetches the remote alert feed and decodes it into raw alert
// records.
package feed

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/turtacn/RiskOverlay/internal/domain/alert"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// maxFeedBytes bounds a single feed response.
const maxFeedBytes = 64 << 20

// Result is one successful fetch.
type Result struct {
	URL       string
	Raws      []alert.Raw
	FetchedAt time.Time
	Attempts  int
}

// Fetcher is implemented by Client and by test doubles.
type Fetcher interface {
	Fetch(ctx context.Context) (*Result, error)
}

// Client fetches a GeoJSON alert feed over HTTP(S) or from a file:// URL.
type Client struct {
	url          string
	httpClient   *http.Client
	timeout      time.Duration
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	userAgent    string
	logger       logging.Logger
}

// NewClient validates feedURL and applies opts.
func NewClient(feedURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(feedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file") {
		return nil, errors.Newf(errors.ErrCodeValidation, "unsupported feed url %q", feedURL)
	}

	c := &Client{
		url:          feedURL,
		httpClient:   &http.Client{},
		timeout:      10 * time.Second,
		retryMax:     1,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
		userAgent:    "riskoverlay/1.0",
		logger:       logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the configured feed URL.
func (c *Client) URL() string { return c.url }

// Fetch downloads and decodes the feed. The whole call, retries included,
// is bounded by the client timeout. Every failure is an
// ErrCodeFeedUnavailable error.
func (c *Client) Fetch(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, _ := url.Parse(c.url)
	if u.Scheme == "file" {
		return c.fetchFile(u)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debug("retrying alert feed", logging.Int("attempt", attempt), logging.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil, c.unavailable(ctx.Err(), "alert feed request timed out")
			case <-time.After(backoff):
			}
		}

		body, status, err := c.get(ctx)
		if err == nil && status == http.StatusOK {
			raws, derr := Decode(body)
			if derr != nil {
				return nil, derr.WithDetail(c.url)
			}
			return &Result{URL: c.url, Raws: raws, FetchedAt: time.Now().UTC(), Attempts: attempt + 1}, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("unexpected status %d", status)
		}
		if !shouldRetry(status, err) || ctx.Err() != nil {
			break
		}
	}
	return nil, c.unavailable(lastErr, "alert feed unreachable")
}

func (c *Client) get(ctx context.Context) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (c *Client) fetchFile(u *url.URL) (*Result, error) {
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	body, err := os.ReadFile(p)
	if err != nil {
		return nil, c.unavailable(err, "alert feed file unreadable")
	}
	raws, derr := Decode(body)
	if derr != nil {
		return nil, derr.WithDetail(c.url)
	}
	return &Result{URL: c.url, Raws: raws, FetchedAt: time.Now().UTC(), Attempts: 1}, nil
}

func (c *Client) unavailable(err error, msg string) *errors.AppError {
	return errors.Wrap(err, errors.ErrCodeFeedUnavailable, msg).WithDetail(c.url)
}

// shouldRetry retries network errors, 429 and 5xx responses.
func shouldRetry(status int, err error) bool {
	if err != nil {
		return true
	}
	return status == http.StatusTooManyRequests || status >= 500
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	if backoff <= 0 {
		return 0
	}
	// up to 25% jitter
	if q := int64(backoff / 4); q > 0 {
		backoff += time.Duration(rand.Int63n(q))
	}
	return backoff
}
