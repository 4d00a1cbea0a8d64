// Package client is a Go client for the riskoverlay HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// Version is sent in the default User-Agent.
const Version = "0.1.0"

// Logger receives request traces.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// Client calls a riskoverlay server.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	RequestID  string `json:"request_id"`

	// Body is the raw response body.
	Body []byte `json:"-"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("riskoverlay: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg + " [request_id=" + e.RequestID + "]"
}

// IsNotFound reports a 404, which the API returns for unknown categories.
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsRateLimited reports a 429.
func (e *APIError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsServerError reports a 5xx.
func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 && e.StatusCode < 600 }

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New(errors.ErrCodeValidation, "client: baseURL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "client: invalid baseURL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeValidation, "client: baseURL scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		userAgent:    "riskoverlay-go-client/" + Version,
		logger:       noopLogger{},
		retryMax:     2,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// response is a successful raw response.
type response struct {
	body   []byte
	header http.Header
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*response, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debugf("retry attempt %d after %v", attempt, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		requestID := uuid.NewString()
		req.Header.Set("Accept", "application/json, application/geo+json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Errorf("request failed: %v", err)
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		c.logger.Debugf("GET %s %d (%v)", path, resp.StatusCode, time.Since(start))

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.retryMax {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				c.logger.Infof("rate limited, retrying after %d seconds", secs)
				select {
				case <-time.After(time.Duration(secs) * time.Second):
					continue
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}

		if resp.StatusCode >= 400 {
			apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
			if err := json.Unmarshal(body, apiErr); err != nil {
				apiErr.Message = string(body)
			}
			apiErr.StatusCode = resp.StatusCode
			apiErr.RequestID = requestID
			apiErr.Body = body
			lastErr = apiErr
			// 504 means the server's own refresh timed out; retrying would
			// only repeat it.
			if apiErr.IsServerError() && resp.StatusCode != http.StatusGatewayTimeout {
				continue
			}
			return nil, apiErr
		}
		return &response{body: body, header: resp.Header}, nil
	}
	return nil, lastErr
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, result interface{}) (*response, error) {
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resp.body, result); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal response")
	}
	return resp, nil
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	if q := int64(backoff / 4); q > 0 {
		backoff += time.Duration(rand.Int63n(q))
	}
	return backoff
}
