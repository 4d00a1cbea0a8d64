package feed

import (
	"net/http"
	"time"

	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds each Fetch call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryMax sets the maximum number of retries after the first attempt.
func WithRetryMax(retryMax int) Option {
	return func(c *Client) {
		if retryMax >= 0 {
			c.retryMax = retryMax
		}
	}
}

// WithRetryWait sets the base and maximum backoff between attempts.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		if min >= 0 {
			c.retryWaitMin = min
			if max >= min {
				c.retryWaitMax = max
			}
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.logger = log.Named("feed")
		}
	}
}
