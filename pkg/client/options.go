package client

import (
	"net/http"
	"time"
)

// Option configures a Client. Invalid values are ignored and the default is
// kept.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each attempt. Server-side refreshes are bounded by
// server.request_timeout, so this should exceed it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithLogger traces requests and retries.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetryMax sets how many times a transient failure is retried.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retryMax = n
		}
	}
}

// WithRetryWait sets the first backoff and its cap.
func WithRetryWait(first, limit time.Duration) Option {
	return func(c *Client) {
		if first <= 0 {
			return
		}
		c.retryWaitMin = first
		if limit >= first {
			c.retryWaitMax = limit
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}
