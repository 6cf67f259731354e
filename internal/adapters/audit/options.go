package audit

import (
	"net/http"
	"time"
)

// Default reporter configuration constants.
const (
	defaultQueueSize      = 256
	defaultHistoryLimit   = 500
	defaultRequestTimeout = 5 * time.Second
)

// Option configures an HTTPReporter.
type Option func(*HTTPReporter)

// WithQueueSize sets the delivery queue capacity.
func WithQueueSize(n int) Option {
	return func(r *HTTPReporter) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithHistoryLimit sets how many events the alerts history retains.
func WithHistoryLimit(n int) Option {
	return func(r *HTTPReporter) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithRequestTimeout sets the per-request delivery timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *HTTPReporter) {
		if d > 0 {
			r.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *HTTPReporter) {
		if c != nil {
			r.client = c
		}
	}
}
