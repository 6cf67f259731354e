// Package oracle is the HTTP client for the remote face-match service.
// The service is a black box: it receives a snapshot and answers whether
// the face matches the enrolled student, or that no usable face was
// found.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
)

// Default client configuration constants.
const defaultRequestTimeout = 10 * time.Second

// verifyRequest is the wire format sent to the oracle. The image is the
// raw JPEG, base64-encoded by the JSON marshaller.
type verifyRequest struct {
	Image []byte `json:"image"`
}

// verifyResponse is the oracle's answer.
type verifyResponse struct {
	Match   bool `json:"match"`
	Skipped bool `json:"skipped"`
}

// Client calls the face-match service over HTTP.
type Client struct {
	endpoint string
	client   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient creates an oracle client for the given endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultRequestTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Verify sends one snapshot and maps the answer onto an identity
// outcome. A skipped answer outranks a match answer.
func (c *Client) Verify(ctx context.Context, frame model.Frame) (model.IdentityOutcome, error) {
	body, err := json.Marshal(verifyRequest{Image: frame.JPEG})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call face-match service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("face-match service returned %d", resp.StatusCode)
	}

	var answer verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return 0, fmt.Errorf("failed to decode verify response: %w", err)
	}

	switch {
	case answer.Skipped:
		return model.IdentitySkipped, nil
	case answer.Match:
		return model.IdentityMatch, nil
	default:
		return model.IdentityMismatch, nil
	}
}
