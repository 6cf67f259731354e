// Package inference holds HTTP clients for the vision model services.
// The agent runs no models in-process: landmark extraction and object
// detection are served by a sidecar, and these clients adapt it to the
// detector contracts. A client constructed without an endpoint returns
// nil from its constructor, which the detectors treat as a permanently
// unavailable model.
package inference

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
const defaultRequestTimeout = 5 * time.Second

// frameRequest is the wire format both services accept.
type frameRequest struct {
	Image  []byte `json:"image"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Option configures an inference client.
type Option func(*client)

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// client is the shared POST-a-frame plumbing.
type client struct {
	endpoint string
	http     *http.Client
}

func newClient(endpoint string, opts ...Option) *client {
	c := &client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// post sends one frame and decodes the answer into out.
func (c *client) post(ctx context.Context, frame model.Frame, out any) error {
	body, err := json.Marshal(frameRequest{Image: frame.JPEG, Width: frame.Width, Height: frame.Height})
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call inference service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("inference service returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode inference response: %w", err)
	}
	return nil
}

// MeshClient adapts the landmark service to detector.FaceMesh.
type MeshClient struct {
	*client
}

// meshResponse is one landmark service answer.
type meshResponse struct {
	Faces []struct {
		Points []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
			Z float64 `json:"z"`
		} `json:"points"`
		Box struct {
			X      float64 `json:"x"`
			Y      float64 `json:"y"`
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		} `json:"box"`
	} `json:"faces"`
}

// NewMeshClient creates a landmark client, or nil when no endpoint is
// configured.
func NewMeshClient(endpoint string, opts ...Option) *MeshClient {
	if endpoint == "" {
		return nil
	}
	return &MeshClient{client: newClient(endpoint, opts...)}
}

// Detect returns one landmark set per visible face.
func (m *MeshClient) Detect(ctx context.Context, frame model.Frame) ([]model.LandmarkSet, error) {
	var answer meshResponse
	if err := m.post(ctx, frame, &answer); err != nil {
		return nil, err
	}

	sets := make([]model.LandmarkSet, 0, len(answer.Faces))
	for _, face := range answer.Faces {
		points := make([]model.Landmark, len(face.Points))
		for i, p := range face.Points {
			points[i] = model.Landmark{X: p.X, Y: p.Y, Z: p.Z}
		}
		sets = append(sets, model.LandmarkSet{
			Points: points,
			Box: model.BoundingBox{
				X:      face.Box.X,
				Y:      face.Box.Y,
				Width:  face.Box.Width,
				Height: face.Box.Height,
			},
		})
	}
	return sets, nil
}

// ObjectClient adapts the object detection service to
// detector.ObjectModel.
type ObjectClient struct {
	*client
}

// objectResponse is one object service answer.
type objectResponse struct {
	Detections []struct {
		Class      string  `json:"class"`
		Confidence float64 `json:"confidence"`
	} `json:"detections"`
}

// NewObjectClient creates an object detection client, or nil when no
// endpoint is configured.
func NewObjectClient(endpoint string, opts ...Option) *ObjectClient {
	if endpoint == "" {
		return nil
	}
	return &ObjectClient{client: newClient(endpoint, opts...)}
}

// Detect returns the detections on a full frame.
func (o *ObjectClient) Detect(ctx context.Context, frame model.Frame) ([]model.ObjectDetection, error) {
	var answer objectResponse
	if err := o.post(ctx, frame, &answer); err != nil {
		return nil, err
	}

	detections := make([]model.ObjectDetection, len(answer.Detections))
	for i, d := range answer.Detections {
		detections[i] = model.ObjectDetection{Class: d.Class, Confidence: d.Confidence}
	}
	return detections, nil
}
