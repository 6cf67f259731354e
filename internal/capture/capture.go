// Package capture provides the frame source shared by all detectors.
//
// The camera lives in the student's browser; the bridge publishes each
// received frame here, and detectors sample the most recent one on demand.
// The source is read-only to detectors.
package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/metrics"
)

// ErrNotReadable signals a transient capture failure: no frame has arrived
// yet, or the latest frame is too old to be trusted. Detectors skip the
// tick silently.
var ErrNotReadable = errors.New("frame not readable")

// Default maximum age before the latest frame is considered stale.
const defaultMaxAge = 3 * time.Second

// Source provides on-demand frame samples.
type Source interface {
	// Sample returns the most recent frame. Returns ErrNotReadable when no
	// fresh frame is available.
	Sample(ctx context.Context) (model.Frame, error)
}

// LatestSource is a single-slot frame buffer holding the most recent frame.
// Publish overwrites the slot; Sample never blocks.
type LatestSource struct {
	mu     sync.RWMutex
	frame  model.Frame
	loaded bool

	maxAge time.Duration
	now    func() time.Time
}

// Option applies a configuration option to the LatestSource.
type Option func(*LatestSource)

// WithMaxAge sets how old the latest frame may be before Sample reports
// ErrNotReadable.
func WithMaxAge(d time.Duration) Option {
	return func(s *LatestSource) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *LatestSource) {
		if now != nil {
			s.now = now
		}
	}
}

// NewLatestSource creates an empty frame source.
func NewLatestSource(opts ...Option) *LatestSource {
	s := &LatestSource{
		maxAge: defaultMaxAge,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Publish stores a frame as the latest sample, replacing any previous one.
func (s *LatestSource) Publish(ctx context.Context, frame model.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if frame.CapturedAt.IsZero() {
		frame.CapturedAt = s.now()
	}
	s.frame = frame
	s.loaded = true
	metrics.RecordFrameReceived()
}

// Sample returns the most recent frame, or ErrNotReadable when none is
// available or the latest one is stale.
func (s *LatestSource) Sample(ctx context.Context) (model.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return model.Frame{}, ErrNotReadable
	}
	if s.now().Sub(s.frame.CapturedAt) > s.maxAge {
		return model.Frame{}, ErrNotReadable
	}
	return s.frame, nil
}

// Clear drops the buffered frame, used when a session leaves Active.
func (s *LatestSource) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame = model.Frame{}
	s.loaded = false
}
