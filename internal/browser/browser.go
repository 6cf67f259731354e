// Package browser tracks the exam browser's visibility and fullscreen
// state from events pushed by the client page.
package browser

import (
	"context"
	"sync"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/detector"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/logger"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/metrics"
)

// EventKind names one browser state transition.
type EventKind string

// Browser events the client page reports.
const (
	EventVisibilityHidden  EventKind = "visibility_hidden"
	EventVisibilityVisible EventKind = "visibility_visible"
	EventFullscreenEntered EventKind = "fullscreen_entered"
	EventFullscreenExited  EventKind = "fullscreen_exited"
)

// Event is one state change reported by the exam page.
type Event struct {
	Kind EventKind `json:"kind"`
}

// Monitor holds the current browser state and converts state changes
// into violation signals. Unlike the camera detectors it is event
// driven, not polled: every reported transition is handled exactly once.
type Monitor struct {
	sink detector.Sink

	mu         sync.Mutex
	fullscreen bool
	blocked    bool

	logger logger.Logger
}

// NewMonitor creates a browser monitor feeding the given sink.
func NewMonitor(sink detector.Sink) *Monitor {
	return &Monitor{
		sink:   sink,
		logger: logger.Get().Named("browser"),
	}
}

// Apply handles one browser event.
func (m *Monitor) Apply(ctx context.Context, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Kind {
	case EventVisibilityHidden:
		m.sink.Report(ctx, model.CategoryTabSwitch, "exam page lost visibility", nil)

	case EventVisibilityVisible:
		// Returning to the page is not itself a signal; the damage was
		// recorded when the page went hidden.

	case EventFullscreenExited:
		m.fullscreen = false
		m.blocked = true
		metrics.UpdateBrowserBlocked(true)
		m.sink.Report(ctx, model.CategoryFullscreenExited, "exam page left fullscreen", nil)

	case EventFullscreenEntered:
		m.fullscreen = true
		m.blocked = false
		metrics.UpdateBrowserBlocked(false)

	default:
		m.logger.Warn(ctx, "unknown browser event", logger.String("kind", string(ev.Kind)))
	}
}

// Fullscreen reports whether the exam page is currently fullscreen.
// Session activation requires this to be true.
func (m *Monitor) Fullscreen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fullscreen
}

// Blocked reports whether the exam UI must stay blocked until the
// student re-enters fullscreen.
func (m *Monitor) Blocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocked
}
