// Package audit delivers violation events to the institution's audit
// endpoint and keeps a bounded in-memory history for the alerts panel.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/logger"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/metrics"
)

// Reporter accepts violation events for delivery. Submission never
// blocks the caller: the proctoring loop must not stall on a slow or
// dead audit endpoint.
type Reporter interface {
	// Submit hands an event over for background delivery. Returns false
	// if the delivery queue is full and the event was dropped.
	Submit(ctx context.Context, event model.ViolationEvent) bool

	// History returns the retained events, oldest first.
	History(ctx context.Context) []model.ViolationEvent

	// Close stops the sender after draining queued events.
	Close() error
}

// HTTPReporter posts each event as JSON to a fixed endpoint from a
// single background goroutine. A failed POST is retried once; after
// that the event is abandoned. Every submitted event is retained in the
// history ring regardless of delivery outcome.
type HTTPReporter struct {
	endpoint string
	client   *http.Client

	queue     *deliveryQueue
	queueSize int
	done      chan struct{}

	mu      sync.RWMutex
	history []model.ViolationEvent
	limit   int

	logger logger.Logger
}

// NewHTTPReporter creates a reporter and starts its sender. An empty
// endpoint disables delivery; events then only feed the history ring.
func NewHTTPReporter(endpoint string, opts ...Option) *HTTPReporter {
	r := &HTTPReporter{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: defaultRequestTimeout},
		queueSize: defaultQueueSize,
		limit:     defaultHistoryLimit,
		done:      make(chan struct{}),
		logger:    logger.Get().Named("audit"),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.queue = newDeliveryQueue(r.queueSize)

	go r.run()

	return r
}

// Submit enqueues an event without blocking. The event joins the
// history ring even when delivery is refused; only a closed reporter
// ignores it entirely.
func (r *HTTPReporter) Submit(ctx context.Context, event model.ViolationEvent) bool {
	if r.queue.isClosed() {
		return false
	}

	r.mu.Lock()
	r.remember(event)
	r.mu.Unlock()

	if !r.queue.enqueue(event) {
		metrics.RecordReportDrop()
		r.logger.Warn(ctx, "audit queue full, dropping event",
			logger.String("category", string(event.Category)),
			logger.String("id", event.ID),
		)
		return false
	}
	return true
}

// History returns a copy of the retained events, oldest first.
func (r *HTTPReporter) History(ctx context.Context) []model.ViolationEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ViolationEvent, len(r.history))
	copy(out, r.history)
	return out
}

// Close stops accepting events and waits for the sender to drain the
// queue.
func (r *HTTPReporter) Close() error {
	r.queue.close()
	<-r.done
	return nil
}

// remember appends to the history ring, evicting the oldest entry once
// the limit is reached. Caller holds r.mu.
func (r *HTTPReporter) remember(event model.ViolationEvent) {
	r.history = append(r.history, event)
	if len(r.history) > r.limit {
		r.history = r.history[1:]
	}
}

// run is the sender loop. It exits when the queue is closed and drained.
func (r *HTTPReporter) run() {
	defer close(r.done)

	for event := range r.queue.dequeue() {
		metrics.UpdateReportQueueDepth(r.queue.depth())
		if r.endpoint == "" {
			continue
		}
		if err := r.deliver(event); err != nil {
			// One retry covers transient endpoint hiccups; anything
			// longer and the event is abandoned, never re-queued.
			if err = r.deliver(event); err != nil {
				metrics.RecordReportFailure()
				r.logger.Error(context.Background(), "audit delivery failed",
					logger.String("id", event.ID),
					logger.Error(err),
				)
				continue
			}
		}
		metrics.RecordReportSent()
	}
}

// deliver posts one event to the audit endpoint.
func (r *HTTPReporter) deliver(event model.ViolationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, r.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("audit endpoint returned %d", resp.StatusCode)
	}
	return nil
}
