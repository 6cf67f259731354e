package audit

import (
	"sync"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/metrics"
)

// deliveryQueue is the bounded buffer between Submit and the sender
// goroutine. Enqueue never blocks; a full queue rejects the event.
type deliveryQueue struct {
	events chan model.ViolationEvent

	mu     sync.RWMutex
	closed bool
}

func newDeliveryQueue(capacity int) *deliveryQueue {
	metrics.UpdateReportQueueDepth(0)
	return &deliveryQueue{
		events: make(chan model.ViolationEvent, capacity),
	}
}

// enqueue adds an event to the queue. Returns false if the queue is
// closed or full.
func (q *deliveryQueue) enqueue(event model.ViolationEvent) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.events <- event:
		metrics.UpdateReportQueueDepth(len(q.events))
		return true
	default:
		return false
	}
}

// dequeue exposes the receive side. The channel closes once close is
// called and the remaining events have been drained by the reader.
func (q *deliveryQueue) dequeue() <-chan model.ViolationEvent {
	return q.events
}

func (q *deliveryQueue) depth() int {
	return len(q.events)
}

func (q *deliveryQueue) isClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// close stops accepting events. Safe to call more than once.
func (q *deliveryQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	close(q.events)
	q.closed = true
}
