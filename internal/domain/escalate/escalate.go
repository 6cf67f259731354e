// Package escalate converts raw violation signals into rate-limited events
// and escalates repeated violations to session termination.
package escalate

import (
	"context"
	"sync"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/metrics"
)

// Default escalation configuration constants.
const (
	defaultCooldown     = 5 * time.Second
	defaultWarningLimit = 3
	noFaceWarningLimit  = 5
)

// Decision is the outcome of recording one raw violation signal.
type Decision struct {
	// Emitted is true when this call produced a new violation event.
	// False means the signal was suppressed by the cooldown window.
	Emitted bool

	// Count is the warning counter for the category after this call.
	Count int

	// Limit is the warning limit configured for the category.
	Limit int

	// Terminate is true when the counter has reached or exceeded the limit.
	// It is returned on the first threshold crossing and on every
	// subsequent call, so callers may treat it as idempotent.
	Terminate bool
}

// Escalator is the per-session violation debouncer and warning counter.
type Escalator interface {
	// Record registers one raw violation signal for a category. It emits at
	// most one event per cooldown window and reports whether the session
	// must now terminate. Informational categories always emit and never
	// count toward a limit.
	Record(ctx context.Context, category model.ViolationCategory) Decision

	// Count returns the current warning counter for a category.
	Count(category model.ViolationCategory) int

	// Counts returns a copy of all non-zero warning counters.
	Counts() map[model.ViolationCategory]int

	// Reset zeroes every counter and cooldown. Called exactly when the
	// session (re)enters Active.
	Reset(ctx context.Context)
}

// categoryState tracks one category's counter and last emission time.
type categoryState struct {
	count    int
	lastEmit time.Time
}

// inMemoryEscalator implements Escalator with per-category hysteresis state.
type inMemoryEscalator struct {
	mu sync.Mutex

	state map[model.ViolationCategory]*categoryState

	defaultCooldown time.Duration
	defaultLimit    int
	cooldowns       map[model.ViolationCategory]time.Duration
	limits          map[model.ViolationCategory]int

	now func() time.Time
}

// New creates an escalator with configuration options.
func New(opts ...Option) Escalator {
	e := &inMemoryEscalator{
		state:           make(map[model.ViolationCategory]*categoryState),
		defaultCooldown: defaultCooldown,
		defaultLimit:    defaultWarningLimit,
		cooldowns:       make(map[model.ViolationCategory]time.Duration),
		limits: map[model.ViolationCategory]int{
			model.CategoryNoFace: noFaceWarningLimit,
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Record registers one raw violation signal for a category.
func (e *inMemoryEscalator) Record(ctx context.Context, category model.ViolationCategory) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(category)
	limit := e.limitFor(category)

	if category.Informational() {
		return Decision{Emitted: true, Count: st.count, Limit: limit}
	}

	now := e.now()
	if !st.lastEmit.IsZero() && now.Sub(st.lastEmit) < e.cooldownFor(category) {
		// Suppressed by the cooldown window. The counter never decreases,
		// so a crossed threshold keeps returning terminate.
		return Decision{Count: st.count, Limit: limit, Terminate: st.count >= limit}
	}

	st.count++
	st.lastEmit = now
	metrics.UpdateWarningCount(string(category), st.count)

	return Decision{
		Emitted:   true,
		Count:     st.count,
		Limit:     limit,
		Terminate: st.count >= limit,
	}
}

// Count returns the current warning counter for a category.
func (e *inMemoryEscalator) Count(category model.ViolationCategory) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st, ok := e.state[category]; ok {
		return st.count
	}
	return 0
}

// Counts returns a copy of all non-zero warning counters.
func (e *inMemoryEscalator) Counts() map[model.ViolationCategory]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[model.ViolationCategory]int, len(e.state))
	for category, st := range e.state {
		if st.count > 0 {
			out[category] = st.count
		}
	}
	return out
}

// Reset zeroes every counter and cooldown.
func (e *inMemoryEscalator) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for category := range e.state {
		metrics.UpdateWarningCount(string(category), 0)
	}
	e.state = make(map[model.ViolationCategory]*categoryState)
}

// stateFor returns the category state, creating it on first use.
// Must be called with e.mu held.
func (e *inMemoryEscalator) stateFor(category model.ViolationCategory) *categoryState {
	st, ok := e.state[category]
	if !ok {
		st = &categoryState{}
		e.state[category] = st
	}
	return st
}

func (e *inMemoryEscalator) cooldownFor(category model.ViolationCategory) time.Duration {
	if d, ok := e.cooldowns[category]; ok {
		return d
	}
	return e.defaultCooldown
}

func (e *inMemoryEscalator) limitFor(category model.ViolationCategory) int {
	if n, ok := e.limits[category]; ok {
		return n
	}
	return e.defaultLimit
}
