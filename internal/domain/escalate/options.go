// Package escalate converts raw violation signals into rate-limited events
// and escalates repeated violations to session termination.
package escalate

import (
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
)

// Option applies a configuration option to the escalator.
type Option func(*inMemoryEscalator)

// WithDefaultCooldown sets the cooldown window applied to categories
// without a specific override.
func WithDefaultCooldown(d time.Duration) Option {
	return func(e *inMemoryEscalator) {
		if d > 0 {
			e.defaultCooldown = d
		}
	}
}

// WithDefaultWarningLimit sets the warning limit applied to categories
// without a specific override.
func WithDefaultWarningLimit(n int) Option {
	return func(e *inMemoryEscalator) {
		if n > 0 {
			e.defaultLimit = n
		}
	}
}

// WithCooldown sets the cooldown window for one category.
func WithCooldown(category model.ViolationCategory, d time.Duration) Option {
	return func(e *inMemoryEscalator) {
		if d > 0 {
			e.cooldowns[category] = d
		}
	}
}

// WithWarningLimit sets the warning limit for one category.
func WithWarningLimit(category model.ViolationCategory, n int) Option {
	return func(e *inMemoryEscalator) {
		if n > 0 {
			e.limits[category] = n
		}
	}
}

// WithClock overrides the time source, used by tests to step through
// cooldown windows deterministically.
func WithClock(now func() time.Time) Option {
	return func(e *inMemoryEscalator) {
		if now != nil {
			e.now = now
		}
	}
}
