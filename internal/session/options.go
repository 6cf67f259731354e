package session

import (
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/escalate"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithExamDuration sets the exam time limit. Zero disables the timer.
func WithExamDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.examDuration = d
		}
	}
}

// WithEscalator replaces the default escalator, letting configuration
// tune per-category cooldowns and warning limits.
func WithEscalator(e escalate.Escalator) Option {
	return func(s *Service) {
		if e != nil {
			s.escalator = e
		}
	}
}

// WithHooks registers the lifecycle callbacks.
func WithHooks(h Hooks) Option {
	return func(s *Service) {
		s.hooks = h
	}
}
