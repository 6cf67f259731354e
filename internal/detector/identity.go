package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/capture"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/metrics"
)

// Default identity detector configuration.
const (
	defaultIdentityInterval = 15 * time.Second
	defaultMismatchLimit    = 3
	defaultNoFaceLimit      = 5
)

// Identity periodically sends a snapshot to the remote face-match oracle.
// Identity failure is the highest-severity signal: reaching the consecutive
// mismatch or no-face limit terminates the session inside the tick, not via
// the shared escalation.
type Identity struct {
	source capture.Source
	oracle Oracle
	sink   Sink

	interval      time.Duration
	mismatchLimit int
	noFaceLimit   int

	consecutiveMismatches int
	consecutiveNoFace     int

	disabledReported bool
}

// IdentityOption applies a configuration option to the Identity detector.
type IdentityOption func(*Identity)

// WithIdentityInterval sets the verification period.
func WithIdentityInterval(d time.Duration) IdentityOption {
	return func(i *Identity) {
		if d > 0 {
			i.interval = d
		}
	}
}

// WithMismatchLimit sets how many consecutive mismatches force termination.
func WithMismatchLimit(n int) IdentityOption {
	return func(i *Identity) {
		if n > 0 {
			i.mismatchLimit = n
		}
	}
}

// WithNoFaceLimit sets how many consecutive no-face checks force termination.
func WithNoFaceLimit(n int) IdentityOption {
	return func(i *Identity) {
		if n > 0 {
			i.noFaceLimit = n
		}
	}
}

// NewIdentity creates the identity verifier.
func NewIdentity(source capture.Source, oracle Oracle, sink Sink, opts ...IdentityOption) *Identity {
	i := &Identity{
		source:        source,
		oracle:        oracle,
		sink:          sink,
		interval:      defaultIdentityInterval,
		mismatchLimit: defaultMismatchLimit,
		noFaceLimit:   defaultNoFaceLimit,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Name identifies the detector.
func (i *Identity) Name() string { return "identity" }

// Interval is the detector's verification period.
func (i *Identity) Interval() time.Duration { return i.interval }

// Tick runs one identity verification.
func (i *Identity) Tick(ctx context.Context) error {
	if i.oracle == nil {
		reportDisabledOnce(ctx, i.sink, i.Name(), &i.disabledReported)
		return nil
	}

	frame, err := i.source.Sample(ctx)
	if errors.Is(err, capture.ErrNotReadable) {
		metrics.RecordDetectorSkip(i.Name(), skipNoFrame)
		return nil
	}
	if err != nil {
		return err
	}

	outcome, err := i.oracle.Verify(ctx, frame)
	if err != nil {
		return fmt.Errorf("identity verification failed: %w", err)
	}
	metrics.RecordIdentityCheck(outcome.String())

	switch outcome {
	case model.IdentityMatch:
		i.consecutiveMismatches = 0
		i.consecutiveNoFace = 0

	case model.IdentitySkipped:
		i.consecutiveNoFace++
		i.sink.Report(ctx, model.CategoryNoFace,
			fmt.Sprintf("no usable face in frame (%d consecutive)", i.consecutiveNoFace), frame.JPEG)
		if i.consecutiveNoFace >= i.noFaceLimit {
			i.sink.Terminate(ctx, model.CategoryNoFace,
				fmt.Sprintf("no usable face for %d consecutive checks", i.consecutiveNoFace))
		}

	case model.IdentityMismatch:
		i.consecutiveMismatches++
		i.consecutiveNoFace = 0
		i.sink.Report(ctx, model.CategoryIdentityMismatch,
			fmt.Sprintf("face does not match enrolled student (%d consecutive)", i.consecutiveMismatches), frame.JPEG)
		if i.consecutiveMismatches >= i.mismatchLimit {
			i.sink.Terminate(ctx, model.CategoryIdentityMismatch,
				fmt.Sprintf("identity mismatch for %d consecutive checks", i.consecutiveMismatches))
		}
	}

	return nil
}
