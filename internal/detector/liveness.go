package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/capture"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/geometry"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/metrics"
)

// Default liveness detector configuration.
const (
	defaultLivenessInterval  = 2 * time.Second
	defaultBlinkEAR          = 0.2
	defaultMovementThreshold = 10.0 // pixels of face-centroid shift
	defaultNoBlink           = 20 * time.Second
	defaultNoMovement        = 20 * time.Second
)

// Liveness watches for signs of life: eyelid closure (blink) and face
// movement. A face that neither blinks nor moves for the configured
// periods is treated as a presented photo.
type Liveness struct {
	source capture.Source
	mesh   FaceMesh
	sink   Sink

	interval            time.Duration
	blinkEAR            float64
	movementThreshold   float64
	noBlinkThreshold    time.Duration
	noMovementThreshold time.Duration

	lastBlinkAt    time.Time
	lastMovementAt time.Time
	prevBox        model.BoundingBox
	havePrev       bool

	disabledReported bool

	now func() time.Time
}

// LivenessOption applies a configuration option to the Liveness detector.
type LivenessOption func(*Liveness)

// WithLivenessInterval sets the sampling period.
func WithLivenessInterval(d time.Duration) LivenessOption {
	return func(l *Liveness) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithBlinkEAR sets the eye-aspect-ratio below which the eyes count as closed.
func WithBlinkEAR(ear float64) LivenessOption {
	return func(l *Liveness) {
		if ear > 0 {
			l.blinkEAR = ear
		}
	}
}

// WithMovementThreshold sets the centroid shift (pixels) that counts as
// face movement.
func WithMovementThreshold(px float64) LivenessOption {
	return func(l *Liveness) {
		if px > 0 {
			l.movementThreshold = px
		}
	}
}

// WithNoBlinkThreshold sets how long the face may go without a blink.
func WithNoBlinkThreshold(d time.Duration) LivenessOption {
	return func(l *Liveness) {
		if d > 0 {
			l.noBlinkThreshold = d
		}
	}
}

// WithNoMovementThreshold sets how long the face may go without moving.
func WithNoMovementThreshold(d time.Duration) LivenessOption {
	return func(l *Liveness) {
		if d > 0 {
			l.noMovementThreshold = d
		}
	}
}

// WithLivenessClock overrides the time source for tests.
func WithLivenessClock(now func() time.Time) LivenessOption {
	return func(l *Liveness) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLiveness creates the liveness detector.
func NewLiveness(source capture.Source, mesh FaceMesh, sink Sink, opts ...LivenessOption) *Liveness {
	l := &Liveness{
		source:              source,
		mesh:                mesh,
		sink:                sink,
		interval:            defaultLivenessInterval,
		blinkEAR:            defaultBlinkEAR,
		movementThreshold:   defaultMovementThreshold,
		noBlinkThreshold:    defaultNoBlink,
		noMovementThreshold: defaultNoMovement,
		now:                 time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Name identifies the detector.
func (l *Liveness) Name() string { return "liveness" }

// Interval is the detector's sampling period.
func (l *Liveness) Interval() time.Duration { return l.interval }

// Tick runs one liveness pass.
func (l *Liveness) Tick(ctx context.Context) error {
	if l.mesh == nil {
		reportDisabledOnce(ctx, l.sink, l.Name(), &l.disabledReported)
		return nil
	}

	frame, err := l.source.Sample(ctx)
	if errors.Is(err, capture.ErrNotReadable) {
		metrics.RecordDetectorSkip(l.Name(), skipNoFrame)
		return nil
	}
	if err != nil {
		return err
	}

	sets, err := l.mesh.Detect(ctx, frame)
	if err != nil {
		return fmt.Errorf("liveness detection failed: %w", err)
	}
	if len(sets) == 0 {
		metrics.RecordDetectorSkip(l.Name(), skipNoFace)
		return nil
	}
	lm := sets[0]
	if len(lm.Points) < MeshPointCount {
		metrics.RecordDetectorSkip(l.Name(), skipShortMesh)
		return nil
	}

	now := l.now()

	// First usable tick after Active entry seeds both staleness timers.
	if l.lastBlinkAt.IsZero() {
		l.lastBlinkAt = now
		l.lastMovementAt = now
	}

	if l.blinkObserved(lm) {
		l.lastBlinkAt = now
	}

	if l.havePrev && geometry.CentroidShift(l.prevBox, lm.Box) > l.movementThreshold {
		l.lastMovementAt = now
	}
	l.prevBox = lm.Box
	l.havePrev = true

	if now.Sub(l.lastBlinkAt) > l.noBlinkThreshold && now.Sub(l.lastMovementAt) > l.noMovementThreshold {
		l.sink.Report(ctx, model.CategoryPhotoSpoofing,
			fmt.Sprintf("no blink for %s and no movement for %s",
				now.Sub(l.lastBlinkAt).Round(time.Second),
				now.Sub(l.lastMovementAt).Round(time.Second)), frame.JPEG)
		// The next violation requires a fresh stale period.
		l.lastBlinkAt = now
		l.lastMovementAt = now
	}

	return nil
}

// blinkObserved reports whether the eyes are closed on this frame, using
// the average eye aspect ratio of both eyes.
func (l *Liveness) blinkObserved(lm model.LandmarkSet) bool {
	p := lm.Points
	left := geometry.EyeAspectRatio(p[LandmarkLeftEyeTop], p[LandmarkLeftEyeBottom], p[LandmarkLeftEyeInner], p[LandmarkLeftEyeOuter])
	right := geometry.EyeAspectRatio(p[LandmarkRightEyeTop], p[LandmarkRightEyeBottom], p[LandmarkRightEyeInner], p[LandmarkRightEyeOuter])
	return (left+right)/2 < l.blinkEAR
}
