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

// Default gaze detector configuration. The center band and vertical
// threshold are empirically tuned defaults, not calibrated invariants.
const (
	defaultGazeInterval      = 2 * time.Second
	defaultCenterBandLow     = 0.15
	defaultCenterBandHigh    = 0.85
	defaultVerticalThreshold = 5.0 // pixels off the eye-corner midline
	defaultGazeAway          = 10 * time.Second
)

// Gaze classifies the gaze direction each tick and accumulates sustained
// off-center gaze into a violation. Momentary glances never fire; the gaze
// must stay away for the configured threshold.
type Gaze struct {
	source capture.Source
	mesh   FaceMesh
	sink   Sink

	interval          time.Duration
	centerBandLow     float64
	centerBandHigh    float64
	verticalThreshold float64
	awayThreshold     time.Duration

	// awaySince is the start of the current off-center excursion; zero when
	// the gaze is centered.
	awaySince        time.Time
	disabledReported bool

	now func() time.Time
}

// GazeOption applies a configuration option to the Gaze detector.
type GazeOption func(*Gaze)

// WithGazeInterval sets the sampling period.
func WithGazeInterval(d time.Duration) GazeOption {
	return func(g *Gaze) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithCenterBand sets the horizontal iris-ratio band treated as centered.
func WithCenterBand(low, high float64) GazeOption {
	return func(g *Gaze) {
		if low > 0 && high > low && high < 1 {
			g.centerBandLow = low
			g.centerBandHigh = high
		}
	}
}

// WithVerticalThreshold sets the vertical iris offset (pixels) beyond which
// the gaze counts as up or down.
func WithVerticalThreshold(px float64) GazeOption {
	return func(g *Gaze) {
		if px > 0 {
			g.verticalThreshold = px
		}
	}
}

// WithGazeAwayThreshold sets how long the gaze must stay off-center before
// a violation fires.
func WithGazeAwayThreshold(d time.Duration) GazeOption {
	return func(g *Gaze) {
		if d > 0 {
			g.awayThreshold = d
		}
	}
}

// WithGazeClock overrides the time source for tests.
func WithGazeClock(now func() time.Time) GazeOption {
	return func(g *Gaze) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGaze creates the gaze detector.
func NewGaze(source capture.Source, mesh FaceMesh, sink Sink, opts ...GazeOption) *Gaze {
	g := &Gaze{
		source:            source,
		mesh:              mesh,
		sink:              sink,
		interval:          defaultGazeInterval,
		centerBandLow:     defaultCenterBandLow,
		centerBandHigh:    defaultCenterBandHigh,
		verticalThreshold: defaultVerticalThreshold,
		awayThreshold:     defaultGazeAway,
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Name identifies the detector.
func (g *Gaze) Name() string { return "gaze" }

// Interval is the detector's sampling period.
func (g *Gaze) Interval() time.Duration { return g.interval }

// Tick runs one gaze pass.
func (g *Gaze) Tick(ctx context.Context) error {
	if g.mesh == nil {
		reportDisabledOnce(ctx, g.sink, g.Name(), &g.disabledReported)
		return nil
	}

	frame, err := g.source.Sample(ctx)
	if errors.Is(err, capture.ErrNotReadable) {
		metrics.RecordDetectorSkip(g.Name(), skipNoFrame)
		return nil
	}
	if err != nil {
		return err
	}

	sets, err := g.mesh.Detect(ctx, frame)
	if err != nil {
		return fmt.Errorf("gaze detection failed: %w", err)
	}
	if len(sets) == 0 {
		metrics.RecordDetectorSkip(g.Name(), skipNoFace)
		return nil
	}
	lm := sets[0]
	if len(lm.Points) < MeshPointCount {
		metrics.RecordDetectorSkip(g.Name(), skipShortMesh)
		return nil
	}

	dir := g.classify(lm)
	if dir == model.GazeCenter {
		g.awaySince = time.Time{}
		return nil
	}

	now := g.now()
	if g.awaySince.IsZero() {
		g.awaySince = now
		return nil
	}

	if elapsed := now.Sub(g.awaySince); elapsed >= g.awayThreshold {
		g.sink.Report(ctx, model.CategorySuspiciousEyeMovement,
			fmt.Sprintf("gaze held %s for %s", dir, elapsed.Round(time.Second)), frame.JPEG)
		// A fresh sustained excursion is required before the next emission;
		// the escalator cooldown throttles anything faster.
		g.awaySince = time.Time{}
	}

	return nil
}

// classify maps one landmark set to a discrete gaze direction. Both eyes'
// iris offsets are averaged to damp per-eye jitter.
func (g *Gaze) classify(lm model.LandmarkSet) model.GazeDirection {
	p := lm.Points

	leftRatio := geometry.HorizontalIrisRatio(p[LandmarkLeftIris], p[LandmarkLeftEyeInner], p[LandmarkLeftEyeOuter])
	rightRatio := geometry.HorizontalIrisRatio(p[LandmarkRightIris], p[LandmarkRightEyeInner], p[LandmarkRightEyeOuter])
	ratio := (leftRatio + rightRatio) / 2

	leftOff := geometry.VerticalIrisOffset(p[LandmarkLeftIris], p[LandmarkLeftEyeInner], p[LandmarkLeftEyeOuter])
	rightOff := geometry.VerticalIrisOffset(p[LandmarkRightIris], p[LandmarkRightEyeInner], p[LandmarkRightEyeOuter])
	vertical := (leftOff + rightOff) / 2

	switch {
	case ratio < g.centerBandLow:
		return model.GazeLeft
	case ratio > g.centerBandHigh:
		return model.GazeRight
	case vertical < -g.verticalThreshold:
		return model.GazeUp
	case vertical > g.verticalThreshold:
		return model.GazeDown
	default:
		return model.GazeCenter
	}
}
