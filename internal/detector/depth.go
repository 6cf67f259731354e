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

// Default depth detector configuration. The flatness threshold is an
// empirically tuned default; it does not generalize across camera hardware.
const (
	defaultDepthInterval     = 5 * time.Second
	defaultFlatnessThreshold = 150.0
)

// Depth samples the Z coordinate of a fixed set of facial landmarks and
// flags a geometrically flat face, consistent with a photo or a screen
// replaying a recording. Variance exactly equal to the threshold counts
// as live; only strictly lower variance is flat.
type Depth struct {
	source capture.Source
	mesh   FaceMesh
	sink   Sink

	interval          time.Duration
	flatnessThreshold float64

	disabledReported bool
}

// DepthOption applies a configuration option to the Depth detector.
type DepthOption func(*Depth)

// WithDepthInterval sets the sampling period.
func WithDepthInterval(d time.Duration) DepthOption {
	return func(dd *Depth) {
		if d > 0 {
			dd.interval = d
		}
	}
}

// WithFlatnessThreshold sets the depth variance below which the face is flat.
func WithFlatnessThreshold(v float64) DepthOption {
	return func(dd *Depth) {
		if v > 0 {
			dd.flatnessThreshold = v
		}
	}
}

// NewDepth creates the depth detector.
func NewDepth(source capture.Source, mesh FaceMesh, sink Sink, opts ...DepthOption) *Depth {
	d := &Depth{
		source:            source,
		mesh:              mesh,
		sink:              sink,
		interval:          defaultDepthInterval,
		flatnessThreshold: defaultFlatnessThreshold,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Name identifies the detector.
func (d *Depth) Name() string { return "depth" }

// Interval is the detector's sampling period.
func (d *Depth) Interval() time.Duration { return d.interval }

// Tick runs one depth pass.
func (d *Depth) Tick(ctx context.Context) error {
	if d.mesh == nil {
		reportDisabledOnce(ctx, d.sink, d.Name(), &d.disabledReported)
		return nil
	}

	frame, err := d.source.Sample(ctx)
	if errors.Is(err, capture.ErrNotReadable) {
		metrics.RecordDetectorSkip(d.Name(), skipNoFrame)
		return nil
	}
	if err != nil {
		return err
	}

	sets, err := d.mesh.Detect(ctx, frame)
	if err != nil {
		return fmt.Errorf("depth detection failed: %w", err)
	}
	if len(sets) == 0 {
		metrics.RecordDetectorSkip(d.Name(), skipNoFace)
		return nil
	}
	lm := sets[0]
	if len(lm.Points) < MeshPointCount {
		metrics.RecordDetectorSkip(d.Name(), skipShortMesh)
		return nil
	}

	p := lm.Points
	samples := []model.Landmark{
		p[LandmarkNoseTip],
		p[LandmarkLeftEyeOuter],
		p[LandmarkRightEyeOuter],
		p[LandmarkLeftCheek],
		p[LandmarkRightCheek],
		p[LandmarkChin],
	}

	if variance := geometry.DepthVariance(samples); variance < d.flatnessThreshold {
		d.sink.Report(ctx, model.CategoryRecordedVideo,
			fmt.Sprintf("face depth variance %.1f below flatness threshold %.1f",
				variance, d.flatnessThreshold), frame.JPEG)
	}

	return nil
}
