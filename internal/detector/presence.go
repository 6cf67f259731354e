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

// Default presence detector configuration.
const defaultPresenceInterval = time.Second

// Presence counts the faces visible in each frame. A second face opens one
// violation that stays open until the face count drops back, so a
// continuously present second person produces exactly one event pair.
type Presence struct {
	source capture.Source
	mesh   FaceMesh
	sink   Sink

	interval time.Duration

	// active is true while a multiple-faces violation is open.
	active           bool
	disabledReported bool
}

// PresenceOption applies a configuration option to the Presence detector.
type PresenceOption func(*Presence)

// WithPresenceInterval sets the sampling period.
func WithPresenceInterval(d time.Duration) PresenceOption {
	return func(p *Presence) {
		if d > 0 {
			p.interval = d
		}
	}
}

// NewPresence creates the presence/count detector.
func NewPresence(source capture.Source, mesh FaceMesh, sink Sink, opts ...PresenceOption) *Presence {
	p := &Presence{
		source:   source,
		mesh:     mesh,
		sink:     sink,
		interval: defaultPresenceInterval,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name identifies the detector.
func (p *Presence) Name() string { return "presence" }

// Interval is the detector's sampling period.
func (p *Presence) Interval() time.Duration { return p.interval }

// Tick runs one presence pass.
func (p *Presence) Tick(ctx context.Context) error {
	if p.mesh == nil {
		reportDisabledOnce(ctx, p.sink, p.Name(), &p.disabledReported)
		return nil
	}

	frame, err := p.source.Sample(ctx)
	if errors.Is(err, capture.ErrNotReadable) {
		metrics.RecordDetectorSkip(p.Name(), skipNoFrame)
		return nil
	}
	if err != nil {
		return err
	}

	sets, err := p.mesh.Detect(ctx, frame)
	if err != nil {
		return fmt.Errorf("presence detection failed: %w", err)
	}

	faces := len(sets)
	switch {
	case faces > 1 && !p.active:
		p.active = true
		p.sink.Report(ctx, model.CategoryMultipleFaces,
			fmt.Sprintf("%d faces visible", faces), frame.JPEG)
	case faces <= 1 && p.active:
		p.active = false
		p.sink.Report(ctx, model.CategoryMultipleFacesResolved,
			"single face restored", nil)
	}

	return nil
}
