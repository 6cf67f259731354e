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

// Default object detector configuration.
const (
	defaultObjectInterval  = 3 * time.Second
	defaultConfidenceFloor = 0.6
	defaultObjectCooldown  = 10 * time.Second
	defaultForbiddenClass  = "cell phone"
)

// Object runs an independent model pass over the full frame looking for
// forbidden objects. A continuously held object fires once per per-class
// cooldown window, not once per tick.
type Object struct {
	source  capture.Source
	objects ObjectModel
	sink    Sink

	interval        time.Duration
	confidenceFloor float64
	cooldown        time.Duration
	forbidden       map[string]bool

	// lastFired tracks the per-object-class throttle.
	lastFired        map[string]time.Time
	disabledReported bool

	now func() time.Time
}

// ObjectOption applies a configuration option to the Object detector.
type ObjectOption func(*Object)

// WithObjectInterval sets the sampling period.
func WithObjectInterval(d time.Duration) ObjectOption {
	return func(o *Object) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithConfidenceFloor sets the minimum detection confidence that counts.
func WithConfidenceFloor(c float64) ObjectOption {
	return func(o *Object) {
		if c > 0 {
			o.confidenceFloor = c
		}
	}
}

// WithObjectCooldown sets the per-class window during which repeat
// detections are suppressed.
func WithObjectCooldown(d time.Duration) ObjectOption {
	return func(o *Object) {
		if d > 0 {
			o.cooldown = d
		}
	}
}

// WithForbiddenClasses sets the object classes treated as violations.
func WithForbiddenClasses(classes []string) ObjectOption {
	return func(o *Object) {
		if len(classes) == 0 {
			return
		}
		o.forbidden = make(map[string]bool, len(classes))
		for _, c := range classes {
			o.forbidden[c] = true
		}
	}
}

// WithObjectClock overrides the time source for tests.
func WithObjectClock(now func() time.Time) ObjectOption {
	return func(o *Object) {
		if now != nil {
			o.now = now
		}
	}
}

// NewObject creates the forbidden-object detector.
func NewObject(source capture.Source, objects ObjectModel, sink Sink, opts ...ObjectOption) *Object {
	o := &Object{
		source:          source,
		objects:         objects,
		sink:            sink,
		interval:        defaultObjectInterval,
		confidenceFloor: defaultConfidenceFloor,
		cooldown:        defaultObjectCooldown,
		forbidden:       map[string]bool{defaultForbiddenClass: true},
		lastFired:       make(map[string]time.Time),
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Name identifies the detector.
func (o *Object) Name() string { return "object" }

// Interval is the detector's sampling period.
func (o *Object) Interval() time.Duration { return o.interval }

// Tick runs one object pass.
func (o *Object) Tick(ctx context.Context) error {
	if o.objects == nil {
		reportDisabledOnce(ctx, o.sink, o.Name(), &o.disabledReported)
		return nil
	}

	frame, err := o.source.Sample(ctx)
	if errors.Is(err, capture.ErrNotReadable) {
		metrics.RecordDetectorSkip(o.Name(), skipNoFrame)
		return nil
	}
	if err != nil {
		return err
	}

	detections, err := o.objects.Detect(ctx, frame)
	if err != nil {
		return fmt.Errorf("object detection failed: %w", err)
	}

	now := o.now()
	for _, det := range detections {
		if !o.forbidden[det.Class] || det.Confidence < o.confidenceFloor {
			continue
		}
		if last, ok := o.lastFired[det.Class]; ok && now.Sub(last) < o.cooldown {
			continue
		}
		o.lastFired[det.Class] = now
		o.sink.Report(ctx, model.CategoryForbiddenObject,
			fmt.Sprintf("%s detected with confidence %.2f", det.Class, det.Confidence), frame.JPEG)
	}

	return nil
}
