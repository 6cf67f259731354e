// Package detector implements the six independently clocked integrity
// detectors that watch a live exam session.
//
// Each detector is a periodic task: it samples the shared frame source,
// runs one model pass, and feeds raw signals into the violation sink. A
// tick whose prerequisites are missing (no readable frame, model not
// loaded) is skipped silently, never queued or backfilled. Detector state
// is created fresh on every Active entry, so none of the detectors carry a
// Reset method.
package detector

import (
	"context"
	"sync"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/metrics"
)

// Detector is one periodically executed integrity check.
type Detector interface {
	// Name identifies the detector in logs, metrics and the scheduler.
	Name() string

	// Interval is the detector's own sampling period.
	Interval() time.Duration

	// Tick runs one detection pass. A returned error means the pass failed;
	// the pool keeps running regardless.
	Tick(ctx context.Context) error
}

// Sink receives raw violation signals from detectors. Implemented by the
// session controller, which owns debouncing, reporting and escalation.
type Sink interface {
	// Report records one raw violation signal. The returned value is true
	// when the session must now terminate.
	Report(ctx context.Context, category model.ViolationCategory, message string, snapshot []byte) bool

	// Terminate forces immediate session termination with the given cause,
	// bypassing the warning-limit escalation.
	Terminate(ctx context.Context, cause model.ViolationCategory, message string)
}

// FaceMesh extracts facial landmark sets from a frame, one per visible face.
type FaceMesh interface {
	Detect(ctx context.Context, frame model.Frame) ([]model.LandmarkSet, error)
}

// ObjectModel detects objects on a full frame.
type ObjectModel interface {
	Detect(ctx context.Context, frame model.Frame) ([]model.ObjectDetection, error)
}

// Oracle verifies the face in a frame against the enrolled student.
type Oracle interface {
	Verify(ctx context.Context, frame model.Frame) (model.IdentityOutcome, error)
}

// Facial landmark indices, following the MediaPipe FaceMesh topology the
// landmark models in use emit. Part of the FaceMesh contract: implementers
// must place keypoints at these positions.
const (
	LandmarkNoseTip        = 1
	LandmarkLeftEyeOuter   = 33
	LandmarkLeftEyeBottom  = 145
	LandmarkChin           = 152
	LandmarkLeftEyeTop     = 159
	LandmarkLeftEyeInner   = 133
	LandmarkLeftCheek      = 234
	LandmarkRightEyeOuter  = 263
	LandmarkRightEyeInner  = 362
	LandmarkRightEyeBottom = 374
	LandmarkRightEyeTop    = 386
	LandmarkRightCheek     = 454
	LandmarkLeftIris       = 468
	LandmarkRightIris      = 473

	// MeshPointCount is the minimum landmark count a usable set must have.
	MeshPointCount = 478
)

// Skip reasons recorded in metrics.
const (
	skipNoFrame      = "frame_not_readable"
	skipNoFace       = "no_face"
	skipShortMesh    = "incomplete_landmarks"
	skipModelMissing = "model_unavailable"
)

// reportDisabledOnce emits the one-time informational event for a detector
// whose model failed to load, so missing coverage stays auditable.
func reportDisabledOnce(ctx context.Context, sink Sink, name string, reported *bool) {
	metrics.RecordDetectorSkip(name, skipModelMissing)
	if *reported {
		return
	}
	*reported = true
	sink.Report(ctx, model.CategoryDetectorDisabled, name+" detector disabled: model unavailable", nil)
}

// CachedMesh memoizes one landmark pass per frame so detectors sharing a
// cadence (gaze and liveness) reuse a single model inference.
type CachedMesh struct {
	inner FaceMesh

	mu     sync.Mutex
	stamp  time.Time
	sets   []model.LandmarkSet
	cached bool
}

// NewCachedMesh wraps a FaceMesh with per-frame memoization.
func NewCachedMesh(inner FaceMesh) *CachedMesh {
	return &CachedMesh{inner: inner}
}

// Detect returns the cached landmark sets when called again for the same
// frame timestamp, otherwise delegates to the wrapped model.
func (c *CachedMesh) Detect(ctx context.Context, frame model.Frame) ([]model.LandmarkSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached && frame.CapturedAt.Equal(c.stamp) {
		return c.sets, nil
	}

	sets, err := c.inner.Detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	c.stamp = frame.CapturedAt
	c.sets = sets
	c.cached = true
	return sets, nil
}
