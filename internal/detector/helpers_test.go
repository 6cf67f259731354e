package detector_test

import (
	"context"
	"sync"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/capture"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/detector"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
)

// report captures one Sink.Report call.
type report struct {
	category model.ViolationCategory
	message  string
	snapshot []byte
}

// fakeSink records every signal a detector sends.
type fakeSink struct {
	mu         sync.Mutex
	reports    []report
	terminated bool
	cause      model.ViolationCategory
}

func (s *fakeSink) Report(ctx context.Context, category model.ViolationCategory, message string, snapshot []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report{category: category, message: message, snapshot: snapshot})
	return false
}

func (s *fakeSink) Terminate(ctx context.Context, cause model.ViolationCategory, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = true
	s.cause = cause
}

func (s *fakeSink) count(category model.ViolationCategory) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reports {
		if r.category == category {
			n++
		}
	}
	return n
}

// fakeMesh returns a fixed set of landmark sets.
type fakeMesh struct {
	sets  []model.LandmarkSet
	err   error
	calls int
}

func (m *fakeMesh) Detect(ctx context.Context, frame model.Frame) ([]model.LandmarkSet, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.sets, nil
}

// fakeObjects returns a fixed detection list.
type fakeObjects struct {
	detections []model.ObjectDetection
	err        error
}

func (o *fakeObjects) Detect(ctx context.Context, frame model.Frame) ([]model.ObjectDetection, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.detections, nil
}

// fakeOracle replays a scripted outcome sequence, repeating the last entry.
type fakeOracle struct {
	outcomes []model.IdentityOutcome
	i        int
	err      error
}

func (o *fakeOracle) Verify(ctx context.Context, frame model.Frame) (model.IdentityOutcome, error) {
	if o.err != nil {
		return 0, o.err
	}
	out := o.outcomes[o.i]
	if o.i < len(o.outcomes)-1 {
		o.i++
	}
	return out, nil
}

// testClock is a manually stepped time source.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// newTestSource returns a frame source pre-loaded with one frame that never
// goes stale within a test.
func newTestSource(clock *testClock) *capture.LatestSource {
	src := capture.NewLatestSource(
		capture.WithMaxAge(24*time.Hour),
		capture.WithClock(clock.now),
	)
	src.Publish(context.Background(), model.Frame{
		CapturedAt: clock.now(),
		Width:      640,
		Height:     480,
		JPEG:       []byte{0xff, 0xd8, 0xff},
	})
	return src
}

// centeredFace builds a landmark set for a live, centered, open-eyed face.
// Tests mutate copies of it to produce the condition under test.
func centeredFace() model.LandmarkSet {
	pts := make([]model.Landmark, detector.MeshPointCount)

	// Left eye: corners, lids, iris.
	pts[detector.LandmarkLeftEyeInner] = model.Landmark{X: 100, Y: 100}
	pts[detector.LandmarkLeftEyeOuter] = model.Landmark{X: 140, Y: 100}
	pts[detector.LandmarkLeftEyeTop] = model.Landmark{X: 120, Y: 95}
	pts[detector.LandmarkLeftEyeBottom] = model.Landmark{X: 120, Y: 105}
	pts[detector.LandmarkLeftIris] = model.Landmark{X: 120, Y: 100}

	// Right eye.
	pts[detector.LandmarkRightEyeInner] = model.Landmark{X: 180, Y: 100}
	pts[detector.LandmarkRightEyeOuter] = model.Landmark{X: 220, Y: 100}
	pts[detector.LandmarkRightEyeTop] = model.Landmark{X: 200, Y: 95}
	pts[detector.LandmarkRightEyeBottom] = model.Landmark{X: 200, Y: 105}
	pts[detector.LandmarkRightIris] = model.Landmark{X: 200, Y: 100}

	// Depth samples spread out enough to read as a 3-D face.
	pts[detector.LandmarkNoseTip] = model.Landmark{X: 160, Y: 130, Z: 30}
	pts[detector.LandmarkLeftEyeOuter].Z = -30
	pts[detector.LandmarkRightEyeOuter].Z = 15
	pts[detector.LandmarkLeftCheek] = model.Landmark{X: 110, Y: 150, Z: -15}
	pts[detector.LandmarkRightCheek] = model.Landmark{X: 210, Y: 150, Z: 0}
	pts[detector.LandmarkChin] = model.Landmark{X: 160, Y: 190, Z: 0}

	return model.LandmarkSet{
		Points: pts,
		Box:    model.BoundingBox{X: 90, Y: 70, Width: 140, Height: 140},
	}
}

// lookingLeft returns a face with both irises pushed to the inner corners.
func lookingLeft() model.LandmarkSet {
	lm := centeredFace()
	lm.Points[detector.LandmarkLeftIris].X = 101
	lm.Points[detector.LandmarkRightIris].X = 181
	return lm
}

// eyesClosed returns a face with both eyelids shut.
func eyesClosed() model.LandmarkSet {
	lm := centeredFace()
	lm.Points[detector.LandmarkLeftEyeTop].Y = 100
	lm.Points[detector.LandmarkLeftEyeBottom].Y = 100
	lm.Points[detector.LandmarkRightEyeTop].Y = 100
	lm.Points[detector.LandmarkRightEyeBottom].Y = 100
	return lm
}

// flatFace returns a face whose depth samples all sit on one plane.
func flatFace() model.LandmarkSet {
	lm := centeredFace()
	lm.Points[detector.LandmarkNoseTip].Z = 0
	lm.Points[detector.LandmarkLeftEyeOuter].Z = 0
	lm.Points[detector.LandmarkRightEyeOuter].Z = 0
	lm.Points[detector.LandmarkLeftCheek].Z = 0
	lm.Points[detector.LandmarkRightCheek].Z = 0
	lm.Points[detector.LandmarkChin].Z = 0
	return lm
}

// faceWithDepthSpread returns a face whose six depth samples are ±z around
// zero, giving an exact variance of z*z.
func faceWithDepthSpread(z float64) model.LandmarkSet {
	lm := centeredFace()
	lm.Points[detector.LandmarkNoseTip].Z = z
	lm.Points[detector.LandmarkLeftEyeOuter].Z = z
	lm.Points[detector.LandmarkRightEyeOuter].Z = z
	lm.Points[detector.LandmarkLeftCheek].Z = -z
	lm.Points[detector.LandmarkRightCheek].Z = -z
	lm.Points[detector.LandmarkChin].Z = -z
	return lm
}
