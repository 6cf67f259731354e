package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/browser"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/capture"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/detector"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/escalate"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/scheduler"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/session"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeReporter collects every event submitted for delivery.
type fakeReporter struct {
	mu     sync.Mutex
	events []model.ViolationEvent
}

func (r *fakeReporter) Submit(ctx context.Context, event model.ViolationEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return true
}

func (r *fakeReporter) History(ctx context.Context) []model.ViolationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ViolationEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *fakeReporter) Close() error { return nil }

func (r *fakeReporter) count(category model.ViolationCategory) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Category == category {
			n++
		}
	}
	return n
}

// fakeOracle answers with a fixed outcome.
type fakeOracle struct {
	outcome model.IdentityOutcome
	err     error
}

func (o *fakeOracle) Verify(ctx context.Context, frame model.Frame) (model.IdentityOutcome, error) {
	return o.outcome, o.err
}

// stepClock advances a fixed stride on every reading, so consecutive
// escalator records always clear the cooldown window.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(10 * time.Second)
	return c.t
}

// gatedEscalator parks Record between the phase guard and the emit so
// a test can change the session state while a signal is in flight.
type gatedEscalator struct {
	inner   escalate.Escalator
	entered chan struct{}
	release chan struct{}
}

func (g *gatedEscalator) Record(ctx context.Context, category model.ViolationCategory) escalate.Decision {
	g.entered <- struct{}{}
	<-g.release
	return g.inner.Record(ctx, category)
}

func (g *gatedEscalator) Count(category model.ViolationCategory) int { return g.inner.Count(category) }

func (g *gatedEscalator) Counts() map[model.ViolationCategory]int { return g.inner.Counts() }

func (g *gatedEscalator) Reset(ctx context.Context) { g.inner.Reset(ctx) }

func newSource() *capture.LatestSource {
	src := capture.NewLatestSource(capture.WithMaxAge(24 * time.Hour))
	src.Publish(context.Background(), model.Frame{JPEG: []byte{0xff, 0xd8, 0xff}})
	return src
}

func waitForPhase(svc *session.Service, want model.SessionPhase) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Phase() == want {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestService(t *testing.T) {
	Convey("Given a session controller", t, func() {
		ctx := context.Background()
		reporter := &fakeReporter{}
		oracle := &fakeOracle{outcome: model.IdentityMatch}

		var sink detector.Sink
		factory := func(s detector.Sink) []scheduler.Task {
			sink = s
			return nil
		}

		clock := &stepClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
		escalator := escalate.New(
			escalate.WithDefaultWarningLimit(3),
			escalate.WithClock(clock.now),
		)

		var (
			hookMu     sync.Mutex
			verified   bool
			activated  bool
			warnings   []model.ViolationCategory
			terminated string
		)
		hooks := session.Hooks{
			OnVerified: func() { hookMu.Lock(); verified = true; hookMu.Unlock() },
			OnActive:   func() { hookMu.Lock(); activated = true; hookMu.Unlock() },
			OnWarning: func(category model.ViolationCategory, count int) {
				hookMu.Lock()
				warnings = append(warnings, category)
				hookMu.Unlock()
			},
			OnTerminate: func(reason string) { hookMu.Lock(); terminated = reason; hookMu.Unlock() },
		}

		svc := session.New(newSource(), oracle, reporter, factory,
			session.WithEscalator(escalator),
			session.WithHooks(hooks),
		)

		enterFullscreen := func() {
			svc.Browser().Apply(ctx, browser.Event{Kind: browser.EventFullscreenEntered})
		}
		activate := func() {
			So(svc.Verify(ctx), ShouldBeNil)
			enterFullscreen()
			So(svc.Activate(ctx), ShouldBeNil)
		}

		Convey("When the student verifies successfully", func() {
			So(svc.Verify(ctx), ShouldBeNil)

			Convey("Then the phase is Verified and the hook fired", func() {
				So(svc.Phase(), ShouldEqual, model.PhaseVerified)
				hookMu.Lock()
				So(verified, ShouldBeTrue)
				hookMu.Unlock()
			})

			Convey("And verifying again is rejected", func() {
				So(svc.Verify(ctx), ShouldWrap, session.ErrWrongPhase)
			})
		})

		Convey("When the oracle does not confirm the identity", func() {
			oracle.outcome = model.IdentityMismatch
			err := svc.Verify(ctx)

			Convey("Then the student stays Unverified", func() {
				So(err, ShouldWrap, session.ErrIdentityNotConfirmed)
				So(svc.Phase(), ShouldEqual, model.PhaseUnverified)
			})
		})

		Convey("When activation is attempted outside fullscreen", func() {
			So(svc.Verify(ctx), ShouldBeNil)
			err := svc.Activate(ctx)

			Convey("Then the student stays Verified and may retry", func() {
				So(err, ShouldEqual, session.ErrNotFullscreen)
				So(svc.Phase(), ShouldEqual, model.PhaseVerified)

				enterFullscreen()
				So(svc.Activate(ctx), ShouldBeNil)
				So(svc.Phase(), ShouldEqual, model.PhaseActive)
			})
		})

		Convey("When activation is attempted before verification", func() {
			enterFullscreen()
			So(svc.Activate(ctx), ShouldWrap, session.ErrWrongPhase)
		})

		Convey("When the session is active", func() {
			activate()
			hookMu.Lock()
			So(activated, ShouldBeTrue)
			hookMu.Unlock()
			So(sink, ShouldNotBeNil)

			Convey("And a detector reports a violation", func() {
				terminate := sink.Report(ctx, model.CategoryMultipleFaces, "2 faces visible", nil)

				Convey("Then the event is delivered and the warning hook fired", func() {
					So(terminate, ShouldBeFalse)
					So(reporter.count(model.CategoryMultipleFaces), ShouldEqual, 1)
					hookMu.Lock()
					So(warnings, ShouldResemble, []model.ViolationCategory{model.CategoryMultipleFaces})
					hookMu.Unlock()
				})
			})

			Convey("And one category crosses its warning limit", func() {
				sink.Report(ctx, model.CategoryTabSwitch, "page hidden", nil)
				sink.Report(ctx, model.CategoryTabSwitch, "page hidden", nil)
				last := sink.Report(ctx, model.CategoryTabSwitch, "page hidden", nil)

				Convey("Then the session terminates", func() {
					So(last, ShouldBeTrue)
					So(waitForPhase(svc, model.PhaseSubmitted), ShouldBeTrue)
					So(reporter.count(model.CategoryExamTerminated), ShouldEqual, 1)
					hookMu.Lock()
					So(terminated, ShouldNotBeEmpty)
					hookMu.Unlock()
				})

				Convey("And signals arriving after the phase change are dropped", func() {
					So(waitForPhase(svc, model.PhaseSubmitted), ShouldBeTrue)
					before := reporter.count(model.CategoryMultipleFaces)
					So(sink.Report(ctx, model.CategoryMultipleFaces, "late tick", nil), ShouldBeFalse)
					So(reporter.count(model.CategoryMultipleFaces), ShouldEqual, before)
				})
			})

			Convey("And a detector forces immediate termination", func() {
				sink.Terminate(ctx, model.CategoryIdentityMismatch, "identity mismatch for 3 consecutive checks")

				Convey("Then the session is Submitted with one final event", func() {
					So(waitForPhase(svc, model.PhaseSubmitted), ShouldBeTrue)
					So(reporter.count(model.CategoryExamTerminated), ShouldEqual, 1)
				})
			})

			Convey("And the student submits manually", func() {
				So(svc.Submit(ctx, ""), ShouldBeNil)

				Convey("Then the teardown is immediate and emits one final event", func() {
					So(svc.Phase(), ShouldEqual, model.PhaseSubmitted)
					So(reporter.count(model.CategoryExamTerminated), ShouldEqual, 1)

					So(svc.Submit(ctx, "again"), ShouldWrap, session.ErrWrongPhase)
					So(reporter.count(model.CategoryExamTerminated), ShouldEqual, 1)
				})
			})

			Convey("And the status snapshot reflects the live state", func() {
				sink.Report(ctx, model.CategoryTabSwitch, "page hidden", nil)
				st := svc.Status(ctx)

				So(st.Phase, ShouldEqual, "active")
				So(st.Warnings[model.CategoryTabSwitch], ShouldEqual, 1)
				So(st.Fullscreen, ShouldBeTrue)
			})
		})

		Convey("When the exam timer expires", func() {
			timed := session.New(newSource(), oracle, reporter, factory,
				session.WithEscalator(escalator),
				session.WithExamDuration(30*time.Millisecond),
			)
			So(timed.Verify(ctx), ShouldBeNil)
			timed.Browser().Apply(ctx, browser.Event{Kind: browser.EventFullscreenEntered})
			So(timed.Activate(ctx), ShouldBeNil)

			Convey("Then the session submits itself", func() {
				So(waitForPhase(timed, model.PhaseSubmitted), ShouldBeTrue)
				So(reporter.count(model.CategoryExamTerminated), ShouldEqual, 1)
			})
		})

		Convey("When submission is attempted before the exam starts", func() {
			Convey("Then an Unverified session refuses it", func() {
				So(svc.Submit(ctx, "early"), ShouldWrap, session.ErrWrongPhase)
				So(svc.Phase(), ShouldEqual, model.PhaseUnverified)
				So(reporter.count(model.CategoryExamTerminated), ShouldEqual, 0)
			})

			Convey("Then a Verified session refuses it too", func() {
				So(svc.Verify(ctx), ShouldBeNil)
				So(svc.Submit(ctx, "early"), ShouldWrap, session.ErrWrongPhase)
				So(svc.Phase(), ShouldEqual, model.PhaseVerified)
				So(reporter.count(model.CategoryExamTerminated), ShouldEqual, 0)
			})
		})

		Convey("When a signal is still in flight as the student submits", func() {
			gated := &gatedEscalator{
				inner:   escalate.New(escalate.WithClock(clock.now)),
				entered: make(chan struct{}, 1),
				release: make(chan struct{}),
			}
			racy := session.New(newSource(), oracle, reporter, factory,
				session.WithEscalator(gated),
			)
			So(racy.Verify(ctx), ShouldBeNil)
			racy.Browser().Apply(ctx, browser.Event{Kind: browser.EventFullscreenEntered})
			So(racy.Activate(ctx), ShouldBeNil)

			emitted := make(chan bool, 1)
			go func() {
				emitted <- sink.Report(ctx, model.CategoryTabSwitch, "page hidden", nil)
			}()
			<-gated.entered

			So(racy.Submit(ctx, ""), ShouldBeNil)
			close(gated.release)

			Convey("Then the stale signal emits nothing after the teardown", func() {
				select {
				case ok := <-emitted:
					So(ok, ShouldBeFalse)
				case <-time.After(2 * time.Second):
					So("report never returned", ShouldBeEmpty)
				}
				So(reporter.count(model.CategoryTabSwitch), ShouldEqual, 0)
				So(reporter.count(model.CategoryExamTerminated), ShouldEqual, 1)
			})
		})

		Convey("When browser signals arrive before activation", func() {
			So(svc.Verify(ctx), ShouldBeNil)
			svc.Browser().Apply(ctx, browser.Event{Kind: browser.EventVisibilityHidden})

			Convey("Then they are dropped, not counted", func() {
				So(reporter.count(model.CategoryTabSwitch), ShouldEqual, 0)
			})
		})
	})
}
