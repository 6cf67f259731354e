// Package session owns the exam session lifecycle: the phase machine,
// the detector pool it starts and stops, and the routing of raw
// violation signals through escalation to the audit reporter.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/adapters/audit"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/browser"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/capture"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/detector"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/escalate"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/scheduler"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/logger"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/metrics"
)

// DetectorFactory builds a fresh detector set for one Active entry.
// Called on every activation so no detector state survives across it.
type DetectorFactory func(sink detector.Sink) []scheduler.Task

// Hooks are the lifecycle callbacks the surrounding UI subscribes to.
// Nil members are skipped. Callbacks run on the goroutine that caused
// the transition and must not block.
type Hooks struct {
	OnVerified  func()
	OnActive    func()
	OnWarning   func(category model.ViolationCategory, count int)
	OnTerminate func(reason string)
}

// Status is a point-in-time snapshot of the session for the UI.
type Status struct {
	Phase      string                          `json:"phase"`
	Warnings   map[model.ViolationCategory]int `json:"warnings"`
	Fullscreen bool                            `json:"fullscreen"`
	Blocked    bool                            `json:"blocked"`
	RemainingS int                             `json:"remaining_seconds,omitempty"`
}

// Service is the session controller. It implements detector.Sink so the
// detector pool and browser monitor feed their raw signals into it.
type Service struct {
	source    capture.Source
	oracle    detector.Oracle
	reporter  audit.Reporter
	factory   DetectorFactory
	escalator escalate.Escalator
	browser   *browser.Monitor

	mu         sync.Mutex
	phase      model.SessionPhase
	generation uint64
	pool       *scheduler.Pool
	examTimer  *time.Timer
	deadline   time.Time

	examDuration time.Duration
	hooks        Hooks

	logger logger.Logger
}

// New constructs a session controller in the Unverified phase.
func New(source capture.Source, oracle detector.Oracle, reporter audit.Reporter, factory DetectorFactory, opts ...Option) *Service {
	s := &Service{
		source:   source,
		oracle:   oracle,
		reporter: reporter,
		factory:  factory,
		phase:    model.PhaseUnverified,
		logger:   logger.Get().Named("session"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.escalator == nil {
		s.escalator = escalate.New()
	}
	s.browser = browser.NewMonitor(s)

	metrics.UpdateSessionPhase(int(model.PhaseUnverified))

	return s
}

// Browser returns the browser-state monitor so the transport layer can
// feed page events into it.
func (s *Service) Browser() *browser.Monitor { return s.browser }

// Phase returns the current session phase.
func (s *Service) Phase() model.SessionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Status returns a snapshot for the UI.
func (s *Service) Status(ctx context.Context) Status {
	s.mu.Lock()
	phase := s.phase
	deadline := s.deadline
	s.mu.Unlock()

	st := Status{
		Phase:      phase.String(),
		Warnings:   s.escalator.Counts(),
		Fullscreen: s.browser.Fullscreen(),
		Blocked:    s.browser.Blocked(),
	}
	if phase == model.PhaseActive && !deadline.IsZero() {
		if left := time.Until(deadline); left > 0 {
			st.RemainingS = int(left.Seconds())
		}
	}
	return st
}

// Verify checks the student's face against the enrollment snapshot and
// moves Unverified to Verified on a positive match.
func (s *Service) Verify(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != model.PhaseUnverified {
		s.mu.Unlock()
		return fmt.Errorf("%w: verify in phase %s", ErrWrongPhase, s.phase)
	}
	s.mu.Unlock()

	if s.oracle == nil {
		return ErrOracleUnavailable
	}

	frame, err := s.source.Sample(ctx)
	if err != nil {
		return fmt.Errorf("no frame for verification: %w", err)
	}

	outcome, err := s.oracle.Verify(ctx, frame)
	if err != nil {
		return fmt.Errorf("verification call failed: %w", err)
	}
	metrics.RecordIdentityCheck(outcome.String())
	if outcome != model.IdentityMatch {
		return fmt.Errorf("%w: oracle answered %s", ErrIdentityNotConfirmed, outcome)
	}

	s.mu.Lock()
	if s.phase != model.PhaseUnverified {
		s.mu.Unlock()
		return fmt.Errorf("%w: verify in phase %s", ErrWrongPhase, s.phase)
	}
	s.phase = model.PhaseVerified
	s.generation++
	s.mu.Unlock()

	metrics.UpdateSessionPhase(int(model.PhaseVerified))
	s.logger.Info(ctx, "identity verified")
	if s.hooks.OnVerified != nil {
		s.hooks.OnVerified()
	}
	return nil
}

// Activate moves Verified to Active. It requires the exam page to be
// fullscreen; on refusal the student stays Verified and may retry.
// Activation zeroes every warning counter, builds a fresh detector set
// and starts the pool and the exam timer.
func (s *Service) Activate(ctx context.Context) error {
	if !s.browser.Fullscreen() {
		return ErrNotFullscreen
	}

	s.mu.Lock()
	if s.phase != model.PhaseVerified {
		s.mu.Unlock()
		return fmt.Errorf("%w: activate in phase %s", ErrWrongPhase, s.phase)
	}

	s.phase = model.PhaseActive
	s.generation++
	gen := s.generation

	s.escalator.Reset(ctx)

	bound := &boundSink{svc: s, gen: gen}
	s.pool = scheduler.NewPool(s.factory(bound)...)
	s.pool.Start(context.WithoutCancel(ctx))

	if s.examDuration > 0 {
		s.deadline = time.Now().Add(s.examDuration)
		s.examTimer = time.AfterFunc(s.examDuration, func() {
			s.end(context.Background(), "time_limit", "exam time limit reached")
		})
	}
	s.mu.Unlock()

	metrics.UpdateSessionPhase(int(model.PhaseActive))
	metrics.UpdateActiveSessions(1)
	s.logger.Info(ctx, "session active", logger.Int64("generation", int64(gen)))
	if s.hooks.OnActive != nil {
		s.hooks.OnActive()
	}
	return nil
}

// Submit performs the student-requested submission. Only an Active
// exam can be submitted; termination by escalation and by the exam
// timer share the same teardown.
func (s *Service) Submit(ctx context.Context, reason string) error {
	if reason == "" {
		reason = "submitted by student"
	}
	if !s.beginEnd() {
		return fmt.Errorf("%w: submit in phase %s", ErrWrongPhase, s.Phase())
	}
	s.finishEnd(ctx, "manual_submission", reason)
	return nil
}

// Report implements detector.Sink for the browser monitor. Signals
// arriving outside Active are dropped.
func (s *Service) Report(ctx context.Context, category model.ViolationCategory, message string, snapshot []byte) bool {
	return s.record(ctx, category, message, snapshot)
}

// Terminate implements detector.Sink for the browser monitor.
func (s *Service) Terminate(ctx context.Context, cause model.ViolationCategory, message string) {
	s.forceEnd(ctx, string(cause), message)
}

// record routes one raw signal through escalation. The warning counter
// update happens before the event reaches the reporter.
func (s *Service) record(ctx context.Context, category model.ViolationCategory, message string, snapshot []byte) bool {
	s.mu.Lock()
	if s.phase != model.PhaseActive {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	decision := s.escalator.Record(ctx, category)

	// The phase may have flipped while Record ran; a decision made
	// against a session that has since ended emits nothing.
	s.mu.Lock()
	ended := s.phase != model.PhaseActive
	s.mu.Unlock()
	if ended {
		return false
	}

	if decision.Emitted {
		metrics.RecordViolation(string(category))
		event := model.NewViolationEvent(category, message, snapshot)
		s.reporter.Submit(ctx, event)
		s.logger.Warn(ctx, "violation recorded",
			logger.String("category", string(category)),
			logger.Int("count", decision.Count),
			logger.Int("limit", decision.Limit),
		)
		if !category.Informational() && s.hooks.OnWarning != nil {
			s.hooks.OnWarning(category, decision.Count)
		}
	}

	if decision.Terminate {
		s.forceEnd(ctx, string(category),
			fmt.Sprintf("%s warnings reached the limit (%d/%d)", category, decision.Count, decision.Limit))
	}
	return decision.Terminate
}

// forceEnd tears the session down off the calling goroutine. Detector
// ticks land here, and the pool cannot be stopped from inside one of
// its own ticks; flipping the phase first already guarantees no further
// event is emitted.
func (s *Service) forceEnd(ctx context.Context, cause, message string) {
	if !s.beginEnd() {
		return
	}
	go s.finishEnd(context.WithoutCancel(ctx), cause, message)
}

// end is the synchronous teardown used by the exam timer.
func (s *Service) end(ctx context.Context, cause, message string) {
	if !s.beginEnd() {
		return
	}
	s.finishEnd(ctx, cause, message)
}

// beginEnd flips Active to Submitted exactly once. Submitted is only
// reachable from Active; after this returns true the phase guard in
// record drops every late signal, including ticks already in flight.
func (s *Service) beginEnd() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseActive {
		return false
	}
	s.phase = model.PhaseSubmitted
	s.generation++
	return true
}

// finishEnd stops the pool and timer, signals fullscreen exit and
// flushes the final audit event. Runs exactly once per session.
func (s *Service) finishEnd(ctx context.Context, cause, message string) {
	s.mu.Lock()
	pool := s.pool
	timer := s.examTimer
	s.pool = nil
	s.examTimer = nil
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if pool != nil {
		pool.Stop()
	}

	metrics.UpdateSessionPhase(int(model.PhaseSubmitted))
	metrics.UpdateActiveSessions(0)
	metrics.RecordTermination(cause)

	final := model.NewViolationEvent(model.CategoryExamTerminated,
		fmt.Sprintf("session ended: %s", message), nil)
	s.reporter.Submit(ctx, final)

	s.logger.Info(ctx, "session ended",
		logger.String("cause", cause),
		logger.String("message", message),
	)
	if s.hooks.OnTerminate != nil {
		s.hooks.OnTerminate(message)
	}
}

// boundSink ties detector signals to one Active generation. A detector
// tick that outlives its activation delivers into a stale sink and is
// dropped.
type boundSink struct {
	svc *Service
	gen uint64
}

func (b *boundSink) Report(ctx context.Context, category model.ViolationCategory, message string, snapshot []byte) bool {
	if b.stale() {
		return false
	}
	return b.svc.record(ctx, category, message, snapshot)
}

func (b *boundSink) Terminate(ctx context.Context, cause model.ViolationCategory, message string) {
	if b.stale() {
		return
	}
	b.svc.forceEnd(ctx, string(cause), message)
}

func (b *boundSink) stale() bool {
	b.svc.mu.Lock()
	defer b.svc.mu.Unlock()
	return b.svc.generation != b.gen
}
