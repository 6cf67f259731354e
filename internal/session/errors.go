package session

import "errors"

// Sentinel errors returned by lifecycle transitions.
var (
	// ErrWrongPhase is returned when a transition is requested from a
	// phase that does not allow it.
	ErrWrongPhase = errors.New("transition not allowed from current phase")

	// ErrNotFullscreen is returned by Activate while the exam page is
	// not fullscreen. The student stays Verified and may retry.
	ErrNotFullscreen = errors.New("exam page is not fullscreen")

	// ErrIdentityNotConfirmed is returned by Verify when the oracle did
	// not positively match the enrolled student.
	ErrIdentityNotConfirmed = errors.New("identity not confirmed")

	// ErrOracleUnavailable is returned by Verify when no face-match
	// oracle is configured.
	ErrOracleUnavailable = errors.New("face-match oracle unavailable")
)
