// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionPhase is the authoritative lifecycle state of an exam session.
type SessionPhase int

// Session phases. Transitions are strictly forward, except that Active may
// be force-transitioned to Submitted by the escalator.
const (
	PhaseUnverified SessionPhase = iota
	PhaseVerified
	PhaseActive
	PhaseSubmitted
)

// String returns a human-readable phase name.
func (p SessionPhase) String() string {
	switch p {
	case PhaseUnverified:
		return "unverified"
	case PhaseVerified:
		return "verified"
	case PhaseActive:
		return "active"
	case PhaseSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// ViolationCategory identifies one class of proctoring violation.
type ViolationCategory string

// Violation categories emitted by the detector pool and browser monitor.
const (
	CategoryMultipleFaces         ViolationCategory = "MULTIPLE_FACES"
	CategoryMultipleFacesResolved ViolationCategory = "MULTIPLE_FACES_RESOLVED"
	CategorySuspiciousEyeMovement ViolationCategory = "SUSPICIOUS_EYE_MOVEMENT"
	CategoryPhotoSpoofing         ViolationCategory = "PHOTO_SPOOFING_DETECTED"
	CategoryRecordedVideo         ViolationCategory = "USING_RECORDED_VIDEO"
	CategoryForbiddenObject       ViolationCategory = "FORBIDDEN_OBJECT_DETECTED"
	CategoryIdentityMismatch      ViolationCategory = "IDENTITY_MISMATCH"
	CategoryNoFace                ViolationCategory = "NO_FACE_DETECTED"
	CategoryTabSwitch             ViolationCategory = "TAB_SWITCH"
	CategoryFullscreenExited      ViolationCategory = "FULLSCREEN_EXITED"
	CategoryDetectorDisabled      ViolationCategory = "DETECTOR_DISABLED"
	CategoryExamTerminated        ViolationCategory = "EXAM_TERMINATED"
)

// Informational reports whether events of this category are audit-only and
// never count toward a warning limit.
func (c ViolationCategory) Informational() bool {
	switch c {
	case CategoryMultipleFacesResolved, CategoryDetectorDisabled, CategoryExamTerminated:
		return true
	default:
		return false
	}
}

// ViolationEvent is a single discrete violation. Immutable once constructed;
// produced by exactly one escalator instance and forwarded at most once to
// the reporter.
type ViolationEvent struct {
	ID         string            `json:"id"`
	Category   ViolationCategory `json:"category"`
	Message    string            `json:"message"`
	OccurredAt time.Time         `json:"occurred_at"`
	Snapshot   []byte            `json:"snapshot,omitempty"` // JPEG, optional
}

// NewViolationEvent constructs a violation event stamped with the current time.
func NewViolationEvent(category ViolationCategory, message string, snapshot []byte) ViolationEvent {
	return ViolationEvent{
		ID:         uuid.NewString(),
		Category:   category,
		Message:    message,
		OccurredAt: time.Now(),
		Snapshot:   snapshot,
	}
}

// GazeDirection is the discrete gaze classification for one frame.
type GazeDirection int

// Gaze directions.
const (
	GazeCenter GazeDirection = iota
	GazeLeft
	GazeRight
	GazeUp
	GazeDown
)

// String returns a human-readable direction name.
func (d GazeDirection) String() string {
	switch d {
	case GazeCenter:
		return "center"
	case GazeLeft:
		return "left"
	case GazeRight:
		return "right"
	case GazeUp:
		return "up"
	case GazeDown:
		return "down"
	default:
		return "unknown"
	}
}

// IdentityOutcome is the result of one identity oracle call.
type IdentityOutcome int

// Identity oracle outcomes.
const (
	IdentityMatch IdentityOutcome = iota
	IdentityMismatch
	IdentitySkipped // no usable face in the frame
)

// String returns a human-readable outcome name.
func (o IdentityOutcome) String() string {
	switch o {
	case IdentityMatch:
		return "match"
	case IdentityMismatch:
		return "mismatch"
	case IdentitySkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Frame is an ephemeral timestamped camera sample. It lives for one detector
// tick and is never persisted unless promoted to a violation snapshot.
type Frame struct {
	CapturedAt time.Time
	Width      int
	Height     int
	JPEG       []byte
}

// Landmark is one normalized 3-D facial keypoint.
type Landmark struct {
	X float64
	Y float64
	Z float64
}

// BoundingBox is an axis-aligned face bounding box in pixel coordinates.
type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the box centroid.
func (b BoundingBox) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// LandmarkSet is the per-frame output of the facial landmark model: an
// ordered list of keypoints plus the face bounding box. Owned exclusively
// by the tick that produced it.
type LandmarkSet struct {
	Points []Landmark
	Box    BoundingBox
}

// ObjectDetection is a single object-model detection on a frame.
type ObjectDetection struct {
	Class      string
	Confidence float64
}
