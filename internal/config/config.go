// Package config defines the proctoring agent configuration and loading
// hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment overrides on top.
// - External errors must be wrapped via this package's error helpers.
package config

// CategoryConfig tunes the escalation behavior of one violation
// category.
type CategoryConfig struct {
	// CooldownMS is the minimum time between consecutive emissions of
	// this category.
	CooldownMS int `koanf:"cooldown_ms"`

	// WarningLimit is the number of warnings that forces termination.
	WarningLimit int `koanf:"warning_limit"`
}

// DetectorConfig tunes one detector.
type DetectorConfig struct {
	// IntervalMS is the detector's sampling period.
	IntervalMS int `koanf:"interval_ms"`

	// ConfidenceFloor discards model detections under this confidence.
	ConfidenceFloor float64 `koanf:"confidence_floor"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// AuditURL is the institution's audit log endpoint. Empty disables
	// delivery; events are then retained locally only.
	AuditURL string `koanf:"audit_url"`

	// OracleURL is the face-match service endpoint.
	OracleURL string `koanf:"oracle_url"`

	// MeshURL and ObjectsURL are the vision sidecar endpoints for
	// facial landmarks and object detection. An empty endpoint leaves
	// the detectors that need it permanently disabled, which is
	// reported once as an informational event.
	MeshURL    string `koanf:"mesh_url"`
	ObjectsURL string `koanf:"objects_url"`

	// ExamDurationMinutes is the exam time limit. Zero disables the
	// timer.
	ExamDurationMinutes int `koanf:"exam_duration_minutes"`

	// FrameMaxAgeMS is how old the latest camera frame may be before
	// detectors treat the stream as not readable.
	FrameMaxAgeMS int `koanf:"frame_max_age_ms"`

	// ReportQueueSize bounds the in-memory audit delivery queue.
	ReportQueueSize int `koanf:"report_queue_size"`

	// AlertHistoryLimit caps the local alerts panel history.
	AlertHistoryLimit int `koanf:"alert_history_limit"`

	// Categories overrides escalation settings per violation category,
	// keyed by category name, e.g. "NO_FACE_DETECTED".
	Categories map[string]CategoryConfig `koanf:"categories"`

	// Detectors overrides settings per detector, keyed by detector
	// name: presence, gaze, liveness, depth, object, identity.
	Detectors map[string]DetectorConfig `koanf:"detectors"`

	// GazeAwaySeconds is how long the gaze may stay off-center before a
	// violation fires.
	GazeAwaySeconds int `koanf:"gaze_away_seconds"`

	// NoBlinkSeconds and NoMovementSeconds are the liveness staleness
	// thresholds.
	NoBlinkSeconds    int `koanf:"no_blink_seconds"`
	NoMovementSeconds int `koanf:"no_movement_seconds"`

	// DepthFlatnessThreshold is the depth variance under which a face
	// reads as a flat surface. Tuned empirically, not derived from a
	// calibration procedure; override per camera setup.
	DepthFlatnessThreshold float64 `koanf:"depth_flatness_threshold"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		ExamDurationMinutes: 0,
		FrameMaxAgeMS:       3_000,
		ReportQueueSize:     256,
		AlertHistoryLimit:   500,
		Categories: map[string]CategoryConfig{
			"NO_FACE_DETECTED": {CooldownMS: 5_000, WarningLimit: 5},
		},
		Detectors: map[string]DetectorConfig{
			"presence": {IntervalMS: 1_000},
			"gaze":     {IntervalMS: 2_000},
			"liveness": {IntervalMS: 2_000},
			"depth":    {IntervalMS: 5_000},
			"object":   {IntervalMS: 3_000, ConfidenceFloor: 0.6},
			"identity": {IntervalMS: 15_000},
		},
		GazeAwaySeconds:        10,
		NoBlinkSeconds:         20,
		NoMovementSeconds:      20,
		DepthFlatnessThreshold: 150,
	}
}
