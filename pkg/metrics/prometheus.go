// Package metrics provides Prometheus metrics for the proctoring agent.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the agent.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Violation and escalation metrics
	violationsEmitted *prometheus.CounterVec
	warningCount      *prometheus.GaugeVec
	terminations      *prometheus.CounterVec

	// Detector metrics
	detectorTicks       *prometheus.CounterVec
	detectorSkips       *prometheus.CounterVec
	detectorErrors      *prometheus.CounterVec
	detectorTickLatency *prometheus.HistogramVec

	// Reporter metrics
	reportsSent      prometheus.Counter
	reportFailures   prometheus.Counter
	reportDrops      prometheus.Counter
	reportQueueDepth prometheus.Gauge

	// Session metrics
	sessionPhase    prometheus.Gauge
	activeSessions  prometheus.Gauge
	identityChecks  *prometheus.CounterVec
	framesReceived  prometheus.Counter
	browserBlocked  prometheus.Gauge
	wsConnections   prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry so the default Go collectors stay out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "proctor",
		subsystem:        "agent",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.violationsEmitted = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "violations_emitted_total",
			Help:      "Total number of violation events emitted by category",
		},
		[]string{"category"},
	)

	m.warningCount = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "warning_count",
			Help:      "Current warning counter per violation category",
		},
		[]string{"category"},
	)

	m.terminations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "terminations_total",
			Help:      "Total number of forced session terminations by cause",
		},
		[]string{"cause"},
	)

	m.detectorTicks = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "detector_ticks_total",
			Help:      "Total number of detector ticks executed by detector",
		},
		[]string{"detector"},
	)

	m.detectorSkips = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "detector_skips_total",
			Help:      "Total number of detector ticks skipped (frame not readable, model missing, in flight)",
		},
		[]string{"detector", "reason"},
	)

	m.detectorErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "detector_errors_total",
			Help:      "Total number of detector tick errors by detector",
		},
		[]string{"detector"},
	)

	m.detectorTickLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "detector_tick_latency_milliseconds",
			Help:      "Histogram of detector tick latency in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"detector"},
	)

	m.reportsSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reports_sent_total",
		Help:      "Total number of violation reports delivered to the audit sink",
	})

	m.reportFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_failures_total",
		Help:      "Total number of failed audit deliveries (swallowed, kept in local history)",
	})

	m.reportDrops = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_drops_total",
		Help:      "Total number of reports dropped due to a full outbound queue",
	})

	m.reportQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_queue_depth",
		Help:      "Current number of violation reports waiting for delivery",
	})

	m.sessionPhase = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_phase",
		Help:      "Current session phase (0=unverified 1=verified 2=active 3=submitted)",
	})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_sessions",
		Help:      "Number of sessions currently in the Active phase",
	})

	m.identityChecks = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "identity_checks_total",
			Help:      "Total number of identity oracle calls by outcome",
		},
		[]string{"outcome"},
	)

	m.framesReceived = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_received_total",
		Help:      "Total number of camera frames received from the browser bridge",
	})

	m.browserBlocked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "browser_blocked",
		Help:      "Whether the exam UI is currently blocked pending fullscreen re-entry (0/1)",
	})

	m.wsConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ws_connections",
		Help:      "Current number of open browser bridge connections",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// GetRegistry returns the registry backing the global manager for /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers operating on the global manager.

// RecordViolation increments the emitted-violation counter for a category.
func RecordViolation(category string) {
	globalManager.violationsEmitted.WithLabelValues(category).Inc()
}

// UpdateWarningCount sets the current warning counter for a category.
func UpdateWarningCount(category string, count int) {
	globalManager.warningCount.WithLabelValues(category).Set(float64(count))
}

// RecordTermination increments the termination counter for a cause.
func RecordTermination(cause string) {
	globalManager.terminations.WithLabelValues(cause).Inc()
}

// RecordDetectorTick increments the tick counter for a detector.
func RecordDetectorTick(detector string) {
	globalManager.detectorTicks.WithLabelValues(detector).Inc()
}

// RecordDetectorSkip increments the skip counter for a detector and reason.
func RecordDetectorSkip(detector, reason string) {
	globalManager.detectorSkips.WithLabelValues(detector, reason).Inc()
}

// RecordDetectorError increments the error counter for a detector.
func RecordDetectorError(detector string) {
	globalManager.detectorErrors.WithLabelValues(detector).Inc()
}

// RecordDetectorTickLatency observes a tick latency sample in milliseconds.
func RecordDetectorTickLatency(detector string, ms float64) {
	globalManager.detectorTickLatency.WithLabelValues(detector).Observe(ms)
}

// RecordReportSent increments the delivered-report counter.
func RecordReportSent() { globalManager.reportsSent.Inc() }

// RecordReportFailure increments the failed-delivery counter.
func RecordReportFailure() { globalManager.reportFailures.Inc() }

// RecordReportDrop increments the dropped-report counter.
func RecordReportDrop() { globalManager.reportDrops.Inc() }

// UpdateReportQueueDepth sets the pending-delivery gauge.
func UpdateReportQueueDepth(n int) { globalManager.reportQueueDepth.Set(float64(n)) }

// UpdateSessionPhase sets the session phase gauge.
func UpdateSessionPhase(phase int) { globalManager.sessionPhase.Set(float64(phase)) }

// UpdateActiveSessions sets the active session gauge.
func UpdateActiveSessions(n int) { globalManager.activeSessions.Set(float64(n)) }

// RecordIdentityCheck increments the identity-check counter for an outcome.
func RecordIdentityCheck(outcome string) {
	globalManager.identityChecks.WithLabelValues(outcome).Inc()
}

// RecordFrameReceived increments the received-frame counter.
func RecordFrameReceived() { globalManager.framesReceived.Inc() }

// UpdateBrowserBlocked sets the UI-blocked gauge.
func UpdateBrowserBlocked(blocked bool) {
	v := 0.0
	if blocked {
		v = 1.0
	}
	globalManager.browserBlocked.Set(v)
}

// UpdateWSConnections sets the open bridge connection gauge.
func UpdateWSConnections(n int) { globalManager.wsConnections.Set(float64(n)) }

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}
