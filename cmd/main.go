package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/adapters/audit"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/adapters/http/api"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/adapters/http/site"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/adapters/http/swagger"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/adapters/inference"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/adapters/oracle"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/adapters/ws"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/capture"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/config"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/detector"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/escalate"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/scheduler"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/session"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// The frame source all detectors sample from; the bridge fills it.
	source := capture.NewLatestSource(
		capture.WithMaxAge(time.Duration(cfg.FrameMaxAgeMS) * time.Millisecond),
	)

	// Vision and identity services. Missing endpoints leave the
	// dependent detectors disabled rather than failing startup.
	var mesh detector.FaceMesh
	if mc := inference.NewMeshClient(cfg.MeshURL); mc != nil {
		mesh = detector.NewCachedMesh(mc)
	}
	var objects detector.ObjectModel
	if oc := inference.NewObjectClient(cfg.ObjectsURL); oc != nil {
		objects = oc
	}
	var faceOracle detector.Oracle
	if cfg.OracleURL != "" {
		faceOracle = oracle.NewClient(cfg.OracleURL)
	}

	reporter := audit.NewHTTPReporter(cfg.AuditURL,
		audit.WithQueueSize(cfg.ReportQueueSize),
		audit.WithHistoryLimit(cfg.AlertHistoryLimit),
	)
	defer func() { _ = reporter.Close() }()

	// The bridge is created after the session but referenced by its
	// hooks; the closures only run once both exist.
	var bridge *ws.Bridge

	svc := session.New(source, faceOracle, reporter, detectorFactory(cfg, source, mesh, objects, faceOracle),
		session.WithEscalator(escalate.New(escalatorOptions(cfg)...)),
		session.WithExamDuration(time.Duration(cfg.ExamDurationMinutes)*time.Minute),
		session.WithHooks(session.Hooks{
			OnWarning: func(category model.ViolationCategory, count int) {
				bridge.BroadcastWarning(category, count)
			},
			OnTerminate: func(reason string) {
				bridge.BroadcastTermination(reason)
			},
		}),
	)

	bridge = ws.NewBridge(source, svc.Browser())
	defer func() { _ = bridge.Close() }()

	// HTTP mux and routes.
	mux := http.NewServeMux()
	mux.Handle("/ws", bridge)
	api.NewServer(svc, reporter).Register(ctx, mux)
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		log.Info(ctx, "starting proctoring agent", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down agent...")

	// An exam still running at shutdown is submitted, not abandoned.
	_ = svc.Submit(context.Background(), "agent shutting down")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "agent stopped")
}

// detectorFactory returns the per-activation detector set builder. A
// fresh set is built on every Active entry so no detector state leaks
// between sessions.
func detectorFactory(cfg *config.Config, source capture.Source, mesh detector.FaceMesh, objects detector.ObjectModel, faceOracle detector.Oracle) session.DetectorFactory {
	interval := func(name string) time.Duration {
		return time.Duration(cfg.Detectors[name].IntervalMS) * time.Millisecond
	}

	return func(sink detector.Sink) []scheduler.Task {
		gazeAway := time.Duration(cfg.GazeAwaySeconds) * time.Second
		noBlink := time.Duration(cfg.NoBlinkSeconds) * time.Second
		noMovement := time.Duration(cfg.NoMovementSeconds) * time.Second

		return []scheduler.Task{
			detector.NewPresence(source, mesh, sink,
				detector.WithPresenceInterval(interval("presence")),
			),
			detector.NewGaze(source, mesh, sink,
				detector.WithGazeInterval(interval("gaze")),
				detector.WithGazeAwayThreshold(gazeAway),
			),
			detector.NewLiveness(source, mesh, sink,
				detector.WithLivenessInterval(interval("liveness")),
				detector.WithNoBlinkThreshold(noBlink),
				detector.WithNoMovementThreshold(noMovement),
			),
			detector.NewDepth(source, mesh, sink,
				detector.WithDepthInterval(interval("depth")),
				detector.WithFlatnessThreshold(cfg.DepthFlatnessThreshold),
			),
			detector.NewObject(source, objects, sink,
				detector.WithObjectInterval(interval("object")),
				detector.WithConfidenceFloor(cfg.Detectors["object"].ConfidenceFloor),
			),
			detector.NewIdentity(source, faceOracle, sink,
				detector.WithIdentityInterval(interval("identity")),
				detector.WithNoFaceLimit(cfg.Categories[string(model.CategoryNoFace)].WarningLimit),
			),
		}
	}
}

// escalatorOptions maps the per-category configuration onto escalator
// options.
func escalatorOptions(cfg *config.Config) []escalate.Option {
	var opts []escalate.Option
	for name, cat := range cfg.Categories {
		category := model.ViolationCategory(name)
		if cat.CooldownMS > 0 {
			opts = append(opts, escalate.WithCooldown(category, time.Duration(cat.CooldownMS)*time.Millisecond))
		}
		if cat.WarningLimit > 0 {
			opts = append(opts, escalate.WithWarningLimit(category, cat.WarningLimit))
		}
	}
	return opts
}
