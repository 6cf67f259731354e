// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/session"
)

// Session is the lifecycle surface the handlers drive.
type Session interface {
	Status(ctx context.Context) session.Status
	Verify(ctx context.Context) error
	Activate(ctx context.Context) error
	Submit(ctx context.Context, reason string) error
}

// AlertStore exposes the locally retained violation events for the
// alerts panel.
type AlertStore interface {
	History(ctx context.Context) []model.ViolationEvent
}

// Server wires HTTP routes for the proctoring API.
type Server struct {
	healthHandler    *HealthHandler
	statusHandler    *StatusHandler
	alertsHandler    *AlertsHandler
	lifecycleHandler *LifecycleHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(sess Session, alerts AlertStore) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statusHandler:    NewStatusHandler(sess),
		alertsHandler:    NewAlertsHandler(alerts),
		lifecycleHandler: NewLifecycleHandler(sess),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/status", MetricsMiddleware(s.statusHandler.HandleGetStatus, "status"))
	mux.HandleFunc("/alerts", MetricsMiddleware(s.alertsHandler.HandleGetAlerts, "alerts"))
	mux.HandleFunc("/verify", MetricsMiddleware(s.lifecycleHandler.HandleVerify, "verify"))
	mux.HandleFunc("/activate", MetricsMiddleware(s.lifecycleHandler.HandleActivate, "activate"))
	mux.HandleFunc("/submit", MetricsMiddleware(s.lifecycleHandler.HandleSubmit, "submit"))
}

type ackResponse struct {
	Status string `json:"status"`
	Phase  string `json:"phase"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
