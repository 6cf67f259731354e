// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
)

// AlertsHandler serves the local alerts panel history.
type AlertsHandler struct {
	alerts AlertStore
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(alerts AlertStore) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

// alertsResponse is the GET /alerts payload.
type alertsResponse struct {
	Alerts []model.ViolationEvent `json:"alerts"`
}

// HandleGetAlerts handles GET /alerts requests. Events are returned
// oldest first; snapshots are included base64-encoded.
func (h *AlertsHandler) HandleGetAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	events := h.alerts.History(r.Context())
	if events == nil {
		events = []model.ViolationEvent{}
	}
	writeJSON(w, http.StatusOK, alertsResponse{Alerts: events})
}
