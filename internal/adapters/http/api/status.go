// Package api declares HTTP contracts and route registration helpers.
package api

import "net/http"

// StatusHandler serves the session status snapshot.
type StatusHandler struct {
	sess Session
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(sess Session) *StatusHandler {
	return &StatusHandler{sess: sess}
}

// HandleGetStatus handles GET /status requests.
func (h *StatusHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.sess.Status(r.Context()))
}
