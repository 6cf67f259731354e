// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/session"
)

// LifecycleHandler drives the session phase transitions.
type LifecycleHandler struct {
	sess Session
}

// NewLifecycleHandler creates a new lifecycle handler.
func NewLifecycleHandler(sess Session) *LifecycleHandler {
	return &LifecycleHandler{sess: sess}
}

// HandleVerify handles POST /verify requests.
func (h *LifecycleHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	if err := h.sess.Verify(r.Context()); err != nil {
		writeTransitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "verified", Phase: "verified"})
}

// HandleActivate handles POST /activate requests.
func (h *LifecycleHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	if err := h.sess.Activate(r.Context()); err != nil {
		writeTransitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "active", Phase: "active"})
}

// submitRequest is the optional POST /submit body.
type submitRequest struct {
	Reason string `json:"reason"`
}

// HandleSubmit handles POST /submit requests.
func (h *LifecycleHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	// The body is optional: an empty body submits without a reason, but a
	// malformed one is rejected.
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	if err := h.sess.Submit(r.Context(), req.Reason); err != nil {
		writeTransitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "submitted", Phase: "submitted"})
}

// writeTransitionError maps lifecycle errors onto HTTP statuses.
func writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrWrongPhase):
		writeError(w, http.StatusConflict, "wrong_phase", err)
	case errors.Is(err, session.ErrNotFullscreen):
		writeError(w, http.StatusPreconditionFailed, "not_fullscreen", err)
	case errors.Is(err, session.ErrIdentityNotConfirmed):
		writeError(w, http.StatusForbidden, "identity_not_confirmed", err)
	case errors.Is(err, session.ErrOracleUnavailable):
		writeError(w, http.StatusBadGateway, "oracle_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
