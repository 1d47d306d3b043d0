package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/clinicai/gateway/pkg/logging"
)

// SessionHeader carries the dashboard session identifier on API requests.
const SessionHeader = "X-Dashboard-Session"

// Handler serves the dashboard API: unlocking, the polled snapshot and the
// webhook latency summary.
type Handler struct {
	gate     *Gate
	poller   *Poller
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewHandler creates a dashboard HTTP handler.
func NewHandler(gate *Gate, poller *Poller, gatherer prometheus.Gatherer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{gate: gate, poller: poller, gatherer: gatherer, logger: logger}
}

// UnlockRequest is the access-code submission.
type UnlockRequest struct {
	SessionID  string `json:"session_id"`
	AccessCode string `json:"access_code"`
}

// HandleUnlock validates the access code and marks the session unlocked.
func (h *Handler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	err := h.gate.Unlock(r.Context(), req.SessionID, req.AccessCode)
	switch {
	case err == nil:
	case errors.Is(err, ErrCodeNotConfigured):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case errors.Is(err, ErrIncorrectCode):
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	default:
		h.logger.Error("dashboard: unlock failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"unlocked": true})
}

// HandleStatus reports whether the session has unlocked the dashboard.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	unlocked, err := h.gate.Unlocked(r.Context(), sessionID(r))
	if err != nil {
		h.logger.Error("dashboard: status check failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"unlocked": unlocked})
}

// HandleSnapshot serves the last polled dashboard state. Reading it counts
// as viewer activity and keeps the poller awake.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	h.poller.Touch()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.poller.Snapshot())
}

// HandleLatency serves the webhook latency summary, optionally filtered by
// the endpoint query parameter.
func (h *Handler) HandleLatency(w http.ResponseWriter, r *http.Request) {
	snap := SnapshotWebhookLatency(h.gatherer, r.URL.Query().Get("endpoint"))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

// RequireUnlocked rejects requests from sessions that have not unlocked the
// dashboard.
func (h *Handler) RequireUnlocked(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unlocked, err := h.gate.Unlocked(r.Context(), sessionID(r))
		if err != nil {
			h.logger.Error("dashboard: unlock check failed", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if !unlocked {
			http.Error(w, "dashboard is locked", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	return r.URL.Query().Get("session")
}
