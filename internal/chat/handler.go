package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/clinicai/gateway/pkg/logging"
)

// Handler exposes the chat service over HTTP for the widget and the full
// chat page.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// SendMessageRequest is what the chat surfaces post.
type SendMessageRequest struct {
	SessionID         string `json:"session_id"`
	Message           string `json:"message"`
	PreferredLanguage string `json:"preferred_language"`
}

// MessageView is a message as serialized to the browser.
type MessageView struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a chat HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// HandleMessage accepts one user message and responds with the assistant
// reply. A send that races an in-flight one for the same session gets 429
// and leaves the conversation untouched.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.SessionID == "" {
		req.SessionID = h.service.NewSessionID()
	}
	if req.PreferredLanguage == "" {
		req.PreferredLanguage = primaryAcceptLanguage(r)
	}

	reply, err := h.service.Send(r.Context(), req.SessionID, req.Message, req.PreferredLanguage)
	switch {
	case err == nil:
	case errors.Is(err, ErrEmptyMessage):
		http.Error(w, "Please enter a message.", http.StatusBadRequest)
		return
	case errors.Is(err, ErrBusy):
		http.Error(w, "a message is already being processed", http.StatusTooManyRequests)
		return
	case errors.Is(err, context.Canceled):
		// Client went away mid-request; nothing left to answer.
		return
	default:
		h.logger.Error("chat: send failed", "error", err)
		http.Error(w, "chat request failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": req.SessionID,
		"reply":      toView(reply),
	})
}

// HandleHistory returns the conversation log for a session, minting a new
// session (seeded with the greeting) when none is supplied.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = h.service.NewSessionID()
	}

	msgs := h.service.History(sessionID)
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, toView(m))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": sessionID,
		"messages":   views,
	})
}

func toView(m Message) MessageView {
	return MessageView{
		Role:      m.Role,
		Text:      m.Text,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
	}
}

// primaryAcceptLanguage extracts the first language tag from the
// Accept-Language header, e.g. "es-MX,es;q=0.9" -> "es-MX".
func primaryAcceptLanguage(r *http.Request) string {
	header := r.Header.Get("Accept-Language")
	if header == "" {
		return ""
	}
	first := strings.SplitN(header, ",", 2)[0]
	first = strings.SplitN(first, ";", 2)[0]
	return strings.TrimSpace(first)
}
