// Package chat orchestrates conversations between the browser surfaces and
// the webhook (or the demo provider when none is configured).
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicai/gateway/internal/demo"
	"github.com/clinicai/gateway/internal/observability/metrics"
	"github.com/clinicai/gateway/internal/webhook"
	"github.com/clinicai/gateway/pkg/logging"
)

// ErrBusy is returned when a send arrives while another is still in flight
// for the same conversation. The new send is dropped, nothing is appended.
var ErrBusy = errors.New("chat: request already in flight")

// ErrEmptyMessage is returned for blank input.
var ErrEmptyMessage = errors.New("chat: message is empty")

// SendRequest is the input to a Sender.
type SendRequest struct {
	Message           string
	PreferredLanguage string
	Conversation      []webhook.Turn
}

// Sender produces exactly one normalized reply for a chat message.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (webhook.Result, error)
	Mode() string
}

// WebhookSender forwards chat messages to the configured workflow webhook.
type WebhookSender struct {
	client   *webhook.Client
	clinicID string
}

// NewWebhookSender creates a sender posting to client with the given clinic id.
func NewWebhookSender(client *webhook.Client, clinicID string) *WebhookSender {
	return &WebhookSender{client: client, clinicID: clinicID}
}

func (s *WebhookSender) Mode() string { return "webhook" }

func (s *WebhookSender) Send(ctx context.Context, req SendRequest) (webhook.Result, error) {
	raw, err := s.client.Post(ctx, webhook.Payload{
		Endpoint:          "chat",
		Agent:             "YarnGPT",
		ClinicID:          s.clinicID,
		PreferredLanguage: req.PreferredLanguage,
		Message:           req.Message,
		Conversation:      req.Conversation,
	})
	if err != nil {
		return webhook.Result{}, err
	}

	normalized := webhook.Normalize(raw)
	if !normalized.Success {
		return normalized, errors.New(normalized.Response)
	}
	return normalized, nil
}

// DemoSender answers from the local demo provider.
type DemoSender struct {
	provider *demo.Provider
}

// NewDemoSender creates a sender backed by the demo provider.
func NewDemoSender(provider *demo.Provider) *DemoSender {
	return &DemoSender{provider: provider}
}

func (s *DemoSender) Mode() string { return "demo" }

func (s *DemoSender) Send(ctx context.Context, req SendRequest) (webhook.Result, error) {
	return s.provider.Chat(ctx, req.Message, req.PreferredLanguage)
}

// Service holds the per-session conversation logs and runs the send state
// machine: Idle -> Sending -> Idle, with every failure converted into a
// regular assistant bubble so chat errors never escalate past the UI.
type Service struct {
	sender  Sender
	window  int
	maxAge  time.Duration
	now     func() time.Time
	logger  *logging.Logger
	metrics *metrics.GatewayMetrics

	mu            sync.Mutex
	conversations map[string]*Conversation
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithWindow sets how many trailing messages are forwarded as context.
func WithWindow(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithMaxAge sets how long idle conversations are retained.
func WithMaxAge(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches gateway metrics.
func WithMetrics(m *metrics.GatewayMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a chat service on top of sender.
func NewService(sender Sender, opts ...ServiceOption) *Service {
	s := &Service{
		sender:        sender,
		window:        8,
		maxAge:        2 * time.Hour,
		now:           time.Now,
		logger:        logging.Default(),
		conversations: make(map[string]*Conversation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send appends the user message, forwards the trailing context window to the
// sender, and appends exactly one assistant message: the reply on success,
// or a user-visible error bubble on failure. Explicit cancellation is the
// only error that propagates; it leaves no assistant message behind.
func (s *Service) Send(ctx context.Context, sessionID, message, preferredLanguage string) (Message, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return Message{}, ErrEmptyMessage
	}

	conv := s.conversation(sessionID)
	if !conv.inFlight.CompareAndSwap(false, true) {
		return Message{}, ErrBusy
	}
	defer conv.inFlight.Store(false)

	// Context window is the log before this message, matching what the
	// widget forwarded.
	turns := conv.window(s.window)
	conv.append(Message{Role: RoleUser, Text: trimmed, Timestamp: s.now()})

	result, err := s.sender.Send(ctx, SendRequest{
		Message:           trimmed,
		PreferredLanguage: preferredLanguage,
		Conversation:      turns,
	})

	var reply Message
	switch {
	case err == nil:
		reply = Message{Role: RoleAssistant, Text: result.Response, Timestamp: s.now()}
		s.metrics.ObserveChatMessage(s.sender.Mode(), "ok")
	case errors.Is(err, context.Canceled):
		// The caller went away; drop silently.
		s.metrics.ObserveChatMessage(s.sender.Mode(), "canceled")
		return Message{}, err
	default:
		s.logger.Warn("chat send failed", "session_id", sessionID, "error", err)
		s.metrics.ObserveChatMessage(s.sender.Mode(), "error")
		reply = Message{
			Role:      RoleAssistant,
			Text:      fmt.Sprintf("Sorry — I couldn't reach YarnGPT right now. (%s)", err),
			Timestamp: s.now(),
		}
	}

	conv.append(reply)
	return reply, nil
}

// History returns the conversation log for a session, creating the session
// (with its greeting) if it does not exist yet.
func (s *Service) History(sessionID string) []Message {
	return s.conversation(sessionID).Messages()
}

// NewSessionID mints a session identifier for first-time visitors.
func (s *Service) NewSessionID() string {
	return uuid.NewString()
}

func (s *Service) conversation(sessionID string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()

	conv, ok := s.conversations[sessionID]
	if !ok {
		conv = newConversation(sessionID, s.now())
		s.conversations[sessionID] = conv
	}
	return conv
}

// pruneLocked drops conversations idle past maxAge. Callers hold s.mu.
func (s *Service) pruneLocked() {
	cutoff := s.now().Add(-s.maxAge)
	for id, conv := range s.conversations {
		if conv.idleSince().Before(cutoff) {
			delete(s.conversations, id)
		}
	}
}
