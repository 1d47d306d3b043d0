// Package webhook posts gateway requests to the configured n8n-style
// workflow endpoint and normalizes whatever shape it answers with.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicai/gateway/internal/observability/metrics"
	"github.com/clinicai/gateway/pkg/logging"
)

// DefaultTimeout bounds a single webhook POST when the caller's context
// carries no earlier deadline.
const DefaultTimeout = 20 * time.Second

// maxErrorBody caps how much of an error response body is read back.
const maxErrorBody = 64 << 10

// ErrorKind classifies webhook failures per the gateway error taxonomy.
type ErrorKind int

const (
	// KindConfiguration covers a missing webhook URL and unreachable
	// endpoints (DNS failure, connection refused) — misconfiguration
	// rather than a transient network fault.
	KindConfiguration ErrorKind = iota
	KindNetwork
	KindTimeout
	KindHTTPStatus
)

// Error is a typed webhook failure. Status and Detail are set for
// KindHTTPStatus; Err carries the underlying cause when there is one.
type Error struct {
	Kind   ErrorKind
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("Webhook failed (%d): %s", e.Status, e.Detail)
	case KindTimeout:
		return fmt.Sprintf("Webhook request timed out: %s", e.Detail)
	case KindConfiguration:
		if e.Err == nil {
			return "Webhook is not configured: " + e.Detail
		}
		return fmt.Sprintf("Webhook endpoint unreachable (check the webhook URL): %v", e.Err)
	default:
		return fmt.Sprintf("Webhook request failed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Turn is one prior conversation entry forwarded for context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Payload is the webhook request body. Endpoint tags the logical operation
// ("chat", "dashboard/stats", "appointments/today", "dashboard/activity").
type Payload struct {
	Endpoint          string `json:"endpoint"`
	Agent             string `json:"agent,omitempty"`
	ClinicID          string `json:"clinicId,omitempty"`
	PreferredLanguage string `json:"preferredLanguage,omitempty"`
	Message           string `json:"message,omitempty"`
	Conversation      []Turn `json:"conversation,omitempty"`
}

// Client posts JSON payloads to a single webhook URL. One attempt per call,
// no retries — retry policy, if any, belongs to the caller.
type Client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.GatewayMetrics
	tracer     trace.Tracer
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics attaches gateway metrics.
func WithMetrics(m *metrics.GatewayMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a webhook client for url.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        strings.TrimSpace(url),
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		logger:     logging.Default(),
		tracer:     otel.Tracer("clinicai/webhook"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a webhook URL is set.
func (c *Client) Configured() bool { return c.url != "" }

// Post sends the payload and returns the decoded JSON reply, or the raw body
// string when the reply is not JSON. The request is bounded by the client
// timeout and the caller's context; whichever fires first aborts the single
// underlying request. Context cancellation is returned untouched so callers
// can drop it silently.
func (c *Client) Post(ctx context.Context, payload Payload) (any, error) {
	if !c.Configured() {
		return nil, &Error{Kind: KindConfiguration, Detail: "no webhook URL set"}
	}

	ctx, span := c.tracer.Start(ctx, "webhook.post",
		trace.WithAttributes(attribute.String("webhook.endpoint", payload.Endpoint)))
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("webhook: marshal payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		werr := c.classifyTransport(ctx, reqCtx, err)
		c.observe(payload.Endpoint, "transport_error", start)
		span.RecordError(werr)
		return nil, werr
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := c.errorDetail(resp)
		c.observe(payload.Endpoint, fmt.Sprintf("http_%d", resp.StatusCode), start)
		c.logger.Warn("webhook returned error status",
			"endpoint", payload.Endpoint,
			"status", resp.StatusCode,
		)
		return nil, &Error{Kind: KindHTTPStatus, Status: resp.StatusCode, Detail: detail}
	}

	raw, err := decodeReply(resp)
	if err != nil {
		c.observe(payload.Endpoint, "read_error", start)
		return nil, &Error{Kind: KindNetwork, Err: err}
	}

	c.observe(payload.Endpoint, "ok", start)
	return raw, nil
}

func (c *Client) observe(endpoint, status string, start time.Time) {
	c.metrics.ObserveWebhookRequest(endpoint, status, time.Since(start).Seconds())
}

// classifyTransport sorts a transport failure into the error taxonomy.
// The caller cancelling is not a failure and passes through untouched.
func (c *Client) classifyTransport(parent, reqCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if reqCtx.Err() == context.DeadlineExceeded {
		return &Error{
			Kind:   KindTimeout,
			Detail: fmt.Sprintf("no reply within %s", c.timeout),
			Err:    err,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Kind: KindConfiguration, Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}

// errorDetail extracts best-effort error text from a non-2xx body: JSON is
// run through the normalizer first, then the raw text, then the status line.
func (c *Client) errorDetail(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	text := strings.TrimSpace(string(body))

	var raw any
	if json.Unmarshal(body, &raw) == nil {
		if normalized := Normalize(raw); normalized.Response != FallbackResponse {
			return normalized.Response
		}
	}
	if text != "" {
		return text
	}
	return resp.Status
}

// decodeReply parses a 2xx body. Some n8n workflows answer with plain text;
// try JSON first and fall back to the raw string.
func decodeReply(resp *http.Response) (any, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webhook: read response: %w", err)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err == nil {
		return raw, nil
	}
	// Not JSON after all: hand the raw text to the normalizer.
	return string(body), nil
}
