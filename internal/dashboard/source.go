// Package dashboard serves the clinic dashboard: polled stats, appointments
// and activity from the configured upstream, behind an access-code gate.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clinicai/gateway/internal/demo"
	"github.com/clinicai/gateway/internal/webhook"
)

// Source loads the three dashboard panels from an upstream.
type Source interface {
	Stats(ctx context.Context) (demo.StatsSnapshot, error)
	Appointments(ctx context.Context) ([]demo.Appointment, error)
	Activity(ctx context.Context) ([]demo.ActivityItem, error)
}

// Upstream failure defaults, used when the workflow reports success=false
// without a message.
const (
	errStatsDefault        = "Failed to load dashboard stats"
	errAppointmentsDefault = "Failed to load today's appointments"
	errActivityDefault     = "Failed to load recent activity"
)

// WebhookSource loads dashboard data by posting endpoint-selector payloads
// to the workflow webhook.
type WebhookSource struct {
	client *webhook.Client
}

// NewWebhookSource creates a webhook-backed dashboard source.
func NewWebhookSource(client *webhook.Client) *WebhookSource {
	return &WebhookSource{client: client}
}

func (s *WebhookSource) Stats(ctx context.Context) (demo.StatsSnapshot, error) {
	raw, err := s.client.Post(ctx, webhook.Payload{Endpoint: "dashboard/stats"})
	if err != nil {
		return demo.StatsSnapshot{}, err
	}
	return normalizeStats(raw)
}

func (s *WebhookSource) Appointments(ctx context.Context) ([]demo.Appointment, error) {
	raw, err := s.client.Post(ctx, webhook.Payload{Endpoint: "appointments/today"})
	if err != nil {
		return nil, err
	}
	var appts []demo.Appointment
	if err := normalizeList(raw, "appointments", errAppointmentsDefault, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

func (s *WebhookSource) Activity(ctx context.Context) ([]demo.ActivityItem, error) {
	raw, err := s.client.Post(ctx, webhook.Payload{Endpoint: "dashboard/activity"})
	if err != nil {
		return nil, err
	}
	var items []demo.ActivityItem
	if err := normalizeList(raw, "activity", errActivityDefault, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// normalizeStats accepts the shapes real workflows return: a {stats: {...}}
// envelope, the counters at the top level, or either of those nested under
// a "data" key.
func normalizeStats(raw any) (demo.StatsSnapshot, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return demo.StatsSnapshot{}, nil
	}
	if explicitFalse(obj["success"]) {
		return demo.StatsSnapshot{}, upstreamError(obj, errStatsDefault)
	}

	if stats, ok := obj["stats"].(map[string]any); ok {
		return decodeStats(stats)
	}
	if nested, ok := obj["data"].(map[string]any); ok {
		return normalizeStats(nested)
	}
	return decodeStats(obj)
}

func decodeStats(obj map[string]any) (demo.StatsSnapshot, error) {
	// Round-trip through JSON so numeric types and RFC3339 timestamps decode
	// uniformly regardless of how the workflow produced them.
	data, err := json.Marshal(obj)
	if err != nil {
		return demo.StatsSnapshot{}, fmt.Errorf("dashboard: marshal stats: %w", err)
	}

	var wire struct {
		TodayAppointments int    `json:"todayAppointments"`
		PendingInquiries  int    `json:"pendingInquiries"`
		ActivePatients    int    `json:"activePatients"`
		AIInteractions    int    `json:"aiInteractions"`
		UpdatedAt         string `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return demo.StatsSnapshot{}, fmt.Errorf("dashboard: decode stats: %w", err)
	}

	snap := demo.StatsSnapshot{
		TodayAppointments: wire.TodayAppointments,
		PendingInquiries:  wire.PendingInquiries,
		ActivePatients:    wire.ActivePatients,
		AIInteractions:    wire.AIInteractions,
	}
	if ts, err := time.Parse(time.RFC3339, wire.UpdatedAt); err == nil {
		snap.UpdatedAt = ts
	}
	return snap, nil
}

// normalizeList accepts {<key>: [...]}, {data: [...]} or {data: {<key>: [...]}}
// and decodes the located array into out. Unrecognized shapes decode to empty.
func normalizeList(raw any, key, errDefault string, out any) error {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	if explicitFalse(obj["success"]) {
		return upstreamError(obj, errDefault)
	}

	var list any
	switch {
	case isArray(obj[key]):
		list = obj[key]
	case isArray(obj["data"]):
		list = obj["data"]
	default:
		if nested, ok := obj["data"].(map[string]any); ok && isArray(nested[key]) {
			list = nested[key]
		}
	}
	if list == nil {
		return nil
	}

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("dashboard: marshal %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("dashboard: decode %s: %w", key, err)
	}
	return nil
}

func isArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

func explicitFalse(v any) bool {
	b, ok := v.(bool)
	return ok && !b
}

func upstreamError(obj map[string]any, fallback string) error {
	if msg, ok := obj["message"].(string); ok && msg != "" {
		return errors.New(msg)
	}
	return errors.New(fallback)
}

// RESTSource loads dashboard data with plain GETs against a REST base URL.
type RESTSource struct {
	baseURL    string
	httpClient *http.Client
}

// RESTOption configures a RESTSource.
type RESTOption func(*RESTSource)

// WithRESTHTTPClient replaces the HTTP client, mainly for tests.
func WithRESTHTTPClient(client *http.Client) RESTOption {
	return func(s *RESTSource) { s.httpClient = client }
}

// NewRESTSource creates a REST-backed dashboard source.
func NewRESTSource(baseURL string, opts ...RESTOption) *RESTSource {
	s := &RESTSource{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: webhook.DefaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RESTSource) Stats(ctx context.Context) (demo.StatsSnapshot, error) {
	var resp struct {
		Success *bool              `json:"success"`
		Message string             `json:"message"`
		Stats   demo.StatsSnapshot `json:"stats"`
	}
	if err := s.getJSON(ctx, "/dashboard/stats", &resp); err != nil {
		return demo.StatsSnapshot{}, err
	}
	if resp.Success != nil && !*resp.Success {
		return demo.StatsSnapshot{}, restError(resp.Message, errStatsDefault)
	}
	return resp.Stats, nil
}

func (s *RESTSource) Appointments(ctx context.Context) ([]demo.Appointment, error) {
	var resp struct {
		Success      *bool              `json:"success"`
		Message      string             `json:"message"`
		Appointments []demo.Appointment `json:"appointments"`
	}
	if err := s.getJSON(ctx, "/appointments/today", &resp); err != nil {
		return nil, err
	}
	if resp.Success != nil && !*resp.Success {
		return nil, restError(resp.Message, errAppointmentsDefault)
	}
	return resp.Appointments, nil
}

func (s *RESTSource) Activity(ctx context.Context) ([]demo.ActivityItem, error) {
	var resp struct {
		Success  *bool               `json:"success"`
		Message  string              `json:"message"`
		Activity []demo.ActivityItem `json:"activity"`
	}
	if err := s.getJSON(ctx, "/dashboard/activity", &resp); err != nil {
		return nil, err
	}
	if resp.Success != nil && !*resp.Success {
		return nil, restError(resp.Message, errActivityDefault)
	}
	return resp.Activity, nil
}

func restError(message, fallback string) error {
	if message != "" {
		return errors.New(message)
	}
	return errors.New(fallback)
}

func (s *RESTSource) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("dashboard: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dashboard: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		detail := string(body)
		if detail == "" {
			detail = resp.Status
		}
		return fmt.Errorf("Request failed (%d): %s", resp.StatusCode, detail)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("dashboard: decode %s: %w", path, err)
	}
	return nil
}

// DemoSource serves dashboard data from the local demo provider.
type DemoSource struct {
	provider *demo.Provider
}

// NewDemoSource creates a demo-backed dashboard source.
func NewDemoSource(provider *demo.Provider) *DemoSource {
	return &DemoSource{provider: provider}
}

func (s *DemoSource) Stats(ctx context.Context) (demo.StatsSnapshot, error) {
	return s.provider.DashboardStats(ctx)
}

func (s *DemoSource) Appointments(ctx context.Context) ([]demo.Appointment, error) {
	return s.provider.TodayAppointments(ctx)
}

func (s *DemoSource) Activity(ctx context.Context) ([]demo.ActivityItem, error) {
	return s.provider.RecentActivity(ctx)
}
