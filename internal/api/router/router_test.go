package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicai/gateway/internal/chat"
	"github.com/clinicai/gateway/internal/clinics"
	"github.com/clinicai/gateway/internal/dashboard"
	"github.com/clinicai/gateway/internal/demo"
	"github.com/clinicai/gateway/internal/onboarding"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	provider := demo.NewProvider()
	registry := prometheus.NewRegistry()

	chatHandler := chat.NewHandler(chat.NewService(chat.NewDemoSender(provider)), nil)

	gate := dashboard.NewGate("letmein", dashboard.NewMemoryUnlockStore())
	poller := dashboard.NewPoller(dashboard.NewDemoSource(provider))
	poller.Refresh(context.Background())
	dashboardHandler := dashboard.NewHandler(gate, poller, registry, nil)

	finder := clinics.NewFinder(clinics.NewStaticDirectory())
	clinicsHandler := clinics.NewHandler(finder, nil)

	onboardingHandler := onboarding.NewHandler(
		onboarding.NewService(onboarding.NewMemoryStore(), provider, nil), nil)

	return New(&Config{
		ChatHandler:       chatHandler,
		DashboardHandler:  dashboardHandler,
		ClinicsHandler:    clinicsHandler,
		OnboardingHandler: onboardingHandler,
		MetricsHandler:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatMessageRoute(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"message": "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID string `json:"session_id"`
		Reply     struct {
			Role string `json:"role"`
			Text string `json:"text"`
		} `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "assistant", resp.Reply.Role)
	assert.NotEmpty(t, resp.Reply.Text)
}

func TestChatRateLimitApplied(t *testing.T) {
	provider := demo.NewProvider()
	chatHandler := chat.NewHandler(chat.NewService(chat.NewDemoSender(provider)), nil)
	r := New(&Config{
		ChatHandler:       chatHandler,
		ChatRatePerSecond: 1,
		ChatRateBurst:     1,
	})

	send := func() int {
		body, _ := json.Marshal(map[string]string{"message": "hi"})
		req := httptest.NewRequest(http.MethodPost, "/api/chat/message", bytes.NewReader(body))
		req.Header.Set("X-Real-Ip", "198.51.100.4")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestDashboardRequiresUnlock(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/snapshot", nil)
	req.Header.Set(dashboard.SessionHeader, "session-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	body, _ := json.Marshal(map[string]string{"session_id": "session-1", "access_code": "letmein"})
	unlockReq := httptest.NewRequest(http.MethodPost, "/api/dashboard/unlock", bytes.NewReader(body))
	unlockRec := httptest.NewRecorder()
	r.ServeHTTP(unlockRec, unlockReq)
	require.Equal(t, http.StatusOK, unlockRec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap dashboard.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.NotEmpty(t, snap.Appointments)
}

func TestClinicSearchRoute(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/clinics/search?query=dental&lat=40.71&lng=-74.0", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Midtown Dental Clinic")
}

func TestOnboardingDefaultsRoute(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/onboarding/defaults", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "General Checkups")
}
