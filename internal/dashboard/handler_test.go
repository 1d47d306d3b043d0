package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicai/gateway/internal/demo"
	"github.com/clinicai/gateway/internal/observability/metrics"
)

func newTestHandler(t *testing.T, secret string) (*Handler, *Poller) {
	t.Helper()
	src := &fakeSource{stats: demo.StatsSnapshot{TodayAppointments: 4}}
	poller := NewPoller(src)
	gate := NewGate(secret, NewMemoryUnlockStore())
	return NewHandler(gate, poller, prometheus.NewRegistry(), nil), poller
}

func TestHandleUnlock(t *testing.T) {
	h, _ := newTestHandler(t, "letmein")

	rec := httptest.NewRecorder()
	h.HandleUnlock(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard/unlock",
		strings.NewReader(`{"session_id":"s1","access_code":"letmein"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unlocked":true`)

	rec = httptest.NewRecorder()
	h.HandleUnlock(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard/unlock",
		strings.NewReader(`{"session_id":"s2","access_code":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect access code.")

	rec = httptest.NewRecorder()
	h.HandleUnlock(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard/unlock",
		strings.NewReader(`{"access_code":"letmein"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUnlockUnconfigured(t *testing.T) {
	h, _ := newTestHandler(t, "")

	rec := httptest.NewRecorder()
	h.HandleUnlock(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard/unlock",
		strings.NewReader(`{"session_id":"s1","access_code":"anything"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
}

func TestHandleStatus(t *testing.T) {
	h, _ := newTestHandler(t, "letmein")

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/status", nil)
	req.Header.Set(SessionHeader, "s1")
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unlocked":false`)

	require.NoError(t, h.gate.Unlock(context.Background(), "s1", "letmein"))

	rec = httptest.NewRecorder()
	h.HandleStatus(rec, req)
	assert.Contains(t, rec.Body.String(), `"unlocked":true`)
}

func TestRequireUnlocked(t *testing.T) {
	h, _ := newTestHandler(t, "letmein")
	protected := h.RequireUnlocked(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set(SessionHeader, "s1")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, h.gate.Unlock(context.Background(), "s1", "letmein"))

	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Session may also ride the query string.
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?session=s1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleSnapshotServesAndTouches(t *testing.T) {
	h, poller := newTestHandler(t, "letmein")
	poller.Refresh(context.Background())

	before := poller.lastTouch
	time.Sleep(time.Millisecond)

	rec := httptest.NewRecorder()
	h.HandleSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 4, snap.Stats.TodayAppointments)

	assert.True(t, poller.lastTouch.After(before))
}

func TestHandleLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewGatewayMetrics(reg)
	for i := 0; i < 20; i++ {
		m.ObserveWebhookRequest("chat", "200", 0.15)
	}
	m.ObserveWebhookRequest("dashboard/stats", "200", 2.0)

	src := &fakeSource{}
	h := NewHandler(NewGate("x", NewMemoryUnlockStore()), NewPoller(src), reg, nil)

	rec := httptest.NewRecorder()
	h.HandleLatency(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/latency", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap LatencySnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(21), snap.Total)
	assert.Greater(t, snap.P95Ms, 0.0)
	assert.NotEmpty(t, snap.Buckets)

	// Endpoint filter narrows the sample set.
	rec = httptest.NewRecorder()
	h.HandleLatency(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/latency?endpoint=chat", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(20), snap.Total)
}
