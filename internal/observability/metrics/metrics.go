package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookLatencyMetricName is the histogram the dashboard latency snapshot
// reads back from the registry.
const WebhookLatencyMetricName = "clinicai_webhook_request_latency_seconds"

// GatewayMetrics exposes counters/histograms for the webhook, chat and
// dashboard-poll flows.
type GatewayMetrics struct {
	webhookRequests *prometheus.CounterVec
	webhookLatency  *prometheus.HistogramVec
	chatMessages    *prometheus.CounterVec
	pollCycles      *prometheus.CounterVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		webhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicai",
			Subsystem: "webhook",
			Name:      "requests_total",
			Help:      "Total webhook POSTs by logical endpoint and outcome",
		}, []string{"endpoint", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicai",
			Subsystem: "webhook",
			Name:      "request_latency_seconds",
			Help:      "Latency of webhook POSTs",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		chatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicai",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Chat messages handled by mode (webhook/demo) and outcome",
		}, []string{"mode", "outcome"}),
		pollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicai",
			Subsystem: "dashboard",
			Name:      "poll_cycles_total",
			Help:      "Dashboard poll cycles by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.webhookRequests, m.webhookLatency, m.chatMessages, m.pollCycles)
	return m
}

func (m *GatewayMetrics) ObserveWebhookRequest(endpoint, status string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookRequests.WithLabelValues(endpoint, status).Inc()
	m.webhookLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *GatewayMetrics) ObserveChatMessage(mode, outcome string) {
	if m == nil {
		return
	}
	m.chatMessages.WithLabelValues(mode, outcome).Inc()
}

func (m *GatewayMetrics) ObservePollCycle(result string) {
	if m == nil {
		return
	}
	m.pollCycles.WithLabelValues(result).Inc()
}
