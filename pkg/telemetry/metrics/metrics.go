// Package metrics provides Prometheus instrumentation for the chat service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric exported by this service.
const Namespace = "parley"

// ChatMetrics tracks chat request processing.
//
// Metrics:
//   - parley_chat_requests_total: requests by delivery mode and outcome
//   - parley_chat_request_duration_seconds: request duration histogram
//   - parley_stream_fragments_total: fragments forwarded to clients
//   - parley_messages_persisted_total: persisted messages by role
//   - parley_upstream_retries_total: completion connect retries
//
// A nil *ChatMetrics is valid and records nothing, so instrumentation can be
// left unwired in tests.
type ChatMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fragmentsTotal  prometheus.Counter
	messagesTotal   *prometheus.CounterVec
	retriesTotal    prometheus.Counter
}

// NewChatMetrics creates and registers chat metrics with the registry.
func NewChatMetrics(registry *prometheus.Registry) *ChatMetrics {
	m := &ChatMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "chat_requests_total",
				Help:      "Total number of chat requests processed",
			},
			[]string{"mode", "outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "chat_request_duration_seconds",
				Help:      "Duration of chat requests in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),

		fragmentsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "stream_fragments_total",
				Help:      "Total number of stream fragments forwarded to clients",
			},
		),

		messagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "messages_persisted_total",
				Help:      "Total number of messages persisted by role",
			},
			[]string{"role"},
		),

		retriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "upstream_retries_total",
				Help:      "Total number of completion connect retries",
			},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.fragmentsTotal,
		m.messagesTotal,
		m.retriesTotal,
	)

	return m
}

// RecordRequest records one completed chat request.
// mode is "http" or "websocket"; outcome is "completed", "stream_error",
// or a request-error kind.
func (m *ChatMetrics) RecordRequest(mode, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(mode, outcome).Inc()
	m.requestDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordFragment records one fragment forwarded to a client.
func (m *ChatMetrics) RecordFragment() {
	if m == nil {
		return
	}
	m.fragmentsTotal.Inc()
}

// RecordMessage records one persisted message.
func (m *ChatMetrics) RecordMessage(role string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(role).Inc()
}

// RecordRetry records one completion connect retry.
func (m *ChatMetrics) RecordRetry() {
	if m == nil {
		return
	}
	m.retriesTotal.Inc()
}

// NewRegistry creates a registry pre-populated with the standard process
// and Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// Handler returns the HTTP handler exposing the registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
