// Package metrics is the per-process metrics aggregator: a fixed set of
// Prometheus counters/histograms, using prometheus/client_golang's
// standard registration-at-construction idiom. The metrics are registered
// and served at /metrics; no request path increments or observes them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric the gateway emits. One Registry is
// constructed per process and passed down by constructor injection, the
// same pattern used for the logger and config.
type Registry struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec
	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec
	ContinuationRounds prometheus.Histogram
	reg              *prometheus.Registry
}

// New builds a Registry with all metrics registered against a fresh
// prometheus.Registry (never the global DefaultRegisterer, so tests can
// construct independent instances without collisions).
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total inbound /v1/messages requests by backend and outcome.",
		}, []string{"backend", "outcome"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Inbound request latency by backend.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend"}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_upstream_errors_total",
			Help: "Upstream errors by backend and status class (4xx/5xx/transport).",
		}, []string{"backend", "class"}),

		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_tool_calls_total",
			Help: "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),

		ToolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_tool_call_duration_seconds",
			Help:    "Tool execution latency by tool name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),

		ContinuationRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_continuation_rounds",
			Help:    "Number of upstream rounds per inbound request.",
			Buckets: []float64{1, 2, 3, 4, 5, 10},
		}),

		reg: reg,
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.UpstreamErrors,
		m.ToolCallsTotal,
		m.ToolCallDuration,
		m.ContinuationRounds,
	)

	return m
}

// Handler returns the /metrics HTTP exposition handler.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
