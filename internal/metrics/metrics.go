// Package metrics exposes gateway counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is what the gateway components report to.
type Metrics interface {
	// RecordResolution counts a resolution by the step that produced it.
	RecordResolution(source string)
	RecordUsage(provider, model string, inputTokens, outputTokens int64, costKnown bool)
	RecordProviderCall(provider, status string, duration time.Duration)
	// RecordReply counts reply attempts by outcome (ok, bot_disabled, config_error, provider_error).
	RecordReply(outcome string)
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// Prometheus implements Metrics on a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	resolutions     *prometheus.CounterVec
	usageRecords    *prometheus.CounterVec
	tokens          *prometheus.CounterVec
	unpricedRecords *prometheus.CounterVec
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	replies         *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewPrometheus registers the gateway metrics plus Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_gateway_resolutions_total",
				Help: "Agent resolutions by the step that produced the effective agent",
			},
			[]string{"source"},
		),
		usageRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_gateway_usage_records_total",
				Help: "Usage records appended to the ledger",
			},
			[]string{"provider", "model"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_gateway_tokens_total",
				Help: "Tokens metered, by direction",
			},
			[]string{"provider", "model", "direction"},
		),
		unpricedRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_gateway_unpriced_usage_records_total",
				Help: "Usage records written without a catalog price",
			},
			[]string{"provider", "model"},
		),
		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_gateway_provider_calls_total",
				Help: "AI provider calls by outcome",
			},
			[]string{"provider", "status"},
		),
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_gateway_provider_call_duration_milliseconds",
				Help:    "AI provider call duration in milliseconds",
				Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000},
			},
			[]string{"provider"},
		),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_gateway_replies_total",
				Help: "Reply attempts by outcome",
			},
			[]string{"outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_gateway_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_gateway_http_request_duration_milliseconds",
				Help:    "HTTP request duration in milliseconds",
				Buckets: []float64{5, 10, 50, 100, 200, 500, 1000, 5000},
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.resolutions,
		m.usageRecords,
		m.tokens,
		m.unpricedRecords,
		m.providerCalls,
		m.providerLatency,
		m.replies,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Prometheus) RecordResolution(source string) {
	m.resolutions.WithLabelValues(source).Inc()
}

func (m *Prometheus) RecordUsage(provider, model string, inputTokens, outputTokens int64, costKnown bool) {
	m.usageRecords.WithLabelValues(provider, model).Inc()
	m.tokens.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	m.tokens.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	if !costKnown {
		m.unpricedRecords.WithLabelValues(provider, model).Inc()
	}
}

func (m *Prometheus) RecordProviderCall(provider, status string, duration time.Duration) {
	m.providerCalls.WithLabelValues(provider, status).Inc()
	m.providerLatency.WithLabelValues(provider).Observe(float64(duration.Milliseconds()))
}

func (m *Prometheus) RecordReply(outcome string) {
	m.replies.WithLabelValues(outcome).Inc()
}

func (m *Prometheus) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(float64(duration.Milliseconds()))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordResolution(string)                              {}
func (Noop) RecordUsage(string, string, int64, int64, bool)       {}
func (Noop) RecordProviderCall(string, string, time.Duration)     {}
func (Noop) RecordReply(string)                                   {}
func (Noop) RecordHTTPRequest(string, string, int, time.Duration) {}

var (
	_ Metrics = (*Prometheus)(nil)
	_ Metrics = Noop{}
)
