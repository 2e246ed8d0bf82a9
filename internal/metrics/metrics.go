package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Auth metrics
	authDecisions  *prometheus.CounterVec
	keyResolutions *prometheus.CounterVec

	// Stream metrics
	streamClients prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.authDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loxone_sse_auth_decisions_total",
			Help: "Authentication decisions by reason",
		},
		[]string{"reason", "allowed"},
	)
	r.keyResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loxone_sse_key_resolutions_total",
			Help: "API key resolutions by source and durability",
		},
		[]string{"source", "durable"},
	)
	r.streamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loxone_sse_stream_clients",
			Help: "Number of connected event-stream clients",
		},
	)

	reg.MustRegister(r.authDecisions)
	reg.MustRegister(r.keyResolutions)
	reg.MustRegister(r.streamClients)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordAuthDecision counts one gate decision.
func (r *Registry) RecordAuthDecision(reason string, allowed bool) {
	r.authDecisions.WithLabelValues(reason, strconv.FormatBool(allowed)).Inc()
}

// RecordKeyResolution counts a startup key resolution.
func (r *Registry) RecordKeyResolution(source string, durable bool) {
	r.keyResolutions.WithLabelValues(source, strconv.FormatBool(durable)).Inc()
}

// StreamOpened increments connected stream clients.
func (r *Registry) StreamOpened() {
	r.streamClients.Inc()
}

// StreamClosed decrements connected stream clients.
func (r *Registry) StreamClosed() {
	r.streamClients.Dec()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
