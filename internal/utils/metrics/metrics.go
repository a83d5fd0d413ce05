package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Generation metrics
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	PollAttemptsTotal  *prometheus.CounterVec
	PendingTasks       prometheus.Gauge

	// Upstream metrics
	UploadsTotal        *prometheus.CounterVec
	ProviderBreakerOpen *prometheus.GaugeVec
}

// New creates a new Metrics instance registered on the default registry.
func New(namespace string) *Metrics {
	return NewWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a new Metrics instance registered on reg.
func NewWithRegisterer(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "mediagen"
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "requests_total",
				Help:      "Total number of generation calls",
			},
			[]string{"provider", "kind", "status"}, // status: completed, queued, timeout, error
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "duration_seconds",
				Help:      "Generation call duration in seconds",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"provider", "kind"},
		),
		PollAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "poll_attempts_total",
				Help:      "Total number of status probes issued while polling",
			},
			[]string{"provider"},
		),
		PendingTasks: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "pending_tasks",
				Help:      "Number of stashed tasks awaiting resume or external polling",
			},
		),

		UploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upload",
				Name:      "requests_total",
				Help:      "Total number of reference media uploads",
			},
			[]string{"uploader", "status"},
		),
		ProviderBreakerOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "breaker_open",
				Help:      "Provider circuit breaker state (1=open, 0=closed)",
			},
			[]string{"provider"},
		),
	}
}

// --- Convenience methods ---

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := statusCodeToString(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// HTTPInFlight adjusts the in-flight request gauge.
func (m *Metrics) HTTPInFlight(delta float64) {
	m.HTTPRequestsInFlight.Add(delta)
}

// RecordGeneration records a generation call.
func (m *Metrics) RecordGeneration(provider, kind, status string, duration time.Duration) {
	m.GenerationsTotal.WithLabelValues(provider, kind, status).Inc()
	m.GenerationDuration.WithLabelValues(provider, kind).Observe(duration.Seconds())
}

// RecordPollAttempt records one status probe.
func (m *Metrics) RecordPollAttempt(provider string) {
	m.PollAttemptsTotal.WithLabelValues(provider).Inc()
}

// SetPendingTasks sets the number of stashed tasks.
func (m *Metrics) SetPendingTasks(n int) {
	m.PendingTasks.Set(float64(n))
}

// RecordUpload records a reference media upload.
func (m *Metrics) RecordUpload(uploader string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.UploadsTotal.WithLabelValues(uploader, status).Inc()
}

// SetBreakerOpen sets the circuit breaker state of a provider.
func (m *Metrics) SetBreakerOpen(provider string, open bool) {
	value := 0.0
	if open {
		value = 1.0
	}
	m.ProviderBreakerOpen.WithLabelValues(provider).Set(value)
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
