package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal         *prometheus.CounterVec
	requestDuration       *prometheus.HistogramVec
	rateLimitRejections   *prometheus.CounterVec
	backendRequestsTotal  *prometheus.CounterVec
	backendDuration       *prometheus.HistogramVec
	promotionVerdicts     *prometheus.CounterVec
	panicsRecoveredTotal  prometheus.Counter
	authFailuresTotal     *prometheus.CounterVec
	inFlightRequests      prometheus.Gauge
}

// NewMetrics creates the gateway metrics on a dedicated registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled by the gateway",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		rateLimitRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_rejections_total",
				Help:      "Total number of requests rejected by rate limiting",
			},
			[]string{"tier"},
		),
		backendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_requests_total",
				Help:      "Total number of requests forwarded to the upstream backend",
			},
			[]string{"method", "status_class"},
		),
		backendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_request_duration_seconds",
				Help:      "Duration of upstream backend calls in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		promotionVerdicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "promotion_verdicts_total",
				Help:      "Total number of production promotion verdicts by outcome",
			},
			[]string{"allowed"},
		),
		panicsRecoveredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panics_recovered_total",
				Help:      "Total number of panics recovered by middleware",
			},
		),
		authFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Total number of authentication failures by reason",
			},
			[]string{"reason"},
		),
		inFlightRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.rateLimitRejections,
		m.backendRequestsTotal,
		m.backendDuration,
		m.promotionVerdicts,
		m.panicsRecoveredTotal,
		m.authFailuresTotal,
		m.inFlightRequests,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRateLimitRejection records a rate-limited request for the given tier.
func (m *Metrics) RecordRateLimitRejection(tier string) {
	m.rateLimitRejections.WithLabelValues(tier).Inc()
}

// RecordBackendRequest records an upstream backend call.
func (m *Metrics) RecordBackendRequest(method string, status int, duration time.Duration) {
	class := "error"
	switch {
	case status >= 200 && status < 300:
		class = "2xx"
	case status >= 300 && status < 400:
		class = "3xx"
	case status >= 400 && status < 500:
		class = "4xx"
	case status >= 500:
		class = "5xx"
	}
	m.backendRequestsTotal.WithLabelValues(method, class).Inc()
	m.backendDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordPromotionVerdict records a production promotion verdict outcome.
func (m *Metrics) RecordPromotionVerdict(allowed bool) {
	m.promotionVerdicts.WithLabelValues(strconv.FormatBool(allowed)).Inc()
}

// RecordPanicRecovered records a recovered panic.
func (m *Metrics) RecordPanicRecovered() {
	m.panicsRecoveredTotal.Inc()
}

// RecordAuthFailure records an authentication failure by reason.
func (m *Metrics) RecordAuthFailure(reason string) {
	m.authFailuresTotal.WithLabelValues(reason).Inc()
}

// IncInFlight increments the in-flight request gauge.
func (m *Metrics) IncInFlight() { m.inFlightRequests.Inc() }

// DecInFlight decrements the in-flight request gauge.
func (m *Metrics) DecInFlight() { m.inFlightRequests.Dec() }
