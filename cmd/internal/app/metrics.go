package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dalkak/cmd/internal/guard"
)

// Metrics holds the process-wide Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	RateLimited     prometheus.Counter
	CircuitState    prometheus.Gauge
	CircuitChanges  *prometheus.CounterVec
	NotifyDelivered prometheus.Counter
}

// NewMetrics builds and registers the collectors on a private registry, so
// tests can create as many instances as they like without panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dalkak",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status class.",
		}, []string{"method", "class"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dalkak",
			Name:      "http_request_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dalkak",
			Name:      "ratelimit_rejected_total",
			Help:      "Requests rejected by the sliding-window limiter.",
		}),
		CircuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dalkak",
			Name:      "assist_circuit_state",
			Help:      "Assist breaker state (0 closed, 1 open, 2 half-open).",
		}),
		CircuitChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dalkak",
			Name:      "assist_circuit_transitions_total",
			Help:      "Assist breaker state transitions.",
		}, []string{"from", "to"}),
		NotifyDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dalkak",
			Name:      "notify_delivered_total",
			Help:      "Order lifecycle events accepted for delivery.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		m.Requests, m.RequestLatency, m.RateLimited,
		m.CircuitState, m.CircuitChanges,
		m.NotifyDelivered,
	)
	return m
}

// RegisterNotifyDropped exposes a cumulative drop count (events discarded on
// full subscriber queues) as a counter.
func (m *Metrics) RegisterNotifyDropped(f func() float64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "dalkak",
		Name:      "notify_dropped_total",
		Help:      "Order lifecycle events dropped on full subscriber queues.",
	}, f))
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCircuit is the breaker's OnStateChange hook. It runs under the
// breaker lock, so it must stay allocation-light and must not block.
func (m *Metrics) ObserveCircuit(from, to guard.CircuitState) {
	m.CircuitState.Set(float64(to))
	m.CircuitChanges.WithLabelValues(from.String(), to.String()).Inc()
}

// WithRequestMetrics records count and latency for every request.
func WithRequestMetrics(next http.Handler, m *Metrics) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(m.RequestLatency.WithLabelValues(r.Method))
		lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		timer.ObserveDuration()
		m.Requests.WithLabelValues(r.Method, statusClass(lrw.status)).Inc()
	})
}
