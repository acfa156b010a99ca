// Package metrics exposes Prometheus collectors for the request pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	FastPathRequests prometheus.Counter
	RateLimitRejects prometheus.Counter
	Degradations     prometheus.Counter
	PanicsRecovered  prometheus.Counter
}

// New creates and registers the pipeline collectors on the given
// registerer. Passing nil uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_requests_total",
				Help: "Total number of HTTP requests by method, path and status",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		FastPathRequests: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_fastpath_requests_total",
				Help: "Requests classified fast-path",
			},
		),
		RateLimitRejects: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_ratelimit_rejections_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
		Degradations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_ratelimit_backend_degradations_total",
				Help: "Permanent fallbacks from the distributed rate-limit tier",
			},
		),
		PanicsRecovered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_panics_recovered_total",
				Help: "Downstream failures converted to 500 responses",
			},
		),
	}
}

// RecordRequest records one completed request.
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
