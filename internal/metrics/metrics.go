// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "omara"

// Metrics groups the collectors of one server instance.
type Metrics struct {
	reg *prometheus.Registry

	// HTTPRequests counts handled requests.
	// Labels: method, route, status
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration tracks request latency by route.
	HTTPDuration *prometheus.HistogramVec

	// Ingestions counts upload outcomes.
	// Labels: result (added, rejected, failed)
	Ingestions *prometheus.CounterVec

	// UpstreamDuration tracks outbound calls.
	// Labels: service, outcome (ok, error)
	UpstreamDuration *prometheus.HistogramVec
}

// New registers a fresh set of collectors on their own registry, so tests
// can build as many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Ingestions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Total number of image uploads by result",
		}, []string{"result"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of calls to external services in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"service", "outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveUpstream records one outbound call.
func (m *Metrics) ObserveUpstream(service string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamDuration.WithLabelValues(service, outcome).Observe(d.Seconds())
}

// ObserveIngest records one upload outcome.
func (m *Metrics) ObserveIngest(result string) {
	m.Ingestions.WithLabelValues(result).Inc()
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
