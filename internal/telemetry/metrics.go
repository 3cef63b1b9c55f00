// Package telemetry implements the core's observability hook (spec §4.B):
// a Prometheus counter per {listener_key, path, status} and an access-log
// writer in the "$$"-delimited line format spec §6 mandates. It replaces
// the teacher's hand-rolled metrics.Registry with the ecosystem's own
// instrumentation client, the way a production gateway would.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the counters and histograms every listener worker
// updates on every request, regardless of outcome.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeConns     *prometheus.GaugeVec
}

// NewMetrics registers a fresh set of collectors against its own
// prometheus.Registry (never the global DefaultRegisterer, so package-level
// test runs and multiple server instances in one process never collide).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relaygate_requests_total",
			Help: "Total requests observed by a listener, labeled by listener key, path, and status.",
		}, []string{"listener_key", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relaygate_request_duration_seconds",
			Help:    "Request handling latency from dispatch start to response formed, labeled by listener key and path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"listener_key", "path"}),
		activeConns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "relaygate_active_connections",
			Help: "Currently open connections per listener key.",
		}, []string{"listener_key"}),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.activeConns)
	return m
}

// ObserveRequest records one completed request's outcome, per the
// observability hook's {listener_key, path, status} counter and the
// {listener_key, path} timer that starts before dispatch and stops after
// the response is formed.
func (m *Metrics) ObserveRequest(listenerKey, path, status string, elapsedSeconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(listenerKey, path, status).Inc()
	m.requestDuration.WithLabelValues(listenerKey, path).Observe(elapsedSeconds)
}

// IncActiveConns and DecActiveConns track concurrently open connections for
// a listener key; the TCP worker uses these since it has no per-request
// status to label a counter with.
func (m *Metrics) IncActiveConns(listenerKey string) {
	if m == nil {
		return
	}
	m.activeConns.WithLabelValues(listenerKey).Inc()
}

func (m *Metrics) DecActiveConns(listenerKey string) {
	if m == nil {
		return
	}
	m.activeConns.WithLabelValues(listenerKey).Dec()
}

// Handler exposes this instance's registry in Prometheus text format, for
// the admin collaborator to mount at "/metrics" (kept outside the core per
// spec §1).
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}
