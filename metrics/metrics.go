// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/holocron/tracker/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several servers (tests) can coexist.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	reconcile *prometheus.CounterVec
	rows      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holocron_http_requests_total",
			Help: "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "holocron_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		reconcile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holocron_reconcile_total",
			Help: "Role reconciliations by owner kind and outcome.",
		}, []string{"owner", "outcome"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holocron_reconcile_rows_total",
			Help: "Association rows written by reconciliation.",
		}, []string{"owner", "op"}),
	}
	m.registry.MustRegister(
		m.requests, m.durations, m.reconcile, m.rows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveReconcile records a reconciliation. Rows are counted only when
// the transaction committed.
func (m *Metrics) ObserveReconcile(res tracker.Result, err error) {
	owner := string(res.Kind)
	outcome := "ok"
	switch {
	case err == nil:
	case tracker.IsNotFound(err):
		outcome = "not_found"
	case tracker.IsClientError(err):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	m.reconcile.WithLabelValues(owner, outcome).Inc()
	if err != nil {
		return
	}
	m.rows.WithLabelValues(owner, "added").Add(float64(len(res.Added)))
	m.rows.WithLabelValues(owner, "removed").Add(float64(len(res.Removed)))
}
