// Package metrics exposes Prometheus collectors for the pricing engine and HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pricing"

// Outcomes recorded for a recalculation
const (
	OutcomeSuccess          = "success"
	OutcomeNotFound         = "not_found"
	OutcomeInvalidInput     = "invalid_input"
	OutcomePersistenceError = "persistence_error"
	OutcomeError            = "error"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	recalculations   *prometheus.CounterVec
	recalcDuration   *prometheus.HistogramVec
	discountUpdates  *prometheus.CounterVec
	auditEntries     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	staleRecalcBatch prometheus.Gauge
}

// New creates the collectors on a private registry together with Go runtime
// and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		recalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculations_total",
			Help:      "Count of proposal price calculations by persistence mode and outcome.",
		}, []string{"persist", "outcome"}),
		recalcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recalculation_duration_seconds",
			Help:      "Latency of proposal price calculations including I/O.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"persist"}),
		discountUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_updates_total",
			Help:      "Count of manual discount changes by kind (set or cleared).",
		}, []string{"kind"}),
		auditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Count of price audit entries written by change type.",
		}, []string{"change_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		staleRecalcBatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stale_recalculation_last_batch",
			Help:      "Number of proposals recalculated by the last stale totals run.",
		}),
	}

	reg.MustRegister(
		m.recalculations,
		m.recalcDuration,
		m.discountUpdates,
		m.auditEntries,
		m.httpRequests,
		m.httpDuration,
		m.staleRecalcBatch,
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRecalculation records one calculation
func (m *Metrics) ObserveRecalculation(persist bool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	p := strconv.FormatBool(persist)
	m.recalculations.WithLabelValues(p, outcome).Inc()
	m.recalcDuration.WithLabelValues(p).Observe(elapsed.Seconds())
}

// IncDiscountUpdate records a manual discount change
func (m *Metrics) IncDiscountUpdate(cleared bool) {
	if m == nil {
		return
	}
	kind := "set"
	if cleared {
		kind = "cleared"
	}
	m.discountUpdates.WithLabelValues(kind).Inc()
}

// IncAuditEntry records a written audit entry
func (m *Metrics) IncAuditEntry(changeType string) {
	if m == nil {
		return
	}
	m.auditEntries.WithLabelValues(changeType).Inc()
}

// SetStaleBatch records the size of the last stale recalculation run
func (m *Metrics) SetStaleBatch(n int) {
	if m == nil {
		return
	}
	m.staleRecalcBatch.Set(float64(n))
}

// Middleware records request count and latency labelled by the chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
