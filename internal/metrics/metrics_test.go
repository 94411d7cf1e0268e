package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveRecalculation(t *testing.T) {
	m := New()

	m.ObserveRecalculation(true, OutcomeSuccess, 10*time.Millisecond)
	m.ObserveRecalculation(true, OutcomeSuccess, 20*time.Millisecond)
	m.ObserveRecalculation(false, OutcomeNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.recalculations.WithLabelValues("true", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recalculations.WithLabelValues("false", OutcomeNotFound)))
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.IncDiscountUpdate(false)
	m.IncDiscountUpdate(true)
	m.IncAuditEntry("recalculation")
	m.IncAuditEntry("recalculation")
	m.SetStaleBatch(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.discountUpdates.WithLabelValues("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.discountUpdates.WithLabelValues("cleared")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.auditEntries.WithLabelValues("recalculation")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.staleRecalcBatch))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRecalculation(true, OutcomeSuccess, time.Second)
		m.IncDiscountUpdate(true)
		m.IncAuditEntry("recalculation")
		m.SetStaleBatch(1)
	})
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/proposals/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/proposals/abc", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/proposals/{id}", "418")))

	rr = httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pricing_http_requests_total")
}
