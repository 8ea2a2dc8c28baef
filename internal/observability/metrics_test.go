package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordStep(t *testing.T) {
	m := NewMetrics()
	m.RecordStep("ticket-intake", "triage", "success", 20*time.Millisecond)
	m.RecordStep("ticket-intake", "triage", "success", 10*time.Millisecond)
	m.RecordStep("ticket-intake", "fetch-ticket", "failed", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.steps.WithLabelValues("ticket-intake", "triage", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.steps.WithLabelValues("ticket-intake", "fetch-ticket", "failed")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/x", "GET", 200, time.Millisecond)
	m.RecordError("/x", "GET", "NOT_FOUND")
	m.RecordStep("p", "s", "success", time.Millisecond)
	m.RecordRun("p", "success")
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordRun("ticket-intake", "success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ticket_ai_pipeline_runs_total{outcome="success",pipeline="ticket-intake"} 1`)
}
