package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jbtestsuite/jbtest/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ExposedThroughHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.SessionsActive.Set(2)
	m.ExecutionsTotal.WithLabelValues("completed").Inc()
	m.Notifications.WithLabelValues("dropped").Add(3)

	assert.InDelta(t, 2, testutil.ToFloat64(m.SessionsActive), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.Notifications.WithLabelValues("dropped")), 0)

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `jbtest_orchestrator_executions_total{status="completed"} 1`)
	assert.Contains(t, string(body), "jbtest_browser_sessions_active 2")
}

func TestNew_PanicsOnDoubleRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics.New(reg)

	assert.Panics(t, func() { metrics.New(reg) })
}
