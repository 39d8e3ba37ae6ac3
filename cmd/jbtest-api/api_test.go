package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/jbtestsuite/jbtest/pkg/metrics"
	"github.com/jbtestsuite/jbtest/pkg/mocks"
	"github.com/jbtestsuite/jbtest/pkg/persistence/file"
	"github.com/jbtestsuite/jbtest/pkg/vision"
	"github.com/jbtestsuite/jbtest/pkg/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *mocks.MockOrchestrator) {
	t.Helper()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	m.ExecutionsQueued.Inc()

	executions := &mocks.MockOrchestrator{}

	handlers := web.NewAPIHandlers(
		executions,
		&mocks.MockSessionPool{},
		file.NewPersistence(t.TempDir()),
		vision.Disabled{},
		validator.New(validator.WithRequiredStructEnabled()),
	)

	return NewAPI(slog.Default(), handlers, registry).App(), executions
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := get(t, app, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "jbtest API", body)
}

func TestAPI_Liveness(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := get(t, app, "/livez")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)
}

func TestAPI_Metrics(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := get(t, app, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "jbtest_orchestrator_executions_queued_total 1")
}

func TestAPI_RoutesMounted(t *testing.T) {
	t.Parallel()

	app, executions := setupTestApp(t)
	executions.On("GetExecutionStatus", mock.Anything).Return(nil, false)

	status, body := get(t, app, "/ai/status")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"openai_enabled":false`)

	status, _ = get(t, app, "/selenium/executions/unknown")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = get(t, app, "/test-cases")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, body)
}
