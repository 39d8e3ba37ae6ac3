package postgresql_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/jbtestsuite/jbtest/pkg/persistence"
	"github.com/jbtestsuite/jbtest/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"execution_results", "test_steps", "test_cases", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container backed test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("jbtest_test"),
			postgres.WithUsername("jbtest"),
			postgres.WithPassword("jbtest"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() { _ = db.Close() }()

	var version int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	again, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err, "migrations must be idempotent")
	require.NoError(t, again.Close(ctx))
}

func TestTestCaseRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.TestCaseRepository()

	testCase := &models.TestCase{
		ID:          "tc-login",
		Name:        "Login",
		Description: "User can sign in",
		Steps: []*models.StepDefinition{
			{OrderIndex: 2, StepType: "click", Selector: "#submit", TimeoutSeconds: 5},
			{OrderIndex: 1, StepType: "navigate", InputData: json.RawMessage(`{"url": "https://example.test/login"}`)},
		},
	}

	require.NoError(t, repo.Save(ctx, testCase))
	assert.False(t, testCase.CreatedAt.IsZero())

	loaded, err := repo.GetByID(ctx, "tc-login")
	require.NoError(t, err)
	assert.Equal(t, "Login", loaded.Name)
	require.Len(t, loaded.Steps, 2)
	assert.Equal(t, "navigate", loaded.Steps[0].StepType)
	assert.JSONEq(t, `{"url":"https://example.test/login"}`, string(loaded.Steps[0].InputData))
	assert.Equal(t, "#submit", loaded.Steps[1].Selector)
	assert.Equal(t, 5, loaded.Steps[1].TimeoutSeconds)
	assert.Nil(t, loaded.Steps[1].InputData)

	testCase.Steps = testCase.Steps[:1]
	require.NoError(t, repo.Save(ctx, testCase))

	loaded, err = repo.GetByID(ctx, "tc-login")
	require.NoError(t, err)
	assert.Len(t, loaded.Steps, 1, "saving replaces the step list")

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, persistence.IsTestCaseNotFound(err))
}

func TestExecutionResultRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.ExecutionResultRepository()

	started := time.Now().UTC().Truncate(time.Millisecond)
	completed := started.Add(3 * time.Second)

	result := &models.ExecutionSnapshot{
		ExecutionID:  "exec-1",
		TestCaseID:   "tc-1",
		UserID:       "user-1",
		Status:       models.ExecutionStatusFailed,
		ErrorKind:    models.ErrorKindStepFailure,
		ErrorMessage: "Element not found or not interactable within 10 seconds: #go",
		CurrentStep:  2,
		TotalSteps:   3,
		Steps:        []models.TestStep{{StepNumber: 1, Type: models.StepTypeNavigate, URL: "https://example.test", TimeoutSeconds: 10}},
		Screenshots:  []string{"a.png", "b.png"},
		StartedAt:    &started,
		CompletedAt:  &completed,
	}

	require.NoError(t, repo.Save(ctx, result))

	loaded, err := repo.GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, loaded.Status)
	assert.Equal(t, models.ErrorKindStepFailure, loaded.ErrorKind)
	assert.Equal(t, result.ErrorMessage, loaded.ErrorMessage)
	assert.Equal(t, []string{"a.png", "b.png"}, loaded.Screenshots)
	assert.Empty(t, loaded.AIAnalyses)
	assert.Nil(t, loaded.FinalAIAnalysis)
	require.NotNil(t, loaded.CompletedAt)
	assert.True(t, completed.Equal(*loaded.CompletedAt))

	result.FinalAIAnalysis = &models.AIAnalysis{Analysis: map[string]any{"summary": "flaky selector"}, Timestamp: completed}
	require.NoError(t, repo.Save(ctx, result))

	byCase, err := repo.GetByTestCase(ctx, "tc-1")
	require.NoError(t, err)
	require.Len(t, byCase, 1)
	require.NotNil(t, byCase[0].FinalAIAnalysis)
	assert.Equal(t, "flaky selector", byCase[0].FinalAIAnalysis.Analysis["summary"])

	_, err = repo.GetByID(ctx, "exec-404")
	assert.True(t, persistence.IsExecutionResultNotFound(err))
}
