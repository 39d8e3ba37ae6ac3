package file_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/jbtestsuite/jbtest/pkg/persistence"
	"github.com/jbtestsuite/jbtest/pkg/persistence/file"
	"github.com/jbtestsuite/jbtest/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistence_HealthCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	assert.NoError(t, file.NewPersistence("file://"+dir).HealthCheck(t.Context()))
	assert.Error(t, file.NewPersistence(filepath.Join(dir, "missing")).HealthCheck(t.Context()))
	assert.NoError(t, file.NewPersistence(dir).Close(t.Context()))
}

func TestTestCaseRepository_SaveAndGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := file.NewPersistence(dir).TestCaseRepository()

	err := repo.Save(t.Context(), testutil.CreateTestCase(testutil.WithID("tc-1")))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "test_cases", "tc-1.json"))
	require.NoError(t, err)

	loaded, err := repo.GetByID(t.Context(), "tc-1")
	require.NoError(t, err)
	assert.Equal(t, "Login flow", loaded.Name)
	require.Len(t, loaded.Steps, 2)
	assert.JSONEq(t, `{"url":"https://example.test"}`, string(loaded.Steps[0].InputData))
	assert.False(t, loaded.CreatedAt.IsZero())
}

func TestTestCaseRepository_GetAllOrdersByCreation(t *testing.T) {
	t.Parallel()

	repo := file.NewPersistence(t.TempDir()).TestCaseRepository()

	all, err := repo.GetAll(t.Context())
	require.NoError(t, err)
	assert.Empty(t, all)

	older := testutil.CreateTestCase(testutil.WithID("tc-b"), testutil.WithCreatedAt(time.Now().Add(-time.Hour)))
	require.NoError(t, repo.Save(t.Context(), older))
	require.NoError(t, repo.Save(t.Context(), testutil.CreateTestCase(testutil.WithID("tc-a"))))

	all, err = repo.GetAll(t.Context())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "tc-b", all[0].ID)
	assert.Equal(t, "tc-a", all[1].ID)
}

func TestTestCaseRepository_Errors(t *testing.T) {
	t.Parallel()

	repo := file.NewPersistence(t.TempDir()).TestCaseRepository()

	_, err := repo.GetByID(t.Context(), "missing")
	assert.True(t, persistence.IsTestCaseNotFound(err))

	for _, id := range []string{"", "../etc/passwd", "a/b", `a\b`} {
		_, err = repo.GetByID(t.Context(), id)
		require.Error(t, err, id)
		assert.ErrorIs(t, err, persistence.ErrInvalidID, id)
	}

	err = repo.Save(t.Context(), &models.TestCase{ID: "../escape"})
	assert.ErrorIs(t, err, persistence.ErrInvalidID)
}

func TestExecutionResultRepository(t *testing.T) {
	t.Parallel()

	repo := file.NewPersistence(t.TempDir()).ExecutionResultRepository()

	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	results := []*models.ExecutionSnapshot{
		{ExecutionID: "exec-1", TestCaseID: "tc-1", Status: models.ExecutionStatusCompleted, CompletedAt: &first, Screenshots: []string{"a.png"}},
		{ExecutionID: "exec-2", TestCaseID: "tc-1", Status: models.ExecutionStatusFailed, ErrorKind: models.ErrorKindStepFailure, CompletedAt: &second},
		{ExecutionID: "exec-3", TestCaseID: "tc-2", Status: models.ExecutionStatusCancelled, CompletedAt: &second},
	}

	for _, result := range results {
		require.NoError(t, repo.Save(t.Context(), result))
	}

	loaded, err := repo.GetByID(t.Context(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, loaded.Status)
	assert.Equal(t, []string{"a.png"}, loaded.Screenshots)

	byCase, err := repo.GetByTestCase(t.Context(), "tc-1")
	require.NoError(t, err)
	require.Len(t, byCase, 2)
	assert.Equal(t, "exec-2", byCase[0].ExecutionID)
	assert.Equal(t, models.ErrorKindStepFailure, byCase[0].ErrorKind)

	_, err = repo.GetByID(t.Context(), "exec-404")
	assert.True(t, persistence.IsExecutionResultNotFound(err))
}
