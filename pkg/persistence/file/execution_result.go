package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/jbtestsuite/jbtest/pkg/persistence"
)

// ExecutionResultRepository stores terminal execution snapshots under <root>/execution_results.
type ExecutionResultRepository struct {
	root string
}

func NewExecutionResultRepository(root string) *ExecutionResultRepository {
	return &ExecutionResultRepository{root: root}
}

func (r *ExecutionResultRepository) dir() string {
	return filepath.Join(r.root, "execution_results")
}

func (r *ExecutionResultRepository) Save(_ context.Context, result *models.ExecutionSnapshot) error {
	if err := validateID(result.ExecutionID); err != nil {
		return persistence.NewExecutionResultError("Save", result.ExecutionID, err)
	}

	err := writeJSON(r.dir(), result.ExecutionID, result)
	if err != nil {
		return persistence.NewExecutionResultError("Save", result.ExecutionID, err)
	}

	return nil
}

func (r *ExecutionResultRepository) GetByID(_ context.Context, executionID string) (*models.ExecutionSnapshot, error) {
	if err := validateID(executionID); err != nil {
		return nil, persistence.NewExecutionResultError("GetByID", executionID, err)
	}

	var result models.ExecutionSnapshot

	err := readJSON(r.dir(), executionID, &result)
	if err != nil {
		if isNotExist(err) {
			return nil, persistence.NewExecutionResultError("GetByID", executionID, persistence.ErrExecutionResultNotFound)
		}

		return nil, persistence.NewExecutionResultError("GetByID", executionID, err)
	}

	return &result, nil
}

// GetByTestCase returns the stored results of a test case, most recent first.
func (r *ExecutionResultRepository) GetByTestCase(ctx context.Context, testCaseID string) ([]*models.ExecutionSnapshot, error) {
	ids, err := listIDs(r.dir())
	if err != nil {
		return nil, err
	}

	results := make([]*models.ExecutionSnapshot, 0)

	for _, id := range ids {
		result, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load execution result %s: %w", id, err)
		}

		if result.TestCaseID == testCaseID {
			results = append(results, result)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return completedAt(results[i]) > completedAt(results[j])
	})

	return results, nil
}

func completedAt(s *models.ExecutionSnapshot) int64 {
	if s.CompletedAt == nil {
		return 0
	}

	return s.CompletedAt.UnixNano()
}
