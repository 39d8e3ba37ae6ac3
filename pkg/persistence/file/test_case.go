package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/jbtestsuite/jbtest/pkg/persistence"
)

// TestCaseRepository stores one JSON document per test case under <root>/test_cases.
type TestCaseRepository struct {
	root string
}

func NewTestCaseRepository(root string) *TestCaseRepository {
	return &TestCaseRepository{root: root}
}

func (r *TestCaseRepository) dir() string {
	return filepath.Join(r.root, "test_cases")
}

func (r *TestCaseRepository) GetAll(ctx context.Context) ([]*models.TestCase, error) {
	ids, err := listIDs(r.dir())
	if err != nil {
		return nil, err
	}

	testCases := make([]*models.TestCase, 0, len(ids))

	for _, id := range ids {
		testCase, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load test case %s: %w", id, err)
		}

		testCases = append(testCases, testCase)
	}

	sort.Slice(testCases, func(i, j int) bool {
		return testCases[i].CreatedAt.Before(testCases[j].CreatedAt)
	})

	return testCases, nil
}

func (r *TestCaseRepository) GetByID(_ context.Context, id string) (*models.TestCase, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewTestCaseError("GetByID", id, err)
	}

	var testCase models.TestCase

	err := readJSON(r.dir(), id, &testCase)
	if err != nil {
		if isNotExist(err) {
			return nil, persistence.NewTestCaseError("GetByID", id, persistence.ErrTestCaseNotFound)
		}

		return nil, persistence.NewTestCaseError("GetByID", id, err)
	}

	return &testCase, nil
}

func (r *TestCaseRepository) Save(_ context.Context, testCase *models.TestCase) error {
	if err := validateID(testCase.ID); err != nil {
		return persistence.NewTestCaseError("Save", testCase.ID, err)
	}

	now := time.Now().UTC()
	if testCase.CreatedAt.IsZero() {
		testCase.CreatedAt = now
	}

	testCase.UpdatedAt = now

	err := writeJSON(r.dir(), testCase.ID, testCase)
	if err != nil {
		return persistence.NewTestCaseError("Save", testCase.ID, err)
	}

	return nil
}
