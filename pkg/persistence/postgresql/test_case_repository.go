package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/jbtestsuite/jbtest/pkg/persistence"
)

// TestCaseRepository handles test case database operations.
type TestCaseRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTestCaseRepository(db *sql.DB, logger *slog.Logger) *TestCaseRepository {
	return &TestCaseRepository{db: db, logger: logger}
}

// GetAll returns every test case with its steps, oldest first.
func (r *TestCaseRepository) GetAll(ctx context.Context) ([]*models.TestCase, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM test_cases
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query test cases: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	testCases := make([]*models.TestCase, 0)

	for rows.Next() {
		var testCase models.TestCase

		err := rows.Scan(&testCase.ID, &testCase.Name, &testCase.Description, &testCase.CreatedAt, &testCase.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test case: %w", err)
		}

		testCases = append(testCases, &testCase)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test cases: %w", err)
	}

	for _, testCase := range testCases {
		testCase.Steps, err = r.steps(ctx, testCase.ID)
		if err != nil {
			return nil, err
		}
	}

	return testCases, nil
}

func (r *TestCaseRepository) GetByID(ctx context.Context, id string) (*models.TestCase, error) {
	var testCase models.TestCase

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM test_cases
		WHERE id = $1
	`, id).Scan(&testCase.ID, &testCase.Name, &testCase.Description, &testCase.CreatedAt, &testCase.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewTestCaseError("GetByID", id, persistence.ErrTestCaseNotFound)
		}

		return nil, persistence.NewTestCaseError("GetByID", id, err)
	}

	testCase.Steps, err = r.steps(ctx, id)
	if err != nil {
		return nil, persistence.NewTestCaseError("GetByID", id, err)
	}

	return &testCase, nil
}

func (r *TestCaseRepository) steps(ctx context.Context, testCaseID string) ([]*models.StepDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_index, step_type, description, selector, input_data, expected_result, timeout_seconds
		FROM test_steps
		WHERE test_case_id = $1
		ORDER BY order_index ASC, id ASC
	`, testCaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query test steps: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	steps := make([]*models.StepDefinition, 0)

	for rows.Next() {
		var (
			step      models.StepDefinition
			stepID    int64
			inputData []byte
		)

		err := rows.Scan(&stepID, &step.OrderIndex, &step.StepType, &step.Description, &step.Selector,
			&inputData, &step.ExpectedResult, &step.TimeoutSeconds)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test step: %w", err)
		}

		step.ID = fmt.Sprintf("%d", stepID)
		if len(inputData) > 0 {
			step.InputData = json.RawMessage(inputData)
		}

		steps = append(steps, &step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test steps: %w", err)
	}

	return steps, nil
}

// Save upserts the test case and replaces its steps in a single transaction.
func (r *TestCaseRepository) Save(ctx context.Context, testCase *models.TestCase) error {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewTestCaseError("Save", testCase.ID, err)
	}

	err = r.save(ctx, transaction, testCase)
	if err != nil {
		_ = transaction.Rollback()

		return persistence.NewTestCaseError("Save", testCase.ID, err)
	}

	err = transaction.Commit()
	if err != nil {
		return persistence.NewTestCaseError("Save", testCase.ID, err)
	}

	return nil
}

func (r *TestCaseRepository) save(ctx context.Context, transaction *sql.Tx, testCase *models.TestCase) error {
	err := transaction.QueryRowContext(ctx, `
		INSERT INTO test_cases (id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`, testCase.ID, testCase.Name, testCase.Description).Scan(&testCase.CreatedAt, &testCase.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert test case: %w", err)
	}

	_, err = transaction.ExecContext(ctx, "DELETE FROM test_steps WHERE test_case_id = $1", testCase.ID)
	if err != nil {
		return fmt.Errorf("failed to clear test steps: %w", err)
	}

	for _, step := range testCase.Steps {
		var inputData any
		if len(step.InputData) > 0 {
			inputData = []byte(step.InputData)
		}

		_, err = transaction.ExecContext(ctx, `
			INSERT INTO test_steps (test_case_id, order_index, step_type, description, selector, input_data, expected_result, timeout_seconds)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, testCase.ID, step.OrderIndex, step.StepType, step.Description, step.Selector, inputData, step.ExpectedResult, step.TimeoutSeconds)
		if err != nil {
			return fmt.Errorf("failed to insert test step %d: %w", step.OrderIndex, err)
		}
	}

	return nil
}
