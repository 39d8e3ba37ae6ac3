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

// ExecutionResultRepository handles execution result database operations.
type ExecutionResultRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionResultRepository(db *sql.DB, logger *slog.Logger) *ExecutionResultRepository {
	return &ExecutionResultRepository{db: db, logger: logger}
}

const selectExecutionResult = `
	SELECT execution_id, test_case_id, user_id, status, error_kind, error_message,
		   current_step, total_steps, steps, screenshots, ai_analyses, final_ai_analysis,
		   started_at, completed_at
	FROM execution_results
`

func (r *ExecutionResultRepository) Save(ctx context.Context, result *models.ExecutionSnapshot) error {
	stepsJSON, err := json.Marshal(nonNil(result.Steps))
	if err != nil {
		return persistence.NewExecutionResultError("Save", result.ExecutionID, fmt.Errorf("failed to marshal steps: %w", err))
	}

	screenshotsJSON, err := json.Marshal(nonNil(result.Screenshots))
	if err != nil {
		return persistence.NewExecutionResultError("Save", result.ExecutionID, fmt.Errorf("failed to marshal screenshots: %w", err))
	}

	analysesJSON, err := json.Marshal(nonNil(result.AIAnalyses))
	if err != nil {
		return persistence.NewExecutionResultError("Save", result.ExecutionID, fmt.Errorf("failed to marshal ai analyses: %w", err))
	}

	var finalJSON any
	if result.FinalAIAnalysis != nil {
		finalJSON, err = json.Marshal(result.FinalAIAnalysis)
		if err != nil {
			return persistence.NewExecutionResultError("Save", result.ExecutionID, fmt.Errorf("failed to marshal final analysis: %w", err))
		}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO execution_results (
			execution_id, test_case_id, user_id, status, error_kind, error_message,
			current_step, total_steps, steps, screenshots, ai_analyses, final_ai_analysis,
			started_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (execution_id) DO UPDATE SET
			status = EXCLUDED.status,
			error_kind = EXCLUDED.error_kind,
			error_message = EXCLUDED.error_message,
			current_step = EXCLUDED.current_step,
			screenshots = EXCLUDED.screenshots,
			ai_analyses = EXCLUDED.ai_analyses,
			final_ai_analysis = EXCLUDED.final_ai_analysis,
			completed_at = EXCLUDED.completed_at
	`,
		result.ExecutionID,
		result.TestCaseID,
		result.UserID,
		result.Status,
		result.ErrorKind,
		result.ErrorMessage,
		result.CurrentStep,
		result.TotalSteps,
		stepsJSON,
		screenshotsJSON,
		analysesJSON,
		finalJSON,
		result.StartedAt,
		result.CompletedAt,
	)
	if err != nil {
		return persistence.NewExecutionResultError("Save", result.ExecutionID, err)
	}

	return nil
}

func (r *ExecutionResultRepository) GetByID(ctx context.Context, executionID string) (*models.ExecutionSnapshot, error) {
	row := r.db.QueryRowContext(ctx, selectExecutionResult+" WHERE execution_id = $1", executionID)

	result, err := scanExecutionResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionResultError("GetByID", executionID, persistence.ErrExecutionResultNotFound)
		}

		return nil, persistence.NewExecutionResultError("GetByID", executionID, err)
	}

	return result, nil
}

// GetByTestCase returns the stored results of a test case, most recent first.
func (r *ExecutionResultRepository) GetByTestCase(ctx context.Context, testCaseID string) ([]*models.ExecutionSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, selectExecutionResult+" WHERE test_case_id = $1 ORDER BY completed_at DESC NULLS LAST", testCaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution results: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	results := make([]*models.ExecutionSnapshot, 0)

	for rows.Next() {
		result, err := scanExecutionResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution result: %w", err)
		}

		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution results: %w", err)
	}

	return results, nil
}

func scanExecutionResult(scanner interface {
	Scan(dest ...any) error
}) (*models.ExecutionSnapshot, error) {
	var (
		result                                              models.ExecutionSnapshot
		stepsJSON, screenshotsJSON, analysesJSON, finalJSON []byte
		startedAt, completedAt                              sql.NullTime
	)

	err := scanner.Scan(
		&result.ExecutionID,
		&result.TestCaseID,
		&result.UserID,
		&result.Status,
		&result.ErrorKind,
		&result.ErrorMessage,
		&result.CurrentStep,
		&result.TotalSteps,
		&stepsJSON,
		&screenshotsJSON,
		&analysesJSON,
		&finalJSON,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(stepsJSON, &result.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}

	if err := json.Unmarshal(screenshotsJSON, &result.Screenshots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal screenshots: %w", err)
	}

	if err := json.Unmarshal(analysesJSON, &result.AIAnalyses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ai analyses: %w", err)
	}

	if len(finalJSON) > 0 {
		result.FinalAIAnalysis = &models.AIAnalysis{}
		if err := json.Unmarshal(finalJSON, result.FinalAIAnalysis); err != nil {
			return nil, fmt.Errorf("failed to unmarshal final analysis: %w", err)
		}
	}

	if startedAt.Valid {
		result.StartedAt = &startedAt.Time
	}

	if completedAt.Valid {
		result.CompletedAt = &completedAt.Time
	}

	return &result, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
