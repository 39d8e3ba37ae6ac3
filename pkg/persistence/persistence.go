// Package persistence provides the storage abstraction for test cases and execution results.
package persistence

import (
	"context"

	"github.com/jbtestsuite/jbtest/pkg/models"
)

type Persistence interface {
	TestCaseRepository() TestCaseRepository
	ExecutionResultRepository() ExecutionResultRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// TestCaseRepository loads test cases and their ordered step definitions.
type TestCaseRepository interface {
	GetAll(ctx context.Context) ([]*models.TestCase, error)
	GetByID(ctx context.Context, id string) (*models.TestCase, error)
	Save(ctx context.Context, testCase *models.TestCase) error
}

// ExecutionResultRepository stores the terminal snapshot of each execution.
type ExecutionResultRepository interface {
	Save(ctx context.Context, result *models.ExecutionSnapshot) error
	GetByID(ctx context.Context, executionID string) (*models.ExecutionSnapshot, error)
	GetByTestCase(ctx context.Context, testCaseID string) ([]*models.ExecutionSnapshot, error)
}
