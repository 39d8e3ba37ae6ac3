package mocks

import (
	"context"

	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockOrchestrator is a mock of the execution operations the API and the
// WebSocket channel call.
type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) QueueTestExecution(ctx context.Context, testCaseID, userID string) (string, error) {
	args := m.Called(ctx, testCaseID, userID)

	return args.String(0), args.Error(1)
}

func (m *MockOrchestrator) CancelExecution(ctx context.Context, executionID string) bool {
	args := m.Called(ctx, executionID)

	return args.Bool(0)
}

func (m *MockOrchestrator) GetExecutionStatus(executionID string) (*models.ExecutionSnapshot, bool) {
	args := m.Called(executionID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}

	return args.Get(0).(*models.ExecutionSnapshot), args.Bool(1)
}

func (m *MockOrchestrator) ActiveExecutions() int {
	args := m.Called()

	return args.Int(0)
}
