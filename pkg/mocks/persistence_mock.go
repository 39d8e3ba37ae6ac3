package mocks

import (
	"context"

	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/jbtestsuite/jbtest/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockTestCaseRepository is a mock implementation of persistence.TestCaseRepository interface.
type MockTestCaseRepository struct {
	mock.Mock
}

func (m *MockTestCaseRepository) GetAll(ctx context.Context) ([]*models.TestCase, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.TestCase), args.Error(1)
}

func (m *MockTestCaseRepository) GetByID(ctx context.Context, id string) (*models.TestCase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.TestCase), args.Error(1)
}

func (m *MockTestCaseRepository) Save(ctx context.Context, testCase *models.TestCase) error {
	args := m.Called(ctx, testCase)

	return args.Error(0)
}

// MockExecutionResultRepository is a mock implementation of persistence.ExecutionResultRepository interface.
type MockExecutionResultRepository struct {
	mock.Mock
}

func (m *MockExecutionResultRepository) Save(ctx context.Context, result *models.ExecutionSnapshot) error {
	args := m.Called(ctx, result)

	return args.Error(0)
}

func (m *MockExecutionResultRepository) GetByID(ctx context.Context, executionID string) (*models.ExecutionSnapshot, error) {
	args := m.Called(ctx, executionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ExecutionSnapshot), args.Error(1)
}

func (m *MockExecutionResultRepository) GetByTestCase(ctx context.Context, testCaseID string) ([]*models.ExecutionSnapshot, error) {
	args := m.Called(ctx, testCaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ExecutionSnapshot), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	TestCases        *MockTestCaseRepository
	ExecutionResults *MockExecutionResultRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		TestCases:        &MockTestCaseRepository{},
		ExecutionResults: &MockExecutionResultRepository{},
	}
}

func (m *MockPersistence) TestCaseRepository() persistence.TestCaseRepository {
	return m.TestCases
}

func (m *MockPersistence) ExecutionResultRepository() persistence.ExecutionResultRepository {
	return m.ExecutionResults
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
