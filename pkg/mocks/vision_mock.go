package mocks

import (
	"context"

	"github.com/jbtestsuite/jbtest/pkg/vision"
	"github.com/stretchr/testify/mock"
)

// MockAnalyzer is a mock implementation of vision.Analyzer interface.
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Enabled() bool {
	args := m.Called()

	return args.Bool(0)
}

func (m *MockAnalyzer) AnalyzeScreenshot(ctx context.Context, screenshotPath, stepContext string) vision.Result {
	args := m.Called(ctx, screenshotPath, stepContext)

	return args.Get(0).(vision.Result)
}

func (m *MockAnalyzer) AnalyzeExecution(ctx context.Context, summary map[string]any) vision.Result {
	args := m.Called(ctx, summary)

	return args.Get(0).(vision.Result)
}

func (m *MockAnalyzer) Status() vision.Status {
	args := m.Called()

	return args.Get(0).(vision.Status)
}
