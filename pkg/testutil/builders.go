// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jbtestsuite/jbtest/pkg/models"
)

// CreateTestCase creates a TestCase with a navigate and a click step that can be overridden.
func CreateTestCase(overrides ...func(*models.TestCase)) *models.TestCase {
	now := time.Now().UTC()

	testCase := &models.TestCase{
		ID:   uuid.New().String(),
		Name: "Login flow",
		Steps: []*models.StepDefinition{
			CreateStepDefinition(0, "navigate", WithInputData(map[string]any{"url": "https://example.test"})),
			CreateStepDefinition(1, "click", WithSelector("#go")),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(testCase)
	}

	return testCase
}

// WithID sets the test case identifier.
func WithID(id string) func(*models.TestCase) {
	return func(tc *models.TestCase) {
		tc.ID = id
	}
}

func WithName(name string) func(*models.TestCase) {
	return func(tc *models.TestCase) {
		tc.Name = name
	}
}

func WithCreatedAt(at time.Time) func(*models.TestCase) {
	return func(tc *models.TestCase) {
		tc.CreatedAt = at
		tc.UpdatedAt = at
	}
}

// WithSteps replaces the step definitions.
func WithSteps(steps ...*models.StepDefinition) func(*models.TestCase) {
	return func(tc *models.TestCase) {
		tc.Steps = steps
	}
}

// CreateStepDefinition creates a StepDefinition of the given type at order.
func CreateStepDefinition(order int, stepType string, overrides ...func(*models.StepDefinition)) *models.StepDefinition {
	step := &models.StepDefinition{
		ID:         uuid.New().String(),
		OrderIndex: order,
		StepType:   stepType,
	}

	for _, override := range overrides {
		override(step)
	}

	return step
}

func WithSelector(selector string) func(*models.StepDefinition) {
	return func(s *models.StepDefinition) {
		s.Selector = selector
	}
}

func WithExpectedResult(expected string) func(*models.StepDefinition) {
	return func(s *models.StepDefinition) {
		s.ExpectedResult = expected
	}
}

// WithInputData marshals data into the step's input_data. It panics on
// values that cannot be encoded.
func WithInputData(data map[string]any) func(*models.StepDefinition) {
	return func(s *models.StepDefinition) {
		raw, err := json.Marshal(data)
		if err != nil {
			panic(err)
		}

		s.InputData = raw
	}
}

// CreateExecutionResult creates a terminal ExecutionSnapshot for testCaseID.
func CreateExecutionResult(testCaseID string, status models.ExecutionStatus, completedAt time.Time) *models.ExecutionSnapshot {
	startedAt := completedAt.Add(-time.Minute)

	return &models.ExecutionSnapshot{
		ExecutionID: uuid.New().String(),
		TestCaseID:  testCaseID,
		Status:      status,
		StartedAt:   &startedAt,
		CompletedAt: &completedAt,
		Screenshots: []string{},
		AIAnalyses:  []models.AIAnalysis{},
	}
}
