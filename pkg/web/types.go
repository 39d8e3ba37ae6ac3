// Package web provides HTTP request and response types for the test execution API.
package web

import (
	"encoding/json"
	"fmt"

	"github.com/jbtestsuite/jbtest/pkg/models"
)

const (
	defaultNavigateTimeoutSeconds = 30
	defaultInteractTimeoutSeconds = 10
)

// CreateTestCaseRequest represents the request body for storing a new test case.
type CreateTestCaseRequest struct {
	Name        string                  `json:"name"        validate:"required,min=1"`
	Description string                  `json:"description"`
	Steps       []StepDefinitionRequest `json:"steps"       validate:"dive"`
}

type StepDefinitionRequest struct {
	OrderIndex     int            `json:"order_index"`
	StepType       string         `json:"step_type"                 validate:"required"`
	Description    string         `json:"description"`
	Selector       string         `json:"selector"`
	InputData      map[string]any `json:"input_data,omitempty"`
	ExpectedResult string         `json:"expected_result"`
	TimeoutSeconds int            `json:"timeout_seconds,omitempty" validate:"gte=0"`
}

// definitions converts the request steps into stored definitions.
func (r CreateTestCaseRequest) definitions() ([]*models.StepDefinition, error) {
	definitions := make([]*models.StepDefinition, 0, len(r.Steps))

	for i, step := range r.Steps {
		definition := &models.StepDefinition{
			OrderIndex:     step.OrderIndex,
			StepType:       step.StepType,
			Description:    step.Description,
			Selector:       step.Selector,
			ExpectedResult: step.ExpectedResult,
			TimeoutSeconds: step.TimeoutSeconds,
		}

		if step.InputData != nil {
			raw, err := json.Marshal(step.InputData)
			if err != nil {
				return nil, fmt.Errorf("step %d input_data: %w", i+1, err)
			}

			definition.InputData = raw
		}

		definitions = append(definitions, definition)
	}

	return definitions, nil
}

// QueueExecutionRequest represents the request body for queueing a test execution.
type QueueExecutionRequest struct {
	TestCaseID string `json:"test_case_id" validate:"required"`
	UserID     string `json:"user_id"`
}

type NavigateRequest struct {
	URL            string `json:"url"             validate:"required,url"`
	TimeoutSeconds int    `json:"timeout_seconds" validate:"gte=0"`
}

type InteractRequest struct {
	Selector       string              `json:"selector"        validate:"required"`
	SelectorType   models.SelectorType `json:"selector_type"   validate:"omitempty,oneof=css xpath id name class tag link_text partial_link_text"`
	Action         models.Action       `json:"action"          validate:"required,oneof=click input clear get_text get_attribute"`
	InputText      string              `json:"input_text"`
	TimeoutSeconds int                 `json:"timeout_seconds" validate:"gte=0"`
}

type ScreenshotRequest struct {
	Tag string `json:"tag" validate:"max=64"`
}

// AnalyzeScreenshotRequest asks for a vision analysis of a stored screenshot.
type AnalyzeScreenshotRequest struct {
	ScreenshotPath string `json:"screenshot_path" validate:"required"`
	Context        string `json:"context"`
}
