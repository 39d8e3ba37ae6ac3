package models

import (
	"encoding/json"
	"time"
)

// TestCase is a stored test definition. Steps are immutable once an execution
// has been derived from them.
type TestCase struct {
	ID          string            `json:"id"          validate:"required"`
	Name        string            `json:"name"        validate:"required,min=1"`
	Description string            `json:"description"`
	Steps       []*StepDefinition `json:"steps"       validate:"dive"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// StepDefinition is the persisted form of a single step of a test case.
// InputData is a JSON object carrying the type specific arguments
// (text, url, wait_seconds, selector_type).
type StepDefinition struct {
	ID             string          `json:"id,omitempty"`
	OrderIndex     int             `json:"order_index"`
	StepType       string          `json:"step_type"                 validate:"required"`
	Description    string          `json:"description,omitempty"`
	Selector       string          `json:"selector,omitempty"`
	InputData      json.RawMessage `json:"input_data,omitempty"`
	ExpectedResult string          `json:"expected_result,omitempty"`
	TimeoutSeconds int             `json:"timeout_seconds,omitempty" validate:"gte=0"`
}
