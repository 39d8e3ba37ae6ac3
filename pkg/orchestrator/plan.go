package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidTestCase is returned when a test case cannot be turned into an execution plan.
var ErrInvalidTestCase = errors.New("invalid test case")

const (
	fallbackURL            = "https://example.com"
	fallbackTimeoutSeconds = 30
	defaultWaitSeconds     = 2.0
)

var inputDataSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"text":          map[string]any{"type": "string"},
		"url":           map[string]any{"type": "string"},
		"wait_seconds":  map[string]any{"type": "number", "minimum": 0},
		"selector_type": map[string]any{"enum": []any{"css", "xpath", "id", "name", "class", "tag", "link_text", "partial_link_text"}},
	},
}

var stepTypeAliases = map[string]models.StepType{
	"navigate":   models.StepTypeNavigate,
	"click":      models.StepTypeClick,
	"input":      models.StepTypeInput,
	"type":       models.StepTypeInput,
	"wait":       models.StepTypeWait,
	"verify":     models.StepTypeVerify,
	"assert":     models.StepTypeVerify,
	"screenshot": models.StepTypeScreenshot,
}

type inputData struct {
	Text         string              `json:"text"`
	URL          string              `json:"url"`
	WaitSeconds  *float64            `json:"wait_seconds"`
	SelectorType models.SelectorType `json:"selector_type"`
}

// BuildPlan turns the stored definitions of a test case into execution steps,
// ordered by order_index and numbered from 1. A test case without definitions
// gets a two step smoke plan.
func BuildPlan(testCase *models.TestCase, validate *validator.Validate) ([]models.TestStep, error) {
	if len(testCase.Steps) == 0 {
		return fallbackPlan(testCase.Name), nil
	}

	definitions := slices.Clone(testCase.Steps)
	slices.SortStableFunc(definitions, func(a, b *models.StepDefinition) int {
		return a.OrderIndex - b.OrderIndex
	})

	steps := make([]models.TestStep, 0, len(definitions))

	for i, definition := range definitions {
		step, err := buildStep(i+1, definition)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrInvalidTestCase, i+1, err)
		}

		err = validate.Struct(step)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrInvalidTestCase, i+1, err)
		}

		steps = append(steps, step)
	}

	return steps, nil
}

func fallbackPlan(name string) []models.TestStep {
	return []models.TestStep{
		{
			StepNumber:     1,
			Type:           models.StepTypeNavigate,
			Description:    "Navigate to test page for " + name,
			URL:            fallbackURL,
			SelectorType:   models.SelectorCSS,
			TimeoutSeconds: fallbackTimeoutSeconds,
		},
		{
			StepNumber:     2,
			Type:           models.StepTypeScreenshot,
			Description:    "Take screenshot of page",
			SelectorType:   models.SelectorCSS,
			TimeoutSeconds: models.DefaultStepTimeoutSeconds,
		},
	}
}

func buildStep(number int, definition *models.StepDefinition) (models.TestStep, error) {
	data, err := parseInputData(definition.InputData)
	if err != nil {
		return models.TestStep{}, err
	}

	stepType, ok := stepTypeAliases[strings.ToLower(definition.StepType)]
	if !ok {
		stepType = models.StepTypeScreenshot
	}

	step := models.TestStep{
		StepNumber:     number,
		Type:           stepType,
		Description:    definition.Description,
		Selector:       definition.Selector,
		SelectorType:   models.SelectorCSS,
		ExpectedText:   definition.ExpectedResult,
		TimeoutSeconds: definition.TimeoutSeconds,
	}

	if step.Description == "" {
		step.Description = fmt.Sprintf("Step %d", number)
	}

	if step.TimeoutSeconds <= 0 {
		step.TimeoutSeconds = models.DefaultStepTimeoutSeconds
	}

	if data.SelectorType != "" {
		step.SelectorType = data.SelectorType
	}

	switch stepType {
	case models.StepTypeNavigate:
		step.URL = data.URL
	case models.StepTypeInput:
		step.InputText = data.Text
	case models.StepTypeWait:
		step.WaitSeconds = defaultWaitSeconds
		if data.WaitSeconds != nil {
			step.WaitSeconds = *data.WaitSeconds
		}
	case models.StepTypeClick, models.StepTypeVerify, models.StepTypeScreenshot:
	}

	return step, nil
}

func parseInputData(raw json.RawMessage) (inputData, error) {
	var data inputData

	if len(raw) == 0 || string(raw) == "null" {
		return data, nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(inputDataSchema), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return data, fmt.Errorf("input_data: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return data, fmt.Errorf("input_data validation errors: %s", strings.Join(errs, "; "))
	}

	err = json.Unmarshal(raw, &data)
	if err != nil {
		return data, fmt.Errorf("input_data: %w", err)
	}

	return data, nil
}
