package orchestrator

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/jbtestsuite/jbtest/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlan_FallbackForEmptyTestCase(t *testing.T) {
	t.Parallel()

	steps, err := BuildPlan(&models.TestCase{ID: "tc", Name: "Checkout"}, validator.New(validator.WithRequiredStructEnabled()))
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, models.StepTypeNavigate, steps[0].Type)
	assert.Equal(t, "https://example.com", steps[0].URL)
	assert.Equal(t, "Navigate to test page for Checkout", steps[0].Description)
	assert.Equal(t, 30, steps[0].TimeoutSeconds)

	assert.Equal(t, models.StepTypeScreenshot, steps[1].Type)
	assert.Equal(t, 2, steps[1].StepNumber)
}

func TestBuildPlan_OrdersAndNumbersSteps(t *testing.T) {
	t.Parallel()

	testCase := testutil.CreateTestCase(
		testutil.WithName("Search"),
		testutil.WithSteps(
			testutil.CreateStepDefinition(5, "verify", testutil.WithSelector(".result"), testutil.WithExpectedResult("Go")),
			testutil.CreateStepDefinition(1, "navigate", testutil.WithInputData(map[string]any{"url": "https://search.test"})),
			testutil.CreateStepDefinition(3, "type", testutil.WithSelector("q"),
				testutil.WithInputData(map[string]any{"text": "golang", "selector_type": "name"})),
			testutil.CreateStepDefinition(4, "WAIT"),
			testutil.CreateStepDefinition(6, "hover", func(s *models.StepDefinition) { s.TimeoutSeconds = 4 }),
		),
	)

	steps, err := BuildPlan(testCase, validator.New(validator.WithRequiredStructEnabled()))
	require.NoError(t, err)
	require.Len(t, steps, 5)

	for i, step := range steps {
		assert.Equal(t, i+1, step.StepNumber)
	}

	assert.Equal(t, models.StepTypeNavigate, steps[0].Type)
	assert.Equal(t, "https://search.test", steps[0].URL)
	assert.Equal(t, "Step 1", steps[0].Description)
	assert.Equal(t, models.DefaultStepTimeoutSeconds, steps[0].TimeoutSeconds)

	assert.Equal(t, models.StepTypeInput, steps[1].Type)
	assert.Equal(t, "golang", steps[1].InputText)
	assert.Equal(t, models.SelectorName, steps[1].SelectorType)

	assert.Equal(t, models.StepTypeWait, steps[2].Type)
	assert.InDelta(t, 2.0, steps[2].WaitSeconds, 0)

	assert.Equal(t, models.StepTypeVerify, steps[3].Type)
	assert.Equal(t, "Go", steps[3].ExpectedText)
	assert.Equal(t, models.SelectorCSS, steps[3].SelectorType)

	assert.Equal(t, models.StepTypeScreenshot, steps[4].Type)
	assert.Equal(t, 4, steps[4].TimeoutSeconds)
}

func TestBuildPlan_RejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		definition *models.StepDefinition
	}{
		{
			name:       "input data not an object",
			definition: &models.StepDefinition{StepType: "navigate", InputData: json.RawMessage(`"https://x.test"`)},
		},
		{
			name:       "negative wait",
			definition: &models.StepDefinition{StepType: "wait", InputData: json.RawMessage(`{"wait_seconds":-1}`)},
		},
		{
			name:       "unknown selector type",
			definition: &models.StepDefinition{StepType: "click", Selector: "#a", InputData: json.RawMessage(`{"selector_type":"shadow"}`)},
		},
		{
			name:       "navigate without url",
			definition: &models.StepDefinition{StepType: "navigate"},
		},
		{
			name:       "click without selector",
			definition: &models.StepDefinition{StepType: "click"},
		},
		{
			name:       "input without text",
			definition: &models.StepDefinition{StepType: "input", Selector: "#q"},
		},
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			testCase := &models.TestCase{ID: "tc", Name: "Broken", Steps: []*models.StepDefinition{tt.definition}}

			_, err := BuildPlan(testCase, validate)
			require.ErrorIs(t, err, ErrInvalidTestCase)
		})
	}
}
