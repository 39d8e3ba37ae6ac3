package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jbtestsuite/jbtest/pkg/metrics"
	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const DefaultModel = "gpt-4o"

const screenshotPrompt = `Analyze this screenshot of a web page and respond with a JSON object with the keys:
"interactive_elements" (key buttons, forms, links and inputs),
"page_state" (a description of the current page state and content),
"test_suggestions" (test actions that could be performed),
"potential_issues" (anomalies or problems visible on the page),
"selectors" (CSS selectors for the major interactive elements).
Focus on actionable testing information.`

const executionSystemPrompt = "You are an expert test automation analyst. Analyze test results and provide actionable insights."

const executionPrompt = `Analyze this test execution result and provide insights in JSON format:

Test Result Data:
%s

Use the following JSON structure:
{
  "overall_status": "success|partial|failure",
  "key_findings": ["finding1", "finding2"],
  "performance_insights": {
    "execution_time_assessment": "fast|normal|slow",
    "bottleneck_analysis": "description"
  },
  "reliability_concerns": ["concern1"],
  "improvement_suggestions": [
    {"category": "performance|reliability|maintainability", "suggestion": "detailed suggestion", "priority": "high|medium|low"}
  ],
  "next_steps": ["step1"]
}`

// LLMAnalyzer runs analyses against any langchaingo model.
type LLMAnalyzer struct {
	llm     llms.Model
	model   string
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	usage map[string]KindUsage
}

func NewOpenAIAnalyzer(apiKey, model string, logger *slog.Logger, m *metrics.Metrics) (*LLMAnalyzer, error) {
	if model == "" {
		model = DefaultModel
	}

	llm, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return NewLLMAnalyzer(llm, model, logger, m), nil
}

func NewLLMAnalyzer(llm llms.Model, model string, logger *slog.Logger, m *metrics.Metrics) *LLMAnalyzer {
	return &LLMAnalyzer{
		llm:     llm,
		model:   model,
		logger:  logger.With("module", "vision", "model", model),
		metrics: m,
		usage:   make(map[string]KindUsage),
	}
}

func (a *LLMAnalyzer) Enabled() bool {
	return true
}

func (a *LLMAnalyzer) AnalyzeScreenshot(ctx context.Context, screenshotPath, stepContext string) Result {
	image, err := os.ReadFile(screenshotPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return a.fail(ctx, KindScreenshot, fmt.Errorf("Screenshot file not found: %s", screenshotPath))
		}

		return a.fail(ctx, KindScreenshot, err)
	}

	prompt := screenshotPrompt
	if stepContext != "" {
		prompt += "\n\nAdditional context: " + stepContext
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextContent{Text: prompt},
				llms.BinaryPart(mimetype.Detect(image).String(), image),
			},
		},
	}

	return a.generate(ctx, KindScreenshot, content, llms.WithMaxTokens(1000), llms.WithTemperature(0.1))
}

func (a *LLMAnalyzer) AnalyzeExecution(ctx context.Context, summary map[string]any) Result {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return a.fail(ctx, KindExecution, err)
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, executionSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(executionPrompt, data)),
	}

	return a.generate(ctx, KindExecution, content, llms.WithMaxTokens(800), llms.WithTemperature(0.2))
}

func (a *LLMAnalyzer) generate(ctx context.Context, kind string, content []llms.MessageContent, opts ...llms.CallOption) Result {
	opts = append(opts, llms.WithJSONMode())

	response, err := a.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return a.fail(ctx, kind, err)
	}

	if len(response.Choices) < 1 {
		return a.fail(ctx, kind, errors.New("empty response from model"))
	}

	choice := response.Choices[0]
	usage := usageFrom(choice.GenerationInfo)

	a.track(kind, usage, false)
	a.metrics.VisionAnalyses.WithLabelValues(kind, "success").Inc()
	a.logger.InfoContext(ctx, "AI usage", "kind", kind, "total_tokens", usage.TotalTokens)

	return Result{
		Success:  true,
		Analysis: parseAnalysis(choice.Content),
		Usage:    usage,
	}
}

func (a *LLMAnalyzer) fail(ctx context.Context, kind string, err error) Result {
	a.track(kind, nil, true)
	a.metrics.VisionAnalyses.WithLabelValues(kind, "failure").Inc()
	a.logger.ErrorContext(ctx, "Analysis failed", "kind", kind, "error", err)

	return Result{Success: false, Error: err.Error()}
}

func (a *LLMAnalyzer) track(kind string, usage *models.Usage, failed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	u := a.usage[kind]
	u.Requests++

	if failed {
		u.Failures++
	}

	if usage != nil {
		u.PromptTokens += usage.PromptTokens
		u.CompletionTokens += usage.CompletionTokens
		u.TotalTokens += usage.TotalTokens
	}

	a.usage[kind] = u
}

func (a *LLMAnalyzer) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Status{
		Enabled: true,
		Model:   a.model,
		Message: "OpenAI API configured",
		Usage:   maps.Clone(a.usage),
	}
}

// parseAnalysis keeps non JSON answers under raw_analysis.
func parseAnalysis(text string) map[string]any {
	var analysis map[string]any

	err := json.Unmarshal([]byte(text), &analysis)
	if err != nil || analysis == nil {
		return map[string]any{"raw_analysis": text}
	}

	return analysis
}

func usageFrom(info map[string]any) *models.Usage {
	return &models.Usage{
		PromptTokens:     intValue(info["PromptTokens"]),
		CompletionTokens: intValue(info["CompletionTokens"]),
		TotalTokens:      intValue(info["TotalTokens"]),
	}
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
