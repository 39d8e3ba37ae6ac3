// Package vision turns screenshots and execution summaries into structured
// insights with a multimodal language model.
package vision

import (
	"context"

	"github.com/jbtestsuite/jbtest/pkg/models"
)

const (
	KindScreenshot = "screenshot_analysis"
	KindExecution  = "test_result_analysis"
)

const notConfigured = "OpenAI API not configured"

// Result is what an analysis produced. Failures are reported through
// Success and Error, never as a Go error.
type Result struct {
	Success  bool           `json:"success"`
	Analysis map[string]any `json:"analysis"`
	Usage    *models.Usage  `json:"usage,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// KindUsage accumulates token usage for one kind of analysis.
type KindUsage struct {
	Requests         int `json:"requests"`
	Failures         int `json:"failures"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Status struct {
	Enabled bool                 `json:"enabled"`
	Model   string               `json:"model,omitempty"`
	Message string               `json:"message"`
	Usage   map[string]KindUsage `json:"usage"`
}

type Analyzer interface {
	Enabled() bool
	AnalyzeScreenshot(ctx context.Context, screenshotPath, stepContext string) Result
	AnalyzeExecution(ctx context.Context, summary map[string]any) Result
	Status() Status
}

// Disabled is used when no API key is configured.
type Disabled struct{}

func (Disabled) Enabled() bool {
	return false
}

func (Disabled) AnalyzeScreenshot(context.Context, string, string) Result {
	return Result{Success: false, Error: notConfigured}
}

func (Disabled) AnalyzeExecution(context.Context, map[string]any) Result {
	return Result{Success: false, Error: notConfigured}
}

func (Disabled) Status() Status {
	return Status{Enabled: false, Message: "OpenAI API key not configured", Usage: map[string]KindUsage{}}
}
