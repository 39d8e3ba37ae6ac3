package cmd

import (
	"log/slog"

	"github.com/jbtestsuite/jbtest/pkg/metrics"
	"github.com/jbtestsuite/jbtest/pkg/vision"
)

// NewVisionAnalyzer returns the OpenAI backed analyzer, or a disabled one
// when no API key is configured.
func NewVisionAnalyzer(apiKey, model string, logger *slog.Logger, m *metrics.Metrics) vision.Analyzer {
	if apiKey == "" {
		logger.Warn("OpenAI API key not configured, vision analysis disabled")

		return vision.Disabled{}
	}

	analyzer, err := vision.NewOpenAIAnalyzer(apiKey, model, logger, m)
	if err != nil {
		logger.Error("Failed to initialize OpenAI client, vision analysis disabled", "error", err)

		return vision.Disabled{}
	}

	return analyzer
}
