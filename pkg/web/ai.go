package web

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jbtestsuite/jbtest/pkg/vision"
)

func (h *APIHandlers) AIStatus(c fiber.Ctx) error {
	status := h.analyzer.Status()

	return c.JSON(fiber.Map{
		"openai_enabled": status.Enabled,
		"model":          status.Model,
		"message":        status.Message,
		"available_features": fiber.Map{
			vision.KindScreenshot: status.Enabled,
			vision.KindExecution:  status.Enabled,
		},
		"usage":     status.Usage,
		"timestamp": time.Now().UTC(),
	})
}

// AnalyzeScreenshot runs the vision model over a screenshot captured by the pool.
func (h *APIHandlers) AnalyzeScreenshot(c fiber.Ctx) error {
	if !h.analyzer.Enabled() {
		return serviceUnavailable(c, "vision_disabled", "OpenAI API not configured")
	}

	var req AnalyzeScreenshotRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	path, ok := withinDir(h.sessions.Health(c.Context()).ScreenshotsDirectory, req.ScreenshotPath)
	if !ok {
		return badRequest(c, "screenshot_path must point into the screenshots directory")
	}

	result := h.analyzer.AnalyzeScreenshot(c.Context(), path, req.Context)
	if !result.Success {
		return problem(c, fiber.StatusBadGateway, "analysis_failed", result.Error)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"analysis":  result.Analysis,
		"usage":     result.Usage,
		"timestamp": time.Now().UTC(),
	})
}

// withinDir resolves path and reports whether it stays inside dir.
func withinDir(dir, path string) (string, bool) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return absPath, true
}
