package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/jbtestsuite/jbtest/pkg/browser"
	"github.com/jbtestsuite/jbtest/pkg/orchestrator"
	"github.com/jbtestsuite/jbtest/pkg/persistence"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func notFound(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusNotFound, "not_found", detail)
}

func serviceUnavailable(c fiber.Ctx, problemType, detail string) error {
	return problem(c, fiber.StatusServiceUnavailable, problemType, detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleServiceError maps domain errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsTestCaseNotFound(err):
		return problem(c, fiber.StatusNotFound, "test_case_not_found", "test case not found")
	case persistence.IsExecutionResultNotFound(err):
		return problem(c, fiber.StatusNotFound, "execution_not_found", "Execution not found")
	case errors.Is(err, browser.ErrSessionNotFound):
		return problem(c, fiber.StatusNotFound, "session_not_found", "Session not found")
	case errors.Is(err, persistence.ErrInvalidID), errors.Is(err, orchestrator.ErrInvalidTestCase):
		return badRequest(c, err.Error())
	case browser.IsPoolExhausted(err):
		return serviceUnavailable(c, "pool_exhausted", err.Error())
	case errors.Is(err, orchestrator.ErrQueueFull):
		return serviceUnavailable(c, "queue_full", err.Error())
	default:
		return internalError(c, err)
	}
}
