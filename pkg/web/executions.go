package web

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jbtestsuite/jbtest/pkg/persistence"
)

func (h *APIHandlers) QueueExecution(c fiber.Ctx) error {
	var req QueueExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	executionID, err := h.executions.QueueTestExecution(c.Context(), req.TestCaseID, req.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"execution_id": executionID,
		"test_case_id": req.TestCaseID,
		"message":      "Test execution queued successfully",
		"timestamp":    time.Now().UTC(),
	})
}

// GetExecution returns the live state of an execution. Purged executions
// are unknown here; their stored outcome is served by GetExecutionResult.
func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	snapshot, ok := h.executions.GetExecutionStatus(c.Params("id"))
	if !ok {
		return notFound(c, "Execution not found")
	}

	return c.JSON(snapshot)
}

// GetExecutionResult returns the persisted outcome of a finished execution.
func (h *APIHandlers) GetExecutionResult(c fiber.Ctx) error {
	stored, err := h.persistence.ExecutionResultRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsExecutionResultNotFound(err) {
			return notFound(c, "Execution result not found")
		}

		return handleServiceError(c, err)
	}

	return c.JSON(stored)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	if !h.executions.CancelExecution(c.Context(), c.Params("id")) {
		return notFound(c, "Execution not found or cannot be cancelled")
	}

	return c.JSON(fiber.Map{
		"message":   "Test execution cancelled successfully",
		"timestamp": time.Now().UTC(),
	})
}
