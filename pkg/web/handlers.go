// Package web provides HTTP handlers for test cases, executions, browser sessions and vision analysis.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/jbtestsuite/jbtest/pkg/orchestrator"
	"github.com/jbtestsuite/jbtest/pkg/persistence"
	"github.com/jbtestsuite/jbtest/pkg/vision"
)

// ExecutionService queues, inspects and cancels test executions.
type ExecutionService interface {
	QueueTestExecution(ctx context.Context, testCaseID, userID string) (string, error)
	CancelExecution(ctx context.Context, executionID string) bool
	GetExecutionStatus(executionID string) (*models.ExecutionSnapshot, bool)
	ActiveExecutions() int
}

// SessionService drives browser sessions directly.
type SessionService interface {
	orchestrator.SessionPool
	SessionInfo(sessionID string) (models.SessionInfo, bool)
	ListSessions() []models.SessionInfo
	Health(ctx context.Context) models.PoolHealth
}

type APIHandlers struct {
	executions  ExecutionService
	sessions    SessionService
	persistence persistence.Persistence
	analyzer    vision.Analyzer
	validator   *validator.Validate
}

func NewAPIHandlers(
	executions ExecutionService,
	sessions SessionService,
	persistence persistence.Persistence,
	analyzer vision.Analyzer,
	validator *validator.Validate,
) *APIHandlers {
	if analyzer == nil {
		analyzer = vision.Disabled{}
	}

	return &APIHandlers{
		executions:  executions,
		sessions:    sessions,
		persistence: persistence,
		analyzer:    analyzer,
		validator:   validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "jbtest API is healthy"
	httpStatus := http.StatusOK
	repositoryCheck := "ok"

	err := h.persistence.HealthCheck(c.Context())
	if err != nil {
		status = "unhealthy"
		message = "jbtest API is unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
			"browser":    h.sessions.Health(c.Context()),
			"vision":     h.analyzer.Enabled(),
		},
		"active_executions": h.executions.ActiveExecutions(),
		"timestamp":         time.Now().UTC(),
	})
}

func (h *APIHandlers) GetTestCases(c fiber.Ctx) error {
	testCases, err := h.persistence.TestCaseRepository().GetAll(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(testCases)
}

func (h *APIHandlers) GetTestCase(c fiber.Ctx) error {
	testCase, err := h.persistence.TestCaseRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(testCase)
}

func (h *APIHandlers) CreateTestCase(c fiber.Ctx) error {
	var req CreateTestCaseRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	definitions, err := req.definitions()
	if err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()
	testCase := &models.TestCase{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Steps:       definitions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, definition := range testCase.Steps {
		definition.ID = uuid.New().String()
	}

	// Reject definitions that could never be executed.
	_, err = orchestrator.BuildPlan(testCase, h.validator)
	if err != nil {
		return handleServiceError(c, err)
	}

	err = h.persistence.TestCaseRepository().Save(c.Context(), testCase)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(testCase)
}

func (h *APIHandlers) GetTestCaseExecutions(c fiber.Ctx) error {
	id := c.Params("id")

	_, err := h.persistence.TestCaseRepository().GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	results, err := h.persistence.ExecutionResultRepository().GetByTestCase(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if results == nil {
		results = []*models.ExecutionSnapshot{}
	}

	return c.JSON(results)
}
