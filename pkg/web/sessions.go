package web

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jbtestsuite/jbtest/pkg/models"
)

func (h *APIHandlers) CreateSession(c fiber.Ctx) error {
	sessionID, err := h.sessions.CreateSession(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": sessionID,
		"message":    "WebDriver session created successfully",
		"timestamp":  time.Now().UTC(),
	})
}

func (h *APIHandlers) GetSessions(c fiber.Ctx) error {
	return c.JSON(h.sessions.ListSessions())
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	info, ok := h.sessions.SessionInfo(c.Params("id"))
	if !ok {
		return notFound(c, "Session not found")
	}

	return c.JSON(info)
}

func (h *APIHandlers) CloseSession(c fiber.Ctx) error {
	if !h.sessions.CloseSession(c.Context(), c.Params("id")) {
		return notFound(c, "Session not found")
	}

	return c.JSON(fiber.Map{
		"message":   "WebDriver session closed successfully",
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) Navigate(c fiber.Ctx) error {
	id := c.Params("id")

	var req NavigateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if _, ok := h.sessions.SessionInfo(id); !ok {
		return notFound(c, "Session not found")
	}

	timeout := req.TimeoutSeconds
	if timeout == 0 {
		timeout = defaultNavigateTimeoutSeconds
	}

	result := h.sessions.Navigate(c.Context(), id, req.URL, time.Duration(timeout)*time.Second)

	return c.JSON(result)
}

func (h *APIHandlers) Interact(c fiber.Ctx) error {
	id := c.Params("id")

	var req InteractRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if _, ok := h.sessions.SessionInfo(id); !ok {
		return notFound(c, "Session not found")
	}

	if req.SelectorType == "" {
		req.SelectorType = models.SelectorCSS
	}

	timeout := req.TimeoutSeconds
	if timeout == 0 {
		timeout = defaultInteractTimeoutSeconds
	}

	result := h.sessions.Interact(c.Context(), id, req.Selector, req.SelectorType, req.Action, req.InputText,
		time.Duration(timeout)*time.Second)

	return c.JSON(result)
}

func (h *APIHandlers) TakeScreenshot(c fiber.Ctx) error {
	var req ScreenshotRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if req.Tag == "" {
		req.Tag = "manual"
	}

	path, err := h.sessions.Screenshot(c.Context(), c.Params("id"), req.Tag)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"screenshot_path": path,
		"timestamp":       time.Now().UTC(),
	})
}

func (h *APIHandlers) SessionsHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":            "healthy",
		"webdriver_manager": h.sessions.Health(c.Context()),
		"timestamp":         time.Now().UTC(),
	})
}
