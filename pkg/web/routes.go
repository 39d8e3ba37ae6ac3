package web

import "github.com/gofiber/fiber/v3"

// Register mounts every API route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	tc := router.Group("/test-cases")
	tc.Get("/", h.GetTestCases)
	tc.Post("/", h.CreateTestCase)
	tc.Get("/:id", h.GetTestCase)
	tc.Get("/:id/executions", h.GetTestCaseExecutions)

	s := router.Group("/selenium")
	s.Get("/health", h.SessionsHealth)
	s.Post("/sessions", h.CreateSession)
	s.Get("/sessions", h.GetSessions)
	s.Get("/sessions/:id", h.GetSession)
	s.Delete("/sessions/:id", h.CloseSession)
	s.Post("/sessions/:id/navigate", h.Navigate)
	s.Post("/sessions/:id/interact", h.Interact)
	s.Post("/sessions/:id/screenshot", h.TakeScreenshot)

	s.Post("/executions/queue", h.QueueExecution)
	s.Get("/executions/:id", h.GetExecution)
	s.Get("/executions/:id/result", h.GetExecutionResult)
	s.Delete("/executions/:id", h.CancelExecution)

	ai := router.Group("/ai")
	ai.Get("/status", h.AIStatus)
	ai.Post("/analyze-screenshot", h.AnalyzeScreenshot)
}
