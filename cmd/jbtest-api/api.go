// Package main provides the jbtest API server.
package main

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/jbtestsuite/jbtest/pkg/metrics"
	"github.com/jbtestsuite/jbtest/pkg/web"
	"github.com/prometheus/client_golang/prometheus"
)

type API struct {
	logger   *slog.Logger
	handlers *web.APIHandlers
	gatherer prometheus.Gatherer
}

func NewAPI(logger *slog.Logger, handlers *web.APIHandlers, gatherer prometheus.Gatherer) *API {
	return &API{
		logger:   logger,
		handlers: handlers,
		gatherer: gatherer,
	}
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("jbtest API")
	})

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(a.gatherer)))

	a.handlers.Register(app)

	return app
}
