package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jbtestsuite/jbtest/pkg/browser"
	"github.com/jbtestsuite/jbtest/pkg/cmd"
	"github.com/jbtestsuite/jbtest/pkg/metrics"
	"github.com/jbtestsuite/jbtest/pkg/notify"
	"github.com/jbtestsuite/jbtest/pkg/orchestrator"
	"github.com/jbtestsuite/jbtest/pkg/otelhelper"
	"github.com/jbtestsuite/jbtest/pkg/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Config struct {
	Port           int
	WSPort         int
	DatabaseURL    string
	EventBus       string
	KafkaBrokers   string
	HubURL         string
	MaxSessions    int
	SessionTimeout time.Duration
	ReapSchedule   string
	ScreenshotsDir string
	OpenAIKey      string
	VisionModel    string
	CleanupDelay   time.Duration
	OtelEnabled    bool
	ShutdownGrace  time.Duration
}

// run wires every component and blocks until ctx is done or a server fails.
func run(ctx context.Context, logger *slog.Logger, cfg Config) error {
	tracer, shutdownTracer, err := otelhelper.Setup(ctx, "jbtest-api", cfg.OtelEnabled)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		if err := shutdownTracer(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	persistence := cmd.NewPersistence(ctx, logger, cfg.DatabaseURL)
	defer func() {
		if err := persistence.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(cfg.EventBus, cfg.KafkaBrokers, logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	pool := cmd.NewSessionPool(cfg.HubURL, cfg.MaxSessions, cfg.SessionTimeout, cfg.ScreenshotsDir, logger, m)
	defer pool.Shutdown(context.WithoutCancel(ctx))

	reaper, err := browser.NewReaper(pool, cfg.ReapSchedule, logger)
	if err != nil {
		return err
	}

	if err := reaper.Start(ctx); err != nil {
		return err
	}
	defer reaper.Stop()

	analyzer := cmd.NewVisionAnalyzer(cfg.OpenAIKey, cfg.VisionModel, logger, m)

	hub := notify.NewHub(logger, m)
	defer hub.Close()

	// The relay subscribes before the orchestrator can publish.
	if err := notify.NewRelay(hub, eventBus, logger).Start(ctx); err != nil {
		return fmt.Errorf("failed to start notification relay: %w", err)
	}

	orch := orchestrator.New(
		orchestrator.Config{CleanupDelay: cfg.CleanupDelay},
		persistence.TestCaseRepository(),
		persistence.ExecutionResultRepository(),
		pool,
		analyzer,
		eventBus,
		logger,
		orchestrator.WithTracer(tracer),
		orchestrator.WithMetrics(m),
	)

	if err := orch.Start(ctx); err != nil {
		return err
	}

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownGrace)
		defer cancel()

		if err := orch.Stop(stopCtx); err != nil {
			logger.ErrorContext(ctx, "Failed to stop orchestrator", "error", err)
		}
	}()

	handlers := web.NewAPIHandlers(orch, pool, persistence, analyzer, validator.New(validator.WithRequiredStructEnabled()))
	api := NewAPI(logger, handlers, registry)

	wsServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.WSPort),
		Handler:           notify.NewServeMux(notify.NewHandler(hub, orch, logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serve(ctx, logger, api, wsServer, cfg)
}

func serve(ctx context.Context, logger *slog.Logger, api *API, wsServer *http.Server, cfg Config) error {
	errs := make(chan error, 2)

	go func() {
		logger.InfoContext(ctx, "Starting WebSocket server", "addr", wsServer.Addr)

		err := wsServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("websocket server: %w", err)
		}
	}()

	app := api.App()

	go func() {
		logger.InfoContext(ctx, "Starting API server", "port", cfg.Port)

		err := app.Listen(":" + strconv.Itoa(cfg.Port))
		if err != nil {
			errs <- fmt.Errorf("api server: %w", err)
		}
	}()

	var runErr error

	select {
	case <-ctx.Done():
		logger.InfoContext(ctx, "Shutting down")
	case runErr = <-errs:
		logger.ErrorContext(ctx, "Server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownGrace)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.ErrorContext(ctx, "Failed to shutdown API server", "error", err)
	}

	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(ctx, "Failed to shutdown WebSocket server", "error", err)
	}

	return runErr
}
