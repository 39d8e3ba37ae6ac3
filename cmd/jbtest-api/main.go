package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jbtestsuite/jbtest/pkg/browser"
	"github.com/jbtestsuite/jbtest/pkg/log"
	"github.com/jbtestsuite/jbtest/pkg/orchestrator"
	"github.com/jbtestsuite/jbtest/pkg/vision"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort   = 8000
	defaultWSPort = 8001
)

func main() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:                  "jbtest-api",
		Usage:                 "Run queued browser tests and stream their progress",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.IntFlag{
				Name:    "ws-port",
				Usage:   "Port to run the WebSocket server on",
				Value:   defaultWSPort,
				Sources: cli.EnvVars("WS_PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence (postgres://, redis:// or a directory)",
				Value:   "./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "selenium-hub-url",
				Usage:   "Selenium grid endpoint",
				Value:   "http://localhost:4444/wd/hub",
				Sources: cli.EnvVars("SELENIUM_HUB_URL"),
			},
			&cli.IntFlag{
				Name:    "max-sessions",
				Usage:   "Maximum number of concurrent WebDriver sessions",
				Value:   browser.DefaultMaxSessions,
				Sources: cli.EnvVars("MAX_SESSIONS"),
			},
			&cli.DurationFlag{
				Name:    "session-timeout",
				Usage:   "Idle time after which a session is reaped",
				Value:   browser.DefaultSessionTimeout,
				Sources: cli.EnvVars("SESSION_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "reap-interval",
				Usage:   "Cron schedule of the idle session reaper",
				Value:   browser.DefaultReapSchedule,
				Sources: cli.EnvVars("REAP_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "screenshots-dir",
				Usage:   "Directory for screenshots",
				Value:   browser.DefaultScreenshotsDir,
				Sources: cli.EnvVars("SCREENSHOTS_DIR"),
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Usage:   "OpenAI API key; vision analysis is disabled without it",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "vision-model",
				Usage:   "Model used for screenshot and execution analysis",
				Value:   vision.DefaultModel,
				Sources: cli.EnvVars("OPENAI_MODEL"),
			},
			&cli.DurationFlag{
				Name:    "cleanup-delay",
				Usage:   "How long finished executions stay queryable in memory",
				Value:   orchestrator.DefaultCleanupDelay,
				Sources: cli.EnvVars("CLEANUP_DELAY"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing jbtest API")

			return run(ctx, logger, Config{
				Port:           command.Int("port"),
				WSPort:         command.Int("ws-port"),
				DatabaseURL:    command.String("database-url"),
				EventBus:       command.String("event-bus"),
				KafkaBrokers:   command.String("kafka-brokers"),
				HubURL:         command.String("selenium-hub-url"),
				MaxSessions:    command.Int("max-sessions"),
				SessionTimeout: command.Duration("session-timeout"),
				ReapSchedule:   command.String("reap-interval"),
				ScreenshotsDir: command.String("screenshots-dir"),
				OpenAIKey:      command.String("openai-api-key"),
				VisionModel:    command.String("vision-model"),
				CleanupDelay:   command.Duration("cleanup-delay"),
				OtelEnabled:    command.Bool("otel-enabled"),
				ShutdownGrace:  30 * time.Second,
			})
		},
	}

	err = cmd.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}
