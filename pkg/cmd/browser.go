package cmd

import (
	"log/slog"
	"time"

	"github.com/jbtestsuite/jbtest/pkg/browser"
	"github.com/jbtestsuite/jbtest/pkg/metrics"
)

// NewSessionPool creates the WebDriver pool backed by a remote Selenium hub.
func NewSessionPool(
	hubURL string,
	maxSessions int,
	sessionTimeout time.Duration,
	screenshotsDir string,
	logger *slog.Logger,
	m *metrics.Metrics,
) *browser.Pool {
	pool, err := browser.NewPool(
		browser.Config{
			MaxSessions:    maxSessions,
			SessionTimeout: sessionTimeout,
			ScreenshotsDir: screenshotsDir,
		},
		NewDriverFactory(hubURL),
		logger,
		m,
	)
	if err != nil {
		panic(err)
	}

	return pool
}

func NewDriverFactory(hubURL string) browser.DriverFactory {
	return browser.NewSeleniumFactory(hubURL)
}
