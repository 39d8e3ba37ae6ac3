// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jbtestsuite/jbtest/pkg/persistence"
	"github.com/jbtestsuite/jbtest/pkg/persistence/file"
	"github.com/jbtestsuite/jbtest/pkg/persistence/postgresql"
	"github.com/jbtestsuite/jbtest/pkg/persistence/redis"
)

// DefaultResultTTL bounds how long redis keeps execution results.
const DefaultResultTTL = 30 * 24 * time.Hour

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "redis", "rediss"}

// NewPersistence selects the store from the database URL scheme. Anything
// without a known scheme is treated as a directory for JSON files.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return p
	case "redis", "rediss":
		p, err := redis.NewPersistence(ctx, logger, databaseURL, DefaultResultTTL)
		if err != nil {
			panic(fmt.Errorf("failed to create Redis persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
