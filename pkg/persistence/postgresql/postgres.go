// Package postgresql provides PostgreSQL persistence for test cases and execution results.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jbtestsuite/jbtest/pkg/persistence"
	"github.com/jbtestsuite/jbtest/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db                  *sql.DB
	logger              *slog.Logger
	testCaseRepo        *TestCaseRepository
	executionResultRepo *ExecutionResultRepository
}

// NewPersistence connects, runs pending migrations and returns the persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:                  database,
		logger:              logger,
		testCaseRepo:        NewTestCaseRepository(database, logger),
		executionResultRepo: NewExecutionResultRepository(database, logger),
	}, nil
}

func (p *Persistence) TestCaseRepository() persistence.TestCaseRepository {
	return p.testCaseRepo
}

func (p *Persistence) ExecutionResultRepository() persistence.ExecutionResultRepository {
	return p.executionResultRepo
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
