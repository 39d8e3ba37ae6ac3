// Package redis provides Redis persistence for test cases and execution results.
// Execution results expire after a configurable retention period.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/jbtestsuite/jbtest/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix        = "jbtest:"
	testCaseIndexKey = keyPrefix + "test_cases"

	DefaultResultTTL = 7 * 24 * time.Hour
)

func testCaseKey(id string) string      { return keyPrefix + "test_case:" + id }
func resultKey(id string) string        { return keyPrefix + "execution_result:" + id }
func resultsByCaseKey(id string) string { return keyPrefix + "test_case:" + id + ":executions" }

// Persistence implements persistence.Persistence on a Redis server.
type Persistence struct {
	client              redis.UniversalClient
	logger              *slog.Logger
	testCaseRepo        *TestCaseRepository
	executionResultRepo *ExecutionResultRepository
}

// NewPersistence parses a redis:// URL, checks connectivity and returns the persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, resultTTL time.Duration) (*Persistence, error) {
	opts, err := redis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewPersistenceWithClient(logger, client, resultTTL), nil
}

func NewPersistenceWithClient(logger *slog.Logger, client redis.UniversalClient, resultTTL time.Duration) *Persistence {
	if resultTTL <= 0 {
		resultTTL = DefaultResultTTL
	}

	return &Persistence{
		client:              client,
		logger:              logger,
		testCaseRepo:        &TestCaseRepository{client: client},
		executionResultRepo: &ExecutionResultRepository{client: client, logger: logger, ttl: resultTTL},
	}
}

func (p *Persistence) TestCaseRepository() persistence.TestCaseRepository {
	return p.testCaseRepo
}

func (p *Persistence) ExecutionResultRepository() persistence.ExecutionResultRepository {
	return p.executionResultRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

// TestCaseRepository stores test cases as JSON strings indexed by a set of ids.
type TestCaseRepository struct {
	client redis.UniversalClient
}

func (r *TestCaseRepository) GetAll(ctx context.Context) ([]*models.TestCase, error) {
	ids, err := r.client.SMembers(ctx, testCaseIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list test cases: %w", err)
	}

	testCases := make([]*models.TestCase, 0, len(ids))

	for _, id := range ids {
		testCase, err := r.GetByID(ctx, id)
		if persistence.IsTestCaseNotFound(err) {
			continue
		}

		if err != nil {
			return nil, err
		}

		testCases = append(testCases, testCase)
	}

	sortByCreation(testCases)

	return testCases, nil
}

func (r *TestCaseRepository) GetByID(ctx context.Context, id string) (*models.TestCase, error) {
	data, err := r.client.Get(ctx, testCaseKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewTestCaseError("GetByID", id, persistence.ErrTestCaseNotFound)
		}

		return nil, persistence.NewTestCaseError("GetByID", id, err)
	}

	var testCase models.TestCase

	err = json.Unmarshal(data, &testCase)
	if err != nil {
		return nil, persistence.NewTestCaseError("GetByID", id, err)
	}

	return &testCase, nil
}

func (r *TestCaseRepository) Save(ctx context.Context, testCase *models.TestCase) error {
	if testCase.ID == "" {
		return persistence.NewTestCaseError("Save", testCase.ID, persistence.ErrInvalidID)
	}

	now := time.Now().UTC()
	if testCase.CreatedAt.IsZero() {
		testCase.CreatedAt = now
	}

	testCase.UpdatedAt = now

	data, err := json.Marshal(testCase)
	if err != nil {
		return persistence.NewTestCaseError("Save", testCase.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, testCaseKey(testCase.ID), data, 0)
		pipe.SAdd(ctx, testCaseIndexKey, testCase.ID)

		return nil
	})
	if err != nil {
		return persistence.NewTestCaseError("Save", testCase.ID, err)
	}

	return nil
}

// ExecutionResultRepository stores snapshots with a TTL and keeps a per test case
// sorted set scored by completion time.
type ExecutionResultRepository struct {
	client redis.UniversalClient
	logger *slog.Logger
	ttl    time.Duration
}

func (r *ExecutionResultRepository) Save(ctx context.Context, result *models.ExecutionSnapshot) error {
	data, err := json.Marshal(result)
	if err != nil {
		return persistence.NewExecutionResultError("Save", result.ExecutionID, err)
	}

	score := float64(time.Now().UnixMilli())
	if result.CompletedAt != nil {
		score = float64(result.CompletedAt.UnixMilli())
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, resultKey(result.ExecutionID), data, r.ttl)
		pipe.ZAdd(ctx, resultsByCaseKey(result.TestCaseID), redis.Z{Score: score, Member: result.ExecutionID})
		pipe.Expire(ctx, resultsByCaseKey(result.TestCaseID), r.ttl)

		return nil
	})
	if err != nil {
		return persistence.NewExecutionResultError("Save", result.ExecutionID, err)
	}

	return nil
}

func (r *ExecutionResultRepository) GetByID(ctx context.Context, executionID string) (*models.ExecutionSnapshot, error) {
	data, err := r.client.Get(ctx, resultKey(executionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewExecutionResultError("GetByID", executionID, persistence.ErrExecutionResultNotFound)
		}

		return nil, persistence.NewExecutionResultError("GetByID", executionID, err)
	}

	var result models.ExecutionSnapshot

	err = json.Unmarshal(data, &result)
	if err != nil {
		return nil, persistence.NewExecutionResultError("GetByID", executionID, err)
	}

	return &result, nil
}

// GetByTestCase returns unexpired results, most recent first. Index entries whose
// document has expired are pruned.
func (r *ExecutionResultRepository) GetByTestCase(ctx context.Context, testCaseID string) ([]*models.ExecutionSnapshot, error) {
	ids, err := r.client.ZRevRange(ctx, resultsByCaseKey(testCaseID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list execution results: %w", err)
	}

	results := make([]*models.ExecutionSnapshot, 0, len(ids))

	for _, id := range ids {
		result, err := r.GetByID(ctx, id)
		if persistence.IsExecutionResultNotFound(err) {
			if remErr := r.client.ZRem(ctx, resultsByCaseKey(testCaseID), id).Err(); remErr != nil {
				r.logger.WarnContext(ctx, "failed to prune expired execution result", "execution_id", id, "error", remErr)
			}

			continue
		}

		if err != nil {
			return nil, err
		}

		results = append(results, result)
	}

	return results, nil
}
