// Package orchestrator queues test executions and runs them one at a time
// against the browser session pool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jbtestsuite/jbtest/pkg/eventbus"
	"github.com/jbtestsuite/jbtest/pkg/metrics"
	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/jbtestsuite/jbtest/pkg/otelhelper"
	"github.com/jbtestsuite/jbtest/pkg/persistence"
	"github.com/jbtestsuite/jbtest/pkg/vision"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultCleanupDelay = 5 * time.Minute
	DefaultQueueSize    = 1000
)

var (
	ErrQueueFull      = errors.New("execution queue is full")
	ErrAlreadyStarted = errors.New("orchestrator already started")
)

// SessionPool is the browser capability the orchestrator drives.
type SessionPool interface {
	CreateSession(ctx context.Context) (string, error)
	CloseSession(ctx context.Context, sessionID string) bool
	Navigate(ctx context.Context, sessionID, url string, timeout time.Duration) models.NavigationResult
	Interact(
		ctx context.Context,
		sessionID, selector string,
		selectorType models.SelectorType,
		action models.Action,
		text string,
		timeout time.Duration,
	) models.InteractionResult
	Screenshot(ctx context.Context, sessionID, tag string) (string, error)
}

type Config struct {
	// CleanupDelay is how long a finished execution stays queryable.
	CleanupDelay time.Duration
	QueueSize    int
}

type Option func(*Orchestrator)

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// execution couples a context with its locks. mu guards ctx; notifyMu orders
// the notifications of one execution so nothing follows its terminal event.
type execution struct {
	mu        sync.Mutex
	ctx       models.ExecutionContext
	cancelRun context.CancelFunc

	notifyMu sync.Mutex
}

func (e *execution) snapshot() *models.ExecutionSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.ctx.Snapshot()
}

func (e *execution) status() models.ExecutionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.ctx.Status
}

type Orchestrator struct {
	cfg       Config
	testCases persistence.TestCaseRepository
	results   persistence.ExecutionResultRepository
	pool      SessionPool
	analyzer  vision.Analyzer
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	validate  *validator.Validate
	now       func() time.Time

	queue chan string

	mu         sync.RWMutex
	executions map[string]*execution

	lifecycle  sync.Mutex
	stopWorker context.CancelFunc
	workerDone chan struct{}

	detached sync.WaitGroup
}

func New(
	cfg Config,
	testCases persistence.TestCaseRepository,
	results persistence.ExecutionResultRepository,
	pool SessionPool,
	analyzer vision.Analyzer,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	if cfg.CleanupDelay <= 0 {
		cfg.CleanupDelay = DefaultCleanupDelay
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	if analyzer == nil {
		analyzer = vision.Disabled{}
	}

	o := &Orchestrator{
		cfg:        cfg,
		testCases:  testCases,
		results:    results,
		pool:       pool,
		analyzer:   analyzer,
		publisher:  publisher,
		logger:     logger.With("module", "orchestrator"),
		tracer:     otelhelper.NoopTracer(),
		metrics:    metrics.NewUnregistered(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        time.Now,
		queue:      make(chan string, cfg.QueueSize),
		executions: make(map[string]*execution),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// QueueTestExecution registers a new execution of the test case and hands it
// to the worker. It never waits for a browser session.
func (o *Orchestrator) QueueTestExecution(ctx context.Context, testCaseID, userID string) (string, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "orchestrator.queue",
		attribute.String(otelhelper.TestCaseIDKey, testCaseID),
		attribute.String(otelhelper.UserIDKey, userID),
	)
	defer span.End()

	testCase, err := o.testCases.GetByID(ctx, testCaseID)
	if err != nil {
		otelhelper.SetError(span, err)

		return "", err
	}

	steps, err := BuildPlan(testCase, o.validate)
	if err != nil {
		otelhelper.SetError(span, err)

		return "", err
	}

	if len(testCase.Steps) == 0 {
		o.logger.WarnContext(ctx, "Test case has no defined steps, using default navigation test", "test_case_id", testCaseID)
	}

	exec := &execution{
		ctx: models.ExecutionContext{
			ExecutionID:  uuid.New().String(),
			TestCaseID:   testCaseID,
			TestCaseName: testCase.Name,
			UserID:       userID,
			Status:       models.ExecutionStatusQueued,
			Steps:        steps,
			Screenshots:  []string{},
			AIAnalyses:   []models.AIAnalysis{},
		},
	}
	executionID := exec.ctx.ExecutionID

	o.mu.Lock()
	o.executions[executionID] = exec
	o.mu.Unlock()

	select {
	case o.queue <- executionID:
	default:
		o.mu.Lock()
		delete(o.executions, executionID)
		o.mu.Unlock()

		otelhelper.SetError(span, ErrQueueFull)

		return "", ErrQueueFull
	}

	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, executionID))
	o.metrics.ExecutionsQueued.Inc()
	o.logger.InfoContext(ctx, "Queued test execution",
		"execution_id", executionID, "test_case_id", testCaseID, "steps", len(steps))

	return executionID, nil
}

// CancelExecution stops a queued or running execution. It returns false when
// the execution is unknown or already finished.
func (o *Orchestrator) CancelExecution(ctx context.Context, executionID string) bool {
	exec := o.lookup(executionID)
	if exec == nil {
		return false
	}

	cancelled := o.terminate(ctx, exec, models.ExecutionStatusCancelled, "Execution cancelled by user", models.ErrorKindCancelled)
	if cancelled {
		o.logger.InfoContext(ctx, "Cancelled test execution", "execution_id", executionID)
	}

	return cancelled
}

// GetExecutionStatus returns a copy of the execution state.
func (o *Orchestrator) GetExecutionStatus(executionID string) (*models.ExecutionSnapshot, bool) {
	exec := o.lookup(executionID)
	if exec == nil {
		return nil, false
	}

	return exec.snapshot(), true
}

// ActiveExecutions counts executions that are queued or running.
func (o *Orchestrator) ActiveExecutions() int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	active := 0

	for _, exec := range o.executions {
		if !exec.status().IsTerminal() {
			active++
		}
	}

	return active
}

func (o *Orchestrator) lookup(executionID string) *execution {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.executions[executionID]
}

// Start launches the single worker. The worker stops when ctx is done or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	if o.stopWorker != nil {
		return ErrAlreadyStarted
	}

	workerCtx, cancel := context.WithCancel(ctx)
	o.stopWorker = cancel
	o.workerDone = make(chan struct{})

	go o.work(workerCtx, o.workerDone)

	o.logger.InfoContext(ctx, "Started test execution orchestrator")

	return nil
}

// Stop cancels every active execution, stops the worker and waits for
// detached work until ctx expires.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.RLock()
	active := make([]*execution, 0, len(o.executions))
	for _, exec := range o.executions {
		active = append(active, exec)
	}
	o.mu.RUnlock()

	for _, exec := range active {
		o.terminate(ctx, exec, models.ExecutionStatusCancelled, "Execution cancelled: orchestrator stopped", models.ErrorKindCancelled)
	}

	o.lifecycle.Lock()
	stop, done := o.stopWorker, o.workerDone
	o.stopWorker, o.workerDone = nil, nil
	o.lifecycle.Unlock()

	if stop != nil {
		stop()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	drained := make(chan struct{})

	go func() {
		o.detached.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	}

	o.logger.InfoContext(ctx, "Stopped test execution orchestrator")

	return nil
}

func (o *Orchestrator) work(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case executionID := <-o.queue:
			exec := o.lookup(executionID)
			if exec == nil {
				continue
			}

			o.executeTest(ctx, exec)
		}
	}
}

// goDetached runs fn as work tracked by Stop.
func (o *Orchestrator) goDetached(fn func()) {
	o.detached.Add(1)

	go func() {
		defer o.detached.Done()

		fn()
	}()
}

// progressPercentage is round(step/total*100, 2), zero for an empty plan.
func progressPercentage(step, total int) float64 {
	if total == 0 {
		return 0
	}

	return math.Round(float64(step)/float64(total)*100*100) / 100
}

func executionLogger(logger *slog.Logger, snap *models.ExecutionSnapshot) *slog.Logger {
	return logger.With("execution_id", snap.ExecutionID, "test_case_id", snap.TestCaseID)
}

func stepError(step models.TestStep, err any) string {
	return fmt.Sprintf("Error in step %d: %v", step.StepNumber, err)
}
