package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jbtestsuite/jbtest/pkg/browser"
	"github.com/jbtestsuite/jbtest/pkg/eventbus"
	"github.com/jbtestsuite/jbtest/pkg/events"
	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/jbtestsuite/jbtest/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

const analysisTimeout = 2 * time.Minute

func (o *Orchestrator) executeTest(workerCtx context.Context, exec *execution) {
	runCtx, cancelRun := context.WithCancel(workerCtx)
	defer cancelRun()

	exec.mu.Lock()
	if exec.ctx.Status != models.ExecutionStatusQueued {
		exec.mu.Unlock()

		return
	}

	startedAt := o.now()
	exec.ctx.Status = models.ExecutionStatusRunning
	exec.ctx.StartedAt = &startedAt
	exec.cancelRun = cancelRun
	steps := exec.ctx.Steps
	executionID, testCaseID, userID := exec.ctx.ExecutionID, exec.ctx.TestCaseID, exec.ctx.UserID
	testCaseName := exec.ctx.TestCaseName
	exec.mu.Unlock()

	ctx, span := otelhelper.StartSpan(runCtx, o.tracer, "orchestrator.execute_test",
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.String(otelhelper.TestCaseIDKey, testCaseID),
	)
	defer span.End()

	logger := o.logger.With("execution_id", executionID, "test_case_id", testCaseID)
	logger.InfoContext(ctx, "Starting test execution", "steps", len(steps))

	o.metrics.ExecutionsActive.Inc()
	defer o.metrics.ExecutionsActive.Dec()

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Error executing test", "error", r)
			o.terminate(ctx, exec, models.ExecutionStatusFailed, fmt.Sprintf("Unexpected error: %v", r), models.ErrorKindInternal)
		}
	}()

	sessionID, err := o.pool.CreateSession(ctx)
	if err != nil {
		kind := models.ErrorKindInternal
		if browser.IsPoolExhausted(err) {
			kind = models.ErrorKindPoolExhausted
		}

		otelhelper.SetError(span, err)
		o.terminate(ctx, exec, models.ExecutionStatusFailed, err.Error(), kind)

		return
	}

	exec.mu.Lock()
	if exec.ctx.Status != models.ExecutionStatusRunning {
		exec.mu.Unlock()
		o.pool.CloseSession(ctx, sessionID)

		return
	}

	exec.ctx.SessionID = sessionID
	exec.mu.Unlock()

	span.SetAttributes(attribute.String(otelhelper.SessionIDKey, sessionID))

	o.emit(ctx, exec, events.ExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionStartedEvent, executionID, testCaseID, userID),
		TestCaseName: testCaseName,
		SessionID:    sessionID,
		TotalSteps:   len(steps),
	})

	for i, step := range steps {
		exec.mu.Lock()
		if exec.ctx.Status != models.ExecutionStatusRunning {
			exec.mu.Unlock()
			logger.InfoContext(ctx, "Execution no longer running, stopping", "step", i+1)

			return
		}

		exec.ctx.CurrentStep = i + 1
		exec.mu.Unlock()

		success, message := o.runStep(ctx, exec, sessionID, step)

		o.emit(ctx, exec, events.ExecutionProgress{
			BaseEvent:          events.NewBaseEvent(events.ExecutionProgressEvent, executionID, testCaseID, userID),
			StepNumber:         step.StepNumber,
			TotalSteps:         len(steps),
			StepDescription:    step.Description,
			StepSuccess:        success,
			ScreenshotPath:     lastScreenshot(exec),
			ProgressPercentage: progressPercentage(i+1, len(steps)),
		})

		if !success {
			if message == "" {
				message = fmt.Sprintf("Step %d failed", step.StepNumber)
			}

			otelhelper.SetError(span, errors.New(message), attribute.Int(otelhelper.StepNumberKey, step.StepNumber))
			o.terminate(ctx, exec, models.ExecutionStatusFailed, message, models.ErrorKindStepFailure)

			return
		}
	}

	o.terminate(ctx, exec, models.ExecutionStatusCompleted, "", models.ErrorKindNone)
}

// runStep executes one step and converts panics into a step failure.
func (o *Orchestrator) runStep(ctx context.Context, exec *execution, sessionID string, step models.TestStep) (success bool, message string) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "orchestrator.step", otelhelper.StepAttributes(step)...)
	defer span.End()

	start := o.now()

	defer func() {
		if r := recover(); r != nil {
			success, message = false, stepError(step, r)
		}

		outcome := "success"
		if !success {
			outcome = "failure"

			otelhelper.SetError(span, errors.New(message))
		}

		o.metrics.StepDuration.WithLabelValues(string(step.Type), outcome).Observe(o.now().Sub(start).Seconds())
	}()

	return o.dispatch(ctx, exec, sessionID, step)
}

func (o *Orchestrator) dispatch(ctx context.Context, exec *execution, sessionID string, step models.TestStep) (bool, string) {
	timeout := time.Duration(step.TimeoutSeconds) * time.Second

	switch step.Type {
	case models.StepTypeNavigate:
		result := o.pool.Navigate(ctx, sessionID, step.URL, timeout)
		o.recordScreenshot(exec, result.ScreenshotPath, step.Description)

		return result.Success, result.Message
	case models.StepTypeClick:
		result := o.pool.Interact(ctx, sessionID, step.Selector, step.SelectorType, models.ActionClick, "", timeout)
		o.recordScreenshot(exec, result.ScreenshotPath, step.Description)

		return result.Success, result.Message
	case models.StepTypeInput:
		result := o.pool.Interact(ctx, sessionID, step.Selector, step.SelectorType, models.ActionInput, step.InputText, timeout)
		o.recordScreenshot(exec, result.ScreenshotPath, step.Description)

		return result.Success, result.Message
	case models.StepTypeWait:
		err := sleep(ctx, time.Duration(step.WaitSeconds*float64(time.Second)))
		if err != nil {
			return false, stepError(step, err)
		}

		return true, ""
	case models.StepTypeVerify:
		result := o.pool.Interact(ctx, sessionID, step.Selector, step.SelectorType, models.ActionGetText, "", timeout)
		o.recordScreenshot(exec, result.ScreenshotPath, step.Description)

		if !result.Success {
			return false, result.Message
		}

		if step.ExpectedText != "" && !strings.Contains(result.Value, step.ExpectedText) {
			return false, fmt.Sprintf("Expected text '%s' not found in '%s'", step.ExpectedText, result.Value)
		}

		return true, result.Message
	case models.StepTypeScreenshot:
		path, err := o.pool.Screenshot(ctx, sessionID, fmt.Sprintf("step_%d", step.StepNumber))
		if err != nil {
			o.logger.WarnContext(ctx, "Screenshot step captured nothing", "step", step.StepNumber, "error", err)

			return true, ""
		}

		o.recordScreenshot(exec, path, step.Description)

		return true, ""
	default:
		return false, stepError(step, fmt.Sprintf("unsupported step type %q", step.Type))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func lastScreenshot(exec *execution) string {
	exec.mu.Lock()
	defer exec.mu.Unlock()

	if len(exec.ctx.Screenshots) == 0 {
		return ""
	}

	return exec.ctx.Screenshots[len(exec.ctx.Screenshots)-1]
}

// recordScreenshot appends path and spawns its analysis.
func (o *Orchestrator) recordScreenshot(exec *execution, path, description string) {
	if path == "" {
		return
	}

	exec.mu.Lock()
	exec.ctx.Screenshots = append(exec.ctx.Screenshots, path)
	executionID := exec.ctx.ExecutionID
	exec.mu.Unlock()

	if !o.analyzer.Enabled() {
		return
	}

	o.goDetached(func() {
		ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
		defer cancel()

		prompt := "Test execution screenshot"
		if description != "" {
			prompt = "Test execution step: " + description
		}

		result := o.analyzer.AnalyzeScreenshot(ctx, path, prompt)
		if !result.Success {
			o.logger.WarnContext(ctx, "AI analysis failed", "execution_id", executionID, "error", result.Error)

			return
		}

		exec.mu.Lock()
		exec.ctx.AIAnalyses = append(exec.ctx.AIAnalyses, models.AIAnalysis{
			ScreenshotPath:  path,
			StepDescription: description,
			Analysis:        result.Analysis,
			Usage:           result.Usage,
			Timestamp:       o.now().UTC(),
		})
		exec.mu.Unlock()

		o.logger.InfoContext(ctx, "AI analysis completed for screenshot", "execution_id", executionID, "path", path)
	})
}

// emit publishes a non terminal event unless the execution already finished.
func (o *Orchestrator) emit(ctx context.Context, exec *execution, event eventbus.Event) {
	exec.notifyMu.Lock()
	defer exec.notifyMu.Unlock()

	if exec.status() != models.ExecutionStatusRunning {
		return
	}

	o.publish(ctx, exec, event)
}

func (o *Orchestrator) publish(ctx context.Context, exec *execution, event eventbus.Event) {
	snap := exec.snapshot()

	err := o.publisher.Publish(ctx, snap.ExecutionID, event)
	if err != nil {
		executionLogger(o.logger, snap).ErrorContext(ctx, "Failed to publish execution event", "type", event.GetType(), "error", err)
	}
}

// terminate moves exec into a terminal status exactly once. The winner
// releases the session, emits the terminal notification and schedules the
// final analysis, persistence and purge.
func (o *Orchestrator) terminate(
	ctx context.Context,
	exec *execution,
	status models.ExecutionStatus,
	message string,
	kind models.ErrorKind,
) bool {
	ctx = context.WithoutCancel(ctx)

	exec.notifyMu.Lock()
	defer exec.notifyMu.Unlock()

	exec.mu.Lock()
	if exec.ctx.Status.IsTerminal() {
		exec.mu.Unlock()

		return false
	}

	completedAt := o.now()
	exec.ctx.Status = status
	exec.ctx.CompletedAt = &completedAt
	exec.ctx.ErrorMessage = message
	exec.ctx.ErrorKind = kind
	sessionID := exec.ctx.SessionID
	exec.ctx.SessionID = ""
	cancelRun := exec.cancelRun
	snap := exec.ctx.Snapshot()
	exec.mu.Unlock()

	logger := executionLogger(o.logger, snap)
	o.metrics.ExecutionsTotal.WithLabelValues(string(status)).Inc()

	if cancelRun != nil {
		cancelRun()
	}

	if sessionID != "" {
		o.pool.CloseSession(ctx, sessionID)
		logger.DebugContext(ctx, "Released browser session", "session_id", sessionID)
	}

	base := events.NewBaseEvent("", snap.ExecutionID, snap.TestCaseID, snap.UserID)

	switch status {
	case models.ExecutionStatusCompleted:
		base.Type = events.ExecutionCompletedEvent
		o.publish(ctx, exec, events.ExecutionCompleted{
			BaseEvent:       base,
			Success:         true,
			ResultSummary:   fmt.Sprintf("Test completed successfully in %d steps", snap.TotalSteps),
			DurationSeconds: snap.Duration().Seconds(),
		})
		logger.InfoContext(ctx, "Test execution completed", "duration", snap.Duration())
	case models.ExecutionStatusCancelled:
		base.Type = events.ExecutionCancelledEvent
		o.publish(ctx, exec, events.ExecutionCancelled{
			BaseEvent:    base,
			ErrorMessage: "Test execution was cancelled",
		})
	default:
		base.Type = events.ExecutionFailedEvent
		o.publish(ctx, exec, events.ExecutionFailed{
			BaseEvent:    base,
			ErrorMessage: message,
			ErrorKind:    kind,
			CurrentStep:  snap.CurrentStep,
		})
		logger.WarnContext(ctx, "Test execution failed", "error", message, "error_kind", kind)
	}

	o.goDetached(func() {
		o.wrapUp(exec, status != models.ExecutionStatusCancelled)
	})

	return true
}

// wrapUp runs the whole execution analysis, stores the result once and
// schedules the purge of the in-memory context.
func (o *Orchestrator) wrapUp(exec *execution, analyze bool) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	snap := exec.snapshot()
	logger := executionLogger(o.logger, snap)

	if analyze && o.analyzer.Enabled() {
		result := o.analyzer.AnalyzeExecution(ctx, analysisInput(snap))
		if result.Success {
			exec.mu.Lock()
			exec.ctx.FinalAIAnalysis = &models.AIAnalysis{
				Analysis:  result.Analysis,
				Usage:     result.Usage,
				Timestamp: o.now().UTC(),
			}
			exec.mu.Unlock()

			logger.InfoContext(ctx, "AI execution analysis completed")
		} else {
			logger.WarnContext(ctx, "AI execution analysis failed", "error", result.Error)
		}
	}

	if o.results != nil {
		err := o.results.Save(ctx, exec.snapshot())
		if err != nil {
			logger.ErrorContext(ctx, "Failed to store execution results", "error", err)
		} else {
			logger.InfoContext(ctx, "Stored execution results")
		}
	}

	time.AfterFunc(o.cfg.CleanupDelay, func() {
		o.mu.Lock()
		delete(o.executions, snap.ExecutionID)
		o.mu.Unlock()

		logger.Debug("Cleaned up execution")
	})
}

func analysisInput(snap *models.ExecutionSnapshot) map[string]any {
	name := snap.TestCaseName
	if name == "" {
		name = "Unknown"
	}

	input := map[string]any{
		"execution_id":      snap.ExecutionID,
		"test_case_name":    name,
		"status":            string(snap.Status),
		"total_steps":       snap.TotalSteps,
		"current_step":      snap.CurrentStep,
		"started_at":        nil,
		"completed_at":      nil,
		"duration_seconds":  nil,
		"error_message":     snap.ErrorMessage,
		"screenshot_count":  len(snap.Screenshots),
		"ai_analyses_count": len(snap.AIAnalyses),
	}

	if snap.StartedAt != nil {
		input["started_at"] = snap.StartedAt.UTC().Format(time.RFC3339Nano)
	}

	if snap.CompletedAt != nil {
		input["completed_at"] = snap.CompletedAt.UTC().Format(time.RFC3339Nano)
	}

	if snap.StartedAt != nil && snap.CompletedAt != nil {
		input["duration_seconds"] = snap.Duration().Seconds()
	}

	return input
}
