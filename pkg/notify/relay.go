package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jbtestsuite/jbtest/pkg/eventbus"
	"github.com/jbtestsuite/jbtest/pkg/events"
	"github.com/jbtestsuite/jbtest/pkg/models"
)

// Relay forwards execution lifecycle events from the bus to WebSocket clients.
type Relay struct {
	hub    *Hub
	bus    eventbus.EventSubscriber
	logger *slog.Logger
}

func NewRelay(hub *Hub, bus eventbus.EventSubscriber, logger *slog.Logger) *Relay {
	return &Relay{
		hub:    hub,
		bus:    bus,
		logger: logger.With("module", "notify_relay"),
	}
}

// Start registers handlers for every execution event and begins consuming.
func (r *Relay) Start(ctx context.Context) error {
	for _, eventType := range []events.EventType{
		events.ExecutionStartedEvent,
		events.ExecutionProgressEvent,
		events.ExecutionCompletedEvent,
		events.ExecutionFailedEvent,
		events.ExecutionCancelledEvent,
	} {
		err := r.bus.Handle(eventType, r.handle)
		if err != nil {
			return fmt.Errorf("failed to register handler for %s: %w", eventType, err)
		}
	}

	return r.bus.Subscribe(ctx)
}

func (r *Relay) handle(ctx context.Context, event any) error {
	msg, base, terminal := Translate(event)
	if msg == nil {
		r.logger.WarnContext(ctx, "Ignoring unknown event", "event", fmt.Sprintf("%T", event))

		return nil
	}

	sent := r.hub.Deliver(ctx, base.UserID, base.ExecutionID, msg)

	r.logger.DebugContext(ctx, "Relayed execution event",
		"type", msg["type"], "execution_id", base.ExecutionID, "user_id", base.UserID, "recipients", sent)

	if terminal {
		r.hub.Unsubscribe(base.ExecutionID)
	}

	return nil
}

// Translate builds the client message for an execution event. It returns a
// nil message for unknown events; terminal is set for the last event of an execution.
func Translate(event any) (msg Message, base events.BaseEvent, terminal bool) {
	switch e := event.(type) {
	case *events.ExecutionStarted:
		return Message{
			"type":         TypeTestExecutionStarted,
			"execution_id": e.ExecutionID,
			"test_case_id": e.TestCaseID,
			"total_steps":  e.TotalSteps,
			"timestamp":    timestamp(e.Timestamp),
		}, e.BaseEvent, false
	case *events.ExecutionProgress:
		var screenshot any
		if e.ScreenshotPath != "" {
			screenshot = e.ScreenshotPath
		}

		return Message{
			"type":                TypeTestExecutionProgress,
			"execution_id":        e.ExecutionID,
			"test_case_id":        e.TestCaseID,
			"step_number":         e.StepNumber,
			"total_steps":         e.TotalSteps,
			"step_description":    e.StepDescription,
			"step_success":        e.StepSuccess,
			"screenshot_path":     screenshot,
			"progress_percentage": e.ProgressPercentage,
			"timestamp":           timestamp(e.Timestamp),
		}, e.BaseEvent, false
	case *events.ExecutionCompleted:
		return Message{
			"type":             TypeTestExecutionCompleted,
			"execution_id":     e.ExecutionID,
			"test_case_id":     e.TestCaseID,
			"success":          e.Success,
			"result_summary":   e.ResultSummary,
			"duration_seconds": e.DurationSeconds,
			"timestamp":        timestamp(e.Timestamp),
		}, e.BaseEvent, true
	case *events.ExecutionFailed:
		return Message{
			"type":          TypeTestExecutionError,
			"execution_id":  e.ExecutionID,
			"test_case_id":  e.TestCaseID,
			"error_message": e.ErrorMessage,
			"error_kind":    string(e.ErrorKind),
			"timestamp":     timestamp(e.Timestamp),
		}, e.BaseEvent, true
	case *events.ExecutionCancelled:
		return Message{
			"type":          TypeTestExecutionError,
			"execution_id":  e.ExecutionID,
			"test_case_id":  e.TestCaseID,
			"error_message": e.ErrorMessage,
			"error_kind":    string(models.ErrorKindCancelled),
			"timestamp":     timestamp(e.Timestamp),
		}, e.BaseEvent, true
	default:
		return nil, events.BaseEvent{}, false
	}
}
