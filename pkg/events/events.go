// Package events defines the execution lifecycle events published on the event bus.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/jbtestsuite/jbtest/pkg/models"
)

type EventType string

const Topic = "jbtest.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionProgressEvent  EventType = "execution.progress"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	ExecutionID string    `json:"execution_id"`
	TestCaseID  string    `json:"test_case_id"`
	UserID      string    `json:"user_id,omitempty"`
}

func NewBaseEvent(eventType EventType, executionID, testCaseID, userID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		ExecutionID: executionID,
		TestCaseID:  testCaseID,
		UserID:      userID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	TestCaseName string `json:"test_case_name,omitempty"`
	SessionID    string `json:"session_id"`
	TotalSteps   int    `json:"total_steps"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionProgress struct {
	BaseEvent

	StepNumber         int     `json:"step_number"`
	TotalSteps         int     `json:"total_steps"`
	StepDescription    string  `json:"step_description"`
	StepSuccess        bool    `json:"step_success"`
	ScreenshotPath     string  `json:"screenshot_path,omitempty"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

func (e ExecutionProgress) GetType() EventType {
	return ExecutionProgressEvent
}

type ExecutionCompleted struct {
	BaseEvent

	Success         bool    `json:"success"`
	ResultSummary   string  `json:"result_summary"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ErrorMessage string           `json:"error_message"`
	ErrorKind    models.ErrorKind `json:"error_kind"`
	CurrentStep  int              `json:"current_step"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	ErrorMessage string `json:"error_message"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}
