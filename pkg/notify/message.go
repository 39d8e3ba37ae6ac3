package notify

import (
	"time"
)

// Message is one JSON frame sent to a client. Every message carries type and timestamp.
type Message map[string]any

const (
	TypeHeartbeatAck                   = "heartbeat_ack"
	TypeError                          = "error"
	TypeTestExecutionQueued            = "test_execution_queued"
	TypeTestExecutionCancelled         = "test_execution_cancelled"
	TypeExecutionSubscriptionConfirmed = "execution_subscription_confirmed"
	TypeTestExecutionStarted           = "test_execution_started"
	TypeTestExecutionProgress          = "test_execution_progress"
	TypeTestExecutionCompleted         = "test_execution_completed"
	TypeTestExecutionError             = "test_execution_error"
)

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NewMessage stamps fields with type and the current time.
func NewMessage(messageType string, fields Message) Message {
	msg := Message{
		"type":      messageType,
		"timestamp": timestamp(time.Now()),
	}

	for k, v := range fields {
		msg[k] = v
	}

	return msg
}

func errorMessage(text string) Message {
	return NewMessage(TypeError, Message{"message": text})
}
