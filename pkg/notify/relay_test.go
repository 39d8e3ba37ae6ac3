package notify

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jbtestsuite/jbtest/pkg/channels/gochannel"
	"github.com/jbtestsuite/jbtest/pkg/eventbus"
	"github.com/jbtestsuite/jbtest/pkg/events"
	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	t.Parallel()

	progress := &events.ExecutionProgress{
		BaseEvent:          events.NewBaseEvent(events.ExecutionProgressEvent, "exec-1", "tc-1", "alice"),
		StepNumber:         2,
		TotalSteps:         3,
		StepDescription:    "Click login",
		ProgressPercentage: 66.67,
	}

	msg, base, terminal := Translate(progress)
	require.NotNil(t, msg)
	assert.False(t, terminal)
	assert.Equal(t, "alice", base.UserID)
	assert.Equal(t, TypeTestExecutionProgress, msg["type"])
	assert.Equal(t, 2, msg["step_number"])
	assert.InDelta(t, 66.67, msg["progress_percentage"], 0.001)
	assert.Nil(t, msg["screenshot_path"])

	_, err := time.Parse(time.RFC3339Nano, msg["timestamp"].(string))
	require.NoError(t, err)

	msg, _, terminal = Translate(&events.ExecutionCancelled{
		BaseEvent:    events.NewBaseEvent(events.ExecutionCancelledEvent, "exec-1", "tc-1", ""),
		ErrorMessage: "Test execution was cancelled",
	})
	assert.True(t, terminal)
	assert.Equal(t, TypeTestExecutionError, msg["type"])
	assert.Equal(t, "Test execution was cancelled", msg["error_message"])

	msg, _, terminal = Translate(&events.ExecutionFailed{
		BaseEvent:    events.NewBaseEvent(events.ExecutionFailedEvent, "exec-1", "tc-1", ""),
		ErrorMessage: "boom",
		ErrorKind:    models.ErrorKindStepFailure,
	})
	assert.True(t, terminal)
	assert.Equal(t, "step_failure", msg["error_kind"])

	msg, _, _ = Translate("not an event")
	assert.Nil(t, msg)
}

func TestRelay_ForwardsToUser(t *testing.T) {
	t.Parallel()

	pubSub := gochannel.New(watermill.NopLogger{}, 0)
	bus := eventbus.NewWatermillEventBus(pubSub, pubSub)
	t.Cleanup(func() { _ = bus.Close() })

	hub := newTestHub()
	alice, bob := &fakeConn{}, &fakeConn{}
	hub.Connect(alice, "a", "alice")
	hub.Connect(bob, "b", "bob")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := NewRelay(hub, bus, hub.logger)
	require.NoError(t, relay.Start(ctx))

	require.NoError(t, bus.Publish(ctx, "exec-1", events.ExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, "exec-1", "tc-1", "alice"),
		Success:       true,
		ResultSummary: "Test completed successfully in 3 steps",
	}))

	require.Eventually(t, func() bool {
		return len(alice.received()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	got := alice.received()[0]
	assert.Equal(t, TypeTestExecutionCompleted, got["type"])
	assert.Equal(t, "Test completed successfully in 3 steps", got["result_summary"])
	assert.Empty(t, bob.received())
}
