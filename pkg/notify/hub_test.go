package notify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/jbtestsuite/jbtest/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages []Message
	writeErr error
	closed   bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeErr != nil {
		return c.writeErr
	}

	c.messages = append(c.messages, v.(Message))

	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

func (c *fakeConn) received() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Message(nil), c.messages...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(os.Stderr, nil)), metrics.NewUnregistered())
}

func TestHub_ConnectGeneratesID(t *testing.T) {
	t.Parallel()

	hub := newTestHub()

	id := hub.Connect(&fakeConn{}, "", "")
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, hub.ConnectionCount())
	assert.Equal(t, "client-1", hub.Connect(&fakeConn{}, "client-1", "user-1"))
	assert.Equal(t, 2, hub.ConnectionCount())
	assert.Equal(t, float64(2), testutil.ToFloat64(hub.metrics.Connections))
}

func TestHub_ConnectReplacesSameID(t *testing.T) {
	t.Parallel()

	hub := newTestHub()
	old := &fakeConn{}
	fresh := &fakeConn{}

	hub.Connect(old, "client-1", "user-1")
	hub.Connect(fresh, "client-1", "user-1")

	assert.True(t, old.isClosed())
	assert.Equal(t, 1, hub.ConnectionCount())
	assert.Equal(t, 1, hub.UserConnectionCount("user-1"))

	// the replaced socket's loop ending must not drop the new one
	hub.disconnectConn("client-1", old)
	assert.Equal(t, 1, hub.ConnectionCount())
	assert.False(t, fresh.isClosed())
}

func TestHub_SendToUser(t *testing.T) {
	t.Parallel()

	hub := newTestHub()
	ctx := context.Background()
	a, b, other := &fakeConn{}, &fakeConn{}, &fakeConn{}

	hub.Connect(a, "a", "alice")
	hub.Connect(b, "b", "alice")
	hub.Connect(other, "c", "bob")

	sent := hub.SendToUser(ctx, "alice", NewMessage("ping", nil))

	assert.Equal(t, 2, sent)
	assert.Len(t, a.received(), 1)
	assert.Len(t, b.received(), 1)
	assert.Empty(t, other.received())
	assert.Equal(t, 0, hub.SendToUser(ctx, "nobody", NewMessage("ping", nil)))
}

func TestHub_BroadcastExcludes(t *testing.T) {
	t.Parallel()

	hub := newTestHub()
	a, b := &fakeConn{}, &fakeConn{}

	hub.Connect(a, "a", "")
	hub.Connect(b, "b", "")

	assert.Equal(t, 1, hub.Broadcast(context.Background(), NewMessage("hello", nil), "a"))
	assert.Empty(t, a.received())
	assert.Len(t, b.received(), 1)
}

func TestHub_FailedSendDisconnects(t *testing.T) {
	t.Parallel()

	hub := newTestHub()
	broken := &fakeConn{writeErr: errors.New("broken pipe")}
	healthy := &fakeConn{}

	hub.Connect(broken, "broken", "alice")
	hub.Connect(healthy, "healthy", "alice")

	assert.Equal(t, 1, hub.SendToUser(context.Background(), "alice", NewMessage("x", nil)))
	assert.Equal(t, 1, hub.ConnectionCount())
	assert.True(t, broken.isClosed())
	assert.Equal(t, 1, hub.UserConnectionCount("alice"))
	assert.False(t, hub.SendToConnection(context.Background(), "broken", NewMessage("x", nil)))
}

func TestHub_DisconnectUnknownIsNoop(t *testing.T) {
	t.Parallel()

	hub := newTestHub()
	hub.Disconnect("missing")

	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_Heartbeat(t *testing.T) {
	t.Parallel()

	hub := newTestHub()
	hub.Connect(&fakeConn{}, "a", "")

	before, ok := hub.LastHeartbeat("a")
	require.True(t, ok)

	assert.True(t, hub.Heartbeat("a"))
	assert.False(t, hub.Heartbeat("missing"))

	after, ok := hub.LastHeartbeat("a")
	require.True(t, ok)
	assert.False(t, after.Before(before))
}

func TestHub_DeliverToUserAndSubscribers(t *testing.T) {
	t.Parallel()

	hub := newTestHub()
	ctx := context.Background()
	owner, watcher, bystander := &fakeConn{}, &fakeConn{}, &fakeConn{}

	hub.Connect(owner, "owner", "alice")
	hub.Connect(watcher, "watcher", "bob")
	hub.Connect(bystander, "bystander", "carol")

	require.True(t, hub.Subscribe("watcher", "exec-1"))
	require.True(t, hub.Subscribe("owner", "exec-1"))
	assert.False(t, hub.Subscribe("missing", "exec-1"))

	assert.Equal(t, 2, hub.Deliver(ctx, "alice", "exec-1", NewMessage("x", nil)))
	assert.Len(t, owner.received(), 1)
	assert.Len(t, watcher.received(), 1)
	assert.Empty(t, bystander.received())

	hub.Unsubscribe("exec-1")
	assert.Equal(t, 1, hub.Deliver(ctx, "alice", "exec-1", NewMessage("x", nil)))

	assert.Equal(t, 3, hub.Deliver(ctx, "", "exec-2", NewMessage("x", nil)))
}

func TestHub_Close(t *testing.T) {
	t.Parallel()

	hub := newTestHub()
	a := &fakeConn{}
	hub.Connect(a, "a", "alice")

	hub.Close()

	assert.Equal(t, 0, hub.ConnectionCount())
	assert.True(t, a.isClosed())
}
