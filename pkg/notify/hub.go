// Package notify pushes execution updates to WebSocket clients.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jbtestsuite/jbtest/pkg/metrics"
)

// Conn is the write side of a client connection.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

type client struct {
	id            string
	userID        string
	conn          Conn
	connectedAt   time.Time
	lastHeartbeat time.Time
	writeMu       sync.Mutex
}

func (c *client) send(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteJSON(msg)
}

// Hub tracks live connections by id and by user. A failed send drops the connection.
type Hub struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu            sync.RWMutex
	clients       map[string]*client
	users         map[string]map[string]struct{}
	subscriptions map[string]map[string]struct{}
}

func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		logger:        logger.With("module", "notify_hub"),
		metrics:       m,
		clients:       make(map[string]*client),
		users:         make(map[string]map[string]struct{}),
		subscriptions: make(map[string]map[string]struct{}),
	}
}

// Connect registers conn and returns its id, generating one when connectionID
// is empty. An existing connection with the same id is replaced.
func (h *Hub) Connect(conn Conn, connectionID, userID string) string {
	if connectionID == "" {
		connectionID = uuid.New().String()
	}

	now := time.Now()
	c := &client{
		id:            connectionID,
		userID:        userID,
		conn:          conn,
		connectedAt:   now,
		lastHeartbeat: now,
	}

	h.mu.Lock()
	previous := h.removeLocked(connectionID)

	h.clients[connectionID] = c
	if userID != "" {
		if h.users[userID] == nil {
			h.users[userID] = make(map[string]struct{})
		}

		h.users[userID][connectionID] = struct{}{}
	}

	h.metrics.Connections.Set(float64(len(h.clients)))
	h.mu.Unlock()

	if previous != nil {
		_ = previous.conn.Close()
	}

	h.logger.Info("WebSocket connected", "connection_id", connectionID, "user_id", userID)

	return connectionID
}

// Disconnect forgets the connection and closes it. Unknown ids are ignored.
func (h *Hub) Disconnect(connectionID string) {
	h.mu.Lock()
	c := h.removeLocked(connectionID)
	h.metrics.Connections.Set(float64(len(h.clients)))
	h.mu.Unlock()

	if c == nil {
		return
	}

	_ = c.conn.Close()

	h.logger.Info("WebSocket disconnected", "connection_id", connectionID)
}

// disconnectConn is Disconnect guarded against a replacement registered under the same id.
func (h *Hub) disconnectConn(connectionID string, conn Conn) {
	h.mu.RLock()
	c, ok := h.clients[connectionID]
	h.mu.RUnlock()

	if !ok || c.conn != conn {
		_ = conn.Close()

		return
	}

	h.Disconnect(connectionID)
}

func (h *Hub) removeLocked(connectionID string) *client {
	c, ok := h.clients[connectionID]
	if !ok {
		return nil
	}

	delete(h.clients, connectionID)

	if conns, ok := h.users[c.userID]; ok {
		delete(conns, connectionID)

		if len(conns) == 0 {
			delete(h.users, c.userID)
		}
	}

	for executionID, subscribers := range h.subscriptions {
		delete(subscribers, connectionID)

		if len(subscribers) == 0 {
			delete(h.subscriptions, executionID)
		}
	}

	return c
}

func (h *Hub) lookup(connectionID string) *client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.clients[connectionID]
}

// SendToConnection reports whether the message was written.
func (h *Hub) SendToConnection(ctx context.Context, connectionID string, msg Message) bool {
	c := h.lookup(connectionID)
	if c == nil {
		return false
	}

	err := c.send(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error sending message", "connection_id", connectionID, "error", err)
		h.metrics.Notifications.WithLabelValues("failed").Inc()
		h.Disconnect(connectionID)

		return false
	}

	h.metrics.Notifications.WithLabelValues("sent").Inc()

	return true
}

// SendToUser writes to every connection of userID and returns how many succeeded.
func (h *Hub) SendToUser(ctx context.Context, userID string, msg Message) int {
	return h.sendAll(ctx, h.userConnections(userID), msg)
}

// Broadcast writes to every connection except exclude.
func (h *Hub) Broadcast(ctx context.Context, msg Message, exclude string) int {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))

	for id := range h.clients {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()

	return h.sendAll(ctx, ids, msg)
}

// Deliver routes an execution update: to the owning user's connections plus
// explicit subscribers, or to everyone when the execution has no user.
func (h *Hub) Deliver(ctx context.Context, userID, executionID string, msg Message) int {
	if userID == "" {
		return h.Broadcast(ctx, msg, "")
	}

	ids := h.userConnections(userID)
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		seen[id] = struct{}{}
	}

	h.mu.RLock()
	for id := range h.subscriptions[executionID] {
		if _, dup := seen[id]; !dup {
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()

	return h.sendAll(ctx, ids, msg)
}

func (h *Hub) sendAll(ctx context.Context, ids []string, msg Message) int {
	sent := 0

	for _, id := range ids {
		if h.SendToConnection(ctx, id, msg) {
			sent++
		}
	}

	return sent
}

func (h *Hub) userConnections(userID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.users[userID]))
	for id := range h.users[userID] {
		ids = append(ids, id)
	}

	return ids
}

// Subscribe adds the connection to the audience of executionID.
func (h *Hub) Subscribe(connectionID, executionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[connectionID]; !ok {
		return false
	}

	if h.subscriptions[executionID] == nil {
		h.subscriptions[executionID] = make(map[string]struct{})
	}

	h.subscriptions[executionID][connectionID] = struct{}{}

	return true
}

// Unsubscribe drops every subscription to executionID.
func (h *Hub) Unsubscribe(executionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subscriptions, executionID)
}

// Heartbeat records liveness for the connection.
func (h *Hub) Heartbeat(connectionID string) bool {
	c := h.lookup(connectionID)
	if c == nil {
		return false
	}

	h.mu.Lock()
	c.lastHeartbeat = time.Now()
	h.mu.Unlock()

	return true
}

func (h *Hub) LastHeartbeat(connectionID string) (time.Time, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[connectionID]
	if !ok {
		return time.Time{}, false
	}

	return c.lastHeartbeat, true
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *Hub) UserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.users[userID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Disconnect(id)
	}
}
