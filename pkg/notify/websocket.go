package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// ExecutionController is the part of the orchestrator clients may drive over
// the socket.
type ExecutionController interface {
	QueueTestExecution(ctx context.Context, testCaseID, userID string) (string, error)
	CancelExecution(ctx context.Context, executionID string) bool
}

type wsConn struct {
	conn *websocket.Conn
}

func (c wsConn) WriteJSON(v any) error {
	err := c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err != nil {
		return err
	}

	return c.conn.WriteJSON(v)
}

func (c wsConn) Close() error {
	return c.conn.Close()
}

type inbound struct {
	Type        string `json:"type"`
	TestCaseID  string `json:"test_case_id"`
	ExecutionID string `json:"execution_id"`
}

// Handler upgrades /ws/connect?client_id=&user_id= requests and runs the
// client message loop.
type Handler struct {
	hub        *Hub
	controller ExecutionController
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

func NewHandler(hub *Hub, controller ExecutionController, logger *slog.Logger) *Handler {
	return &Handler{
		hub:        hub,
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		logger: logger.With("module", "websocket"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "WebSocket upgrade failed", "error", err)

		return
	}

	query := r.URL.Query()
	ws := wsConn{conn: conn}
	clientID := h.hub.Connect(ws, query.Get("client_id"), query.Get("user_id"))
	userID := query.Get("user_id")

	defer h.hub.disconnectConn(clientID, ws)

	ctx := context.WithoutCancel(r.Context())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WarnContext(ctx, "WebSocket read failed", "connection_id", clientID, "error", err)
			}

			return
		}

		h.handleMessage(ctx, clientID, userID, data)
	}
}

func (h *Handler) handleMessage(ctx context.Context, clientID, userID string, data []byte) {
	var msg inbound

	err := json.Unmarshal(data, &msg)
	if err != nil {
		h.logger.WarnContext(ctx, "Invalid JSON from client", "connection_id", clientID)
		h.hub.SendToConnection(ctx, clientID, errorMessage("Invalid JSON format"))

		return
	}

	switch msg.Type {
	case "heartbeat":
		h.hub.Heartbeat(clientID)
		h.hub.SendToConnection(ctx, clientID, NewMessage(TypeHeartbeatAck, nil))
	case "test_execution_start":
		if msg.TestCaseID == "" {
			h.hub.SendToConnection(ctx, clientID, errorMessage("Missing test_case_id for test execution"))

			return
		}

		h.startExecution(ctx, clientID, userID, msg.TestCaseID)
	case "test_execution_stop":
		if msg.ExecutionID == "" {
			h.hub.SendToConnection(ctx, clientID, errorMessage("Missing execution_id for test execution stop"))

			return
		}

		h.stopExecution(ctx, clientID, msg.ExecutionID)
	case "subscribe_to_execution":
		if msg.ExecutionID == "" {
			h.hub.SendToConnection(ctx, clientID, errorMessage("Missing execution_id for subscription"))

			return
		}

		h.hub.Subscribe(clientID, msg.ExecutionID)
		h.hub.SendToConnection(ctx, clientID, NewMessage(TypeExecutionSubscriptionConfirmed, Message{
			"execution_id": msg.ExecutionID,
			"message":      "Subscribed to execution updates",
		}))
	default:
		h.hub.SendToConnection(ctx, clientID, errorMessage(fmt.Sprintf("Unknown message type: %s", msg.Type)))
	}
}

func (h *Handler) startExecution(ctx context.Context, clientID, userID, testCaseID string) {
	executionID, err := h.controller.QueueTestExecution(ctx, testCaseID, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error starting test execution", "test_case_id", testCaseID, "error", err)
		h.hub.SendToConnection(ctx, clientID, NewMessage(TypeTestExecutionError, Message{
			"test_case_id": testCaseID,
			"message":      "Failed to start test execution: " + err.Error(),
		}))

		return
	}

	h.hub.Subscribe(clientID, executionID)
	h.hub.SendToConnection(ctx, clientID, NewMessage(TypeTestExecutionQueued, Message{
		"test_case_id": testCaseID,
		"execution_id": executionID,
		"message":      "Test execution has been queued",
	}))

	h.logger.InfoContext(ctx, "Test execution queued over websocket",
		"execution_id", executionID, "test_case_id", testCaseID, "connection_id", clientID)
}

func (h *Handler) stopExecution(ctx context.Context, clientID, executionID string) {
	if !h.controller.CancelExecution(ctx, executionID) {
		h.hub.SendToConnection(ctx, clientID, NewMessage(TypeTestExecutionError, Message{
			"execution_id": executionID,
			"message":      "Execution not found or cannot be cancelled",
		}))

		return
	}

	h.hub.SendToConnection(ctx, clientID, NewMessage(TypeTestExecutionCancelled, Message{
		"execution_id": executionID,
		"message":      "Test execution has been cancelled",
	}))
}

// HealthHandler serves GET /ws/health.
func (h *Handler) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":             "healthy",
		"active_connections": h.hub.ConnectionCount(),
		"timestamp":          timestamp(time.Now()),
	})
}

// NewServeMux routes /ws/connect and /ws/health.
func NewServeMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /ws/connect", h)
	mux.HandleFunc("GET /ws/health", h.HealthHandler)

	return mux
}
