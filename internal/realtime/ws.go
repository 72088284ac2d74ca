// internal/realtime/ws.go
package realtime

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"recipehub-notifier/internal/common/logger"
)

// TokenVerifier authenticates a handshake credential and returns the user id
// it belongs to.
type TokenVerifier interface {
	VerifyToken(tok string) (string, error)
}

// WSHandler upgrades authenticated HTTP requests to websocket connections
// and keeps them registered for live delivery until the peer goes away.
type WSHandler struct {
	registry     *Registry
	verifier     TokenVerifier
	logger       logger.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	maxMsgBytes  int64
}

func NewWSHandler(registry *Registry, verifier TokenVerifier, log logger.Logger, pingInterval, writeTimeout time.Duration, maxMsgBytes int64) *WSHandler {
	return &WSHandler{
		registry: registry,
		verifier: verifier,
		logger:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin clients are expected; auth happens via token.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		maxMsgBytes:  maxMsgBytes,
	}
}

// ServeHTTP authenticates before upgrading: a bad token costs a 401, never
// a registered connection.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(tokenFromRequest(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return
	}

	conn := newWSConn(ws, h.writeTimeout)
	h.registry.Register(userID, conn)
	h.logger.Info("connection registered", map[string]interface{}{
		"userId": userID,
		"connId": conn.ID(),
	})

	go h.pingLoop(conn)
	h.readLoop(userID, conn)
}

// readLoop drains inbound frames so close/ping control handlers run. The
// endpoint is push-only; client payloads are discarded.
func (h *WSHandler) readLoop(userID string, conn *wsConn) {
	defer func() {
		h.registry.Unregister(userID, conn.ID())
		_ = conn.Close()
		h.logger.Info("connection closed", map[string]interface{}{
			"userId": userID,
			"connId": conn.ID(),
		})
	}()

	if h.maxMsgBytes > 0 {
		conn.ws.SetReadLimit(h.maxMsgBytes)
	}
	for {
		if _, _, err := conn.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHandler) pingLoop(conn *wsConn) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := conn.writeControl(websocket.PingMessage); err != nil {
			return
		}
	}
}

func tokenFromRequest(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// wsConn wraps a gorilla connection behind the Conn interface. gorilla
// permits one concurrent writer, so all writes go through the mutex.
type wsConn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newWSConn(ws *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{
		id:           uuid.NewString(),
		ws:           ws,
		writeTimeout: writeTimeout,
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) writeControl(messageType int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.ws.WriteControl(messageType, nil, time.Now().Add(c.writeTimeout))
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}
