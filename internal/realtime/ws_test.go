// internal/realtime/ws_test.go
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipehub-notifier/internal/common/auth"
	"recipehub-notifier/internal/common/logger"
	"recipehub-notifier/internal/notification"
)

const testSecret = "test-secret"

func signToken(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestServer(t *testing.T) (*httptest.Server, *Registry) {
	t.Helper()
	registry := NewRegistry()
	handler := NewWSHandler(registry, auth.NewVerifier(testSecret), logger.NewTestLogger(t),
		30*time.Second, time.Second, 4096)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, registry
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSHandler_RejectsMissingToken(t *testing.T) {
	srv, registry := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, registry.Len())
}

func TestWSHandler_RejectsForgedToken(t *testing.T) {
	srv, registry := newTestServer(t)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1"})
	signed, err := forged.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	_, resp, dialErr := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+signed, nil)
	require.Error(t, dialErr)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, registry.Len())
}

func TestWSHandler_RegistersAuthenticatedConnection(t *testing.T) {
	srv, registry := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+signToken(t, "u-1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return len(registry.ConnectionsFor("u-1")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWSHandler_AcceptsBearerHeader(t *testing.T) {
	srv, registry := newTestServer(t)

	header := http.Header{"Authorization": []string{"Bearer " + signToken(t, "u-2")}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return len(registry.ConnectionsFor("u-2")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWSHandler_DeliversBroadcastEnvelope(t *testing.T) {
	srv, registry := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+signToken(t, "u-1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return len(registry.ConnectionsFor("u-1")) == 1
	}, time.Second, 10*time.Millisecond)

	publisher := NewPublisher(registry, time.Second, logger.NewTestLogger(t))
	publisher.Broadcast(context.Background(), "u-1", notification.Envelope{
		Type:    notification.TypeNewFollower,
		Message: "Ana started following you",
		Data:    notification.Notification{ID: "n-1", RecipientID: "u-1"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env notification.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, notification.TypeNewFollower, env.Type)
	assert.Equal(t, "Ana started following you", env.Message)
	assert.Equal(t, "n-1", env.Data.ID)
}

func TestWSHandler_UnregistersOnClientDisconnect(t *testing.T) {
	srv, registry := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+signToken(t, "u-1"), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return registry.Len() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return registry.Len() == 0
	}, time.Second, 10*time.Millisecond)
}
