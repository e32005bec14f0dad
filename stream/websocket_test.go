package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almightycouch/twittex/errors"
)

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestWebSocketTransport_StreamsFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer ws.Close()

		for i := 1; i <= 2; i++ {
			payload := fmt.Sprintf(`{"id":%d}`, i)
			frame := fmt.Sprintf("%d\r\n%s", len(payload), payload)
			require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(frame)))
		}
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}))
	defer server.Close()

	transport, err := NewWebSocketTransport(WebSocketConfig{URL: wsURL(server)})
	require.NoError(t, err)

	c := New(transport)
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop(time.Second)

	c.Request(3)
	assert.Equal(t, map[string]any{"id": float64(1)}, recvMessage(t, c))
	assert.Equal(t, map[string]any{"id": float64(2)}, recvMessage(t, c))

	waitDone(t, c)
	assert.True(t, errors.Is(c.Err(), errors.ErrStreamEnded))
}

func TestWebSocketTransport_HandshakeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	transport, err := NewWebSocketTransport(WebSocketConfig{URL: wsURL(server)})
	require.NoError(t, err)

	c := New(transport)
	require.NoError(t, c.Start(context.Background()))

	waitDone(t, c)
	assert.True(t, errors.Is(c.Err(), errors.ErrConnectionRejected))
}

func TestWebSocketTransport_SignedHandshake(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer ws.Close()
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}))
	defer server.Close()

	transport, err := NewWebSocketTransport(WebSocketConfig{
		URL:       wsURL(server),
		Requester: &headerRequester{value: "Bearer ws-token"},
	})
	require.NoError(t, err)

	c := New(transport)
	require.NoError(t, c.Start(context.Background()))

	c.Request(1)
	waitDone(t, c)
	assert.True(t, errors.Is(c.Err(), errors.ErrStreamEnded))
	assert.Equal(t, "Bearer ws-token", gotAuth)
}

func TestWebSocketTransport_ConfigValidation(t *testing.T) {
	_, err := NewWebSocketTransport(WebSocketConfig{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}
