// Package testhelpers provides common utilities for the end-to-end tests of
// the arena chat gateway.
//
// It starts a complete gateway on an httptest server, dials WebSocket
// clients, and sends and reads protocol frames so test files can focus on
// the conversation they exercise.
package testhelpers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/arenachat/internal/protocol"
	"github.com/Tyrowin/arenachat/internal/server"
)

// TestOrigin is allowed by every server started through StartServer.
const TestOrigin = "http://localhost:8000"

// ReadTimeout bounds every wait for an expected frame.
const ReadTimeout = 2 * time.Second

// Frame is one decoded outbound envelope.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Decode unmarshals the frame's data into v.
func (f Frame) Decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(f.Data, v), "decode %s data: %s", f.Event, f.Data)
}

// TestConfig returns a configuration suited to tests: generous rate limits
// and the test origin allowed.
func TestConfig() server.Config {
	cfg := *server.NewConfig()
	cfg.AllowedOrigins = []string{TestOrigin}
	cfg.RateLimit.Burst = 1000
	cfg.RateLimit.RefillInterval = time.Millisecond
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

// StartServer runs a gateway built from cfg behind an httptest server. The
// hub and the listener are stopped when the test ends.
func StartServer(t *testing.T, cfg server.Config) (*server.Server, *httptest.Server) {
	t.Helper()
	require.NoError(t, cfg.Validate())

	srv := server.New(cfg, logs.GetLoggerFromLevel(slog.LevelWarn))
	srv.StartHub()

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	t.Cleanup(func() {
		_ = srv.Hub().Shutdown(cfg.ShutdownTimeout)
	})
	return srv, ts
}

// WebSocketURL converts an httptest server URL into the gateway's ws:// URL.
func WebSocketURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// DialWebSocket opens a raw WebSocket connection with the given Origin header.
// An empty origin sends none.
func DialWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}
	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// Connect dials the gateway, consumes the connection_established greeting
// and returns the connection with its server-assigned id.
func Connect(t *testing.T, ts *httptest.Server) (*websocket.Conn, string) {
	t.Helper()

	conn, _, err := DialWebSocket(WebSocketURL(ts), TestOrigin)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var greeting protocol.ConnectionEstablished
	ExpectEvent(t, conn, protocol.EventConnectionEstablished).Decode(t, &greeting)
	require.NotEmpty(t, greeting.SID)
	return conn, greeting.SID
}

// SendEvent writes one envelope with data marshaled as its payload.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(protocol.Envelope{Event: event, Data: payload})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// SendRaw writes a text frame verbatim.
func SendRaw(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

// ReadEvent reads the next frame, waiting at most timeout.
func ReadEvent(conn *websocket.Conn, timeout time.Duration) (Frame, error) {
	var frame Frame
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return frame, err
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return frame, err
	}
	err = json.Unmarshal(raw, &frame)
	return frame, err
}

// ExpectEvent reads the next frame and requires it to be named event.
func ExpectEvent(t *testing.T, conn *websocket.Conn, event string) Frame {
	t.Helper()

	frame, err := ReadEvent(conn, ReadTimeout)
	require.NoError(t, err, "waiting for %s", event)
	require.Equal(t, event, frame.Event, "unexpected frame: %s", frame.Data)
	return frame
}

// ExpectError reads the next frame and requires it to be an error with code.
func ExpectError(t *testing.T, conn *websocket.Conn, code string) protocol.Error {
	t.Helper()

	var e protocol.Error
	ExpectEvent(t, conn, protocol.EventError).Decode(t, &e)
	require.Equal(t, code, e.Code, "reason: %s", e.Reason)
	return e
}

// ExpectNoEvent requires that nothing arrives within wait. A timed out read
// leaves the connection unreadable, so call it last on conn.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()

	frame, err := ReadEvent(conn, wait)
	require.Error(t, err, "unexpected %s frame: %s", frame.Event, frame.Data)
}

// Join binds name and joins room, then consumes the joiner's own
// user_joined notice.
func Join(t *testing.T, conn *websocket.Conn, name, room string) protocol.Notice {
	t.Helper()

	SendEvent(t, conn, protocol.EventJoinRoom, map[string]string{"room_id": room, "user_id": name})
	var notice protocol.Notice
	ExpectEvent(t, conn, protocol.EventUserJoined).Decode(t, &notice)
	return notice
}

// GetJSON issues a GET request and decodes a JSON body into v.
func GetJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}
