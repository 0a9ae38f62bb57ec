package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/arenachat/internal/protocol"
	"github.com/Tyrowin/arenachat/test/testhelpers"
)

func TestHealthEndpoint(t *testing.T) {
	_, ts := testhelpers.StartServer(t, testhelpers.TestConfig())

	var body struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
		Version   string    `json:"version"`
		Service   string    `json:"service"`
	}
	resp := testhelpers.GetJSON(t, ts.URL+"/health", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "1.0.0", body.Version)
	assert.WithinDuration(t, time.Now(), body.Timestamp, time.Minute)
}

func TestRootEndpointListsEndpoints(t *testing.T) {
	_, ts := testhelpers.StartServer(t, testhelpers.TestConfig())

	var body struct {
		Status    string            `json:"status"`
		Endpoints map[string]string `json:"endpoints"`
	}
	resp := testhelpers.GetJSON(t, ts.URL+"/", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "running", body.Status)
	assert.Equal(t, "/ws", body.Endpoints["socket"])
	assert.Equal(t, "/health", body.Endpoints["health"])
}

func TestUnknownPathIsNotFound(t *testing.T) {
	_, ts := testhelpers.StartServer(t, testhelpers.TestConfig())

	resp := testhelpers.GetJSON(t, ts.URL+"/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoomEndpoints(t *testing.T) {
	cfg := testhelpers.TestConfig()
	_, ts := testhelpers.StartServer(t, cfg)

	var rooms struct {
		Rooms []string `json:"rooms"`
		Total int      `json:"total"`
	}
	testhelpers.GetJSON(t, ts.URL+"/api/rooms", &rooms)
	assert.Equal(t, []string{"battle-arena-1", "battle-arena-2", "general"}, rooms.Rooms)
	assert.Equal(t, 3, rooms.Total)

	conn, _ := testhelpers.Connect(t, ts)
	testhelpers.Join(t, conn, "Counter", "general")
	testhelpers.SendEvent(t, conn, protocol.EventSendMessage, map[string]string{"room_id": "general", "message": "one"})
	testhelpers.ExpectEvent(t, conn, protocol.EventNewMessage)

	var room struct {
		RoomID       string `json:"room_id"`
		MessageCount int    `json:"message_count"`
		MemberCount  int    `json:"member_count"`
		Active       bool   `json:"active"`
	}
	resp := testhelpers.GetJSON(t, ts.URL+"/api/rooms/general", &room)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "general", room.RoomID)
	assert.Equal(t, 2, room.MessageCount)
	assert.Equal(t, 1, room.MemberCount)
	assert.True(t, room.Active)

	var missing struct {
		Detail string `json:"detail"`
	}
	resp = testhelpers.GetJSON(t, ts.URL+"/api/rooms/nowhere", &missing)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Room not found", missing.Detail)
}

func TestStatusEndpoint(t *testing.T) {
	_, ts := testhelpers.StartServer(t, testhelpers.TestConfig())

	first, _ := testhelpers.Connect(t, ts)
	testhelpers.Connect(t, ts)
	testhelpers.Join(t, first, "Status", "battle-arena-2")

	var status struct {
		ActiveConnections int    `json:"active_connections"`
		ActiveRooms       int    `json:"active_rooms"`
		TotalMessages     int    `json:"total_messages"`
		Uptime            string `json:"uptime"`
	}
	resp := testhelpers.GetJSON(t, ts.URL+"/api/status", &status)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, status.ActiveConnections)
	assert.Equal(t, 3, status.ActiveRooms)
	assert.Equal(t, 1, status.TotalMessages)
	assert.NotEmpty(t, status.Uptime)
}

func TestTestPageIsServed(t *testing.T) {
	_, ts := testhelpers.StartServer(t, testhelpers.TestConfig())

	resp, err := http.Get(ts.URL + "/test")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
}
