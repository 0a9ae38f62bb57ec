package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/arenachat/internal/chat"
)

func TestDecode_ValidCommands(t *testing.T) {
	req := require.New(t)

	cmd, err := Decode([]byte(`{"event":"join_room","data":{"room_id":"general","user_id":"alice"}}`))
	req.NoError(err)
	req.Equal(JoinRoom{RoomID: "general", UserID: "alice"}, cmd)

	cmd, err = Decode([]byte(`{"event":"join_room","data":{"room_id":"general"}}`))
	req.NoError(err)
	req.Equal(JoinRoom{RoomID: "general"}, cmd)

	cmd, err = Decode([]byte(`{"event":"leave_room","data":{"room_id":"general"}}`))
	req.NoError(err)
	req.Equal(LeaveRoom{RoomID: "general"}, cmd)

	cmd, err = Decode([]byte(`{"event":"send_message","data":{"room_id":"general","message":"hi"}}`))
	req.NoError(err)
	send, ok := cmd.(SendMessage)
	req.True(ok)
	req.Equal("hi", send.Text())

	// An empty body is well-formed; the broker rejects it.
	cmd, err = Decode([]byte(`{"event":"send_message","data":{"room_id":"general","message":""}}`))
	req.NoError(err)
	req.Equal("", cmd.(SendMessage).Text())

	cmd, err = Decode([]byte(`{"event":"get_room_messages","data":{"room_id":"general","limit":10}}`))
	req.NoError(err)
	req.Equal(10, cmd.(GetRoomMessages).EffectiveLimit(DefaultHistoryLimit))

	cmd, err = Decode([]byte(`{"event":"get_room_messages","data":{"room_id":"general"}}`))
	req.NoError(err)
	req.Equal(DefaultHistoryLimit, cmd.(GetRoomMessages).EffectiveLimit(DefaultHistoryLimit))
}

func TestDecode_MalformedEvents(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `hello`},
		{"plain text content", `{"content":"hi"}`},
		{"unknown event", `{"event":"create_room","data":{"room_id":"x"}}`},
		{"missing data", `{"event":"join_room"}`},
		{"null data", `{"event":"leave_room","data":null}`},
		{"missing room", `{"event":"join_room","data":{"user_id":"alice"}}`},
		{"empty room", `{"event":"leave_room","data":{"room_id":""}}`},
		{"room wrong type", `{"event":"leave_room","data":{"room_id":7}}`},
		{"missing message", `{"event":"send_message","data":{"room_id":"general"}}`},
		{"message wrong type", `{"event":"send_message","data":{"room_id":"general","message":42}}`},
		{"negative limit", `{"event":"get_room_messages","data":{"room_id":"general","limit":-1}}`},
		{"fractional limit", `{"event":"get_room_messages","data":{"room_id":"general","limit":2.5}}`},
		{"user wrong type", `{"event":"join_room","data":{"room_id":"general","user_id":["a"]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Decode([]byte(tt.raw))
			require.Nil(t, cmd)
			require.True(t, errors.Is(err, chat.ErrMalformedEvent), "got %v", err)
		})
	}
}

func decodeEnvelope(t *testing.T, raw []byte) (string, map[string]any) {
	t.Helper()
	var env struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	return env.Event, env.Data
}

func TestEncode_BrokerEvents(t *testing.T) {
	req := require.New(t)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := chat.NewMessage("alice", "general", "hi", at)

	raw, err := Encode(chat.MessagePosted{Message: msg})
	req.NoError(err)
	event, data := decodeEnvelope(t, raw)
	req.Equal(EventNewMessage, event)
	req.Equal(msg.ID, data["id"])
	req.Equal("alice", data["user_id"])
	req.Equal("hi", data["message"])
	req.Equal("general", data["room_id"])
	req.Equal("2025-03-01T12:00:00Z", data["timestamp"])
	req.Equal(false, data["is_system"])

	notice := chat.NewJoinedNotice("alice", "general", at)
	raw, err = Encode(chat.UserJoined{UserID: "alice", Notice: notice})
	req.NoError(err)
	event, data = decodeEnvelope(t, raw)
	req.Equal(EventUserJoined, event)
	req.Equal("alice joined the battle!", data["message"])
	req.Equal("alice", data["user_id"])

	raw, err = Encode(chat.UserLeft{UserID: "alice", Notice: chat.NewLeftNotice("alice", "general", at)})
	req.NoError(err)
	event, data = decodeEnvelope(t, raw)
	req.Equal(EventUserLeft, event)
	req.Equal("alice left the battle!", data["message"])

	raw, err = Encode(chat.RoomHistory{RoomID: "general", Messages: []chat.Message{notice, msg}, Total: 2})
	req.NoError(err)
	event, data = decodeEnvelope(t, raw)
	req.Equal(EventRoomMessages, event)
	req.Equal("general", data["room_id"])
	req.EqualValues(2, data["total"])
	messages := data["messages"].([]any)
	req.Len(messages, 2)
	req.Equal(true, messages[0].(map[string]any)["is_system"])
	req.Equal("System", messages[0].(map[string]any)["user_id"])
}

func TestEncode_EmptyHistoryIsAnArray(t *testing.T) {
	raw, err := Encode(chat.RoomHistory{RoomID: "general", Messages: []chat.Message{}})
	require.NoError(t, err)
	require.Contains(t, string(raw), `"messages":[]`)
}

func TestEncode_ErrorAndGreeting(t *testing.T) {
	req := require.New(t)

	raw, err := EncodeError(chat.ErrNotInRoom)
	req.NoError(err)
	event, data := decodeEnvelope(t, raw)
	req.Equal(EventError, event)
	req.Equal("not_in_room", data["code"])
	req.Equal("not in a room", data["reason"])

	raw, err = EncodeEstablished("conn-1")
	req.NoError(err)
	event, data = decodeEnvelope(t, raw)
	req.Equal(EventConnectionEstablished, event)
	req.Equal("conn-1", data["sid"])
	req.NotEmpty(data["message"])
}

type unknownEvent struct{}

func (unknownEvent) EventName() string { return "unknown" }

func TestEncode_UnknownEvent(t *testing.T) {
	_, err := Encode(unknownEvent{})
	require.ErrorIs(t, err, chat.ErrInternalFault)
}
