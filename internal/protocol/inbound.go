// Package protocol is the wire format spoken over each client connection.
// Every frame is a JSON envelope {"event": <name>, "data": {...}}. Inbound
// envelopes are decoded into commands whose shape is validated before they
// are handed to the broker; outbound broker events are encoded back into
// envelopes.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Tyrowin/arenachat/internal/chat"
)

// DefaultHistoryLimit is used when get_room_messages carries no limit.
const DefaultHistoryLimit = 50

const (
	EventJoinRoom        = "join_room"
	EventLeaveRoom       = "leave_room"
	EventSendMessage     = "send_message"
	EventGetRoomMessages = "get_room_messages"
)

var validate = validator.New()

// Envelope frames every event in both directions.
type Envelope struct {
	Event string          `json:"event" validate:"required"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Command is a decoded and validated inbound event.
type Command interface {
	Name() string
}

type JoinRoom struct {
	RoomID string `json:"room_id" validate:"required"`
	UserID string `json:"user_id"`
}

type LeaveRoom struct {
	RoomID string `json:"room_id" validate:"required"`
}

type SendMessage struct {
	RoomID  string  `json:"room_id" validate:"required"`
	Message *string `json:"message" validate:"required"`
}

type GetRoomMessages struct {
	RoomID string `json:"room_id" validate:"required"`
	Limit  *int   `json:"limit" validate:"omitempty,min=0"`
}

func (JoinRoom) Name() string        { return EventJoinRoom }
func (LeaveRoom) Name() string       { return EventLeaveRoom }
func (SendMessage) Name() string     { return EventSendMessage }
func (GetRoomMessages) Name() string { return EventGetRoomMessages }

// Text returns the message body, or "" when absent.
func (c SendMessage) Text() string {
	if c.Message == nil {
		return ""
	}
	return *c.Message
}

// EffectiveLimit returns the requested limit, or defaultLimit when the
// client sent none or zero.
func (c GetRoomMessages) EffectiveLimit(defaultLimit int) int {
	if c.Limit == nil || *c.Limit == 0 {
		return defaultLimit
	}
	return *c.Limit
}

// Decode parses one inbound frame. Every shape problem, from broken JSON to a
// missing field, is reported as chat.ErrMalformedEvent.
func Decode(raw []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, malformed("envelope", err)
	}
	if err := validate.Struct(env); err != nil {
		return nil, malformed("envelope", err)
	}

	switch env.Event {
	case EventJoinRoom:
		return decodeData[JoinRoom](env)
	case EventLeaveRoom:
		return decodeData[LeaveRoom](env)
	case EventSendMessage:
		return decodeData[SendMessage](env)
	case EventGetRoomMessages:
		return decodeData[GetRoomMessages](env)
	default:
		return nil, fmt.Errorf("unsupported event %q: %w", env.Event, chat.ErrMalformedEvent)
	}
}

func decodeData[T Command](env Envelope) (Command, error) {
	var cmd T
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%s: missing data: %w", env.Event, chat.ErrMalformedEvent)
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, malformed(env.Event, err)
	}
	if err := validate.Struct(cmd); err != nil {
		return nil, malformed(env.Event, err)
	}
	return cmd, nil
}

func malformed(what string, err error) error {
	return fmt.Errorf("%s: %w: %v", what, chat.ErrMalformedEvent, err)
}
