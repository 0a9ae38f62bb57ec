package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/Tyrowin/arenachat/internal/chat"
)

const (
	EventConnectionEstablished = "connection_established"
	EventNewMessage            = "new_message"
	EventUserJoined            = "user_joined"
	EventUserLeft              = "user_left"
	EventRoomMessages          = "room_messages"
	EventError                 = "error"
)

type ConnectionEstablished struct {
	Message string `json:"message"`
	SID     string `json:"sid"`
}

// Message is the wire form of a backlog entry.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RoomID    string    `json:"room_id"`
	IsSystem  bool      `json:"is_system"`
}

// Notice is the payload of user_joined and user_left.
type Notice struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RoomID    string    `json:"room_id"`
}

type RoomMessages struct {
	RoomID   string    `json:"room_id"`
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}

type Error struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func toMessage(m chat.Message) Message {
	return Message{
		ID:        m.ID,
		UserID:    m.Sender,
		Message:   m.Text,
		Timestamp: m.CreatedAt,
		RoomID:    string(m.RoomID),
		IsSystem:  m.System,
	}
}

func toNotice(userID string, m chat.Message) Notice {
	return Notice{
		ID:        m.ID,
		UserID:    userID,
		Message:   m.Text,
		Timestamp: m.CreatedAt,
		RoomID:    string(m.RoomID),
	}
}

// Encode turns a broker event into an outbound frame.
func Encode(evt chat.Event) ([]byte, error) {
	switch e := evt.(type) {
	case chat.UserJoined:
		return encode(EventUserJoined, toNotice(e.UserID, e.Notice))
	case chat.UserLeft:
		return encode(EventUserLeft, toNotice(e.UserID, e.Notice))
	case chat.MessagePosted:
		return encode(EventNewMessage, toMessage(e.Message))
	case chat.RoomHistory:
		return encode(EventRoomMessages, RoomMessages{
			RoomID: string(e.RoomID),
			Messages: lo.Map(e.Messages, func(m chat.Message, _ int) Message {
				return toMessage(m)
			}),
			Total: e.Total,
		})
	default:
		return nil, fmt.Errorf("encode %T: %w", evt, chat.ErrInternalFault)
	}
}

// EncodeEstablished builds the greeting sent once a connection is registered.
func EncodeEstablished(sid chat.ConnID) ([]byte, error) {
	return encode(EventConnectionEstablished, ConnectionEstablished{
		Message: "Connected to Frenemies Battle Royale server",
		SID:     string(sid),
	})
}

// EncodeError builds the error frame reported to the originating connection.
func EncodeError(err error) ([]byte, error) {
	return encode(EventError, Error{Code: chat.Code(err), Reason: err.Error()})
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
