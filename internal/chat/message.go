// Package chat holds the vocabulary shared by the registry, the room store,
// the broker and the gateway: identifiers, messages, broker events and the
// error taxonomy reported back to clients.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SystemSender is the reserved sender name of broker-generated notices.
const SystemSender = "System"

// ConnID identifies one live transport connection.
type ConnID string

// RoomID identifies one of the statically configured rooms. The zero value
// means "no room".
type RoomID string

// IsZero reports whether the id is the "no room" value.
func (r RoomID) IsZero() bool { return r == "" }

// Message is an immutable entry of a room backlog. User messages and
// join/leave notices share this shape; System tells them apart.
type Message struct {
	ID        string
	Sender    string
	RoomID    RoomID
	Text      string
	CreatedAt time.Time
	System    bool
}

// NewMessage builds a user message. The text must already be trimmed and
// non-empty.
func NewMessage(sender string, room RoomID, text string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		RoomID:    room,
		Text:      text,
		CreatedAt: at,
	}
}

// NewJoinedNotice builds the system notice appended when name enters room.
func NewJoinedNotice(name string, room RoomID, at time.Time) Message {
	return newNotice(room, fmt.Sprintf("%s joined the battle!", name), at)
}

// NewLeftNotice builds the system notice appended when name leaves room.
func NewLeftNotice(name string, room RoomID, at time.Time) Message {
	return newNotice(room, fmt.Sprintf("%s left the battle!", name), at)
}

func newNotice(room RoomID, text string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    SystemSender,
		RoomID:    room,
		Text:      text,
		CreatedAt: at,
		System:    true,
	}
}

// NormalizeText trims surrounding whitespace and reports whether anything
// is left to send.
func NormalizeText(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	return trimmed, trimmed != ""
}
