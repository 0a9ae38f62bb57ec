package chat

// Event is something the broker delivers to a connection. The gateway turns
// each concrete event into its wire representation.
type Event interface {
	EventName() string
}

// UserJoined is broadcast to every member of a room, the joiner included.
type UserJoined struct {
	UserID string
	Notice Message
}

// UserLeft is broadcast to the members that remain in a room.
type UserLeft struct {
	UserID string
	Notice Message
}

// MessagePosted is broadcast to every member of a room, the sender included.
type MessagePosted struct {
	Message Message
}

// RoomHistory is the unicast reply to a history request.
type RoomHistory struct {
	RoomID   RoomID
	Messages []Message
	Total    int
}

func (UserJoined) EventName() string    { return "user_joined" }
func (UserLeft) EventName() string      { return "user_left" }
func (MessagePosted) EventName() string { return "new_message" }
func (RoomHistory) EventName() string   { return "room_messages" }
