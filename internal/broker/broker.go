// Package broker decides what is broadcast to whom. It validates client
// actions against the connection registry and the room store and fans the
// resulting events out through a Sink.
//
// Every operation that touches a room runs inside that room's exclusive
// section, fan-out included, so all members observe joins, messages and
// leaves of a room in the same order. Operations on different rooms run in
// parallel. Operations on one connection are serialized by the connection's
// own exclusive section, which is always taken before a room's, and at most
// one room section is held at a time.
package broker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/arenachat/internal/chat"
	"github.com/Tyrowin/arenachat/internal/registry"
	"github.com/Tyrowin/arenachat/internal/store"
)

// ErrDeparted is returned by History when the connection was disconnected
// before the call ran. It is not a client error and carries no wire code.
var ErrDeparted = errors.New("connection departed")

type Broker struct {
	registry *registry.Registry
	store    *store.Store
	sink     Sink
	log      *slog.Logger
	now      func() time.Time
	rooms    map[chat.RoomID]*sync.Mutex
}

type Option func(*Broker)

// WithClock overrides the clock used to timestamp messages.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

func New(reg *registry.Registry, st *store.Store, sink Sink, log *slog.Logger, opts ...Option) *Broker {
	b := &Broker{
		registry: reg,
		store:    st,
		sink:     sink,
		log:      log,
		now:      time.Now,
		rooms:    make(map[chat.RoomID]*sync.Mutex),
	}
	for _, id := range st.Rooms() {
		b.rooms[id] = &sync.Mutex{}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Broker) lockRoom(id chat.RoomID) func() {
	mu := b.rooms[id]
	mu.Lock()
	return mu.Unlock
}

// acquire enters the exclusive section of a live connection. It returns
// false when the connection is unknown or already closed, which only
// happens when the call lost a race against Disconnect.
func (b *Broker) acquire(id chat.ConnID, op string) (*registry.Connection, bool) {
	conn, err := b.registry.Lookup(id)
	if err != nil {
		b.log.Debug("Dropping operation on departed connection", "op", op, "conn", id)
		return nil, false
	}

	conn.Lock()
	if conn.Closed() {
		conn.Unlock()
		b.log.Debug("Dropping operation on closed connection", "op", op, "conn", id)
		return nil, false
	}
	return conn, true
}

func fault(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, chat.ErrInternalFault, err)
}

// BindName sets the display name of a connection once.
func (b *Broker) BindName(id chat.ConnID, name string) error {
	conn, ok := b.acquire(id, "bind")
	if !ok {
		return nil
	}
	defer conn.Unlock()

	return b.registry.BindName(id, name)
}

// Join moves a named connection into room, leaving its current room first.
// The joined notice is stored in the backlog and broadcast to every member,
// the joiner included.
func (b *Broker) Join(id chat.ConnID, room chat.RoomID) error {
	conn, ok := b.acquire(id, "join")
	if !ok {
		return nil
	}
	defer conn.Unlock()

	return b.join(conn, room)
}

// JoinAs binds name if the connection has none yet and then joins room. A
// connection that is already named keeps its original name.
func (b *Broker) JoinAs(id chat.ConnID, name string, room chat.RoomID) error {
	conn, ok := b.acquire(id, "join")
	if !ok {
		return nil
	}
	defer conn.Unlock()

	if name != "" && conn.Name() == "" {
		// A rejected join must leave the connection unnamed.
		if !b.store.RoomExists(room) {
			return fmt.Errorf("join %q: %w", room, chat.ErrUnknownRoom)
		}
		if err := b.registry.BindName(id, name); err != nil && !errors.Is(err, chat.ErrAlreadyBound) {
			return err
		}
	}
	return b.join(conn, room)
}

func (b *Broker) join(conn *registry.Connection, room chat.RoomID) error {
	name := conn.Name()
	if name == "" {
		return chat.ErrUnboundName
	}
	if !b.store.RoomExists(room) {
		return fmt.Errorf("join %q: %w", room, chat.ErrUnknownRoom)
	}

	if current := conn.Room(); !current.IsZero() {
		if err := b.leave(conn, current); err != nil {
			return err
		}
	}

	unlock := b.lockRoom(room)
	defer unlock()

	if err := b.registry.SetRoom(conn.ID, room); err != nil {
		return fault("join", err)
	}
	if err := b.store.AddMember(room, conn.ID); err != nil {
		return fault("join", err)
	}

	notice := chat.NewJoinedNotice(name, room, b.now())
	if _, err := b.store.AppendMessage(room, notice); err != nil {
		return fault("join", err)
	}

	b.log.Info("User joined room", "conn", conn.ID, "user", name, "room", room)
	return b.broadcast(room, chat.UserJoined{UserID: name, Notice: notice})
}

// Leave removes the connection from its current room. It is a no-op when the
// connection is in no room, or when room is set and names another room than
// the current one. The left notice reaches the remaining members only and is
// not kept in the backlog.
func (b *Broker) Leave(id chat.ConnID, room chat.RoomID) error {
	conn, ok := b.acquire(id, "leave")
	if !ok {
		return nil
	}
	defer conn.Unlock()

	current := conn.Room()
	if current.IsZero() || (!room.IsZero() && room != current) {
		return nil
	}
	return b.leave(conn, current)
}

func (b *Broker) leave(conn *registry.Connection, room chat.RoomID) error {
	unlock := b.lockRoom(room)
	defer unlock()

	if err := b.store.RemoveMember(room, conn.ID); err != nil {
		return fault("leave", err)
	}
	if err := b.registry.SetRoom(conn.ID, ""); err != nil {
		return fault("leave", err)
	}

	// Left notices are broadcast only; the backlog replays joins and messages.
	name := conn.Name()
	notice := chat.NewLeftNotice(name, room, b.now())

	b.log.Info("User left room", "conn", conn.ID, "user", name, "room", room)
	return b.broadcast(room, chat.UserLeft{UserID: name, Notice: notice})
}

// Send posts text to the connection's current room and echoes it to every
// member, the sender included. A non-empty room must match the current room.
func (b *Broker) Send(id chat.ConnID, room chat.RoomID, text string) error {
	conn, ok := b.acquire(id, "send")
	if !ok {
		return nil
	}
	defer conn.Unlock()

	current := conn.Room()
	if current.IsZero() || (!room.IsZero() && room != current) {
		return chat.ErrNotInRoom
	}

	text, ok = chat.NormalizeText(text)
	if !ok {
		return chat.ErrEmptyMessage
	}

	unlock := b.lockRoom(current)
	defer unlock()

	msg := chat.NewMessage(conn.Name(), current, text, b.now())
	if _, err := b.store.AppendMessage(current, msg); err != nil {
		return fault("send", err)
	}

	b.log.Debug("Message posted", "conn", id, "room", current, "id", msg.ID)
	return b.broadcast(current, chat.MessagePosted{Message: msg})
}

// History returns the newest limit messages of room, oldest first. Only
// members of the room may read it. A departed connection gets ErrDeparted,
// which callers drop like any other operation that lost to Disconnect.
func (b *Broker) History(id chat.ConnID, room chat.RoomID, limit int) (chat.RoomHistory, error) {
	conn, ok := b.acquire(id, "history")
	if !ok {
		return chat.RoomHistory{}, ErrDeparted
	}
	defer conn.Unlock()

	if !b.store.RoomExists(room) {
		return chat.RoomHistory{}, fmt.Errorf("history %q: %w", room, chat.ErrUnknownRoom)
	}

	unlock := b.lockRoom(room)
	defer unlock()

	member, err := b.store.IsMember(room, id)
	if err != nil {
		return chat.RoomHistory{}, fault("history", err)
	}
	if !member {
		return chat.RoomHistory{}, fmt.Errorf("history %q: %w", room, chat.ErrNotAMember)
	}

	messages, err := b.store.RecentMessages(room, limit)
	if err != nil {
		return chat.RoomHistory{}, fault("history", err)
	}
	stats, err := b.store.Stats(room)
	if err != nil {
		return chat.RoomHistory{}, fault("history", err)
	}

	return chat.RoomHistory{RoomID: room, Messages: messages, Total: stats.Backlog}, nil
}

// Disconnect leaves the current room, if any, and forgets the connection.
// Repeated calls are no-ops.
func (b *Broker) Disconnect(id chat.ConnID) error {
	conn, err := b.registry.Lookup(id)
	if err != nil {
		b.log.Debug("Disconnect of unknown connection ignored", "conn", id)
		return nil
	}

	conn.Lock()
	defer conn.Unlock()

	if conn.Closed() {
		return nil
	}

	var leaveErr error
	if room := conn.Room(); !room.IsZero() {
		leaveErr = b.leave(conn, room)
	}

	if _, err := b.registry.Unregister(id); err != nil {
		return errors.Join(leaveErr, fault("disconnect", err))
	}
	return leaveErr
}

func (b *Broker) broadcast(room chat.RoomID, evt chat.Event) error {
	members, err := b.store.Members(room)
	if err != nil {
		return fault("broadcast", err)
	}

	if len(members) > 0 {
		b.sink.Deliver(evt, members)
	}
	return nil
}
