// Package registry tracks live connections, the display name bound to each
// of them and the room each one currently sits in. It never broadcasts:
// callers learn about vacated rooms from Unregister and act on it.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Tyrowin/arenachat/internal/chat"
)

var (
	ErrUnknownConnection   = errors.New("unknown connection")
	ErrDuplicateConnection = errors.New("connection already registered")
)

// Connection is the registry's view of one transport connection.
//
// Lock and Unlock guard a per-connection exclusive section that callers use
// to serialize their own multi-step operations on the connection. The state
// accessors take a separate internal lock, so they are safe to call while the
// exclusive section is held.
type Connection struct {
	ID          chat.ConnID
	ConnectedAt time.Time

	serial sync.Mutex

	mu     sync.RWMutex
	name   string
	room   chat.RoomID
	closed bool
}

func (c *Connection) Lock()   { c.serial.Lock() }
func (c *Connection) Unlock() { c.serial.Unlock() }

// Name returns the bound display name, or "" when none is bound yet.
func (c *Connection) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Room returns the current room, or the zero RoomID.
func (c *Connection) Room() chat.RoomID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room
}

// Closed reports whether the connection has been unregistered.
func (c *Connection) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[chat.ConnID]*Connection
	now   func() time.Time
}

func New() *Registry {
	return &Registry{
		conns: make(map[chat.ConnID]*Connection),
		now:   time.Now,
	}
}

// Register adds a new connection with no name and no room.
func (r *Registry) Register(id chat.ConnID) (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[id]; exists {
		return nil, fmt.Errorf("register %s: %w", id, ErrDuplicateConnection)
	}

	conn := &Connection{ID: id, ConnectedAt: r.now()}
	r.conns[id] = conn
	return conn, nil
}

// Lookup returns the live connection with the given id.
func (r *Registry) Lookup(id chat.ConnID) (*Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[id]
	if !ok {
		return nil, fmt.Errorf("lookup %s: %w", id, ErrUnknownConnection)
	}
	return conn, nil
}

// BindName sets the display name of a connection. A name can be bound only
// once for the lifetime of the connection.
func (r *Registry) BindName(id chat.ConnID, name string) error {
	conn, err := r.Lookup(id)
	if err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return chat.ErrUnboundName
	case strings.EqualFold(name, chat.SystemSender):
		return fmt.Errorf("bind %q: %w", name, chat.ErrReservedName)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	if conn.name != "" {
		return fmt.Errorf("bind %q on %s bound as %q: %w", name, id, conn.name, chat.ErrAlreadyBound)
	}
	conn.name = name
	return nil
}

// SetRoom records the room a connection currently belongs to. The zero
// RoomID clears it.
func (r *Registry) SetRoom(id chat.ConnID, room chat.RoomID) error {
	conn, err := r.Lookup(id)
	if err != nil {
		return err
	}

	conn.mu.Lock()
	conn.room = room
	conn.mu.Unlock()
	return nil
}

// Unregister removes a connection and returns the room it was in, if any.
func (r *Registry) Unregister(id chat.ConnID) (chat.RoomID, error) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("unregister %s: %w", id, ErrUnknownConnection)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	previous := conn.room
	conn.room = ""
	conn.closed = true
	return previous, nil
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
