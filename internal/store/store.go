// Package store holds the fixed set of rooms, the members of each room and a
// bounded, arrival-ordered message backlog per room.
package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/Tyrowin/arenachat/internal/chat"
)

// DefaultCapacity is the backlog size used when none is configured.
const DefaultCapacity = 200

// Stats is a point-in-time summary of a room.
type Stats struct {
	Members  int
	Backlog  int
	Appended int
}

type room struct {
	mu       sync.Mutex
	members  map[chat.ConnID]struct{}
	messages *backlog
	appended int
}

// Store is safe for concurrent use. Rooms are created by New and live for
// the lifetime of the Store, so the room map itself is never written after
// construction.
type Store struct {
	order []chat.RoomID
	rooms map[chat.RoomID]*room
}

// New creates one room per distinct id, each with the given backlog
// capacity. A non-positive capacity falls back to DefaultCapacity.
func New(ids []chat.RoomID, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	s := &Store{
		order: lo.Uniq(lo.Reject(ids, func(id chat.RoomID, _ int) bool { return id.IsZero() })),
		rooms: make(map[chat.RoomID]*room, len(ids)),
	}
	for _, id := range s.order {
		s.rooms[id] = &room{
			members:  make(map[chat.ConnID]struct{}),
			messages: newBacklog(capacity),
		}
	}
	return s
}

func (s *Store) room(id chat.RoomID) (*room, error) {
	r, ok := s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", id, chat.ErrUnknownRoom)
	}
	return r, nil
}

// Rooms returns the configured room ids in configuration order.
func (s *Store) Rooms() []chat.RoomID {
	return slices.Clone(s.order)
}

func (s *Store) RoomExists(id chat.RoomID) bool {
	_, ok := s.rooms[id]
	return ok
}

func (s *Store) AddMember(id chat.RoomID, conn chat.ConnID) error {
	r, err := s.room(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.members[conn] = struct{}{}
	r.mu.Unlock()
	return nil
}

func (s *Store) RemoveMember(id chat.RoomID, conn chat.ConnID) error {
	r, err := s.room(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.members, conn)
	r.mu.Unlock()
	return nil
}

// IsMember reports whether conn is currently in the member set of room id.
func (s *Store) IsMember(id chat.RoomID, conn chat.ConnID) (bool, error) {
	r, err := s.room(id)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[conn]
	return ok, nil
}

// Members returns a sorted snapshot of the member set.
func (s *Store) Members(id chat.RoomID) ([]chat.ConnID, error) {
	r, err := s.room(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	members := lo.Keys(r.members)
	r.mu.Unlock()

	slices.Sort(members)
	return members, nil
}

// AppendMessage adds msg to the room backlog. When the backlog is full the
// oldest message is evicted and returned.
func (s *Store) AppendMessage(id chat.RoomID, msg chat.Message) (*chat.Message, error) {
	r, err := s.room(id)
	if err != nil {
		return nil, err
	}
	if msg.RoomID != id {
		return nil, fmt.Errorf("append to %q: message addressed to %q: %w", id, msg.RoomID, chat.ErrInternalFault)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.appended++
	return r.messages.push(msg), nil
}

// RecentMessages returns at most limit of the newest messages, oldest first.
// A non-positive limit returns the whole backlog.
func (s *Store) RecentMessages(id chat.RoomID, limit int) ([]chat.Message, error) {
	r, err := s.room(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages.tail(limit), nil
}

func (s *Store) Stats(id chat.RoomID) (Stats, error) {
	r, err := s.room(id)
	if err != nil {
		return Stats{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Members:  len(r.members),
		Backlog:  r.messages.len(),
		Appended: r.appended,
	}, nil
}
