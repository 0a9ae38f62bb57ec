package store

import "github.com/Tyrowin/arenachat/internal/chat"

// backlog is a fixed-capacity FIFO ring of messages. It is not safe for
// concurrent use; the owning room serializes access.
type backlog struct {
	buf   []chat.Message
	head  int // index of the oldest message
	count int
}

func newBacklog(capacity int) *backlog {
	return &backlog{buf: make([]chat.Message, capacity)}
}

// push appends msg and returns the message it evicted, if the ring was full.
func (b *backlog) push(msg chat.Message) *chat.Message {
	if len(b.buf) == 0 {
		evicted := msg
		return &evicted
	}

	if b.count < len(b.buf) {
		b.buf[(b.head+b.count)%len(b.buf)] = msg
		b.count++
		return nil
	}

	evicted := b.buf[b.head]
	b.buf[b.head] = msg
	b.head = (b.head + 1) % len(b.buf)
	return &evicted
}

// tail copies the newest limit messages, oldest first.
func (b *backlog) tail(limit int) []chat.Message {
	if limit <= 0 || limit > b.count {
		limit = b.count
	}

	out := make([]chat.Message, limit)
	start := b.count - limit
	for i := range out {
		out[i] = b.buf[(b.head+start+i)%len(b.buf)]
	}
	return out
}

func (b *backlog) len() int { return b.count }
