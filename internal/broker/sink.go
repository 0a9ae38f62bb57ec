package broker

import "github.com/Tyrowin/arenachat/internal/chat"

//go:generate mockgen -source=sink.go -destination=mocks/mock_sink.go -package=mocks

// Sink delivers broker events to connections.
//
// Deliver hands one event to every connection in to, so the sink can encode
// it once per broadcast. It is called while the broker holds the exclusive
// section of the room the event belongs to. It must not block and must not
// call back into the broker; a connection that cannot keep up should be
// dropped by the sink.
type Sink interface {
	Deliver(evt chat.Event, to []chat.ConnID)
}
