package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/arenachat/internal/broker"
	"github.com/Tyrowin/arenachat/internal/chat"
	"github.com/Tyrowin/arenachat/internal/protocol"
	"github.com/Tyrowin/arenachat/internal/registry"
)

// Hub tracks the live transport clients. It registers each connection with
// the registry before its pumps start, delivers broker events to client
// queues, and triggers the broker's disconnect exactly once per client.
type Hub struct {
	clients    map[chat.ConnID]*Client
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	cfg      Config
	registry *registry.Registry
	broker   *broker.Broker
	log      *slog.Logger
}

// NewHub creates a Hub. The broker is attached afterwards with attach, since
// the broker delivers its events through the hub.
func NewHub(cfg Config, reg *registry.Registry, log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[chat.ConnID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		cfg:        cfg,
		registry:   reg,
		log:        log,
	}
}

func (h *Hub) attach(b *broker.Broker) {
	h.broker = b
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. It returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("Received nil client registration; skipping")
				continue
			}
			if !h.admit(client) {
				client.closeTransport()
				continue
			}

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.release(client)
		}
	}
}

// Register hands a freshly upgraded client to the hub. It returns false when
// the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// admit registers the connection and queues its greeting.
func (h *Hub) admit(client *Client) bool {
	if _, err := h.registry.Register(client.id); err != nil {
		h.log.Error("Rejecting client", "conn", client.id, "addr", client.addr, "error", err)
		return false
	}

	greeting, err := protocol.EncodeEstablished(client.id)
	if err != nil {
		h.log.Error("Encoding greeting failed", "conn", client.id, "error", err)
		_, _ = h.registry.Unregister(client.id)
		return false
	}

	h.mutex.Lock()
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.sendTo(client.id, greeting)
	h.log.Info("Client registered", "conn", client.id, "addr", client.addr, "clients", clientCount)
	return true
}

// detach removes the client from the hub and closes its queue. It returns
// false when the client had already been removed.
func (h *Hub) detach(client *Client) bool {
	h.mutex.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client {
		h.mutex.Unlock()
		return false
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	h.log.Info("Client unregistered", "conn", client.id, "addr", client.addr, "clients", clientCount)
	return true
}

// release runs once per client when its transport is gone.
func (h *Hub) release(client *Client) {
	h.detach(client)
	if err := h.broker.Disconnect(client.id); err != nil {
		h.log.Error("Disconnect failed", "conn", client.id, "error", err)
	}
}

// Deliver implements broker.Sink. The event is encoded once and the same
// payload is queued for every recipient. It never blocks: a client whose
// queue is full is kicked, and its read pump takes care of the disconnect.
func (h *Hub) Deliver(evt chat.Event, to []chat.ConnID) {
	payload, err := protocol.Encode(evt)
	if err != nil {
		h.log.Error("Encoding event failed", "event", evt.EventName(), "recipients", len(to), "error", err)
		return
	}
	for _, id := range to {
		h.sendTo(id, payload)
	}
}

func (h *Hub) sendTo(to chat.ConnID, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Recovered from panic in sendTo", "conn", to, "panic", r)
		}
	}()

	// Hold the lock during the entire send so the queue cannot be closed
	// underneath us.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	client, exists := h.clients[to]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		h.log.Warn("Send queue full; dropping client", "conn", to, "addr", client.addr)
		client.closeTransport()
		return false
	}
}

// Len returns the number of clients currently attached to the hub.
func (h *Hub) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		client.closeTransport()
	}

	h.log.Info("Closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
