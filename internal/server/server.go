package server

import (
	"log/slog"
	"time"

	"github.com/Tyrowin/arenachat/internal/broker"
	"github.com/Tyrowin/arenachat/internal/registry"
	"github.com/Tyrowin/arenachat/internal/store"
)

// Server owns every component of one gateway instance: the connection
// registry, the room store, the broker and the hub that feeds it.
type Server struct {
	cfg      Config
	log      *slog.Logger
	registry *registry.Registry
	store    *store.Store
	broker   *broker.Broker
	hub      *Hub
	origins  *originPolicy
	started  time.Time
}

// New wires a gateway from cfg. The hub is not running until StartHub.
func New(cfg Config, log *slog.Logger) *Server {
	reg := registry.New()
	st := store.New(cfg.Rooms, cfg.BacklogCapacity)
	hub := NewHub(cfg, reg, log)
	hub.attach(broker.New(reg, st, hub, log))

	return &Server{
		cfg:      cfg,
		log:      log,
		registry: reg,
		store:    st,
		broker:   hub.broker,
		hub:      hub,
		origins:  newOriginPolicy(cfg.AllowedOrigins, log),
		started:  time.Now(),
	}
}

// Hub returns the server's hub, mainly for shutdown coordination.
func (s *Server) Hub() *Hub {
	return s.hub
}

// StartHub runs the hub in its own goroutine. It must be called before the
// HTTP server accepts WebSocket upgrades.
func (s *Server) StartHub() {
	go s.hub.Run()
	s.log.Info("Hub started and ready to manage WebSocket connections")
}
