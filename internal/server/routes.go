package server

import "net/http"

// Routes returns a ServeMux with all application routes: the WebSocket
// endpoint, health and status reporting, room lookups and the test page.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("GET /health", s.HealthHandler)
	mux.HandleFunc("GET /{$}", s.RootHandler)
	mux.HandleFunc("GET /api/rooms", s.RoomsHandler)
	mux.HandleFunc("GET /api/rooms/{room_id}", s.RoomHandler)
	mux.HandleFunc("GET /api/status", s.StatusHandler)
	mux.HandleFunc("GET /test", s.TestPageHandler)
	return mux
}
