// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, room and status reporting, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/Tyrowin/arenachat/internal/chat"
)

const (
	serviceName    = "Frenemies Battle Royale Backend"
	serviceVersion = "1.0.0"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Service   string    `json:"service"`
}

type rootResponse struct {
	Message   string            `json:"message"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

type roomsResponse struct {
	Rooms []string `json:"rooms"`
	Total int      `json:"total"`
}

type roomResponse struct {
	RoomID       string `json:"room_id"`
	MessageCount int    `json:"message_count"`
	MemberCount  int    `json:"member_count"`
	Active       bool   `json:"active"`
}

type statusResponse struct {
	ActiveConnections int    `json:"active_connections"`
	ActiveRooms       int    `json:"active_rooms"`
	TotalMessages     int    `json:"total_messages"`
	Uptime            string `json:"uptime"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("Error writing JSON response", "error", err)
	}
}

// WebSocketHandler handles WebSocket upgrade requests and manages client connections.
// It validates that the request uses the GET method, upgrades the HTTP connection
// to WebSocket, creates a new Client instance, and hands it to the hub, which
// registers the connection and starts the client's read/write pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr)
	if !s.hub.Register(client) {
		s.log.Info("Hub is shutting down; refusing connection", "addr", r.RemoteAddr)
		client.closeTransport()
	}
}

// HealthHandler reports that the service is up.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   serviceVersion,
		Service:   serviceName,
	})
}

// RootHandler describes the service and its endpoints.
func (s *Server) RootHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, rootResponse{
		Message: "Frenemies Battle Royale API",
		Status:  "running",
		Endpoints: map[string]string{
			"health": "/health",
			"socket": "/ws",
			"rooms":  "/api/rooms",
			"status": "/api/status",
			"test":   "/test",
		},
	})
}

func (s *Server) RoomsHandler(w http.ResponseWriter, _ *http.Request) {
	rooms := lo.Map(s.store.Rooms(), func(id chat.RoomID, _ int) string { return string(id) })
	s.writeJSON(w, http.StatusOK, roomsResponse{Rooms: rooms, Total: len(rooms)})
}

// RoomHandler reports the backlog size and membership of one room.
func (s *Server) RoomHandler(w http.ResponseWriter, r *http.Request) {
	id := chat.RoomID(r.PathValue("room_id"))
	stats, err := s.store.Stats(id)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Room not found"})
		return
	}

	s.writeJSON(w, http.StatusOK, roomResponse{
		RoomID:       string(id),
		MessageCount: stats.Backlog,
		MemberCount:  stats.Members,
		Active:       true,
	})
}

// StatusHandler summarizes connections and room backlogs.
func (s *Server) StatusHandler(w http.ResponseWriter, _ *http.Request) {
	rooms := s.store.Rooms()
	total := lo.SumBy(rooms, func(id chat.RoomID) int {
		stats, err := s.store.Stats(id)
		if err != nil {
			return 0
		}
		return stats.Backlog
	})

	s.writeJSON(w, http.StatusOK, statusResponse{
		ActiveConnections: s.registry.Len(),
		ActiveRooms:       len(rooms),
		TotalMessages:     total,
		Uptime:            time.Since(s.started).Truncate(time.Second).String(),
	})
}

// TestPageHandler serves an HTML test page for exercising the event protocol
// by hand: pick a name and a room, chat, and load the room history.
func (s *Server) TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		s.log.Warn("Error writing HTML response", "error", err)
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Arena Chat WebSocket Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] {
            width: 200px;
            padding: 5px;
            margin-right: 10px;
        }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status {
            margin: 10px 0;
            padding: 5px;
            border-radius: 3px;
        }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Arena Chat WebSocket Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="nameInput" placeholder="Display name">
        <input type="text" id="roomInput" value="general">
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
        <button onclick="joinRoom()">Join</button>
        <button onclick="leaveRoom()">Leave</button>
        <button onclick="loadHistory()">History</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const nameInput = document.getElementById('nameInput');
        const roomInput = document.getElementById('roomInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addLine(text, color) {
            const line = document.createElement('div');
            line.style.margin = '5px 0';
            line.style.color = color || 'gray';
            line.textContent = text;
            messagesDiv.appendChild(line);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function emit(event, data) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ event: event, data: data }));
            }
        }

        function render(frame) {
            const d = frame.data || {};
            switch (frame.event) {
            case 'connection_established':
                addLine(d.message + ' (' + d.sid + ')');
                break;
            case 'new_message':
                addLine(d.user_id + ': ' + d.message, d.is_system ? 'gray' : 'green');
                break;
            case 'user_joined':
            case 'user_left':
                addLine(d.message);
                break;
            case 'room_messages':
                addLine('History of ' + d.room_id + ' (' + d.total + ' stored)');
                d.messages.forEach(m => addLine('  ' + m.user_id + ': ' + m.message, 'blue'));
                break;
            case 'error':
                addLine('Error [' + d.code + ']: ' + d.reason, 'red');
                break;
            default:
                addLine(JSON.stringify(frame));
            }
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = () => updateStatus(true);
            ws.onmessage = (event) => render(JSON.parse(event.data));
            ws.onclose = () => {
                addLine('Connection closed');
                updateStatus(false);
                ws = null;
            };
            ws.onerror = () => {
                addLine('Connection error');
                updateStatus(false);
            };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function joinRoom() {
            emit('join_room', { room_id: roomInput.value.trim(), user_id: nameInput.value.trim() });
        }

        function leaveRoom() {
            emit('leave_room', { room_id: roomInput.value.trim() });
        }

        function loadHistory() {
            emit('get_room_messages', { room_id: roomInput.value.trim(), limit: 50 });
        }

        function sendMessage() {
            const message = messageInput.value.trim();
            if (message) {
                emit('send_message', { room_id: roomInput.value.trim(), message: message });
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
