package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"voice-story-go/internal/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ProgressMessage is one stage-status transition pushed to UI clients.
// Clients filter on session_id when following a specific run.
type ProgressMessage struct {
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Hub fans stage events out to every connected websocket client.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
	log   *logger.Logger
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]bool),
		log:   logger.New(),
	}
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
	h.log.WithRequest(r).Info("progress client connected")

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Drain client frames; the hub only pushes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) Broadcast(msg ProgressMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(h.conns, conn)
		}
	}
}
