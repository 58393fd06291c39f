package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-interview-session-service/internal/service/turn"
)

const writeWait = 5 * time.Second

// Hub fans session snapshots out to websocket clients.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan turn.Snapshot
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	current    func() turn.Snapshot
	upgrader   websocket.Upgrader
	logger     zerolog.Logger
	done       chan struct{}
}

// NewHub creates a hub. current supplies the snapshot sent to new clients.
func NewHub(current func() turn.Snapshot, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan turn.Snapshot, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		current:    current,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Publish queues snapshot for every client. It never blocks; when the queue
// is full the snapshot is dropped and clients catch up on the next one.
func (h *Hub) Publish(snapshot turn.Snapshot) {
	select {
	case h.broadcast <- snapshot:
	default:
		h.logger.Debug().Msg("Snapshot queue full, dropping")
	}
}

// Run serves registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for conn := range h.clients {
			_ = conn.Close()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.clients[conn] = true
			if h.current != nil {
				h.write(conn, h.current())
			}
			h.logger.Debug().Int("clients", len(h.clients)).Msg("Client connected")

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				_ = conn.Close()
			}
			h.logger.Debug().Int("clients", len(h.clients)).Msg("Client disconnected")

		case snap := <-h.broadcast:
			for conn := range h.clients {
				h.write(conn, snap)
			}
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, snap turn.Snapshot) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(snap); err != nil {
		h.logger.Debug().Err(err).Msg("Write error, dropping client")
		delete(h.clients, conn)
		_ = conn.Close()
	}
}

// ServeWS upgrades the request and streams snapshots until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
