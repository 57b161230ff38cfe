package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const wsWriteTimeout = 5 * time.Second

// Event is one message pushed to WebSocket subscribers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// wsClient represents a single WebSocket connection managed by a Hub.
type wsClient struct {
	send chan []byte
}

// Hub manages a set of WebSocket clients and broadcasts events to all
// connected clients. Slow clients are dropped rather than blocking the
// broadcast loop.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	log        *slog.Logger
}

// NewHub creates a new Hub with initialised channels and client map.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		log:        log,
	}
}

// Run starts the Hub's main event loop. It should be launched as a goroutine
// and exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Broadcast marshals an event and queues it for all connected clients.
func (h *Hub) Broadcast(eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		h.log.Error("marshaling event", "type", eventType, "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn("broadcast queue full, dropping event", "type", eventType)
	}
}

// HandleWebSocket upgrades an HTTP connection to a WebSocket, registers the
// client with the Hub, and pumps queued events until the client disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err)
		return
	}

	client := &wsClient{send: make(chan []byte, 32)}
	h.register <- client
	defer func() {
		h.unregister <- client
		conn.CloseNow()
	}()

	// Reader goroutine: we never expect client messages, but reading is
	// required to notice closes and answer pings.
	readCtx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, rerr := conn.Read(readCtx); rerr != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readCtx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case message, ok := <-client.send:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			writeCtx, wcancel := context.WithTimeout(readCtx, wsWriteTimeout)
			werr := conn.Write(writeCtx, websocket.MessageText, message)
			wcancel()
			if werr != nil {
				return
			}
		}
	}
}
