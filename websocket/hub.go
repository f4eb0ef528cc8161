package websocket

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/smartsouq/smartsouq_backend/models"
)

// Frame types pushed over the market stream
const (
	FrameTypeConnected = "connected"
	FrameTypeTickers   = "tickers"
)

// Frame is a message sent over WebSocket
type Frame struct {
	Type    string          `json:"type"`
	Message string          `json:"message,omitempty"`
	Tickers []models.Ticker `json:"tickers,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	Conn *websocket.Conn
}

// Hub maintains the set of connected dashboard clients and broadcasts
// market ticker frames to all of them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// BroadcastTickers pushes a quote refresh to every connected client.
func (h *Hub) BroadcastTickers(tickers []models.Ticker) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	frame := Frame{Type: FrameTypeTickers, Tickers: tickers}
	for client := range h.clients {
		client.Conn.WriteJSON(frame)
	}
}

// ClientCount reports how many dashboards are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
