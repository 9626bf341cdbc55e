package web

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub distributes events to connected websocket clients. Slow clients miss
// events rather than blocking the bridge.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

// Subscribe returns a channel receiving broadcast events and a cleanup
// function. The caller must call the cleanup on client disconnect.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	unsub := func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Broadcast sends an event to all subscribed clients, non-blocking.
func (h *Hub) Broadcast(evt Event) {
	data, err := EncodeEvent(evt)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// channel full, skip
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

const writeWait = 10 * time.Second

// serveClient pumps hub events into one websocket connection until the
// connection drops or the channel closes.
func serveClient(conn *websocket.Conn, events <-chan []byte) {
	defer conn.Close()
	for data := range events {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
