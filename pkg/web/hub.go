package web

import (
	"sync"

	"github.com/gofiber/websocket/v2"
)

// hub maintains the set of connected websocket clients and broadcasts
// detection events to them. Slow clients are dropped rather than allowed to
// stall the tick observer.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte)}
}

// add registers a connection and returns its send channel.
func (h *hub) add(c *websocket.Conn) chan []byte {
	send := make(chan []byte, 16)
	h.mu.Lock()
	h.clients[c] = send
	h.mu.Unlock()
	return send
}

// remove unregisters a connection.
func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(send)
	}
	h.mu.Unlock()
}

// broadcast fans a message out to every client, dropping clients whose
// buffer is full.
func (h *hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c, send := range h.clients {
		select {
		case send <- msg:
		default:
			delete(h.clients, c)
			close(send)
		}
	}
}

// count returns the number of connected clients.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
