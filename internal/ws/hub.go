package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"quest_webapp/internal/service"
)

// Hub tracks connected clients per user and pushes progression events
// to every open connection of the affected user.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
	}
}

// Publish implements service.EventSink. Delivery is best effort: a client
// with a full send buffer is dropped rather than blocking the caller.
func (h *Hub) Publish(ev service.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Hub.Publish: marshal error: %v", err)
		return
	}

	h.mu.RLock()
	conns := make([]*Client, 0, len(h.clients[ev.UserID]))
	for c := range h.clients[ev.UserID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		select {
		case c.Send <- payload:
		default:
			log.Printf("Hub.Publish: user=%d slow client, disconnecting", ev.UserID)
			h.remove(c)
			c.close()
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

// ConnectionCount reports open connections for a user.
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// StartCleanup periodically logs connection totals. Kept lightweight so it
// is safe to run for the life of the process.
func (h *Hub) StartCleanup() {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			h.mu.RLock()
			users := len(h.clients)
			h.mu.RUnlock()
			log.Printf("Hub: %d users connected", users)
		}
	}()
}
