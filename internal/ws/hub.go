// Package ws is the realtime notification channel: a hub of connected
// users that doubles as the presence registry. Services talk to it only
// through the EventNotifier interface, so a multi-instance deployment
// can swap it for a pub/sub-backed implementation.
package ws

import (
	"encoding/json"
	"sync"
)

// Client is one WebSocket connection with user context. A user may hold
// several connections at once.
type Client struct {
	UserID uint
	Send   chan []byte
	hub    *Hub
	mu     sync.Mutex
	closed bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.hub != nil {
		c.hub.unregister(c)
	}
}

// Hub maintains the set of connected clients keyed by user ID.
type Hub struct {
	mu     sync.RWMutex
	byUser map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{byUser: make(map[uint]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
}

// IsOnline reports whether the user has at least one open connection.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID]) > 0
}

// Notify implements service.EventNotifier. Best effort: offline users
// and slow consumers are skipped, never blocked on.
func (h *Hub) Notify(userID uint, event string, payload interface{}) {
	data, err := json.Marshal(map[string]interface{}{"event": event, "payload": payload})
	if err != nil {
		return
	}
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}
