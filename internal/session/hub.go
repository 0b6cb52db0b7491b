package session

import (
	"encoding/json"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Hub tracks connected clients by session ID.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  hclog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger hclog.Logger) *Hub {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Hub{
		clients: map[string]*Client{},
		logger:  logger,
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.session.ID()] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client registered", "session", c.session.ID(), "clients", n)
}

// Unregister removes a client. It is a no-op for unknown clients.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.session.ID()]; ok && cur == c {
		delete(h.clients, c.session.ID())
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client unregistered", "session", c.session.ID(), "clients", n)
}

// Get returns the client for a session ID.
func (h *Hub) Get(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends evt to every client. Clients whose queues are full miss it.
func (h *Hub) Broadcast(evt Event) {
	b, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal event", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.enqueue(b)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.Close()
	}
}
