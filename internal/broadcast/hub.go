// Package broadcast keeps the set of connected websocket clients and pushes
// new listings to all of them.
package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/amishk599/jobfeed/internal/model"
)

// Ensure Hub implements model.Notifier.
var _ model.Notifier = (*Hub)(nil)

// Hub is the set of currently connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
	logger  *slog.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*Client),
		logger:  logger,
	}
}

// Register adds c to the set of clients that receive broadcasts.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client connected", "client_id", c.id.String(), "clients", n)
}

// Unregister removes c and closes its queue. Calling it twice is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mu.Unlock()

	c.closeQueue()
	if ok {
		h.logger.Info("client disconnected", "client_id", c.id.String(), "clients", n)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify pushes listings to every connected client as one new_listings
// message. It never blocks on a slow client: a client whose queue is full
// misses this message.
func (h *Hub) Notify(_ context.Context, listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	msg, err := Encode(EventNewListings, listings)
	if err != nil {
		return err
	}
	delivered, dropped := h.Broadcast(msg)
	h.logger.Info("broadcast new listings",
		"listings", len(listings),
		"delivered", delivered,
		"dropped", dropped,
	)
	return nil
}

// Broadcast offers msg to every client registered at the time of the call.
func (h *Hub) Broadcast(msg []byte) (delivered, dropped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		if c.enqueue(msg) {
			delivered++
			continue
		}
		dropped++
		h.logger.Warn("client queue full, dropping message", "client_id", id.String())
	}
	return delivered, dropped
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[uuid.UUID]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.closeQueue()
	}
	if len(clients) > 0 {
		h.logger.Info("hub closed", "clients", len(clients))
	}
}
