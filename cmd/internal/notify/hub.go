package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Hub fans events out to connected dashboard subscribers. It implements
// Notifier, so it slots into the same Multi chain as the log notifier.
type Hub struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
	dropped int64
}

// NewHub constructs a Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{log: log, clients: make(map[*Client]struct{})}
}

// Subscribe registers a client for future events.
func (h *Hub) Subscribe(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unsubscribe removes a client and signals it to stop.
func (h *Hub) Unsubscribe(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

// Subscribers returns the connected client count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many events were discarded on full client queues.
func (h *Hub) Dropped() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Notify broadcasts ev to every subscriber. Sends never block: a slow client
// with a full queue loses the event rather than stalling the order flow.
func (h *Hub) Notify(_ context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.Send <- ev:
		default:
			h.dropped++
			h.log.Warn("notify.hub.drop", "order_id", ev.OrderID, "type", ev.Type)
		}
	}
	return nil
}
