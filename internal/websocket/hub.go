package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ameentrust/donorgate/internal/event"
)

// refreshMessage is the wire form of a donation-completed signal sent to
// dashboard views. Type is fixed so listeners can multiplex later
// message kinds.
type refreshMessage struct {
	Type     string                  `json:"type"`
	Donation event.DonationCompleted `json:"donation"`
}

// Hub relays completed-donation events to every connected dashboard
// view, so an open dashboard refreshes its totals without polling.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Run subscribes the hub to the event bus and relays every completed
// donation until ctx is cancelled.
func (h *Hub) Run(ctx context.Context, bus *event.Bus) {
	events, cancel := bus.Subscribe()
	defer cancel()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(ev event.DonationCompleted) {
	data, err := json.Marshal(refreshMessage{Type: "donation_completed", Donation: ev})
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop rather than block settlement
		}
	}
}

// ClientCount returns the number of connected dashboard views.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
