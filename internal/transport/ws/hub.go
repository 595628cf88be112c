package ws

import (
	"context"

	"github.com/titikruang/ruang/internal/metrics"
	"go.uber.org/zap"
)

// Hub tracks every open WebSocket client so they can be closed together
// on shutdown.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's main event loop and closes all clients once ctx is
// done. Call this in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			metrics.WSConnections.Inc()
			zap.L().Debug("ws hub: client connected",
				zap.Stringer("user", client.userID),
				zap.Int("total", len(h.clients)),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				metrics.WSConnections.Dec()
				client.close()
				zap.L().Debug("ws hub: client disconnected",
					zap.Stringer("user", client.userID),
					zap.Int("total", len(h.clients)),
				)
			}

		case <-ctx.Done():
			for client := range h.clients {
				client.close()
				metrics.WSConnections.Dec()
			}
			h.clients = nil
			return
		}
	}
}

// Register adds c to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
