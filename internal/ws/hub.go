package ws

import (
	"context"
	"sync/atomic"

	"dreamui/backend/pkg/logger"
)

// Hub tracks live connections and closes them on shutdown
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	active     atomic.Int64
	done       chan struct{}
	log        *logger.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.WithComponent("ws.hub"),
	}
}

// Run serves registrations until ctx ends, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.active.Store(int64(len(h.clients)))
			h.log.Debug("Client registered", "client_id", client.ID)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.active.Store(int64(len(h.clients)))
				h.log.Debug("Client unregistered", "client_id", client.ID)
			}

		case <-ctx.Done():
			for client := range h.clients {
				client.cancel()
			}
			h.clients = map[*Client]struct{}{}
			h.active.Store(0)
			return
		}
	}
}

// ActiveConnections returns the number of open connections
func (h *Hub) ActiveConnections() int {
	return int(h.active.Load())
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
