package websocket

import (
	"encoding/json"
	"sync"

	"github.com/swiftcab/ride-backend/pkg/logger"
)

// Hub maintains active client connections keyed by user id and delivers
// best-effort pushes to connected users. A disconnected recipient simply
// does not receive the message.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *logger.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("Client registered",
				logger.String("client_id", client.ID),
				logger.String("user_id", client.UserID),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info("Client unregistered",
					logger.String("client_id", client.ID),
				)
			}
			h.mu.Unlock()
		}
	}
}

// Register registers a new client
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister unregisters a client
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SendToUser sends a message to every connection held by a user. Delivery
// is fire-and-forget: a full send buffer or missing connection drops the
// message.
func (h *Hub) SendToUser(userID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal message", logger.Err(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Client send buffer full, dropping message",
				logger.String("user_id", userID),
				logger.String("client_id", client.ID),
			)
		}
	}
}

// ActiveConnections returns the number of active connections
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
