package ws

import (
	"sync"

	"github.com/huddle-chat/huddle/internal/metrics"
	"github.com/huddle-chat/huddle/internal/presence"
	"go.uber.org/zap"
)

// Hub routes events to connections. Room channels are subscription-based:
// any authenticated connection may listen to a room's events without
// being a member; membership gates writing, which happens over HTTP.
// The hub also feeds the presence registry as connections come and go.
type Hub struct {
	// All registered connections
	clients map[*Client]bool

	// Room channel subscriptions: roomID -> connections
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	registry presence.Registry
	logger   *zap.Logger
}

func NewHub(registry presence.Registry, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		registry:   registry,
		logger:     logger,
	}
}

// Run processes connection lifecycle events. Broadcasts take the read
// lock directly and do not go through this loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.registry.Register(client.userID, client)

	h.logger.Info("Client connected",
		zap.String("user_id", client.userID),
		zap.String("username", client.username),
		zap.Int("total_clients", total),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()

	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}

	delete(h.clients, client)

	for roomID := range client.rooms {
		if subscribers, ok := h.rooms[roomID]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}

	h.mu.Unlock()

	h.registry.Unregister(client.userID, client)
	client.Close()

	h.logger.Info("Client disconnected",
		zap.String("user_id", client.userID),
		zap.String("username", client.username),
	)
}

// Subscribe attaches a connection to a room channel and confirms it
func (h *Hub) Subscribe(client *Client, roomID string) {
	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	subscribers := len(h.rooms[roomID])
	h.mu.Unlock()

	client.addRoom(roomID)

	client.Send(FrameSubscribed, &SubscribedPayload{
		RoomID:      roomID,
		Subscribers: subscribers,
	})

	h.logger.Debug("Client subscribed to room",
		zap.String("user_id", client.userID),
		zap.String("room_id", roomID),
	)
}

// Unsubscribe detaches a connection from a room channel
func (h *Hub) Unsubscribe(client *Client, roomID string) {
	h.mu.Lock()
	if subscribers, ok := h.rooms[roomID]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	client.removeRoom(roomID)

	client.Send(FrameUnsubscribed, &SubscribePayload{RoomID: roomID})
}

// BroadcastToRoom fans an event out to every connection subscribed to
// the room. At-most-once per connection; slow consumers lose frames.
func (h *Hub) BroadcastToRoom(roomID, event string, payload interface{}) {
	h.mu.RLock()
	subscribers := make([]*Client, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		subscribers = append(subscribers, client)
	}
	h.mu.RUnlock()

	metrics.RoomBroadcasts.WithLabelValues(event).Inc()

	for _, client := range subscribers {
		client.Send(event, payload)
	}
}

// BroadcastGlobal fans an event out to every connection
func (h *Hub) BroadcastGlobal(event string, payload interface{}) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	metrics.GlobalBroadcasts.Inc()

	for _, client := range clients {
		client.Send(event, payload)
	}
}

// RoomSubscribers returns the number of connections on a room channel
func (h *Hub) RoomSubscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Stats returns hub counters for the stats endpoint
func (h *Hub) Stats() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]int{
		"total_clients": len(h.clients),
		"active_rooms":  len(h.rooms),
	}
}
