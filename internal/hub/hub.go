package hub

import (
	"encoding/json"
	"sync"

	"wordclash/backend/pkg/realtime"

	"github.com/sirupsen/logrus"
)

// Client represents a single realtime connection. It's essentially a channel
// the websocket write pump listens to; one client may be subscribed to many
// rooms at once, so the hub never closes it on a per-room unsubscribe.
type Client chan []byte

// Hub is the fan-out address space: room address -> set of subscribed
// clients. Room addresses are strings like "chat:<roomID>" or
// "match:<matchID>".
type Hub struct {
	rooms map[string]map[Client]bool
	mu    sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[Client]bool),
	}
}

// Subscribe adds a client to a room's fan-out set.
func (h *Hub) Subscribe(room string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[Client]bool)
	}
	h.rooms[room][client] = true
}

// Unsubscribe removes a client from one room. The client channel stays open;
// it may still be subscribed elsewhere.
func (h *Hub) Unsubscribe(room string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Drop removes a client from every room and closes its channel. Called once
// when the underlying connection goes away.
func (h *Hub) Drop(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room, clients := range h.rooms {
		if clients[client] {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(client)
}

// Count reports how many clients are subscribed to a room.
func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast sends an event to all clients subscribed to a room.
func (h *Hub) Broadcast(room string, event realtime.ServerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[room]
	if !ok {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).WithField("room", room).Error("failed to marshal realtime event")
		return
	}

	for client := range clients {
		// Non-blocking send so a slow client cannot stall the hub; the
		// connection's pumps clean up clients that stop draining.
		select {
		case client <- payload:
		default:
		}
	}
}

// Send delivers an event to a single client, non-blocking.
func (h *Hub) Send(client Client, event realtime.ServerEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal realtime event")
		return
	}
	select {
	case client <- payload:
	default:
	}
}
