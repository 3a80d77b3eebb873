package web

import (
	"sync"

	"github.com/codestorm-dev/codestorm/internal/logger"
	"github.com/codestorm-dev/codestorm/internal/workspace"
)

type roomMessage struct {
	workspaceID string
	message     *WebMessage
}

type joinRequest struct {
	client      *Client
	workspaceID string
}

// Hub maintains the set of active clients and their room membership, and
// fans broadcasts out to every connection joined to a workspace room.
// Delivery is best effort: there is no acknowledgement, retry, or ordering
// guarantee across event sources, and subscribers that cannot keep up are
// dropped.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	membership map[*Client]string
	broadcast  chan roomMessage
	register   chan *Client
	unregister chan *Client
	joins      chan joinRequest
	mu         sync.RWMutex
	quit       chan struct{}
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		membership: make(map[*Client]string),
		broadcast:  make(chan roomMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joins:      make(chan joinRequest),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	logger.Info("WebSocket hub started")
	defer logger.Info("WebSocket hub stopped")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Debug("Client registered: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.removeMembership(client)
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()
			logger.Debug("Client unregistered: %s", client.ID)

		case req := <-h.joins:
			h.mu.Lock()
			if _, ok := h.clients[req.client]; ok {
				// Re-joining replaces prior membership, never stacks.
				h.removeMembership(req.client)
				room, ok := h.rooms[req.workspaceID]
				if !ok {
					room = make(map[*Client]bool)
					h.rooms[req.workspaceID] = room
				}
				room[req.client] = true
				h.membership[req.client] = req.workspaceID
			}
			h.mu.Unlock()
			logger.Debug("Client %s joined workspace %s", req.client.ID, req.workspaceID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			room := h.rooms[msg.workspaceID]
			h.mu.RUnlock()

			var dead []*Client
			for client := range room {
				if !client.trySend(msg.message) {
					// Failed to send, drop the client
					dead = append(dead, client)
				}
			}
			if len(dead) > 0 {
				h.mu.Lock()
				for _, client := range dead {
					if _, ok := h.clients[client]; ok {
						h.removeMembership(client)
						delete(h.clients, client)
						client.closeSend()
					}
				}
				h.mu.Unlock()
			}

		case <-h.quit:
			return
		}
	}
}

// removeMembership drops a client from its current room. Caller holds h.mu.
func (h *Hub) removeMembership(client *Client) {
	workspaceID, ok := h.membership[client]
	if !ok {
		return
	}
	delete(h.membership, client)
	if room, ok := h.rooms[workspaceID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, workspaceID)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	close(h.quit)
}

// Register registers a new client
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister unregisters a client
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Join subscribes a client to a workspace room, replacing any previous
// membership.
func (h *Hub) Join(client *Client, workspaceID string) {
	h.joins <- joinRequest{client: client, workspaceID: workspaceID}
}

// Broadcast delivers a message to every client joined to the workspace room.
// Fire-and-forget: a full hub queue drops the message.
func (h *Hub) Broadcast(workspaceID string, message *WebMessage) {
	select {
	case h.broadcast <- roomMessage{workspaceID: workspaceID, message: message}:
	default:
		logger.Warn("Broadcast channel full, dropping message for workspace %s", workspaceID)
	}
}

// NotifyChange implements workspace.Notifier: filesystem change events become
// file_change broadcasts to the owning workspace's room.
func (h *Hub) NotifyChange(event workspace.ChangeEvent) {
	h.Broadcast(event.WorkspaceID, &WebMessage{
		Type:        MessageTypeFileChange,
		WorkspaceID: event.WorkspaceID,
		ChangeType:  event.Kind,
		File:        &FileRef{Path: event.Path, OldPath: event.OldPath, Size: event.Size},
		Timestamp:   event.Timestamp,
	})
}

// RoomCount returns the number of clients joined to a workspace room.
func (h *Hub) RoomCount(workspaceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[workspaceID])
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var _ workspace.Notifier = (*Hub)(nil)
