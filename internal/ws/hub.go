package ws

import (
	"sync"

	"github.com/serroba/collab-pad/internal/presence"
)

// Hub manages WebSocket clients and fans out per-document broadcasts.
// Operation broadcasts are ordered by the per-document session; presence
// and cursor traffic has no ordering requirement beyond last-write-wins.
type Hub struct {
	mu sync.RWMutex

	// clients maps client ID to client
	clients map[string]*Client

	// documents maps document ID to set of client IDs
	documents map[string]map[string]struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]*Client),
		documents: make(map[string]map[string]struct{}),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
}

// Unregister removes a client from the hub and any document subscriptions.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Remove from document subscription
	docID := client.DocID()
	if docID != "" {
		if clients, ok := h.documents[docID]; ok {
			delete(clients, client.ID)

			if len(clients) == 0 {
				delete(h.documents, docID)
			}
		}
	}

	delete(h.clients, client.ID)
}

// Subscribe adds a client to a document's broadcast list.
func (h *Hub) Subscribe(client *Client, docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Unsubscribe from previous document
	oldDocID := client.DocID()
	if oldDocID != "" && oldDocID != docID {
		if clients, ok := h.documents[oldDocID]; ok {
			delete(clients, client.ID)

			if len(clients) == 0 {
				delete(h.documents, oldDocID)
			}
		}
	}

	// Subscribe to new document
	if h.documents[docID] == nil {
		h.documents[docID] = make(map[string]struct{})
	}

	h.documents[docID][client.ID] = struct{}{}
	client.SetDocID(docID)
}

// Unsubscribe removes a client from a document's broadcast list.
func (h *Hub) Unsubscribe(client *Client, docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.documents[docID]; ok {
		delete(clients, client.ID)

		if len(clients) == 0 {
			delete(h.documents, docID)
		}
	}

	if client.DocID() == docID {
		client.SetDocID("")
	}
}

// Broadcast sends a message to all clients subscribed to a document,
// except the sender (identified by excludeClientID). Enqueueing is
// synchronous so consecutive broadcasts reach each connection in order;
// the per-client writer absorbs slow consumers.
func (h *Hub) Broadcast(docID string, msg Message, excludeClientID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clientIDs, ok := h.documents[docID]
	if !ok {
		return
	}

	for clientID := range clientIDs {
		if clientID == excludeClientID {
			continue
		}

		client, ok := h.clients[clientID]
		if !ok {
			continue
		}

		_ = client.Send(msg)
	}
}

// BroadcastOperation pushes an accepted operation to every other client on
// the document.
func (h *Hub) BroadcastOperation(docID string, payload BroadcastPayload, excludeClientID string) {
	h.Broadcast(docID, Message{
		Type:    MessageTypeOperation,
		Payload: payload,
	}, excludeClientID)
}

// BroadcastCursor relays one connection's cursor update to the others.
func (h *Hub) BroadcastCursor(docID string, payload CursorPayload, excludeClientID string) {
	h.Broadcast(docID, Message{
		Type:    MessageTypeCursor,
		Payload: payload,
	}, excludeClientID)
}

// BroadcastUserStatus pushes one user's presence diff to the other clients.
func (h *Hub) BroadcastUserStatus(docID string, user presence.Record, excludeClientID string) {
	h.Broadcast(docID, Message{
		Type: MessageTypeUserStatus,
		Payload: UserStatusPayload{
			DocID: docID,
			User:  user,
		},
	}, excludeClientID)
}

// BroadcastUsers pushes the full roster to every client on the document.
// Each client receives the roster ordered from its own point of view, so
// the message is built per recipient.
func (h *Hub) BroadcastUsers(docID string, roster func(selfConnID string) []presence.Record) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clientIDs, ok := h.documents[docID]
	if !ok {
		return
	}

	for clientID := range clientIDs {
		client, ok := h.clients[clientID]
		if !ok {
			continue
		}

		_ = client.Send(Message{
			Type: MessageTypeUsers,
			Payload: UsersPayload{
				DocID: docID,
				Users: roster(clientID),
			},
		})
	}
}

// BroadcastPermission announces a permission mode change to every client on
// the document, including the one that triggered it.
func (h *Hub) BroadcastPermission(docID, mode string) {
	h.Broadcast(docID, Message{
		Type: MessageTypePermission,
		Payload: PermissionPayload{
			DocID: docID,
			Mode:  mode,
		},
	}, "")
}

// ClientCount returns the number of clients subscribed to a document.
func (h *Hub) ClientCount(docID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.documents[docID]; ok {
		return len(clients)
	}

	return 0
}

// TotalClients returns the total number of connected clients.
func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
