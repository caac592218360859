package socket

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks the connected websocket clients, keyed by actor id: the uid
// for patients, drivers and admins, the pharmacy id for pharmacy accounts.
type Hub struct {
	clients map[string]*websocket.Conn
	// admins mirrors the admin subset for operator broadcasts.
	admins map[string]struct{}
	mu     sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*websocket.Conn),
		admins:  make(map[string]struct{}),
	}
}

// Register adds a client. isAdmin marks it as a recipient of operator
// announcements.
func (h *Hub) Register(actorID string, conn *websocket.Conn, isAdmin bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[actorID] = conn
	if isAdmin {
		h.admins[actorID] = struct{}{}
	}
	log.Printf("WebSocket client registered: %s", actorID)
}

func (h *Hub) Unregister(actorID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[actorID]; ok {
		delete(h.clients, actorID)
		delete(h.admins, actorID)
		log.Printf("WebSocket client unregistered: %s", actorID)
	}
}

// Send delivers a message to one client. An offline client is not an
// error; notifications are advisory.
func (h *Hub) Send(actorID string, message []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conn, ok := h.clients[actorID]
	if !ok {
		return nil
	}
	return conn.WriteMessage(websocket.TextMessage, message)
}

// SendAdmins fans a message out to every connected admin.
func (h *Hub) SendAdmins(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id := range h.admins {
		if conn, ok := h.clients[id]; ok {
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket send to admin %s failed: %v", id, err)
			}
		}
	}
}
