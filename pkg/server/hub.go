package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/focus-dev/focus/pkg/binding"
)

// MessageType identifies a live message.
type MessageType string

const (
	messageState  MessageType = "state"
	messageErrors MessageType = "errors"
)

// Message is sent to live clients for every state a component publishes.
type Message struct {
	Type      MessageType   `json:"type"`
	Component string        `json:"component"`
	State     binding.State `json:"state"`
}

// client is one live connection. gorilla/websocket allows a single writer
// at a time, so writes go through mu.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// hub fans the states of one component out to its live clients.
type hub struct {
	component string
	logger    *slog.Logger

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

func newHub(component string, logger *slog.Logger) *hub {
	return &hub{
		component: component,
		logger:    logger.With("binding", component),
		clients:   make(map[string]*client),
	}
}

// serve registers conn, sends it the current states and blocks until the
// client disconnects.
func (h *hub) serve(conn *websocket.Conn, current ...Message) {
	c := &client{id: uuid.NewString(), conn: conn}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Debug("live client connected", "conn", c.id)

	for _, msg := range current {
		if data, err := json.Marshal(msg); err == nil {
			if err := c.write(data); err != nil {
				h.drop(c)
				return
			}
		}
	}

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(c)
}

func (h *hub) publish(kind MessageType, st binding.State) {
	data, err := json.Marshal(Message{Type: kind, Component: h.component, State: st})
	if err != nil {
		h.logger.Error("encode live message", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.logger.Debug("live write failed", "conn", c.id, "error", err)
			h.drop(c)
		}
	}
}

func (h *hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
		h.logger.Debug("live client disconnected", "conn", c.id)
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// close disconnects every client and refuses new ones.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		c.conn.Close()
		delete(h.clients, id)
	}
}
