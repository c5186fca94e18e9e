package wshub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"edgeroute/internal/events"
	"edgeroute/internal/sequence"
)

// Client message types.
const (
	TypeKey     = "key"
	TypeClick   = "click"
	TypeView    = "view"
	TypeClose   = "close"
	TypeDismiss = "dismiss"
)

// Server message types.
const (
	TypeNotification = "notification"
	TypeJoin         = "join"
	TypeLeave        = "leave"
	TypeError        = "error"
)

// ClientMessage is the JSON structure received from clients.
type ClientMessage struct {
	Type string `json:"t"`
	// Key is the KeyboardEvent.key value for TypeKey.
	Key string `json:"k,omitempty"`
	// Path lists the clicked element and its ancestors for TypeClick.
	Path []sequence.Element `json:"path,omitempty"`
	// URL is the page path for TypeView.
	URL string `json:"u,omitempty"`
	// ID is the toast id for TypeDismiss.
	ID string `json:"id,omitempty"`
}

// ServerMessage is the JSON structure sent to clients.
type ServerMessage struct {
	Type         string               `json:"t"`
	ClientID     string               `json:"id,omitempty"`
	Peers        int                  `json:"peers,omitempty"`
	Notification *events.Notification `json:"n,omitempty"`
	Error        string               `json:"err,omitempty"`
}

// Client represents a single WebSocket connection in the hub.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub manages the WebSocket connections of one session. Several browser tabs
// of the same session share a hub.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *zap.Logger
}

// NewHub creates a new Hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		log:     log.With(zap.String("component", "wshub")),
	}
}

// Register adds a client to the hub and announces it to the others.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	peers := len(h.clients)
	h.mu.Unlock()

	h.BroadcastExcept(c.ID, ServerMessage{Type: TypeJoin, ClientID: c.ID, Peers: peers})
}

// Unregister removes a client and closes its Send channel, then broadcasts a leave message.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	c, ok := h.clients[clientID]
	if ok {
		close(c.Send)
		delete(h.clients, clientID)
	}
	peers := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.BroadcastExcept(clientID, ServerMessage{
			Type:     TypeLeave,
			ClientID: clientID,
			Peers:    peers,
		})
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify forwards a session notification to every client.
func (h *Hub) Notify(n events.Notification) {
	h.Broadcast(ServerMessage{Type: TypeNotification, Notification: &n})
}

// Broadcast sends a message to all clients.
func (h *Hub) Broadcast(msg ServerMessage) {
	h.BroadcastExcept("", msg)
}

// BroadcastExcept sends a message to all clients except the sender. Non-blocking: drops if channel full.
func (h *Hub) BroadcastExcept(senderID string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal error", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.clients {
		if id == senderID {
			continue
		}
		select {
		case c.Send <- data:
		default:
			// Drop message if channel full
		}
	}
}

// SendTo sends a message to one client, if it is still registered.
func (h *Hub) SendTo(clientID string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal error", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[clientID]; ok {
		select {
		case c.Send <- data:
		default:
		}
	}
}

// CloseAll drops every client and closes their Send channels.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.Send)
		delete(h.clients, id)
	}
}
