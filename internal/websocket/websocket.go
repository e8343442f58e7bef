package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/hackportal/internal/leaderboard"
	"github.com/abrezinsky/hackportal/internal/logger"
	"github.com/abrezinsky/hackportal/internal/models"
	"github.com/abrezinsky/hackportal/pkg/portal"
)

// Message types
const (
	TypeLeaderboard      = "leaderboard"
	TypeLeaderboardError = "leaderboard_error"
	TypeVisibility       = "visibility"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the dashboard is served to the local network
	},
}

// Hub maintains the set of active clients and broadcasts leaderboard updates
// to them. It tracks which clients report a visible page and calls
// onVisibility when the first one appears or the last one goes away.
type Hub struct {
	log          logger.Logger
	clients      map[*Client]bool
	broadcast    chan models.WSMessage
	register     chan *Client
	unregister   chan *Client
	visibility   chan visibilityChange
	mutex        sync.RWMutex
	visible      int
	last         *models.WSMessage
	onVisibility func(visible bool)
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage
}

type visibilityChange struct {
	client  *Client
	visible bool
}

// visibilityPayload is sent by the page on connect and on visibilitychange
type visibilityPayload struct {
	Visible bool `json:"visible"`
}

// errorPayload reports a failed leaderboard load
type errorPayload struct {
	Scope   portal.Scope `json:"scope"`
	Message string       `json:"message"`
}

// New creates a new Hub. onVisibility may be nil.
func New(log logger.Logger, onVisibility func(visible bool)) *Hub {
	return &Hub{
		log:          log,
		clients:      make(map[*Client]bool),
		broadcast:    make(chan models.WSMessage),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		visibility:   make(chan visibilityChange),
		onVisibility: onVisibility,
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// run handles client registration/unregistration, visibility and message broadcasting
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			last := h.last
			h.mutex.Unlock()
			h.log.Debug("Client connected", "total_clients", h.ClientCount())
			h.adjustVisible(1)

			// new clients get the current board right away
			if last != nil {
				client.send <- *last
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			visible, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			if ok {
				h.log.Debug("Client disconnected", "total_clients", h.ClientCount())
				if visible {
					h.adjustVisible(-1)
				}
			}

		case change := <-h.visibility:
			h.mutex.Lock()
			was, ok := h.clients[change.client]
			if ok {
				h.clients[change.client] = change.visible
			}
			h.mutex.Unlock()
			if ok && was != change.visible {
				if change.visible {
					h.adjustVisible(1)
				} else {
					h.adjustVisible(-1)
				}
			}

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// adjustVisible changes the visible viewer count and reports transitions
// between zero and non-zero. Only called from run.
func (h *Hub) adjustVisible(delta int) {
	h.mutex.Lock()
	before := h.visible
	h.visible += delta
	after := h.visible
	h.mutex.Unlock()

	if h.onVisibility == nil {
		return
	}
	switch {
	case before == 0 && after > 0:
		h.log.Debug("Leaderboard has viewers")
		h.onVisibility(true)
	case before > 0 && after == 0:
		h.log.Debug("Leaderboard has no visible viewers")
		h.onVisibility(false)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// VisibleCount returns the number of clients reporting a visible page
func (h *Hub) VisibleCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.visible
}

// BroadcastMessage sends a message to all connected clients
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	h.broadcast <- models.WSMessage{
		Type:    msgType,
		Payload: payload,
	}
}

// ShowBoard implements leaderboard.View
func (h *Hub) ShowBoard(b leaderboard.Board) {
	msg := models.WSMessage{Type: TypeLeaderboard, Payload: b}
	h.mutex.Lock()
	h.last = &msg
	h.mutex.Unlock()
	h.broadcast <- msg
}

// ShowError implements leaderboard.View
func (h *Hub) ShowError(scope portal.Scope, msg string) {
	h.BroadcastMessage(TypeLeaderboardError, errorPayload{Scope: scope, Message: msg})
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.log.Debug("Ignoring malformed message", "error", err)
			continue
		}

		switch msg.Type {
		case TypeVisibility:
			var p visibilityPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				c.hub.log.Debug("Ignoring malformed visibility message", "error", err)
				continue
			}
			c.hub.visibility <- visibilityChange{client: c, visible: p.Visible}
		default:
			c.hub.log.Debug("Received message", "type", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from clients
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, 256),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// Ensure Hub implements leaderboard.View
var _ leaderboard.View = (*Hub)(nil)
