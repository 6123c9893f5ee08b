package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/lightify/internal/logging"
	"github.com/muurk/lightify/internal/store"
)

// WebSocket message types.
const (
	WSTypeSnapshot = "snapshot"
	WSTypeUpdate   = "update"
	WSTypePing     = "ping"
	WSTypePong     = "pong"
	WSTypeError    = "error"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	// Per-client outbound buffer; a client that falls this far behind is dropped.
	sendBufferSize = 64
)

// WSMessage is one message exchanged with a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// Snapshot carries cached entities. Updates only carry the touched ones;
// Removed lists group ids an update dropped.
type Snapshot struct {
	Source  string        `json:"source,omitempty"`
	Groups  []store.Group `json:"groups"`
	Lights  []store.Light `json:"lights"`
	Removed []uint16      `json:"removed,omitempty"`
	Cleared bool          `json:"cleared,omitempty"`
}

// entitySource is what the hub reads cached entities from.
type entitySource interface {
	Groups() []store.Group
	Lights() []store.Light
	Group(id uint16) (store.Group, bool)
	Light(address uint64) (store.Light, bool)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Hub tracks WebSocket clients and fans cache updates out to them.
type Hub struct {
	source  entitySource
	log     *zap.Logger
	clients map[*wsClient]struct{}
	mu      sync.RWMutex
}

type wsClient struct {
	id         string
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
}

// NewHub creates a hub reading entities from source.
func NewHub(source entitySource, log *zap.Logger) *Hub {
	return &Hub{
		source:  source,
		log:     log,
		clients: make(map[*wsClient]struct{}),
	}
}

// Broadcast sends the entities touched by update to every client. It never
// blocks; it is registered as a bridge update listener.
func (h *Hub) Broadcast(update store.Update) {
	if h.ClientCount() == 0 {
		return
	}

	data, err := encodeMessage(WSTypeUpdate, h.updatePayload(update))
	if err != nil {
		h.log.Error("Failed to encode update", zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.trySend(data) {
			h.log.Warn("WebSocket client too slow, dropping", zap.String("client_id", c.id), zap.String("remote_addr", c.remoteAddr))
			h.unregister(c)
		}
	}
}

func (h *Hub) updatePayload(update store.Update) Snapshot {
	if update.Cleared {
		return Snapshot{Groups: []store.Group{}, Lights: []store.Light{}, Cleared: true}
	}

	payload := Snapshot{
		Source: update.Source.String(),
		Groups: make([]store.Group, 0, len(update.Groups)),
		Lights: make([]store.Light, 0, len(update.Lights)),
	}
	for _, id := range update.Groups {
		if g, ok := h.source.Group(id); ok {
			payload.Groups = append(payload.Groups, g)
		} else {
			payload.Removed = append(payload.Removed, id)
		}
	}
	for _, address := range update.Lights {
		if l, ok := h.source.Light(address); ok {
			payload.Lights = append(payload.Lights, l)
		}
	}
	return payload
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logging.LogConnection(c.remoteAddr, "websocket_connected")
}

// unregister removes c. Only the call that removes it closes its send channel.
func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if existed {
		close(c.send)
		logging.LogConnection(c.remoteAddr, "websocket_closed")
	}
}

// handleWebSocket upgrades the connection, sends a snapshot of the cache and
// then streams updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	c := &wsClient{
		hub:        s.hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		id:         uuid.NewString(),
		remoteAddr: r.RemoteAddr,
	}

	// Registering before taking the snapshot means no change is missed; an
	// update queued ahead of the snapshot is already reflected in it.
	s.hub.register(c)
	snapshot, err := encodeMessage(WSTypeSnapshot, Snapshot{Groups: s.bridge.Groups(), Lights: s.bridge.Lights()})
	if err != nil {
		s.log.Error("Failed to encode snapshot", zap.Error(err))
		s.hub.unregister(c)
		_ = conn.Close()
		return
	}
	c.trySend(snapshot)

	go c.writePump()
	go c.readPump()
}

func (c *wsClient) trySend(data []byte) (ok bool) {
	defer func() {
		// send may be closed by a concurrent unregister
		if recover() != nil {
			ok = true
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *wsClient) reply(msgType string, payload any) {
	data, err := encodeMessage(msgType, payload)
	if err != nil {
		return
	}
	c.trySend(data)
}

// readPump answers pings and keeps the read deadline fresh. Clients do not
// send commands over the socket; state changes go through the HTTP API.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("WebSocket read error", zap.String("client_id", c.id), zap.String("remote_addr", c.remoteAddr), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(WSTypeError, "invalid JSON message")
			continue
		}
		switch msg.Type {
		case WSTypePing:
			c.reply(WSTypePong, nil)
		default:
			c.reply(WSTypeError, "unknown message type: "+msg.Type)
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encodeMessage(msgType string, payload any) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      msgType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
}
