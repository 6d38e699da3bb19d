package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the CORS wrapper on the main router.
		return true
	},
}

// Hub tracks WebSocket clients and fans committed events out to the channels
// they subscribed to.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	logger     *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run owns the client set. Launch as a goroutine before serving.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Infow("ws_client_connected", "id", client.id, "total", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Infow("ws_client_disconnected", "id", client.id, "total", n)
		}
	}
}

// BroadcastToChannel sends data to every client subscribed to channel.
// Clients with a full send buffer are skipped, not stalled on.
func (h *Hub) BroadcastToChannel(channel string, data interface{}) {
	message, err := json.Marshal(map[string]interface{}{
		"channel": channel,
		"data":    data,
	})
	if err != nil {
		h.logger.Errorw("ws_marshal_failed", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.IsSubscribed(channel) {
			select {
			case client.send <- message:
			default:
			}
		}
	}
}

// Client is one WebSocket connection with its channel subscriptions.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	subsMu        sync.RWMutex
	subscriptions map[string]bool
}

func (c *Client) IsSubscribed(channel string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return c.subscriptions[channel]
}

func (c *Client) setSubscribed(channel string, on bool) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if on {
		c.subscriptions[channel] = true
	} else {
		delete(c.subscriptions, channel)
	}
}

// readPump consumes subscribe/unsubscribe messages until the peer goes away.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req WSSubscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}
		for _, ch := range req.Channels {
			c.setSubscribed(ch, req.Op == "subscribe")
		}
	}
}

// writePump drains the send buffer to the connection.
func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("ws_upgrade_failed", "err", err)
		return
	}

	client := &Client{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, 256),
		id:            fmt.Sprintf("%s-%d", r.RemoteAddr, time.Now().UnixNano()),
		subscriptions: make(map[string]bool),
	}
	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}
