// Package realtime pushes wizard state snapshots to websocket clients
// watching a session.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type MessageType string

const (
	StateUpdate MessageType = "state"
	Heartbeat   MessageType = "heartbeat"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 16
)

var ErrHubStopped = errors.New("realtime hub stopped")

type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// ClientMessage is what a browser may send us.
type ClientMessage struct {
	Type string `json:"type"`
}

type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	clientID  string
	sessionID string
}

type publication struct {
	sessionID string
	payload   []byte
}

// Hub fans out messages to the clients of one session. All membership
// changes go through the Start loop.
type Hub struct {
	sessions   map[string]map[*Client]bool
	broadcast  chan publication
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan publication, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

func (h *Hub) Start() {
	defer h.logger.Info("realtime hub stopped")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			clients, ok := h.sessions[client.sessionID]
			if !ok {
				clients = make(map[*Client]bool)
				h.sessions[client.sessionID] = clients
			}
			clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client connected", zap.String("client_id", client.clientID), zap.String("session_id", client.sessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", zap.String("client_id", client.clientID), zap.String("session_id", client.sessionID))

		case pub := <-h.broadcast:
			h.mu.Lock()
			for client := range h.sessions[pub.sessionID] {
				select {
				case client.send <- pub.payload:
				default:
					h.logger.Warn("client too slow, dropping", zap.String("client_id", client.clientID))
					h.remove(client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for _, clients := range h.sessions {
				for client := range clients {
					close(client.send)
				}
			}
			h.sessions = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}
}

// Serve upgrades the request and subscribes it to sessionID. initial, if
// not nil, is sent before any later update.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, initial any) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	client := &Client{
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		clientID:  uuid.NewString(),
		sessionID: sessionID,
	}

	if initial != nil {
		payload, err := encode(StateUpdate, sessionID, initial)
		if err != nil {
			conn.Close()
			return err
		}
		client.send <- payload
	}

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		conn.Close()
		return ErrHubStopped
	}

	go client.writePump(h.logger)
	go client.readPump(h)
	return nil
}

// Publish queues data for every client of sessionID. It never blocks; when
// the queue is full the update is dropped.
func (h *Hub) Publish(sessionID string, data any) error {
	payload, err := encode(StateUpdate, sessionID, data)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- publication{sessionID: sessionID, payload: payload}:
		return nil
	default:
		h.logger.Warn("broadcast queue full, dropping update", zap.String("session_id", sessionID))
		return nil
	}
}

// Drop disconnects every client watching sessionID and returns how many
// there were. Their connections get a close frame.
func (h *Hub) Drop(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.sessions[sessionID]
	n := len(clients)
	for client := range clients {
		h.remove(client)
	}
	if n > 0 {
		h.logger.Debug("session dropped", zap.String("session_id", sessionID), zap.Int("clients", n))
	}
	return n
}

func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func encode(kind MessageType, sessionID string, data any) ([]byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s data: %w", kind, err)
	}
	payload, err := json.Marshal(Message{
		ID:        uuid.NewString(),
		Type:      kind,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data:      body,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return payload, nil
}

func (c *Client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("websocket write failed", zap.String("client_id", c.clientID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", zap.String("client_id", c.clientID), zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("bad client message", zap.String("client_id", c.clientID), zap.Error(err))
			continue
		}
		if msg.Type == "ping" {
			payload, err := encode(Heartbeat, c.sessionID, map[string]string{"status": "alive"})
			if err != nil {
				continue
			}
			h.mu.RLock()
			if h.sessions[c.sessionID][c] {
				select {
				case c.send <- payload:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}
