package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gasy-hub-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocket message types
const (
	MessageNewAlert = "NEW_ALERT"
	MessageWelcome  = "WELCOME"
	MessageError    = "ERROR"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string        `json:"type"`
	Alert   *models.Alert `json:"alert,omitempty"`
	Message string        `json:"message,omitempty"`
	Online  int           `json:"online,omitempty"`
}

// WSClient is one registered connection. Only its write pump writes to conn.
type WSClient struct {
	conn   *websocket.Conn
	userID string // empty for anonymous viewers
	send   chan []byte
}

// UserID returns the authenticated user, or "" for anonymous viewers
func (c *WSClient) UserID() string {
	return c.userID
}

// WSHubOptions tunes the hub
type WSHubOptions struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// WSHub manages WebSocket connections and fans events out to all of them.
// Delivery is best effort: a client whose queue is full misses the event.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	closed  bool
	opts    WSHubOptions
	wg      sync.WaitGroup
}

// NewWSHub creates a new WebSocket hub
func NewWSHub(opts WSHubOptions) *WSHub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 16
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 50 * time.Second
	}
	return &WSHub{
		clients: make(map[*WSClient]struct{}),
		opts:    opts,
	}
}

// Register adds a connection and starts its write pump
func (h *WSHub) Register(conn *websocket.Conn, userID string) (*WSClient, error) {
	client := &WSClient{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, h.opts.SendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, fmt.Errorf("hub is closed")
	}
	h.clients[client] = struct{}{}
	online := len(h.clients)
	h.wg.Add(1)
	h.mu.Unlock()

	go h.writePump(client)

	log.Info().Str("user_id", userID).Int("online", online).Msg("WebSocket connection registered")
	return client, nil
}

// Unregister removes a connection. Its write pump closes the socket.
func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	log.Info().Str("user_id", client.userID).Msg("WebSocket connection unregistered")
}

// SendTo queues a message for a single client
func (h *WSHub) SendTo(client *WSClient, message WSMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[client]; !ok {
		return fmt.Errorf("client is not connected")
	}
	select {
	case client.send <- data:
		return nil
	default:
		return fmt.Errorf("client send queue is full")
	}
}

// Broadcast queues a message for every connected client and returns how many
// accepted it. Clients are iterated under the read lock, so none can be
// unregistered mid-broadcast; enqueueing never blocks.
func (h *WSHub) Broadcast(message WSMessage) (int, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.clients {
		select {
		case client.send <- data:
			delivered++
		default:
			log.Warn().Str("user_id", client.userID).Str("type", message.Type).Msg("Skipping slow WebSocket client")
		}
	}
	return delivered, nil
}

// BroadcastNewAlert pushes a freshly submitted alert to every viewer
func (h *WSHub) BroadcastNewAlert(alert *models.Alert) {
	delivered, err := h.Broadcast(WSMessage{Type: MessageNewAlert, Alert: alert})
	if err != nil {
		log.Error().Err(err).Str("alert_id", alert.ID).Msg("Failed to broadcast alert")
		return
	}
	log.Info().Str("alert_id", alert.ID).Int("delivered", delivered).Msg("Alert broadcast")
}

// Online returns the number of connected clients
func (h *WSHub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their write pumps to exit
func (h *WSHub) Close() {
	h.mu.Lock()
	h.closed = true
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	h.wg.Wait()
}

// writePump drains the client's queue onto the socket and keeps it alive with pings
func (h *WSHub) writePump(client *WSClient) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
		h.wg.Done()
	}()

	for {
		select {
		case data, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("user_id", client.userID).Msg("WebSocket write failed")
				h.Unregister(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Unregister(client)
				return
			}
		}
	}
}
