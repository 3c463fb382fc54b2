package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"gasy-hub-backend/internal/middleware"
	"gasy-hub-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const maxInboundMessage = 4096

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients send no Origin; browsers are covered by CORS
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub         *services.WSHub
	validator   middleware.TokenValidator
	pongTimeout time.Duration
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, validator middleware.TokenValidator, pongTimeout time.Duration) *WebSocketHandler {
	if pongTimeout <= 0 {
		pongTimeout = 60 * time.Second
	}
	return &WebSocketHandler{
		hub:         hub,
		validator:   validator,
		pongTimeout: pongTimeout,
	}
}

// HandleWebSocket handles GET /ws. The token query parameter is optional;
// anonymous viewers receive the same alert feed.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	var userID string
	if token := r.URL.Query().Get("token"); token != "" {
		var err error
		if userID, err = h.validator.ValidateJWT(token); err != nil {
			respondError(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client, err := h.hub.Register(conn, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to register WebSocket connection")
		conn.Close()
		return
	}
	defer h.hub.Unregister(client)

	if err := h.hub.SendTo(client, services.WSMessage{Type: services.MessageWelcome, Online: h.hub.Online()}); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send welcome message")
	}

	conn.SetReadLimit(maxInboundMessage)
	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
	})

	// the feed is one-way; inbound frames only keep the connection alive
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("user_id", userID).Msg("WebSocket closed")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

		var msg services.WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.hub.SendTo(client, services.WSMessage{Type: services.MessageError, Message: "Invalid message format"})
			continue
		}
		h.hub.SendTo(client, services.WSMessage{Type: services.MessageError, Message: "Unknown message type"})
	}
}
