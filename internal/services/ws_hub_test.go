package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gasy-hub-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHubServer serves a websocket endpoint that registers every connection
// with hub and keeps reading until the peer goes away
func newHubServer(t *testing.T, hub *WSHub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client, err := hub.Register(conn, r.URL.Query().Get("user"))
		if err != nil {
			conn.Close()
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.Unregister(client)
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialHub(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForOnline(t *testing.T, hub *WSHub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Online() == n }, 2*time.Second, 10*time.Millisecond)
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	hub := NewWSHub(WSHubOptions{})
	srv := newHubServer(t, hub)

	a := dialHub(t, srv, "u1")
	b := dialHub(t, srv, "")
	waitForOnline(t, hub, 2)

	alert := &models.Alert{ID: "a1", Reason: "Vol", Description: "Sac volé", Location: "Analakely", Status: models.StatusPending}
	hub.BroadcastNewAlert(alert)

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageNewAlert, msg.Type)
		require.NotNil(t, msg.Alert)
		assert.Equal(t, "a1", msg.Alert.ID)
		assert.Equal(t, "Analakely", msg.Alert.Location)
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub := NewWSHub(WSHubOptions{})
	srv := newHubServer(t, hub)

	a := dialHub(t, srv, "u1")
	dialHub(t, srv, "u2")
	waitForOnline(t, hub, 2)

	require.NoError(t, a.Close())
	waitForOnline(t, hub, 1)

	delivered, err := hub.Broadcast(WSMessage{Type: MessageNewAlert})
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
}

func TestHubSkipsSlowClient(t *testing.T) {
	hub := NewWSHub(WSHubOptions{SendBuffer: 1})

	// no write pump drains this client, so its queue fills after one message
	slow := &WSClient{userID: "slow", send: make(chan []byte, 1)}
	hub.clients[slow] = struct{}{}

	delivered, err := hub.Broadcast(WSMessage{Type: MessageNewAlert})
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	delivered, err = hub.Broadcast(WSMessage{Type: MessageNewAlert})
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Len(t, slow.send, 1)

	var msg WSMessage
	require.NoError(t, json.Unmarshal(<-slow.send, &msg))
	assert.Equal(t, MessageNewAlert, msg.Type)
}

func TestHubSendToAndClose(t *testing.T) {
	hub := NewWSHub(WSHubOptions{})
	srv := newHubServer(t, hub)

	conn := dialHub(t, srv, "u1")
	waitForOnline(t, hub, 1)

	var client *WSClient
	hub.mu.RLock()
	for c := range hub.clients {
		client = c
	}
	hub.mu.RUnlock()
	require.NotNil(t, client)
	assert.Equal(t, "u1", client.UserID())

	require.NoError(t, hub.SendTo(client, WSMessage{Type: MessageWelcome, Online: 1}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageWelcome, msg.Type)
	assert.Equal(t, 1, msg.Online)

	hub.Close()
	assert.Zero(t, hub.Online())
	assert.Error(t, hub.SendTo(client, WSMessage{Type: MessageWelcome}))

	// the pump sent a close frame before shutting the socket
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	_, err = hub.Register(nil, "late")
	assert.Error(t, err)
}
