package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRouter creates a test Gin router with the WebSocket handler
// behind a middleware that injects a fixed user id.
func setupTestRouter(userID uuid.UUID) (*gin.Engine, *Manager) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	manager := NewManager()
	go manager.Run()

	router.GET("/ws", func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}, manager.HandleWebSocket)

	return router, manager
}

func dialTestServer(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return ws
}

func TestNewManager(t *testing.T) {
	manager := NewManager()

	assert.NotNil(t, manager)
	assert.NotNil(t, manager.clients)
	assert.NotNil(t, manager.register)
	assert.NotNil(t, manager.unregister)
}

func TestManagerRegisterUnregister(t *testing.T) {
	manager := NewManager()
	go manager.Run()

	userID := uuid.New()
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, 256),
	}

	manager.register <- client
	require.Eventually(t, func() bool {
		manager.mutex.Lock()
		defer manager.mutex.Unlock()
		return len(manager.clients[userID]) == 1
	}, time.Second, 10*time.Millisecond)

	manager.unregister <- client
	require.Eventually(t, func() bool {
		manager.mutex.Lock()
		defer manager.mutex.Unlock()
		_, ok := manager.clients[userID]
		return !ok
	}, time.Second, 10*time.Millisecond)

	_, open := <-client.Send
	assert.False(t, open, "send channel should be closed on unregister")
}

func TestSendToUserMultipleConnections(t *testing.T) {
	manager := NewManager()
	go manager.Run()

	userID := uuid.New()
	first := &Client{UserID: userID, Send: make(chan []byte, 8)}
	second := &Client{UserID: userID, Send: make(chan []byte, 8)}

	manager.register <- first
	manager.register <- second
	require.Eventually(t, func() bool {
		manager.mutex.Lock()
		defer manager.mutex.Unlock()
		return len(manager.clients[userID]) == 2
	}, time.Second, 10*time.Millisecond)

	payload := []byte(`{"type":"notification"}`)
	manager.SendToUser(userID, payload)

	assert.Equal(t, payload, <-first.Send)
	assert.Equal(t, payload, <-second.Send)
}

func TestSendToUserUnknownUser(t *testing.T) {
	manager := NewManager()
	go manager.Run()

	// Must not panic or block.
	manager.SendToUser(uuid.New(), []byte("nobody home"))
}

func TestSendToUserDropsSlowClient(t *testing.T) {
	manager := NewManager()
	go manager.Run()

	userID := uuid.New()
	slow := &Client{UserID: userID, Send: make(chan []byte, 1)}

	manager.register <- slow
	require.Eventually(t, func() bool {
		manager.mutex.Lock()
		defer manager.mutex.Unlock()
		return len(manager.clients[userID]) == 1
	}, time.Second, 10*time.Millisecond)

	// Fill the buffer, then push once more; the second push evicts the
	// client instead of blocking.
	manager.SendToUser(userID, []byte("one"))
	manager.SendToUser(userID, []byte("two"))

	manager.mutex.Lock()
	_, stillThere := manager.clients[userID]
	manager.mutex.Unlock()
	assert.False(t, stillThere, "slow client should have been evicted")
}

func TestHandleWebSocketDeliversPush(t *testing.T) {
	userID := uuid.New()
	router, manager := setupTestRouter(userID)
	server := httptest.NewServer(router)
	defer server.Close()

	ws := dialTestServer(t, server.URL)
	defer ws.Close()

	require.Eventually(t, func() bool {
		manager.mutex.Lock()
		defer manager.mutex.Unlock()
		return len(manager.clients[userID]) == 1
	}, time.Second, 10*time.Millisecond)

	sent := map[string]interface{}{"type": "chat_message", "payload": map[string]interface{}{"body": "hi"}}
	raw, err := json.Marshal(sent)
	require.NoError(t, err)
	manager.SendToUser(userID, raw)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err := ws.ReadMessage()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, "chat_message", decoded["type"])
}

func TestHandleWebSocketRequiresUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	manager := NewManager()
	go manager.Run()
	router.GET("/ws", manager.HandleWebSocket)

	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestClientDisconnectUnregisters(t *testing.T) {
	userID := uuid.New()
	router, manager := setupTestRouter(userID)
	server := httptest.NewServer(router)
	defer server.Close()

	ws := dialTestServer(t, server.URL)

	require.Eventually(t, func() bool {
		manager.mutex.Lock()
		defer manager.mutex.Unlock()
		return len(manager.clients[userID]) == 1
	}, time.Second, 10*time.Millisecond)

	ws.Close()

	require.Eventually(t, func() bool {
		manager.mutex.Lock()
		defer manager.mutex.Unlock()
		_, ok := manager.clients[userID]
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}
