package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/campusshare/server/internal/logger"
)

var log = logger.New("websocket")

// Client represents a connected websocket client.
type Client struct {
	UserID uuid.UUID
	Socket *websocket.Conn
	Send   chan []byte
}

// Manager maintains the set of active clients. The server pushes change
// events down to clients; clients only send pings back up, since all
// writes go through the HTTP API.
type Manager struct {
	clients    map[uuid.UUID][]*Client
	register   chan *Client
	unregister chan *Client
	mutex      sync.Mutex
}

// NewManager creates a new websocket manager.
func NewManager() *Manager {
	return &Manager{
		clients:    make(map[uuid.UUID][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the websocket manager. One user may hold several
// connections (multiple tabs); all of them receive pushes.
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.mutex.Lock()
			m.clients[client.UserID] = append(m.clients[client.UserID], client)
			log.Info("client connected: %s", client.UserID)
			m.mutex.Unlock()
		case client := <-m.unregister:
			m.mutex.Lock()
			m.removeLocked(client)
			m.mutex.Unlock()
		}
	}
}

func (m *Manager) removeLocked(client *Client) {
	conns := m.clients[client.UserID]
	for i, c := range conns {
		if c == client {
			m.clients[client.UserID] = append(conns[:i], conns[i+1:]...)
			close(client.Send)
			log.Info("client disconnected: %s", client.UserID)
			break
		}
	}
	if len(m.clients[client.UserID]) == 0 {
		delete(m.clients, client.UserID)
	}
}

// SendToUser pushes a payload to every connection the user holds.
func (m *Manager) SendToUser(userID uuid.UUID, message []byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, client := range m.clients[userID] {
		select {
		case client.Send <- message:
		default:
			// Slow consumer; drop the connection rather than block the
			// push path.
			m.removeLocked(client)
			log.Warn("dropped slow websocket client for user %s", userID)
		}
	}
}

// HandleWebSocket upgrades an authenticated request and registers the
// connection. The auth layer must have put the viewer's id in context.
func (m *Manager) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userUUID, ok := userID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user identification"})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Origin checking is handled by the CORS layer in front.
			return true
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		UserID: userUUID,
		Socket: conn,
		Send:   make(chan []byte, 256),
	}

	m.register <- client

	go client.readPump(m)
	go client.writePump()
}

// readPump drains the connection so pong frames are processed, and
// unregisters the client on close.
func (c *Client) readPump(m *Manager) {
	defer func() {
		m.unregister <- c
		c.Socket.Close()
	}()

	c.Socket.SetReadLimit(4 * 1024)
	c.Socket.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Socket.SetPongHandler(func(string) error {
		c.Socket.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Socket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error("error reading from client %s: %v", c.UserID, err)
			}
			break
		}
	}
}

// writePump pumps queued payloads to the connection and keeps it alive
// with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Socket.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Socket.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Socket.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
