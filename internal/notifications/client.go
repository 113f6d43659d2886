package notifications

import (
	"sync"
	"time"

	"sociable/internal/middleware"
	"sociable/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Inbound frames are only pongs and the close handshake.
	maxMessageSize = 512

	sendBuffer = 64
)

// Client is one websocket connection subscribed to a user's notifications.
type Client struct {
	hub    *Hub
	Conn   *websocket.Conn // nil when only the hub is under test
	UserID uint

	// Send carries outbound frames; it is closed exactly once by close.
	Send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
	}
}

// close ends the Send stream; WritePump then writes the close frame.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// TrySend queues message without blocking. It reports false when the
// message was dropped because the buffer is full or the client is closed.
func (c *Client) TrySend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		observability.WebSocketDrops.WithLabelValues("closed").Inc()
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		observability.WebSocketDrops.WithLabelValues("full").Inc()
		middleware.Logger.Warn("websocket buffer full, dropped message", "user_id", c.UserID)
		return false
	}
}

// ReadPump blocks until the peer disconnects, keeping the read deadline
// fresh on every pong. It unregisters the client on exit.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed", "user_id", c.UserID, "error", err)
			}
			return
		}
	}
}

// WritePump is the only writer on the connection. It forwards queued
// notifications and pings the peer every pingPeriod.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	write := func(kind int, payload []byte) bool {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.Conn.WriteMessage(kind, payload) == nil
	}

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if !write(websocket.TextMessage, message) {
				return
			}
		case <-ticker.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}
