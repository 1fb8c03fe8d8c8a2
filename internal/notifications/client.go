package notifications

import (
	"sync"
	"time"

	"shiplog/internal/middleware"
	"shiplog/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var dropNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)

// Conn is the part of a websocket connection the hub drives.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one live-feed socket.
type Client struct {
	hub    *FeedHub
	conn   Conn
	UserID string

	send chan []byte

	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string
}

func newClient(hub *FeedHub, conn Conn, userID string) *Client {
	return &Client{hub: hub, conn: conn, UserID: userID, send: make(chan []byte, sendBuffer)}
}

// ReadPump drains the socket so pongs and close frames are processed. The
// feed is one-way; inbound messages are discarded.
func (c *Client) ReadPump() {
	defer c.hub.UnregisterClient(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				middleware.Logger.Debug("feed socket closed", "user_id", c.UserID, "error", err)
			}
			return
		}
	}
}

// WritePump writes queued messages and keepalive pings until the client is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				code, reason := c.closeFrame()
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// TrySend queues msg without blocking. A full buffer drops msg and tries to
// tell the client so it can refetch.
func (c *Client) TrySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
	}

	observability.FeedBroadcastDrops.Inc()
	select {
	case c.send <- dropNotice:
	default:
	}
	return false
}

func (c *Client) close() {
	c.closeWith(websocket.CloseNormalClosure, "")
}

// closeWith stops the writer, which then sends a close frame with code and reason.
func (c *Client) closeWith(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode, c.closeReason = code, reason
	close(c.send)
}

func (c *Client) closeFrame() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeReason
}
