package notifications

import (
	"context"
	"errors"
	"sync"

	"shiplog/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser = 8
	maxTotalConns   = 10000
)

var (
	ErrHubClosed       = errors.New("feed hub is shut down")
	ErrUserConnLimit   = errors.New("user connection limit reached")
	ErrServerConnLimit = errors.New("server connection limit reached")
)

// FeedHub tracks live-feed sockets per user and broadcasts created posts to all of them.
type FeedHub struct {
	mu     sync.RWMutex
	conns  map[string]map[*Client]struct{}
	total  int
	closed bool
}

func NewFeedHub() *FeedHub {
	return &FeedHub{conns: make(map[string]map[*Client]struct{})}
}

func (h *FeedHub) Name() string { return "feed hub" }

// Register adds a socket for userID.
func (h *FeedHub) Register(userID string, conn Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.closed:
		return nil, ErrHubClosed
	case h.total >= maxTotalConns:
		return nil, ErrServerConnLimit
	case len(h.conns[userID]) >= maxConnsPerUser:
		return nil, ErrUserConnLimit
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	c := newClient(h, conn, userID)
	m[c] = struct{}{}
	h.total++
	observability.FeedConnections.Inc()
	return c, nil
}

// UnregisterClient removes c and stops its writer. Repeated calls are no-ops.
func (h *FeedHub) UnregisterClient(c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	h.mu.Unlock()
	if removed {
		c.close()
	}
}

func (h *FeedHub) removeLocked(c *Client) bool {
	m, ok := h.conns[c.UserID]
	if !ok {
		return false
	}
	if _, exists := m[c]; !exists {
		return false
	}
	delete(m, c)
	if len(m) == 0 {
		delete(h.conns, c.UserID)
	}
	h.total--
	observability.FeedConnections.Dec()
	return true
}

// Broadcast queues payload on every socket.
func (h *FeedHub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(payload)
		}
	}
}

// DisconnectUser closes every socket belonging to userID, e.g. after sign-out.
func (h *FeedHub) DisconnectUser(userID string) int {
	h.mu.Lock()
	var victims []*Client
	for c := range h.conns[userID] {
		if h.removeLocked(c) {
			victims = append(victims, c)
		}
	}
	h.mu.Unlock()

	for _, c := range victims {
		c.close()
	}
	return len(victims)
}

// ConnectionCount is the number of registered sockets.
func (h *FeedHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// StartWiring forwards every Redis feed message to the connected sockets.
func (h *FeedHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartFeedSubscriber(ctx, func(payload string) {
		h.Broadcast([]byte(payload))
	})
}

// Shutdown closes every socket with a going-away frame and refuses new ones.
func (h *FeedHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	h.closed = true
	var all []*Client
	for _, clients := range h.conns {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.conns = make(map[string]map[*Client]struct{})
	observability.FeedConnections.Sub(float64(h.total))
	h.total = 0
	h.mu.Unlock()

	for _, c := range all {
		c.closeWith(websocket.CloseGoingAway, "Server shutting down")
	}
	return nil
}
