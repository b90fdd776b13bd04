// Package stream pushes live journal events to websocket clients.
//
// Each client subscribes to one user. Publish never blocks the caller: when
// the hub queue is full the message is dropped, and a client whose send
// buffer is full is disconnected.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/jengzang/travel-journal-go/internal/logging"
	"github.com/jengzang/travel-journal-go/internal/metrics"
)

// Message types sent by the hub itself. Journal events use the service kinds.
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Message is the websocket frame payload
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

type envelope struct {
	userID string
	msg    Message
}

// Hub fans messages out to the clients of a user
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[*Client]bool
	broadcast chan envelope
	now       func() time.Time
}

// NewHub creates a hub with a queue of queueSize pending messages
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Hub{
		clients:   make(map[string]map[*Client]bool),
		broadcast: make(chan envelope, queueSize),
		now:       time.Now,
	}
}

// Publish queues a message for every client of userID
func (h *Hub) Publish(userID, kind string, data interface{}) {
	env := envelope{
		userID: userID,
		msg:    Message{Type: kind, Data: data, Timestamp: h.now().UnixMilli()},
	}
	select {
	case h.broadcast <- env:
	default:
		logging.Warn().Str("user", userID).Str("type", kind).Msg("stream queue full, dropping message")
	}
}

// Register adds a client
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]bool)
		h.clients[c.userID] = set
	}
	set[c] = true
	total := h.countLocked()
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Str("user", c.userID).Int("total_clients", total).Msg("websocket client connected")
}

// Unregister removes a client and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	total := h.countLocked()
	h.mu.Unlock()

	if removed {
		metrics.WSConnections.Set(float64(total))
		logging.Info().Str("user", c.userID).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// ClientCount returns the clients of userID, or of all users when userID is empty
func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if userID == "" {
		return h.countLocked()
	}
	return len(h.clients[userID])
}

// Serve delivers queued messages until ctx is done, then disconnects every client
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			logging.Info().Str("reason", ctx.Err().Error()).Msg("stream hub stopped")
			return ctx.Err()
		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) String() string {
	return "stream-hub"
}

func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[env.userID] {
		select {
		case c.send <- env.msg:
			metrics.WSMessagesSent.WithLabelValues(env.msg.Type).Inc()
		default:
			// Slow client
			h.removeLocked(c)
			logging.Warn().Str("user", env.userID).Uint64("client", c.id).Msg("websocket client too slow, disconnecting")
		}
	}
	metrics.WSConnections.Set(float64(h.countLocked()))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for c := range set {
			h.removeLocked(c)
		}
	}
	metrics.WSConnections.Set(0)
}

func (h *Hub) removeLocked(c *Client) bool {
	set, ok := h.clients[c.userID]
	if !ok || !set[c] {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	return true
}

func (h *Hub) countLocked() int {
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}
