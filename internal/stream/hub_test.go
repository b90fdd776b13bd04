package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(h *Hub, userID string, buffer int) *Client {
	return &Client{
		id:     clientIDCounter.Add(1),
		userID: userID,
		hub:    h,
		send:   make(chan Message, buffer),
	}
}

func runHub(t *testing.T, h *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHubDeliversOnlyToUser(t *testing.T) {
	h := NewHub(16)
	runHub(t, h)

	alice := testClient(h, "alice", 4)
	bob := testClient(h, "bob", 4)
	h.Register(alice)
	h.Register(bob)
	assert.Equal(t, 2, h.ClientCount(""))
	assert.Equal(t, 1, h.ClientCount("alice"))

	h.Publish("alice", "stats", map[string]int{"steps": 3})

	msg := receive(t, alice)
	assert.Equal(t, "stats", msg.Type)
	assert.NotZero(t, msg.Timestamp)

	select {
	case <-bob.send:
		t.Fatal("bob received alice's message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDisconnectsSlowClient(t *testing.T) {
	h := NewHub(16)
	slow := testClient(h, "alice", 1)
	h.Register(slow)

	h.deliver(envelope{userID: "alice", msg: Message{Type: "movement"}})
	h.deliver(envelope{userID: "alice", msg: Message{Type: "movement"}})

	assert.Equal(t, 0, h.ClientCount("alice"))
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestHubUnregisterTwice(t *testing.T) {
	h := NewHub(4)
	c := testClient(h, "alice", 1)
	h.Register(c)

	h.Unregister(c)
	assert.NotPanics(t, func() { h.Unregister(c) })
	assert.Equal(t, 0, h.ClientCount(""))
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	h := NewHub(1)
	h.Publish("alice", "stats", nil)
	assert.NotPanics(t, func() { h.Publish("alice", "stats", nil) })
	assert.Len(t, h.broadcast, 1)
}

func TestServeClosesClientsOnShutdown(t *testing.T) {
	h := NewHub(4)
	c := testClient(h, "alice", 1)
	h.Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.Serve(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.ClientCount(""))
}

func TestWebsocketRoundTrip(t *testing.T) {
	h := NewHub(16)
	runHub(t, h)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(h, conn, "alice").Start()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.ClientCount("alice") == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Publish("alice", "level_up", map[string]int{"level": 2})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "level_up", msg.Type)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypePing}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypePong, msg.Type)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount("alice") == 0 }, 2*time.Second, 10*time.Millisecond)
}
