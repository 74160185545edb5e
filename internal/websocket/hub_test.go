package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.Send:
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Event{}
	}
}

func TestHub_SendNotificationToUser(t *testing.T) {
	hub := startHub(t)

	phone := NewClient(hub, nil, 1, 10)
	laptop := NewClient(hub, nil, 1, 10)
	other := NewClient(hub, nil, 2, 10)
	hub.Register(phone)
	hub.Register(laptop)
	hub.Register(other)

	require.Eventually(t, func() bool { return hub.IsUserOnline(1) && hub.IsUserOnline(2) }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.SendNotificationToUser(1, Event{Type: "notification", Data: map[string]interface{}{"id": 7}}))

	assert.Equal(t, "notification", receive(t, phone).Type)
	assert.Equal(t, "notification", receive(t, laptop).Type)
	assert.Len(t, other.Send, 0)
}

func TestHub_BroadcastToCompany(t *testing.T) {
	hub := startHub(t)

	a := NewClient(hub, nil, 1, 10)
	b := NewClient(hub, nil, 2, 10)
	outsider := NewClient(hub, nil, 3, 20)
	hub.Register(a)
	hub.Register(b)
	hub.Register(outsider)

	require.Eventually(t, func() bool { return len(hub.OnlineUsers(10)) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.BroadcastToCompany(10, Event{Type: "scan_completed"}))

	assert.Equal(t, "scan_completed", receive(t, a).Type)
	assert.Equal(t, "scan_completed", receive(t, b).Type)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, outsider.Send, 0)
}

func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)

	c := NewClient(hub, nil, 1, 10)
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.IsUserOnline(1) }, time.Second, 5*time.Millisecond)

	hub.Unregister(c)
	require.Eventually(t, func() bool { return !hub.IsUserOnline(1) }, time.Second, 5*time.Millisecond)
	assert.Empty(t, hub.OnlineUsers(10))

	_, open := <-c.Send
	assert.False(t, open)
}

func TestHub_HandleClientMessagePing(t *testing.T) {
	hub := NewHub()
	c := NewClient(hub, nil, 1, 10)

	hub.HandleClientMessage(c, []byte(`{"type":"ping"}`))
	assert.Equal(t, "pong", receive(t, c).Type)

	hub.HandleClientMessage(c, []byte(`not json`))
	assert.Len(t, c.Send, 0)
}
