package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordclash/backend/pkg/realtime"
)

func recv(t *testing.T, c Client) realtime.ServerEvent {
	t.Helper()
	select {
	case raw := <-c:
		var ev realtime.ServerEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	default:
		t.Fatal("expected an event")
		return realtime.ServerEvent{}
	}
}

func TestBroadcastReachesOnlySubscribers(t *testing.T) {
	h := NewHub()
	a := make(Client, 4)
	b := make(Client, 4)

	h.Subscribe("chat:room1", a)
	h.Subscribe("chat:room2", b)

	h.Broadcast("chat:room1", realtime.NewChatError("room1", "not_member"))

	ev := recv(t, a)
	assert.Equal(t, realtime.EventChatError, ev.Type)
	assert.Equal(t, "not_member", ev.Error)
	assert.Empty(t, b)
}

func TestUnsubscribeKeepsClientOpen(t *testing.T) {
	h := NewHub()
	c := make(Client, 4)

	h.Subscribe("chat:room1", c)
	h.Subscribe("chat:room2", c)
	h.Unsubscribe("chat:room1", c)

	h.Broadcast("chat:room1", realtime.NewChatTyping("room1", 1, true))
	assert.Empty(t, c)

	h.Broadcast("chat:room2", realtime.NewChatTyping("room2", 1, true))
	ev := recv(t, c)
	assert.Equal(t, realtime.EventChatTyping, ev.Type)
}

func TestDropClosesAndRemovesEverywhere(t *testing.T) {
	h := NewHub()
	c := make(Client, 4)

	h.Subscribe("chat:room1", c)
	h.Subscribe("match:abc", c)
	h.Drop(c)

	assert.Equal(t, 0, h.Count("chat:room1"))
	assert.Equal(t, 0, h.Count("match:abc"))

	_, open := <-c
	assert.False(t, open)
}

func TestSlowClientDoesNotBlockBroadcast(t *testing.T) {
	h := NewHub()
	full := make(Client) // zero capacity, nobody reading
	ok := make(Client, 4)

	h.Subscribe("chat:room1", full)
	h.Subscribe("chat:room1", ok)

	h.Broadcast("chat:room1", realtime.NewChatTyping("room1", 2, true))

	ev := recv(t, ok)
	assert.Equal(t, realtime.EventChatTyping, ev.Type)
}
