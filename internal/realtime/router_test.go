package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomRouterJoinAndMembers(t *testing.T) {
	rt := NewRoomRouter(nil)
	a := newTestClient("alice", "Alice", "")
	b := newTestClient("bob", "Bob", "")

	rt.Join(a, "room-1")
	rt.Join(b, "room-1")

	assert.ElementsMatch(t, []*Client{a, b}, rt.Members("room-1"))
	assert.True(t, rt.Contains("room-1", a))
	assert.Equal(t, "room-1", a.Room())
}

func TestRoomRouterRejoinMovesRooms(t *testing.T) {
	rt := NewRoomRouter(nil)
	c := newTestClient("alice", "Alice", "")

	rt.Join(c, "room-1")
	rt.Join(c, "room-2")

	// membership and the client's own room field move together
	assert.False(t, rt.Contains("room-1", c))
	assert.True(t, rt.Contains("room-2", c))
	assert.Equal(t, "room-2", c.Room())
	assert.Empty(t, rt.Members("room-1"))
}

func TestRoomRouterJoinSameRoomIsNoop(t *testing.T) {
	rt := NewRoomRouter(nil)
	c := newTestClient("alice", "Alice", "")

	rt.Join(c, "room-1")
	rt.Join(c, "room-1")

	assert.Len(t, rt.Members("room-1"), 1)
	assert.Equal(t, "room-1", c.Room())
}

func TestRoomRouterLeaveIsIdempotent(t *testing.T) {
	rt := NewRoomRouter(nil)
	c := newTestClient("alice", "Alice", "")

	rt.Join(c, "room-1")
	rt.Leave(c)
	rt.Leave(c)

	assert.Empty(t, rt.Members("room-1"))
	assert.Equal(t, "", c.Room())
}

func TestRoomRouterBroadcast(t *testing.T) {
	rt := NewRoomRouter(nil)
	a := newTestClient("alice", "Alice", "")
	b := newTestClient("bob", "Bob", "")
	other := newTestClient("carol", "Carol", "")

	rt.Join(a, "room-1")
	rt.Join(b, "room-1")
	rt.Join(other, "room-2")

	payload := []byte(`{"type":"new-message","content":"hi"}`)
	rt.Broadcast("room-1", payload, nil)

	assert.Equal(t, payload, <-a.send)
	assert.Equal(t, payload, <-b.send)
	noEvent(t, other, 50*time.Millisecond)
}

func TestRoomRouterBroadcastExcludesSender(t *testing.T) {
	rt := NewRoomRouter(nil)
	a := newTestClient("alice", "Alice", "")
	b := newTestClient("bob", "Bob", "")

	rt.Join(a, "room-1")
	rt.Join(b, "room-1")

	payload := []byte(`{"type":"new-message"}`)
	rt.Broadcast("room-1", payload, a)

	assert.Equal(t, payload, <-b.send)
	noEvent(t, a, 50*time.Millisecond)
}

func TestRoomRouterBroadcastReportsWriteFailures(t *testing.T) {
	var failed []*Client
	rt := NewRoomRouter(func(c *Client) {
		failed = append(failed, c)
	})

	healthy := newTestClient("alice", "Alice", "")
	dead := newTestClient("bob", "Bob", "")
	dead.close()

	rt.Join(healthy, "room-1")
	rt.Join(dead, "room-1")

	rt.Broadcast("room-1", []byte(`{"type":"new-message"}`), nil)

	require.Len(t, failed, 1)
	assert.Same(t, dead, failed[0])
	assert.NotEmpty(t, <-healthy.send)
}
