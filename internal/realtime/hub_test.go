package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPresence struct {
	mu      sync.Mutex
	online  []string
	offline []string
}

func (m *mockPresence) SetUserOnline(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online = append(m.online, userID)
	return nil
}

func (m *mockPresence) SetUserOffline(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = append(m.offline, userID)
	return nil
}

func (m *mockPresence) wentOffline(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.offline {
		if id == userID {
			return true
		}
	}
	return false
}

func newRunningHub(t *testing.T, store MessageStore, issuer TokenIssuer, presence PresenceNotifier, interval time.Duration) *Hub {
	t.Helper()
	if store == nil {
		store = &recordingStore{}
	}
	if issuer == nil {
		issuer = &mockIssuer{}
	}
	hub := NewHub(store, issuer, presence, nil, Options{HeartbeatInterval: interval})
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

// outboundOfType scans everything written to the peer for one event type.
func outboundOfType(conn *mockConn, et EventType) (*Event, bool) {
	for _, data := range conn.writtenFrames() {
		var e Event
		if json.Unmarshal(data, &e) == nil && e.Type == et {
			return &e, true
		}
	}
	return nil, false
}

func joinRoom(t *testing.T, conn *mockConn, userID, userName, roomID string) {
	t.Helper()
	conn.queueFrame(t, &Event{Type: EventJoin, UserID: userID, SenderName: userName, RoomID: roomID})
}

func TestHubJoinRegistersAndRoutes(t *testing.T) {
	hub := newRunningHub(t, nil, nil, nil, time.Minute)

	conn := newMockConn()
	c := hub.Attach(conn, "alice")
	require.NotNil(t, c)

	joinRoom(t, conn, "alice", "Alice", "room-1")

	require.Eventually(t, func() bool {
		got, ok := hub.registry.Lookup("alice")
		return ok && got == c && hub.router.Contains("room-1", c)
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, hub.IsUserOnline("alice"))
	assert.Equal(t, "Alice", c.UserName())
}

func TestHubJoinIdentityMismatchIgnored(t *testing.T) {
	hub := newRunningHub(t, nil, nil, nil, time.Minute)

	conn := newMockConn()
	hub.Attach(conn, "alice")

	// socket authenticated as alice cannot join as bob
	joinRoom(t, conn, "bob", "Bob", "room-1")

	assert.Never(t, func() bool {
		_, ok := hub.registry.Lookup("bob")
		return ok
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestHubDuplicateConnectionSuperseded(t *testing.T) {
	presence := &mockPresence{}
	hub := newRunningHub(t, nil, nil, presence, time.Minute)

	oldConn := newMockConn()
	oldClient := hub.Attach(oldConn, "alice")
	joinRoom(t, oldConn, "alice", "Alice", "room-1")

	require.Eventually(t, func() bool {
		return hub.router.Contains("room-1", oldClient)
	}, 2*time.Second, 5*time.Millisecond)

	newConn := newMockConn()
	newClient := hub.Attach(newConn, "alice")
	joinRoom(t, newConn, "alice", "Alice", "room-1")

	require.Eventually(t, func() bool {
		got, ok := hub.registry.Lookup("alice")
		return ok && got == newClient
	}, 2*time.Second, 5*time.Millisecond)

	// the superseded socket is told why and closed, not left to time out
	require.Eventually(t, oldConn.isClosed, 2*time.Second, 5*time.Millisecond)
	assert.True(t, oldConn.sentCloseFrame())

	// its send channel closes too, so the write pump goroutine exits
	// instead of blocking on the channel forever
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&oldClient.sendClosed) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, hub.router.Contains("room-1", oldClient))
	assert.True(t, hub.router.Contains("room-1", newClient))

	// the user never went offline: the replacement took over the identity
	assert.False(t, presence.wentOffline("alice"))
}

func TestHubRejoinMovesRoom(t *testing.T) {
	hub := newRunningHub(t, nil, nil, nil, time.Minute)

	conn := newMockConn()
	c := hub.Attach(conn, "alice")

	joinRoom(t, conn, "alice", "Alice", "room-1")
	require.Eventually(t, func() bool {
		return hub.router.Contains("room-1", c)
	}, 2*time.Second, 5*time.Millisecond)

	joinRoom(t, conn, "alice", "Alice", "room-2")
	require.Eventually(t, func() bool {
		return hub.router.Contains("room-2", c)
	}, 2*time.Second, 5*time.Millisecond)

	assert.False(t, hub.router.Contains("room-1", c))
	got, ok := hub.registry.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestHubMessageReachesRoomMembers(t *testing.T) {
	store := &recordingStore{}
	hub := newRunningHub(t, store, nil, nil, time.Minute)

	aliceConn := newMockConn()
	hub.Attach(aliceConn, "alice")
	joinRoom(t, aliceConn, "alice", "Alice", "room-1")

	bobConn := newMockConn()
	bob := hub.Attach(bobConn, "bob")
	joinRoom(t, bobConn, "bob", "Bob", "room-1")

	require.Eventually(t, func() bool {
		return hub.router.Contains("room-1", bob)
	}, 2*time.Second, 5*time.Millisecond)

	aliceConn.queueFrame(t, &Event{Type: EventMessage, RoomID: "room-1", Content: "hello bob"})

	var got *Event
	require.Eventually(t, func() bool {
		var ok bool
		got, ok = outboundOfType(bobConn, EventNewMessage)
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "alice", got.SenderID)
	assert.Equal(t, "hello bob", got.Content)
	assert.NotEmpty(t, got.MessageID)
	assert.Equal(t, []string{"hello bob"}, store.savedContents())
}

func TestHubVideoInviteOverSocket(t *testing.T) {
	issuer := &mockIssuer{}
	hub := newRunningHub(t, nil, issuer, nil, time.Minute)

	aliceConn := newMockConn()
	hub.Attach(aliceConn, "alice")
	joinRoom(t, aliceConn, "alice", "Alice", "room-1")

	bobConn := newMockConn()
	bob := hub.Attach(bobConn, "bob")
	joinRoom(t, bobConn, "bob", "Bob", "room-1")

	require.Eventually(t, func() bool {
		return hub.router.Contains("room-1", bob)
	}, 2*time.Second, 5*time.Millisecond)

	aliceConn.queueFrame(t, &Event{Type: EventVideoInviteRequest, RoomID: "room-1", ReceiverID: "bob"})

	require.Eventually(t, func() bool {
		_, ok := outboundOfType(bobConn, EventVideoInvite)
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	invite, _ := outboundOfType(bobConn, EventVideoInvite)
	assert.NotEmpty(t, invite.AccessToken)

	require.Eventually(t, func() bool {
		_, ok := outboundOfType(aliceConn, EventVideoInviteSent)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHubEvictsSilentConnection(t *testing.T) {
	const interval = 25 * time.Millisecond
	presence := &mockPresence{}
	hub := newRunningHub(t, nil, nil, presence, interval)

	conn := newMockConn() // never pongs
	c := hub.Attach(conn, "alice")
	joinRoom(t, conn, "alice", "Alice", "room-1")

	require.Eventually(t, func() bool {
		return hub.router.Contains("room-1", c)
	}, 2*time.Second, 5*time.Millisecond)

	// gone within two heartbeat intervals of falling silent
	require.Eventually(t, func() bool {
		_, ok := hub.registry.Lookup("alice")
		return !ok && conn.isClosed()
	}, 10*interval, 5*time.Millisecond)

	assert.False(t, hub.router.Contains("room-1", c))
	assert.Greater(t, conn.pingCount(), 0)

	require.Eventually(t, func() bool {
		return presence.wentOffline("alice")
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHubPongKeepsConnectionAlive(t *testing.T) {
	const interval = 25 * time.Millisecond
	hub := newRunningHub(t, nil, nil, nil, interval)

	conn := newMockConn()
	conn.autoPong = true
	c := hub.Attach(conn, "alice")
	joinRoom(t, conn, "alice", "Alice", "room-1")

	require.Eventually(t, func() bool {
		return hub.router.Contains("room-1", c)
	}, 2*time.Second, 5*time.Millisecond)

	// survive well past the eviction horizon of a silent peer
	time.Sleep(6 * interval)

	_, ok := hub.registry.Lookup("alice")
	assert.True(t, ok)
	assert.False(t, conn.isClosed())
	assert.Greater(t, conn.pingCount(), 1)
}

func TestHubDropsClientWhenPeerCloses(t *testing.T) {
	presence := &mockPresence{}
	hub := newRunningHub(t, nil, nil, presence, time.Minute)

	conn := newMockConn()
	c := hub.Attach(conn, "alice")
	joinRoom(t, conn, "alice", "Alice", "room-1")

	require.Eventually(t, func() bool {
		return hub.router.Contains("room-1", c)
	}, 2*time.Second, 5*time.Millisecond)

	conn.Close() // read pump sees EOF

	require.Eventually(t, func() bool {
		_, ok := hub.registry.Lookup("alice")
		return !ok
	}, 2*time.Second, 5*time.Millisecond)

	assert.False(t, hub.router.Contains("room-1", c))
	require.Eventually(t, func() bool {
		return presence.wentOffline("alice")
	}, 2*time.Second, 5*time.Millisecond)
}
