package realtime

import (
	"log/slog"
	"sync"
)

// RoomRouter tracks which connections are bound to which room and fans
// broadcasts out to the members. The room index and each client's own room
// field are mutated under one lock so they can never disagree.
type RoomRouter struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool

	// called off-lock when a write to a member fails; the hub unregisters
	// the connection, the caller of Broadcast never sees an error
	onWriteError func(*Client)
}

func NewRoomRouter(onWriteError func(*Client)) *RoomRouter {
	if onWriteError == nil {
		onWriteError = func(*Client) {}
	}
	return &RoomRouter{
		rooms:        make(map[string]map[*Client]bool),
		onWriteError: onWriteError,
	}
}

// Join binds c to roomID. A connection is in at most one room: a re-join
// with a different room evicts it from the prior room's membership and
// places it in the new one atomically.
func (rt *RoomRouter) Join(c *Client, roomID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	prev := c.Room()
	if prev == roomID {
		return
	}
	rt.removeLocked(c, prev)

	if rt.rooms[roomID] == nil {
		rt.rooms[roomID] = make(map[*Client]bool)
	}
	rt.rooms[roomID][c] = true
	c.setRoom(roomID)
}

// Leave removes c from its current room, if any. Idempotent.
func (rt *RoomRouter) Leave(c *Client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.removeLocked(c, c.Room())
	c.setRoom("")
}

func (rt *RoomRouter) removeLocked(c *Client, roomID string) {
	if roomID == "" {
		return
	}
	if members, ok := rt.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(rt.rooms, roomID)
		}
	}
}

// Members returns the connections currently bound to roomID.
func (rt *RoomRouter) Members(roomID string) []*Client {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	members, ok := rt.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]*Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// Contains reports whether c is bound to roomID.
func (rt *RoomRouter) Contains(roomID string, c *Client) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	members, ok := rt.rooms[roomID]
	return ok && members[c]
}

// Broadcast delivers payload to every connection bound to roomID, except
// exclude if non-nil. A failed enqueue is treated as connection loss and
// reported through onWriteError, not surfaced to the caller.
func (rt *RoomRouter) Broadcast(roomID string, payload []byte, exclude *Client) {
	var failed []*Client

	rt.mu.RLock()
	for c := range rt.rooms[roomID] {
		if c == exclude {
			continue
		}
		if err := c.SendRaw(payload); err != nil {
			failed = append(failed, c)
		}
	}
	rt.mu.RUnlock()

	for _, c := range failed {
		slog.Debug("Broadcast write failed, evicting member", "roomID", roomID, "clientID", c.ID())
		rt.onWriteError(c)
	}
}
