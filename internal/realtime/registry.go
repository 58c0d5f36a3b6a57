package realtime

import "sync"

// Registry maps user IDs to their single live connection. Absence is a
// normal outcome ("user offline"), never an error.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]*Client),
	}
}

// Register inserts or replaces the mapping for userID and returns the
// superseded connection, if any. The caller decides what to do with it;
// the hub closes it so a user never has two live sockets.
func (r *Registry) Register(userID string, c *Client) (replaced *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.users[userID]
	r.users[userID] = c
	if prev == c {
		return nil
	}
	return prev
}

// Lookup returns the live connection for userID.
func (r *Registry) Lookup(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.users[userID]
	return c, ok
}

// Remove drops the mapping for userID, but only if it still points at c.
// Idempotent, and safe against a superseding connection registered between
// the caller's lookup and this call.
func (r *Registry) Remove(userID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.users[userID]; ok && current == c {
		delete(r.users, userID)
	}
}

// OnlineUsers returns the IDs of every registered user.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
