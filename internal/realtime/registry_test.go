package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("alice", "Alice", "")

	replaced := reg.Register("alice", c)
	assert.Nil(t, replaced)

	got, ok := reg.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryLookupUnknownUser(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Lookup("nobody")
	assert.False(t, ok)
}

func TestRegistryRegisterReturnsSuperseded(t *testing.T) {
	reg := NewRegistry()
	first := newTestClient("alice", "Alice", "")
	second := newTestClient("alice", "Alice", "")

	require.Nil(t, reg.Register("alice", first))

	replaced := reg.Register("alice", second)
	require.Same(t, first, replaced)

	got, ok := reg.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryReRegisterSameConnection(t *testing.T) {
	reg := NewRegistry()
	c := newTestClient("alice", "Alice", "")

	reg.Register("alice", c)
	assert.Nil(t, reg.Register("alice", c))
}

func TestRegistryRemoveIgnoresStaleConnection(t *testing.T) {
	reg := NewRegistry()
	old := newTestClient("alice", "Alice", "")
	current := newTestClient("alice", "Alice", "")

	reg.Register("alice", old)
	reg.Register("alice", current)

	// The superseded connection's teardown must not unmap its replacement.
	reg.Remove("alice", old)

	got, ok := reg.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, current, got)

	reg.Remove("alice", current)
	_, ok = reg.Lookup("alice")
	assert.False(t, ok)
}

func TestRegistryOnlineUsers(t *testing.T) {
	reg := NewRegistry()
	reg.Register("alice", newTestClient("alice", "Alice", ""))
	reg.Register("bob", newTestClient("bob", "Bob", ""))

	users := reg.OnlineUsers()
	assert.ElementsMatch(t, []string{"alice", "bob"}, users)
}
