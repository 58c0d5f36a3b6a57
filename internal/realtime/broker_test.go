package realtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockIssuer struct {
	mu       sync.Mutex
	calls    []string
	failWith error
}

func (m *mockIssuer) IssueToken(ctx context.Context, meetingID string) (*VideoToken, error) {
	m.mu.Lock()
	m.calls = append(m.calls, meetingID)
	m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return &VideoToken{Token: "token-" + meetingID, ExpiresAt: time.Now().Add(2 * time.Hour)}, nil
}

func (m *mockIssuer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func TestInviteToOfflineReceiverMintsNoToken(t *testing.T) {
	reg := NewRegistry()
	issuer := &mockIssuer{}
	broker := NewVideoInviteBroker(reg, issuer)

	sender := newTestClient("alice", "Alice", "room-1")
	broker.RequestInvite(context.Background(), sender, "bob", "room-1")

	got := nextEvent(t, sender)
	assert.Equal(t, EventVideoInviteFailed, got.Type)
	assert.Equal(t, "bob", got.ReceiverID)
	assert.Equal(t, "receiver offline", got.Reason)
	assert.Empty(t, got.MeetingID, "no meeting exists for a failed invite")
	assert.Zero(t, issuer.callCount(), "offline receiver must not cost a token mint")
}

func TestInviteToUnresponsiveReceiverMintsNoToken(t *testing.T) {
	reg := NewRegistry()
	issuer := &mockIssuer{}
	broker := NewVideoInviteBroker(reg, issuer)

	receiver := newTestClient("bob", "Bob", "room-1")
	receiver.setAlive(false) // registered but heartbeat-suspect
	reg.Register("bob", receiver)

	sender := newTestClient("alice", "Alice", "room-1")
	broker.RequestInvite(context.Background(), sender, "bob", "room-1")

	got := nextEvent(t, sender)
	assert.Equal(t, EventVideoInviteFailed, got.Type)
	assert.Zero(t, issuer.callCount())
	noEvent(t, receiver, 50*time.Millisecond)
}

func TestInviteDeliveredToOnlineReceiver(t *testing.T) {
	reg := NewRegistry()
	issuer := &mockIssuer{}
	broker := NewVideoInviteBroker(reg, issuer)

	receiver := newTestClient("bob", "Bob", "room-1")
	reg.Register("bob", receiver)
	sender := newTestClient("alice", "Alice", "room-1")

	broker.RequestInvite(context.Background(), sender, "bob", "room-1")

	invite := nextEvent(t, receiver)
	assert.Equal(t, EventVideoInvite, invite.Type)
	assert.Equal(t, "room-1", invite.RoomID)
	assert.Equal(t, "alice", invite.SenderID)
	assert.Equal(t, "Alice", invite.SenderName)
	assert.True(t, strings.HasPrefix(invite.MeetingID, "room-1-"))
	assert.Equal(t, "token-"+invite.MeetingID, invite.AccessToken)

	ack := nextEvent(t, sender)
	assert.Equal(t, EventVideoInviteSent, ack.Type)
	assert.Equal(t, "bob", ack.ReceiverID)
	assert.Empty(t, ack.AccessToken, "the sender ack carries no credential")

	assert.Equal(t, 1, issuer.callCount())
}

func TestInviteMeetingIDsAreSingleUse(t *testing.T) {
	reg := NewRegistry()
	issuer := &mockIssuer{}
	broker := NewVideoInviteBroker(reg, issuer)

	receiver := newTestClient("bob", "Bob", "room-1")
	reg.Register("bob", receiver)
	sender := newTestClient("alice", "Alice", "room-1")

	broker.RequestInvite(context.Background(), sender, "bob", "room-1")
	broker.RequestInvite(context.Background(), sender, "bob", "room-1")

	first := nextEvent(t, receiver)
	second := nextEvent(t, receiver)
	require.NotEmpty(t, first.MeetingID)
	assert.NotEqual(t, first.MeetingID, second.MeetingID, "a retried invite gets a fresh meeting")
}

func TestInviteIssuerFailureReportedToSender(t *testing.T) {
	reg := NewRegistry()
	issuer := &mockIssuer{failWith: errors.New("provider 503")}
	broker := NewVideoInviteBroker(reg, issuer)

	receiver := newTestClient("bob", "Bob", "room-1")
	reg.Register("bob", receiver)
	sender := newTestClient("alice", "Alice", "room-1")

	broker.RequestInvite(context.Background(), sender, "bob", "room-1")

	got := nextEvent(t, sender)
	assert.Equal(t, EventVideoInviteFailed, got.Type)
	assert.Equal(t, "video provider unavailable", got.Reason)
	noEvent(t, receiver, 50*time.Millisecond)
}

func TestInviteDeliveryFailureTreatedAsOffline(t *testing.T) {
	reg := NewRegistry()
	issuer := &mockIssuer{}
	broker := NewVideoInviteBroker(reg, issuer)

	// receiver drops between the liveness check and delivery
	receiver := newTestClient("bob", "Bob", "room-1")
	reg.Register("bob", receiver)
	receiver.close()

	sender := newTestClient("alice", "Alice", "room-1")
	broker.RequestInvite(context.Background(), sender, "bob", "room-1")

	got := nextEvent(t, sender)
	assert.Equal(t, EventVideoInviteFailed, got.Type)
	assert.Equal(t, "receiver offline", got.Reason)
}
