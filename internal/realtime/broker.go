package realtime

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

const issueTimeout = 10 * time.Second

// VideoToken is a signed, time-boxed credential for joining one meeting.
type VideoToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer mints meeting credentials against the external video provider.
// It is only ever called after the receiver's liveness is confirmed.
type TokenIssuer interface {
	IssueToken(ctx context.Context, meetingID string) (*VideoToken, error)
}

// VideoInviteBroker mediates video-session setup between two specific users.
// It keeps no state across invites: each request either resolves to a
// delivered invite or to a failure reported to the sender.
type VideoInviteBroker struct {
	registry *Registry
	issuer   TokenIssuer
}

func NewVideoInviteBroker(registry *Registry, issuer TokenIssuer) *VideoInviteBroker {
	return &VideoInviteBroker{
		registry: registry,
		issuer:   issuer,
	}
}

// newMeetingID derives a meeting identifier unique per invite. Meeting IDs
// are single-use: a retried invite always gets a fresh one, so a stale
// session can never be rejoined by accident.
func newMeetingID(roomID string) string {
	var suffix [4]byte
	rand.Read(suffix[:])
	return fmt.Sprintf("%s-%d-%s", roomID, time.Now().UnixNano(), hex.EncodeToString(suffix[:]))
}

// RequestInvite runs the invite handshake for sender -> receiver:
// liveness check, token mint, targeted delivery, sender acknowledgement.
// An offline receiver costs nothing on the token-issuing call.
func (b *VideoInviteBroker) RequestInvite(ctx context.Context, sender *Client, receiverID, roomID string) {
	senderID := sender.UserID()
	senderName := sender.UserName()

	receiver, ok := b.registry.Lookup(receiverID)
	if !ok || !receiver.Alive() {
		slog.Info("Video invite to offline receiver", "senderID", senderID, "receiverID", receiverID)
		sender.Send(NewVideoInviteFailedEvent(roomID, receiverID, "receiver offline"))
		return
	}

	meetingID := newMeetingID(roomID)

	issueCtx, cancel := context.WithTimeout(ctx, issueTimeout)
	token, err := b.issuer.IssueToken(issueCtx, meetingID)
	cancel()
	if err != nil {
		slog.Error("Video token issuance failed", "meetingID", meetingID, "error", err)
		sender.Send(NewVideoInviteFailedEvent(roomID, receiverID, "video provider unavailable"))
		return
	}

	// The receiver may have dropped between the liveness check and now.
	// Re-validate and treat a failed send exactly like offline.
	receiver, ok = b.registry.Lookup(receiverID)
	if !ok {
		sender.Send(NewVideoInviteFailedEvent(roomID, receiverID, "receiver offline"))
		return
	}
	invite := NewVideoInviteEvent(roomID, senderID, senderName, meetingID, token.Token)
	if err := receiver.Send(invite); err != nil {
		slog.Info("Video invite delivery failed", "receiverID", receiverID, "meetingID", meetingID)
		sender.Send(NewVideoInviteFailedEvent(roomID, receiverID, "receiver offline"))
		return
	}

	slog.Info("Video invite delivered", "senderID", senderID, "receiverID", receiverID, "meetingID", meetingID)
	sender.Send(NewVideoInviteSentEvent(roomID, receiverID))
}
