package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"skillswap-service/internal/models"
)

// EventType tags every frame on the wire. Dispatch is one handler per type,
// never nested conditionals on raw payload fields.
type EventType string

const (
	// client -> server
	EventJoin               EventType = "join"
	EventMessage            EventType = "message"
	EventFileUploaded       EventType = "file-uploaded"
	EventVideoInviteRequest EventType = "video-invite-request"

	// server -> client
	EventNewMessage        EventType = "new-message"
	EventNewFile           EventType = "new-file"
	EventVideoInvite       EventType = "video-invite"
	EventVideoInviteSent   EventType = "video-invite-sent"
	EventVideoInviteFailed EventType = "video-invite-failed"
	EventError             EventType = "error"
)

// IsValid checks if the EventType is a known enum value.
func (t EventType) IsValid() bool {
	switch t {
	case EventJoin, EventMessage, EventFileUploaded, EventVideoInviteRequest,
		EventNewMessage, EventNewFile, EventVideoInvite, EventVideoInviteSent,
		EventVideoInviteFailed, EventError:
		return true
	default:
		return false
	}
}

func (t EventType) String() string {
	return string(t)
}

// Event is the flat JSON envelope exchanged over the socket. Fields are
// populated per type; everything else stays omitted.
type Event struct {
	Type       EventType `json:"type"`
	RoomID     string    `json:"roomId,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	SenderID   string    `json:"senderId,omitempty"`
	SenderName string    `json:"senderName,omitempty"`
	ReceiverID string    `json:"receiverId,omitempty"`

	// chat payload
	MessageID string `json:"messageId,omitempty"`
	Content   string `json:"content,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Filesize  string `json:"filesize,omitempty"`
	FileURL   string `json:"fileUrl,omitempty"`

	// video invite payload
	MeetingID   string `json:"meetingId,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`

	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// DecodeEvent parses a raw frame and rejects unknown event types.
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("malformed event: %w", err)
	}
	if !e.Type.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return &e, nil
}

// Encode serializes the event for the wire.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// NewStoredMessageEvent builds the broadcast form of a durably stored message.
// Receivers only ever see this canonical form with server id and timestamp.
func NewStoredMessageEvent(msg *models.ChatMessage) *Event {
	e := &Event{
		RoomID:     msg.RoomID,
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Timestamp:  msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if msg.Kind == models.MessageKindFile {
		e.Type = EventNewFile
		e.Filename = msg.Filename
		e.Filesize = msg.Filesize
		e.FileURL = msg.FileURL
	} else {
		e.Type = EventNewMessage
		e.Content = msg.Content
	}
	return e
}

// NewVideoInviteEvent is the payload delivered to the invited receiver only.
func NewVideoInviteEvent(roomID, senderID, senderName, meetingID, accessToken string) *Event {
	return &Event{
		Type:        EventVideoInvite,
		RoomID:      roomID,
		SenderID:    senderID,
		SenderName:  senderName,
		MeetingID:   meetingID,
		AccessToken: accessToken,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// NewVideoInviteSentEvent confirms delivery to the sender. It carries no
// access credential; the sender mints its own via the REST endpoint.
func NewVideoInviteSentEvent(roomID, receiverID string) *Event {
	return &Event{
		Type:       EventVideoInviteSent,
		RoomID:     roomID,
		ReceiverID: receiverID,
		Reason:     "invite delivered",
	}
}

// NewVideoInviteFailedEvent reports a presence miss or delivery failure to
// the sender. A normal outcome, not an error.
func NewVideoInviteFailedEvent(roomID, receiverID, reason string) *Event {
	return &Event{
		Type:       EventVideoInviteFailed,
		RoomID:     roomID,
		ReceiverID: receiverID,
		Reason:     reason,
	}
}

// NewErrorEvent reports a per-client failure such as a rejected persistence
// write. Delivered to the originating client only.
func NewErrorEvent(roomID, reason string) *Event {
	return &Event{
		Type:   EventError,
		RoomID: roomID,
		Reason: reason,
	}
}
