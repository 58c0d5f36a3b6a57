package models

import "time"

// enum
type MessageKind string

const (
	MessageKindText   MessageKind = "text"
	MessageKindFile   MessageKind = "file"
	MessageKindSystem MessageKind = "system"
)

/** --------------------ENTITIES-------------------- */

// ChatRoom groups the two participants of an accepted swap request.
type ChatRoom struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	RequestID   string    `gorm:"index;nullable;type:uuid" json:"requestId,omitempty"`
	FromUserID  string    `gorm:"index;not null;type:uuid" json:"fromUserId"`
	ToUserID    string    `gorm:"index;not null;type:uuid" json:"toUserId"`
	IsActive    bool      `gorm:"default:true" json:"isActive"`
	LastMessage string    `gorm:"nullable" json:"lastMessage,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	FromUser User `gorm:"foreignKey:FromUserID;references:ID" json:"-"`
	ToUser   User `gorm:"foreignKey:ToUserID;references:ID" json:"-"`
}

// HasParticipant reports whether userID is one of the two room members.
func (r *ChatRoom) HasParticipant(userID string) bool {
	return r.FromUserID == userID || r.ToUserID == userID
}

// ChatMessage is the durable form of a chat event. The relay broadcasts
// only this stored form, never the raw inbound payload.
type ChatMessage struct {
	ID         string      `gorm:"primaryKey;type:uuid" json:"id"`
	RoomID     string      `gorm:"index;not null;type:uuid" json:"roomId"`
	SenderID   string      `gorm:"not null;type:uuid" json:"senderId"`
	SenderName string      `gorm:"not null" json:"senderName"`
	Kind       MessageKind `gorm:"not null;default:text" json:"kind"`
	Content    string      `gorm:"nullable" json:"content,omitempty"`
	Filename   string      `gorm:"nullable" json:"filename,omitempty"`
	Filesize   string      `gorm:"nullable" json:"filesize,omitempty"`
	FileURL    string      `gorm:"nullable" json:"fileUrl,omitempty"`
	Read       bool        `gorm:"default:false" json:"read"`
	CreatedAt  time.Time   `json:"createdAt"`
}

/** -------------------- DTOs -------------------- */

type ChatRoomResponse struct {
	Room     *ChatRoom      `json:"room"`
	Messages []*ChatMessage `json:"messages"`
}

type UploadResponse struct {
	MessageID string `json:"messageId"`
	Filename  string `json:"filename"`
	Filesize  string `json:"filesize"`
	FileURL   string `json:"fileUrl"`
}

type VideoTokenResponse struct {
	MeetingID string    `json:"meetingId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
