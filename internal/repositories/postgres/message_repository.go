package postgres

import (
	"context"

	"gorm.io/gorm"

	"skillswap-service/internal/models"
)

// MessageRepository is the durable message store behind the relay.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db}
}

// SaveMessage appends one message and bumps the room's last-message preview
// in the same transaction.
func (r *MessageRepository) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		preview := msg.Content
		if msg.Kind == models.MessageKindFile {
			preview = msg.Filename
		}
		return tx.Model(&models.ChatRoom{}).
			Where("id = ?", msg.RoomID).
			Update("last_message", preview).Error
	})
}

func (r *MessageRepository) FindByRoomID(ctx context.Context, roomID string) ([]*models.ChatMessage, error) {
	var messages []*models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at").
		Find(&messages).Error
	return messages, err
}

// MarkRead flags every message in the room not sent by readerID as read.
func (r *MessageRepository) MarkRead(ctx context.Context, roomID, readerID string) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("room_id = ? AND sender_id <> ? AND read = false", roomID, readerID).
		Update("read", true).Error
}
