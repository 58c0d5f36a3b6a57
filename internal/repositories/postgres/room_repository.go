package postgres

import (
	"context"

	"gorm.io/gorm"

	"skillswap-service/internal/models"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db}
}

func (r *RoomRepository) Create(ctx context.Context, room *models.ChatRoom) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) FindByUserID(ctx context.Context, userID string) ([]*models.ChatRoom, error) {
	var rooms []*models.ChatRoom
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *RoomRepository) FindByRequestID(ctx context.Context, requestID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).First(&room, "request_id = ?", requestID).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}
