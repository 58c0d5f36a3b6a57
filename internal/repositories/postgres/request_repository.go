package postgres

import (
	"context"

	"gorm.io/gorm"

	"skillswap-service/internal/models"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db}
}

func (r *RequestRepository) Create(ctx context.Context, req *models.SwapRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.SwapRequest, error) {
	var req models.SwapRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepository) FindIncoming(ctx context.Context, userID string) ([]*models.SwapRequest, error) {
	var reqs []*models.SwapRequest
	err := r.db.WithContext(ctx).
		Where("to_user_id = ?", userID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *RequestRepository) FindOutgoing(ctx context.Context, userID string) ([]*models.SwapRequest, error) {
	var reqs []*models.SwapRequest
	err := r.db.WithContext(ctx).
		Where("from_user_id = ?", userID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status models.RequestStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.SwapRequest{}).
		Where("id = ?", id).
		Update("status", status).Error
}
