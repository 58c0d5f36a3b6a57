package postgres

import (
	"context"

	"gorm.io/gorm"

	"skillswap-service/internal/models"
)

type SkillRepository struct {
	db *gorm.DB
}

func NewSkillRepository(db *gorm.DB) *SkillRepository {
	return &SkillRepository{db}
}

func (r *SkillRepository) Create(ctx context.Context, skill *models.Skill) error {
	return r.db.WithContext(ctx).Create(skill).Error
}

func (r *SkillRepository) FindByID(ctx context.Context, id string) (*models.Skill, error) {
	var skill models.Skill
	err := r.db.WithContext(ctx).First(&skill, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &skill, nil
}

func (r *SkillRepository) FindByUserID(ctx context.Context, userID string) ([]*models.Skill, error) {
	var skills []*models.Skill
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&skills).Error
	return skills, err
}

// Browse lists other users' skills, newest first.
func (r *SkillRepository) Browse(ctx context.Context, excludeUserID string) ([]*models.Skill, error) {
	var skills []*models.Skill
	err := r.db.WithContext(ctx).
		Where("user_id <> ?", excludeUserID).
		Order("created_at DESC").
		Find(&skills).Error
	return skills, err
}

func (r *SkillRepository) Delete(ctx context.Context, id, userID string) error {
	return r.db.WithContext(ctx).
		Delete(&models.Skill{}, "id = ? AND user_id = ?", id, userID).Error
}
