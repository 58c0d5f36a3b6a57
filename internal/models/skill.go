package models

import "time"

/** --------------------ENTITIES-------------------- */

// Skill is something a user offers to teach or wants to learn.
type Skill struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"index;not null;type:uuid" json:"userId"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"nullable" json:"description,omitempty"`
	Category    string    `gorm:"index" json:"category,omitempty"`
	Level       string    `gorm:"nullable" json:"level,omitempty"` // beginner || intermediate || expert
	CreatedAt   time.Time `json:"createdAt"`

	User User `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

/** -------------------- DTOs -------------------- */

type CreateSkillRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Level       string `json:"level" binding:"omitempty,oneof=beginner intermediate expert"`
}
