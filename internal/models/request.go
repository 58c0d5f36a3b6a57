package models

import "time"

// enum
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusDeclined RequestStatus = "declined"
)

/** --------------------ENTITIES-------------------- */

// SwapRequest is a proposal from one user to exchange skills with another.
// Accepting a request creates the ChatRoom for the pair.
type SwapRequest struct {
	ID         string        `gorm:"primaryKey;type:uuid" json:"id"`
	SkillID    string        `gorm:"index;not null;type:uuid" json:"skillId"`
	FromUserID string        `gorm:"index;not null;type:uuid" json:"fromUserId"`
	ToUserID   string        `gorm:"index;not null;type:uuid" json:"toUserId"`
	Message    string        `gorm:"nullable" json:"message,omitempty"`
	Status     RequestStatus `gorm:"not null;default:pending" json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`

	Skill    Skill `gorm:"foreignKey:SkillID;references:ID" json:"-"`
	FromUser User  `gorm:"foreignKey:FromUserID;references:ID" json:"-"`
	ToUser   User  `gorm:"foreignKey:ToUserID;references:ID" json:"-"`
}

/** -------------------- DTOs -------------------- */

type CreateSwapRequest struct {
	SkillID string `json:"skillId" binding:"required"`
	Message string `json:"message"`
}

type UpdateSwapRequest struct {
	Status RequestStatus `json:"status" binding:"required,oneof=accepted declined"`
}
