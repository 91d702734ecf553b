package models

import (
	"time"
)

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ParentID  *uint     `gorm:"index" json:"parent_id"` // nil for top-level comments
	Depth     int       `gorm:"not null;default:0" json:"depth"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	VoteCount int       `gorm:"not null;default:0" json:"vote_count"`
	IsDeleted bool      `gorm:"not null;default:false;index" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
