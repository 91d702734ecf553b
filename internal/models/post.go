package models

import (
	"time"
)

type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Title        string    `gorm:"size:300;not null" json:"title"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	VoteCount    int       `gorm:"not null;default:0;index" json:"vote_count"`    // SUM(post_votes.polarity), recomputed on every vote
	ViewCount    int       `gorm:"not null;default:0" json:"view_count"`
	CommentCount int       `gorm:"not null;default:0" json:"comment_count"`
	IsDeleted    bool      `gorm:"not null;default:false;index" json:"-"`
	Topics       []Topic   `gorm:"many2many:post_topics;" json:"topics"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
