package models

import (
	"time"
)

// Topic 帖子分类，一个帖子可以挂 1-5 个话题
type Topic struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;unique" json:"name"`
	Slug        string    `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// TopicWithCount 话题列表项，附带未删除帖子数
type TopicWithCount struct {
	Topic
	PostCount int64 `json:"post_count"`
}
