package models

import (
	"time"
)

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"-"`
	PasswordHash string    `gorm:"size:1000;not null" json:"-"`
	Role         string    `gorm:"size:20;default:'user';not null" json:"role"` // user, moderator, admin
	IsActive     bool      `gorm:"not null;default:true" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsModerator 版主和管理员都可以处理举报、删除他人内容
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}
