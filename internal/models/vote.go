package models

import (
	"time"
)

// PostVote 用户对帖子的投票。没有记录即"未投票"，Polarity 只会是 1 或 -1。
type PostVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_vote_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;index;uniqueIndex:idx_post_vote_user_post" json:"post_id"`
	Polarity  int       `gorm:"type:smallint;not null;check:chk_post_vote_polarity,polarity IN (1, -1)" json:"polarity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentVote 用户对评论的投票，语义同 PostVote。
type CommentVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_vote_user_comment" json:"user_id"`
	CommentID uint      `gorm:"not null;index;uniqueIndex:idx_comment_vote_user_comment" json:"comment_id"`
	Polarity  int       `gorm:"type:smallint;not null;check:chk_comment_vote_polarity,polarity IN (1, -1)" json:"polarity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
