package services

import (
	"context"
	"errors"
	"forumcore/internal/models"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	maxCommentLength = 10000
	maxCommentDepth  = 5 // 顶层评论深度为 0
)

type CommentInput struct {
	Content  string
	ParentID *uint
}

type CommentService struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewCommentService(db *gorm.DB, logger zerolog.Logger) *CommentService {
	return &CommentService{db: db, log: logger}
}

// Create 发表评论。回复时父评论必须属于同一个帖子，深度 = 父评论深度 + 1，最多 5 层
func (s *CommentService) Create(ctx context.Context, postID, authorID uint, in CommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, invalid("comment content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, invalid("comment must be at most %d characters", maxCommentLength)
	}

	comment := &models.Comment{PostID: postID, UserID: authorID, Content: content}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := loadLivePost(tx, postID, &post); err != nil {
			return err
		}

		if in.ParentID != nil {
			var parent models.Comment
			err := tx.Where("id = ? AND is_deleted = ?", *in.ParentID, false).First(&parent).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("comment", *in.ParentID)
			}
			if err != nil {
				return storeErr("load parent comment", err)
			}
			if parent.PostID != postID {
				return invalid("parent comment %d belongs to another post", parent.ID)
			}
			if parent.Depth+1 > maxCommentDepth {
				return invalid("reply depth %d exceeds %d", parent.Depth+1, maxCommentDepth)
			}
			comment.ParentID = &parent.ID
			comment.Depth = parent.Depth + 1
		}

		if err := tx.Create(comment).Error; err != nil {
			return storeErr("create comment", err)
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1)).Error; err != nil {
			return storeErr("update comment_count", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("comment", comment.ID).Uint("post", postID).Uint("author", authorID).Msg("comment created")
	return comment, nil
}

// Delete 软删除评论，作者或版主可操作。回复保留，客户端显示为已删除
func (s *CommentService) Delete(ctx context.Context, commentID uint, actor *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		err := tx.Where("id = ? AND is_deleted = ?", commentID, false).First(&comment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("comment", commentID)
		}
		if err != nil {
			return storeErr("load comment", err)
		}
		if comment.UserID != actor.ID && !actor.IsModerator() {
			return forbidden("comment %d belongs to another user", commentID)
		}

		if err := tx.Model(&comment).UpdateColumn("is_deleted", true).Error; err != nil {
			return storeErr("delete comment", err)
		}
		if err := tx.Model(&models.Post{}).Where("id = ? AND comment_count > 0", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - ?", 1)).Error; err != nil {
			return storeErr("update comment_count", err)
		}
		return nil
	})
}
