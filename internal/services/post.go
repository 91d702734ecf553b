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
	minTitleLength   = 5
	maxTitleLength   = 300
	minContentLength = 10
	minPostTopics    = 1
	maxPostTopics    = 5
)

type PostInput struct {
	Title    string
	Content  string
	TopicIDs []uint
}

// PostService 发帖、编辑、软删除
type PostService struct {
	db   *gorm.DB
	feed *FeedService // 可为 nil，用于清列表缓存
	log  zerolog.Logger
}

func NewPostService(db *gorm.DB, feed *FeedService, logger zerolog.Logger) *PostService {
	return &PostService{db: db, feed: feed, log: logger}
}

func (in *PostInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)

	if n := utf8.RuneCountInString(in.Title); n < minTitleLength || n > maxTitleLength {
		return invalid("title must be %d-%d characters", minTitleLength, maxTitleLength)
	}
	if utf8.RuneCountInString(in.Content) < minContentLength {
		return invalid("content must be at least %d characters", minContentLength)
	}

	// 去重
	seen := make(map[uint]bool, len(in.TopicIDs))
	ids := make([]uint, 0, len(in.TopicIDs))
	for _, id := range in.TopicIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	in.TopicIDs = ids
	if len(ids) < minPostTopics || len(ids) > maxPostTopics {
		return invalid("a post needs %d-%d topics", minPostTopics, maxPostTopics)
	}
	return nil
}

// loadTopics 所有 id 都必须是存在且启用的话题
func loadTopics(tx *gorm.DB, ids []uint) ([]models.Topic, error) {
	var topics []models.Topic
	if err := tx.Where("id IN ? AND is_active = ?", ids, true).Find(&topics).Error; err != nil {
		return nil, storeErr("load topics", err)
	}
	if len(topics) != len(ids) {
		return nil, invalid("one or more topics do not exist")
	}
	return topics, nil
}

func (s *PostService) Create(ctx context.Context, authorID uint, in PostInput) (*models.Post, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	post := &models.Post{UserID: authorID, Title: in.Title, Content: in.Content}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		topics, err := loadTopics(tx, in.TopicIDs)
		if err != nil {
			return err
		}
		post.Topics = topics
		// 只写关联表，不回写 topics
		if err := tx.Omit("Topics.*").Create(post).Error; err != nil {
			return storeErr("create post", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate()
	s.log.Info().Uint("post", post.ID).Uint("author", authorID).Msg("post created")
	return post, nil
}

// Update 只有作者可以编辑
func (s *PostService) Update(ctx context.Context, postID uint, editor *models.User, in PostInput) (*models.Post, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadLivePost(tx, postID, &post); err != nil {
			return err
		}
		if post.UserID != editor.ID {
			return forbidden("post %d belongs to another user", postID)
		}

		topics, err := loadTopics(tx, in.TopicIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(&post).Updates(map[string]interface{}{
			"title":   in.Title,
			"content": in.Content,
		}).Error; err != nil {
			return storeErr("update post", err)
		}
		if err := tx.Model(&post).Association("Topics").Replace(topics); err != nil {
			return storeErr("update post topics", err)
		}
		post.Title, post.Content, post.Topics = in.Title, in.Content, topics
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate()
	return &post, nil
}

// Delete 软删除，作者或版主可以操作
func (s *PostService) Delete(ctx context.Context, postID uint, actor *models.User) error {
	db := s.db.WithContext(ctx)
	var post models.Post
	if err := loadLivePost(db, postID, &post); err != nil {
		return err
	}
	if post.UserID != actor.ID && !actor.IsModerator() {
		return forbidden("post %d belongs to another user", postID)
	}

	if err := db.Model(&post).UpdateColumn("is_deleted", true).Error; err != nil {
		return storeErr("delete post", err)
	}

	s.invalidate()
	s.log.Info().Uint("post", postID).Uint("actor", actor.ID).Msg("post deleted")
	return nil
}

func (s *PostService) invalidate() {
	if s.feed != nil {
		s.feed.Invalidate()
	}
}

func loadLivePost(tx *gorm.DB, id uint, post *models.Post) error {
	err := tx.Where("id = ? AND is_deleted = ?", id, false).First(post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("post", id)
	}
	if err != nil {
		return storeErr("load post", err)
	}
	return nil
}
