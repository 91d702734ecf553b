package services

import (
	"context"
	"errors"
	"fmt"
	"forumcore/internal/models"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
)

const maxTopicField = 100

// TopicInput 新建话题
type TopicInput struct {
	Name        string
	Slug        string
	Description string
}

func (in *TopicInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" || utf8.RuneCountInString(in.Name) > maxTopicField {
		return invalid("topic name must be 1-%d characters", maxTopicField)
	}
	if in.Slug == "" || utf8.RuneCountInString(in.Slug) > maxTopicField {
		return invalid("topic slug must be 1-%d characters", maxTopicField)
	}
	return nil
}

type TopicService struct {
	db *gorm.DB
}

func NewTopicService(db *gorm.DB) *TopicService {
	return &TopicService{db: db}
}

// List 启用的话题及各自未删除的帖子数
func (s *TopicService) List(ctx context.Context) ([]models.TopicWithCount, error) {
	var topics []models.TopicWithCount
	err := s.db.WithContext(ctx).Model(&models.Topic{}).
		Select("topics.*, COUNT(posts.id) AS post_count").
		Joins("LEFT JOIN post_topics ON post_topics.topic_id = topics.id").
		Joins("LEFT JOIN posts ON posts.id = post_topics.post_id AND posts.is_deleted = ?", false).
		Where("topics.is_active = ?", true).
		Group("topics.id").
		Order("topics.name").
		Scan(&topics).Error
	if err != nil {
		return nil, storeErr("list topics", err)
	}
	return topics, nil
}

// Create 仅管理员可建话题。名称或 slug 已存在（包括停用的话题）时返回 ErrConflict
func (s *TopicService) Create(ctx context.Context, actor *models.User, in TopicInput) (*models.TopicWithCount, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, forbidden("only admins can create topics")
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	topic := models.Topic{Name: in.Name, Slug: in.Slug, Description: in.Description, IsActive: true}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Topic{}).
			Where("name = ? OR slug = ?", in.Name, in.Slug).
			Count(&n).Error; err != nil {
			return storeErr("check topic", err)
		}
		if n > 0 {
			return fmt.Errorf("topic %q or slug %q already exists: %w", in.Name, in.Slug, ErrConflict)
		}
		if err := tx.Create(&topic).Error; err != nil {
			return storeErr("create topic", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &models.TopicWithCount{Topic: topic}, nil
}

func (s *TopicService) BySlug(ctx context.Context, slug string) (*models.Topic, error) {
	var topic models.Topic
	err := s.db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("topic %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("load topic", err)
	}
	return &topic, nil
}
