package db

import (
	"errors"
	"fmt"
	"forumcore/internal/config"
	"forumcore/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 连接 PostgreSQL、迁移表结构并写入初始数据
func Init(cfg config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.Debug {
		logLevel = logger.Info
	}

	conn, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info().Msg("Database connection established")

	if err := Migrate(conn); err != nil {
		return nil, err
	}
	log.Info().Msg("Database migration completed")

	if err := SeedTopics(conn); err != nil {
		return nil, err
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := SeedAdmin(conn, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return nil, err
		}
	}

	DB = conn
	return conn, nil
}

// Migrate 自动迁移全部模型
func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.User{},
		&models.Topic{},
		&models.Post{},
		&models.Comment{},
		&models.PostVote{},
		&models.CommentVote{},
		&models.Report{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// SeedTopics 首次启动时创建预设话题
func SeedTopics(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&models.Topic{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Debug().Msg("Topics already seeded, skipping")
		return nil
	}

	topics := []models.Topic{
		{Name: "General", Slug: "general", Description: "General discussion", IsActive: true},
		{Name: "Technology", Slug: "technology", Description: "Software, hardware and everything in between", IsActive: true},
		{Name: "Show", Slug: "show", Description: "Show off what you built", IsActive: true},
		{Name: "Ask", Slug: "ask", Description: "Questions for the community", IsActive: true},
		{Name: "Meta", Slug: "meta", Description: "Discussion about the forum itself", IsActive: true},
	}

	for _, topic := range topics {
		if err := conn.Create(&topic).Error; err != nil {
			log.Error().Err(err).Str("topic", topic.Slug).Msg("Failed to create topic")
			return err
		}
	}
	log.Info().Int("count", len(topics)).Msg("Initial topics created")
	return nil
}

// SeedAdmin 按配置创建管理员账号，已存在时跳过
func SeedAdmin(conn *gorm.DB, email, password string) error {
	var existing models.User
	err := conn.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		Username:     "admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := conn.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info().Str("email", email).Msg("Admin user created")
	return nil
}
