// Package dbtest 为测试提供基于内存 SQLite 的数据库
package dbtest

import (
	"fmt"
	"forumcore/internal/db"
	"forumcore/internal/models"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// Open 每次返回一个独立的内存数据库，已完成迁移。
// 连接数限制为 1：SQLite 同一时间只允许一个写事务，并发测试会在连接上排队。
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:forumtest%d?mode=memory&cache=shared", seq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// CreateUser 创建测试用户
func CreateUser(t testing.TB, conn *gorm.DB, name, role string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: role, IsActive: true}
	if err := conn.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreatePost 创建测试帖子，createdAt 为零值时使用当前时间
func CreatePost(t testing.TB, conn *gorm.DB, userID uint, title string, createdAt time.Time) *models.Post {
	t.Helper()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	p := &models.Post{UserID: userID, Title: title, Content: title + " content", CreatedAt: createdAt, UpdatedAt: createdAt}
	if err := conn.Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// CreateComment 创建测试评论
func CreateComment(t testing.TB, conn *gorm.DB, postID, userID uint, content string) *models.Comment {
	t.Helper()
	c := &models.Comment{PostID: postID, UserID: userID, Content: content}
	if err := conn.Create(c).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}

// Topics 写入预设话题并按 id 顺序返回
func Topics(t testing.TB, conn *gorm.DB) []models.Topic {
	t.Helper()
	if err := db.SeedTopics(conn); err != nil {
		t.Fatalf("seed topics: %v", err)
	}
	var topics []models.Topic
	if err := conn.Order("id").Find(&topics).Error; err != nil {
		t.Fatalf("load topics: %v", err)
	}
	return topics
}

// TagPost 给帖子挂话题
func TagPost(t testing.TB, conn *gorm.DB, post *models.Post, topics ...models.Topic) {
	t.Helper()
	if err := conn.Model(post).Association("Topics").Append(topics); err != nil {
		t.Fatalf("tag post: %v", err)
	}
}
