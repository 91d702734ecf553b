package services

import (
	"context"
	"strings"
	"testing"

	"forumcore/internal/db/dbtest"
	"forumcore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicList(t *testing.T) {
	conn := dbtest.Open(t)
	topics := dbtest.Topics(t, conn)
	author := dbtest.CreateUser(t, conn, "author", models.RoleUser)
	svc := NewTopicService(conn)
	ctx := context.Background()

	a := dbtest.CreatePost(t, conn, author.ID, "first tagged", zeroTime)
	b := dbtest.CreatePost(t, conn, author.ID, "second tagged", zeroTime)
	gone := dbtest.CreatePost(t, conn, author.ID, "deleted tagged", zeroTime)
	dbtest.TagPost(t, conn, a, topics[0], topics[1])
	dbtest.TagPost(t, conn, b, topics[0])
	dbtest.TagPost(t, conn, gone, topics[0])
	require.NoError(t, conn.Model(gone).UpdateColumn("is_deleted", true).Error)
	require.NoError(t, conn.Model(&topics[4]).UpdateColumn("is_active", false).Error)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)

	counts := make(map[string]int64)
	for _, tc := range list {
		counts[tc.Slug] = tc.PostCount
	}
	assert.Equal(t, int64(2), counts[topics[0].Slug])
	assert.Equal(t, int64(1), counts[topics[1].Slug])
	assert.Equal(t, int64(0), counts[topics[2].Slug])
	assert.NotContains(t, counts, topics[4].Slug)
}

func TestTopicBySlug(t *testing.T) {
	conn := dbtest.Open(t)
	dbtest.Topics(t, conn)
	svc := NewTopicService(conn)

	topic, err := svc.BySlug(context.Background(), "technology")
	require.NoError(t, err)
	assert.Equal(t, "Technology", topic.Name)

	_, err = svc.BySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTopic(t *testing.T) {
	conn := dbtest.Open(t)
	dbtest.Topics(t, conn)
	admin := dbtest.CreateUser(t, conn, "admin", models.RoleAdmin)
	mod := dbtest.CreateUser(t, conn, "mod", models.RoleModerator)
	svc := NewTopicService(conn)
	ctx := context.Background()

	topic, err := svc.Create(ctx, admin, TopicInput{Name: " Rust ", Slug: "rust", Description: "systems"})
	require.NoError(t, err)
	assert.NotZero(t, topic.ID)
	assert.Equal(t, "Rust", topic.Name)
	assert.True(t, topic.IsActive)
	assert.Zero(t, topic.PostCount)

	found, err := svc.BySlug(ctx, "rust")
	require.NoError(t, err)
	assert.Equal(t, topic.ID, found.ID)

	_, err = svc.Create(ctx, mod, TopicInput{Name: "Go", Slug: "go"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Create(ctx, nil, TopicInput{Name: "Go", Slug: "go"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, admin, TopicInput{Name: "Another Rust", Slug: "rust"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.Create(ctx, admin, TopicInput{Name: "Rust", Slug: "rust-lang"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(ctx, admin, TopicInput{Name: "  ", Slug: "blank"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Create(ctx, admin, TopicInput{Name: "Long", Slug: strings.Repeat("x", maxTopicField+1)})
	assert.ErrorIs(t, err, ErrValidation)
}
