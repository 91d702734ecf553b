package db_test

import (
	"testing"
	"time"

	"forumcore/internal/db"
	"forumcore/internal/db/dbtest"
	"forumcore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedTopicsOnce(t *testing.T) {
	conn := dbtest.Open(t)

	require.NoError(t, db.SeedTopics(conn))
	require.NoError(t, db.SeedTopics(conn))

	var count int64
	conn.Model(&models.Topic{}).Count(&count)
	assert.Equal(t, int64(5), count)
}

func TestSeedAdmin(t *testing.T) {
	conn := dbtest.Open(t)

	require.NoError(t, db.SeedAdmin(conn, "admin@example.com", "s3cret-pass"))
	require.NoError(t, db.SeedAdmin(conn, "admin@example.com", "other"))

	var admins []models.User
	require.NoError(t, conn.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.True(t, admins[0].IsModerator())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admins[0].PasswordHash), []byte("s3cret-pass")))
}

func TestVoteUniquePerUser(t *testing.T) {
	conn := dbtest.Open(t)
	u := dbtest.CreateUser(t, conn, "u", models.RoleUser)
	p := dbtest.CreatePost(t, conn, u.ID, "unique votes", time.Time{})

	require.NoError(t, conn.Create(&models.PostVote{UserID: u.ID, PostID: p.ID, Polarity: 1}).Error)
	assert.Error(t, conn.Create(&models.PostVote{UserID: u.ID, PostID: p.ID, Polarity: -1}).Error)
	assert.Error(t, conn.Create(&models.PostVote{UserID: u.ID + 1, PostID: p.ID, Polarity: 0}).Error, "polarity 0 is rejected by the check constraint")
}
