package services

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"forumcore/internal/db/dbtest"
	"forumcore/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newVoteFixture(t *testing.T) (*gorm.DB, *VoteService, *models.User, *models.Post) {
	t.Helper()
	conn := dbtest.Open(t)
	author := dbtest.CreateUser(t, conn, "author", models.RoleUser)
	post := dbtest.CreatePost(t, conn, author.ID, "hello world", zeroTime)
	return conn, NewVoteService(conn, zerolog.Nop()), author, post
}

func storedVoteCount(t *testing.T, conn *gorm.DB, postID uint) int {
	t.Helper()
	var p models.Post
	require.NoError(t, conn.First(&p, postID).Error)
	return p.VoteCount
}

func TestApplyVoteToggle(t *testing.T) {
	conn, svc, _, post := newVoteFixture(t)
	voter := dbtest.CreateUser(t, conn, "voter", models.RoleUser)
	ctx := context.Background()

	res, err := svc.Apply(ctx, voter.ID, TargetPost, post.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.VoteCount)
	require.NotNil(t, res.UserVote)
	assert.Equal(t, 1, *res.UserVote)

	// 同方向再投一次 = 撤销
	res, err = svc.Apply(ctx, voter.ID, TargetPost, post.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, res.VoteCount)
	assert.Nil(t, res.UserVote)
	assert.Equal(t, 0, storedVoteCount(t, conn, post.ID))

	var rows int64
	conn.Model(&models.PostVote{}).Where("post_id = ?", post.ID).Count(&rows)
	assert.Zero(t, rows)
}

func TestApplyVoteFlip(t *testing.T) {
	conn, svc, _, post := newVoteFixture(t)
	voter := dbtest.CreateUser(t, conn, "voter", models.RoleUser)
	other := dbtest.CreateUser(t, conn, "other", models.RoleUser)
	ctx := context.Background()

	_, err := svc.Apply(ctx, other.ID, TargetPost, post.ID, 1)
	require.NoError(t, err)
	res, err := svc.Apply(ctx, voter.ID, TargetPost, post.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 2, res.VoteCount)

	res, err = svc.Apply(ctx, voter.ID, TargetPost, post.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, res.VoteCount, "flip moves the count by exactly -2")
	require.NotNil(t, res.UserVote)
	assert.Equal(t, -1, *res.UserVote)

	var rows int64
	conn.Model(&models.PostVote{}).Where("post_id = ? AND user_id = ?", post.ID, voter.ID).Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestApplyVoteZeroWithoutVote(t *testing.T) {
	conn, svc, _, post := newVoteFixture(t)
	voter := dbtest.CreateUser(t, conn, "voter", models.RoleUser)

	res, err := svc.Apply(context.Background(), voter.ID, TargetPost, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.VoteCount)
	assert.Nil(t, res.UserVote)
}

func TestApplyVoteZeroRemoves(t *testing.T) {
	conn, svc, _, post := newVoteFixture(t)
	voter := dbtest.CreateUser(t, conn, "voter", models.RoleUser)
	ctx := context.Background()

	_, err := svc.Apply(ctx, voter.ID, TargetPost, post.ID, -1)
	require.NoError(t, err)
	res, err := svc.Apply(ctx, voter.ID, TargetPost, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.VoteCount)
	assert.Nil(t, res.UserVote)
}

func TestApplyVoteValidation(t *testing.T) {
	_, svc, author, post := newVoteFixture(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, author.ID, TargetPost, post.ID, 2)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Apply(ctx, author.ID, TargetKind("user"), post.ID, 1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestApplyVoteNotFound(t *testing.T) {
	conn, svc, author, post := newVoteFixture(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, author.ID, TargetPost, post.ID+100, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, conn.Model(post).UpdateColumn("is_deleted", true).Error)
	_, err = svc.Apply(ctx, author.ID, TargetPost, post.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyVoteComment(t *testing.T) {
	conn, svc, author, post := newVoteFixture(t)
	comment := dbtest.CreateComment(t, conn, post.ID, author.ID, "first")
	voter := dbtest.CreateUser(t, conn, "voter", models.RoleUser)
	ctx := context.Background()

	res, err := svc.Apply(ctx, voter.ID, TargetComment, comment.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, -1, res.VoteCount)

	var c models.Comment
	require.NoError(t, conn.First(&c, comment.ID).Error)
	assert.Equal(t, -1, c.VoteCount)
	// 评论投票不影响帖子计数
	assert.Equal(t, 0, storedVoteCount(t, conn, post.ID))
}

func TestApplyVoteCancelledContext(t *testing.T) {
	conn, svc, author, post := newVoteFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Apply(ctx, author.ID, TargetPost, post.ID, 1)
	require.Error(t, err)

	var rows int64
	conn.Model(&models.PostVote{}).Count(&rows)
	assert.Zero(t, rows)
	assert.Equal(t, 0, storedVoteCount(t, conn, post.ID))
}

// 随机操作序列后，计数必须等于独立统计的投票之和
func TestApplyVoteRandomSequence(t *testing.T) {
	conn, svc, _, post := newVoteFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	voters := make([]*models.User, 6)
	for i := range voters {
		voters[i] = dbtest.CreateUser(t, conn, "voter"+string(rune('a'+i)), models.RoleUser)
	}

	state := make(map[uint]int)
	for i := 0; i < 200; i++ {
		v := voters[rng.Intn(len(voters))]
		polarity := rng.Intn(3) - 1

		res, err := svc.Apply(ctx, v.ID, TargetPost, post.ID, polarity)
		require.NoError(t, err)

		switch {
		case polarity == 0, state[v.ID] == polarity:
			delete(state, v.ID)
		default:
			state[v.ID] = polarity
		}

		want := 0
		for _, p := range state {
			want += p
		}
		require.Equal(t, want, res.VoteCount, "op %d", i)
	}

	var sum int
	require.NoError(t, conn.Model(&models.PostVote{}).
		Select("COALESCE(SUM(polarity), 0)").Where("post_id = ?", post.ID).
		Row().Scan(&sum))
	assert.Equal(t, sum, storedVoteCount(t, conn, post.ID))

	var rows int64
	conn.Model(&models.PostVote{}).Where("post_id = ?", post.ID).Count(&rows)
	assert.Equal(t, int64(len(state)), rows)
}

func TestApplyVoteConcurrent(t *testing.T) {
	conn, svc, _, post := newVoteFixture(t)
	ctx := context.Background()

	const n = 8
	voters := make([]*models.User, n)
	for i := range voters {
		voters[i] = dbtest.CreateUser(t, conn, "c"+string(rune('a'+i)), models.RoleUser)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, v := range voters {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			if _, err := svc.Apply(ctx, id, TargetPost, post.ID, 1); err != nil {
				errs <- err
			}
		}(v.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, n, storedVoteCount(t, conn, post.ID))
}

func TestRecountFixesDrift(t *testing.T) {
	conn, svc, _, post := newVoteFixture(t)
	voter := dbtest.CreateUser(t, conn, "voter", models.RoleUser)
	ctx := context.Background()

	_, err := svc.Apply(ctx, voter.ID, TargetPost, post.ID, 1)
	require.NoError(t, err)
	require.NoError(t, conn.Model(post).UpdateColumn("vote_count", 99).Error)

	count, err := svc.Recount(ctx, TargetPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, storedVoteCount(t, conn, post.ID))
}

func TestUserVotesBatch(t *testing.T) {
	conn, svc, author, first := newVoteFixture(t)
	second := dbtest.CreatePost(t, conn, author.ID, "second post", zeroTime)
	third := dbtest.CreatePost(t, conn, author.ID, "third post", zeroTime)
	voter := dbtest.CreateUser(t, conn, "voter", models.RoleUser)
	ctx := context.Background()

	_, err := svc.Apply(ctx, voter.ID, TargetPost, first.ID, 1)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, voter.ID, TargetPost, third.ID, -1)
	require.NoError(t, err)

	votes, err := svc.UserVotes(ctx, TargetPost, voter.ID, []uint{first.ID, second.ID, third.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{first.ID: 1, third.ID: -1}, votes)

	// 匿名用户
	votes, err = svc.UserVotes(ctx, TargetPost, 0, []uint{first.ID})
	require.NoError(t, err)
	assert.Empty(t, votes)
}
