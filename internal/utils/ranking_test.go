package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestHotScoreFormula(t *testing.T) {
	// 10 / (0 + 2)^1.5
	assert.InDelta(t, 10/2.8284271247, HotScore(10, now, now), 1e-9)
	// 10 / (2 + 2)^1.5 = 10 / 8
	assert.InDelta(t, 1.25, HotScore(10, now.Add(-2*time.Hour), now), 1e-9)
	assert.Equal(t, 0.0, HotScore(0, now.Add(-5*time.Hour), now))
}

func TestHotScoreClampsFutureTimestamps(t *testing.T) {
	assert.Equal(t, HotScore(7, now, now), HotScore(7, now.Add(3*time.Hour), now))
}

func TestHotScoreDecreasesWithAge(t *testing.T) {
	for _, votes := range []int{1, 5, 100, 10000} {
		prev := HotScore(votes, now, now)
		for _, age := range []time.Duration{time.Minute, time.Hour, 5 * time.Hour, 48 * time.Hour, 24 * 365 * time.Hour} {
			s := HotScore(votes, now.Add(-age), now)
			assert.Less(t, s, prev, "votes=%d age=%s", votes, age)
			prev = s
		}
	}
}

func TestHotScoreIncreasesWithVotes(t *testing.T) {
	for _, age := range []time.Duration{0, 30 * time.Minute, 6 * time.Hour, 720 * time.Hour} {
		created := now.Add(-age)
		prev := HotScore(-50, created, now)
		for votes := -49; votes <= 50; votes++ {
			s := HotScore(votes, created, now)
			assert.Greater(t, s, prev, "votes=%d age=%s", votes, age)
			prev = s
		}
	}
}

func TestParseSort(t *testing.T) {
	m, ok := ParseSort("")
	require.True(t, ok)
	assert.Equal(t, SortHot, m)

	m, ok = ParseSort("top")
	require.True(t, ok)
	assert.Equal(t, SortTop, m)

	_, ok = ParseSort("best")
	assert.False(t, ok)
}

func ids(items []RankItem) []uint {
	out := make([]uint, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestOrder(t *testing.T) {
	items := []RankItem{
		{ID: 1, VoteCount: 10, CreatedAt: now.Add(-48 * time.Hour)}, // 老帖高票
		{ID: 2, VoteCount: 3, CreatedAt: now.Add(-1 * time.Hour)},   // 新帖少票
		{ID: 3, VoteCount: 0, CreatedAt: now},                       // 刚发布
		{ID: 4, VoteCount: 10, CreatedAt: now.Add(-2 * time.Hour)},  // 与 1 同票，更新
	}

	assert.Equal(t, []uint{3, 2, 4, 1}, ids(Order(items, SortNew, now)))
	assert.Equal(t, []uint{4, 1, 2, 3}, ids(Order(items, SortTop, now)))
	assert.Equal(t, []uint{4, 2, 1, 3}, ids(Order(items, SortHot, now)))

	// 入参不被修改
	assert.Equal(t, []uint{1, 2, 3, 4}, ids(items))
}

func TestOrderHotTieBreaksNewestFirst(t *testing.T) {
	created := now.Add(-3 * time.Hour)
	items := []RankItem{
		{ID: 1, VoteCount: 0, CreatedAt: created.Add(-time.Hour)},
		{ID: 2, VoteCount: 0, CreatedAt: created},
		{ID: 3, VoteCount: 0, CreatedAt: created},
	}
	assert.Equal(t, []uint{3, 2, 1}, ids(Order(items, SortHot, now)))
}

func TestOrderEmpty(t *testing.T) {
	assert.Empty(t, Order(nil, SortHot, now))
}
