package utils

import (
	"math"
	"sort"
	"time"
)

// SortMode feed 排序方式
type SortMode string

const (
	SortHot SortMode = "hot"
	SortNew SortMode = "new"
	SortTop SortMode = "top"
)

// ParseSort 解析排序参数，空字符串默认为 hot
func ParseSort(s string) (SortMode, bool) {
	switch SortMode(s) {
	case "":
		return SortHot, true
	case SortHot, SortNew, SortTop:
		return SortMode(s), true
	}
	return "", false
}

type RankConfig struct {
	Gravity   float64 // 时间重力 (1.5)
	BaseHours float64 // 分母里的偏移小时数，避免新帖分母过小 (2)
}

var DefaultConfig = RankConfig{
	Gravity:   1.5,
	BaseHours: 2,
}

// HotScore 热度 = 票数 / (发布小时数 + 2)^1.5
//
// 票数固定(>0)时随时间严格递减，时间固定时随票数严格递增。
// 时钟偏差导致 createdAt 晚于 now 时按 0 小时计算。
func HotScore(voteCount int, createdAt, now time.Time) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}
	decay := math.Pow(hours+DefaultConfig.BaseHours, DefaultConfig.Gravity)
	return float64(voteCount) / decay
}

// RankItem 排序需要的最小信息
type RankItem struct {
	ID        uint
	VoteCount int
	CreatedAt time.Time
}

// Order 按排序方式返回新切片，不修改入参。
//   - hot：热度降序
//   - new：发布时间降序
//   - top：票数降序
//
// hot/top 同分时新帖在前，仍相同则按 ID 降序保证结果稳定。
func Order(items []RankItem, mode SortMode, now time.Time) []RankItem {
	out := make([]RankItem, len(items))
	copy(out, items)

	newer := func(a, b RankItem) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	}

	switch mode {
	case SortNew:
		sort.SliceStable(out, func(i, j int) bool { return newer(out[i], out[j]) })
	case SortTop:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].VoteCount != out[j].VoteCount {
				return out[i].VoteCount > out[j].VoteCount
			}
			return newer(out[i], out[j])
		})
	default:
		scores := make([]float64, len(out))
		for i, it := range out {
			scores[i] = HotScore(it.VoteCount, it.CreatedAt, now)
		}
		// 分数按原始下标缓存，排序时跟随元素移动
		idx := make([]int, len(out))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool {
			a, b := out[idx[i]], out[idx[j]]
			sa, sb := scores[idx[i]], scores[idx[j]]
			if sa != sb {
				return sa > sb
			}
			return newer(a, b)
		})
		sorted := make([]RankItem, len(out))
		for i, k := range idx {
			sorted[i] = out[k]
		}
		out = sorted
	}
	return out
}
