package services

import (
	"context"
	"errors"
	"forumcore/internal/models"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	reconcileQueueSize = 1000
	reconcileBatchSize = 50
	reconcileFlush     = 500 * time.Millisecond
	sweepRecentWindow  = 7 * 24 * time.Hour
	sweepTopN          = 30
)

// ReconcileTarget 需要重新汇总计数的内容
type ReconcileTarget struct {
	Kind TargetKind `json:"kind"`
	ID   uint       `json:"id"`
}

// Reconciler 后台对账：异步重算 vote_count，修正手工改库或中断写入造成的偏差。
// 投票本身已经在事务里重算过，这里只是兜底。
type Reconciler struct {
	db       *gorm.DB
	votes    *VoteService
	log      zerolog.Logger
	interval time.Duration

	queue   chan ReconcileTarget // 待重算队列
	pending map[ReconcileTarget]bool
	mu      sync.Mutex

	Now func() time.Time
}

func NewReconciler(db *gorm.DB, votes *VoteService, interval time.Duration, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		db:       db,
		votes:    votes,
		log:      logger,
		interval: interval,
		queue:    make(chan ReconcileTarget, reconcileQueueSize),
		pending:  make(map[ReconcileTarget]bool),
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Schedule 加入重算队列（非阻塞）。已在队列中的目标直接跳过，队列满时返回 false
func (r *Reconciler) Schedule(t ReconcileTarget) bool {
	r.mu.Lock()
	if r.pending[t] {
		r.mu.Unlock()
		return true
	}
	r.pending[t] = true
	r.mu.Unlock()

	select {
	case r.queue <- t:
		return true
	default:
		r.mu.Lock()
		delete(r.pending, t)
		r.mu.Unlock()
		r.log.Warn().Str("kind", string(t.Kind)).Uint("id", t.ID).Msg("reconcile queue full, dropping target")
		return false
	}
}

// Run 处理队列并按 interval 定期全量扫描，ctx 取消后返回
func (r *Reconciler) Run(ctx context.Context) {
	batch := make([]ReconcileTarget, 0, reconcileBatchSize)
	flush := time.NewTicker(reconcileFlush)
	defer flush.Stop()

	var sweep <-chan time.Time
	if r.interval > 0 {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		sweep = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.queue:
			batch = append(batch, t)
			// 攒够一批立即处理
			if len(batch) >= reconcileBatchSize {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-flush.C:
			if len(batch) > 0 {
				r.processBatch(ctx, batch)
				batch = batch[:0]
			}
		case <-sweep:
			if _, err := r.Sweep(ctx); err != nil {
				r.log.Error().Err(err).Msg("scheduled reconcile sweep failed")
			}
		}
	}
}

func (r *Reconciler) processBatch(ctx context.Context, batch []ReconcileTarget) {
	for _, t := range batch {
		r.recount(ctx, t)

		r.mu.Lock()
		delete(r.pending, t)
		r.mu.Unlock()
	}
}

func (r *Reconciler) recount(ctx context.Context, t ReconcileTarget) bool {
	count, err := r.votes.Recount(ctx, t.Kind, t.ID)
	if errors.Is(err, ErrNotFound) {
		// 已删除的内容不需要对账
		return false
	}
	if err != nil {
		r.log.Error().Err(err).Str("kind", string(t.Kind)).Uint("id", t.ID).Msg("recount failed")
		return false
	}
	r.log.Debug().Str("kind", string(t.Kind)).Uint("id", t.ID).Int("vote_count", count).Msg("recounted")
	return true
}

// Sweep 重算最近 7 天的帖子和票数最高的 30 篇帖子（边遍历边去重），返回重算数量
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	db := r.db.WithContext(ctx)
	processed := make(map[uint]bool)
	count := 0

	// 1. 最近 7 天
	var recent []uint
	if err := db.Model(&models.Post{}).
		Where("created_at >= ? AND is_deleted = ?", r.Now().Add(-sweepRecentWindow), false).
		Pluck("id", &recent).Error; err != nil {
		return 0, storeErr("list recent posts", err)
	}

	// 2. 票数最高的
	var top []uint
	if err := db.Model(&models.Post{}).
		Where("is_deleted = ?", false).
		Order("vote_count DESC").Limit(sweepTopN).
		Pluck("id", &top).Error; err != nil {
		return 0, storeErr("list top posts", err)
	}

	for _, id := range append(recent, top...) {
		if processed[id] {
			continue
		}
		processed[id] = true
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if r.recount(ctx, ReconcileTarget{Kind: TargetPost, ID: id}) {
			count++
		}
	}

	r.log.Info().Int("recounted", count).Msg("reconcile sweep finished")
	return count, nil
}
