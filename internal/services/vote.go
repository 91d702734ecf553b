package services

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteResult 投票后的最新计数和当前用户的投票状态，UserVote 为 nil 表示未投票
type VoteResult struct {
	VoteCount int  `json:"vote_count"`
	UserVote  *int `json:"user_vote"`
}

// VoteService 帖子和评论共用的投票状态机。
//
// 每次投票后都对投票表做一次完整 SUM 并回写 vote_count，而不是 +1/-1，
// 这样任何一次漏写或手工改数据造成的偏差都会在下一次投票时被修正。
// 代价是每次写入都要读一遍该内容的全部投票，热门内容票数很多时需要改成增量维护。
type VoteService struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewVoteService(db *gorm.DB, logger zerolog.Logger) *VoteService {
	return &VoteService{db: db, log: logger}
}

// Apply 处理一次投票请求。polarity 取 1、-1 或 0：
//   - 0：撤销投票（没投过则什么都不做）
//   - 与已有投票相同：撤销（toggle off）
//   - 其他：新增或改票
//
// 投票行变更、重新计数、回写计数在同一个事务里完成。
func (s *VoteService) Apply(ctx context.Context, voterID uint, kind TargetKind, targetID uint, polarity int) (*VoteResult, error) {
	if polarity < -1 || polarity > 1 {
		return nil, invalid("vote must be -1, 0 or 1, got %d", polarity)
	}
	t, err := lookupTarget(kind)
	if err != nil {
		return nil, err
	}

	if err := s.ensureExists(ctx, t, targetID); err != nil {
		return nil, err
	}

	result := &VoteResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTarget(tx, t, targetID); err != nil {
			return err
		}

		var existing []int
		if err := tx.Table(t.voteTable).
			Where("user_id = ? AND "+t.fkColumn+" = ?", voterID, targetID).
			Pluck("polarity", &existing).Error; err != nil {
			return storeErr("read vote", err)
		}

		switch {
		case polarity == 0:
			if len(existing) > 0 {
				if err := removeVote(tx, t, voterID, targetID); err != nil {
					return err
				}
			}
		case len(existing) > 0 && existing[0] == polarity:
			if err := removeVote(tx, t, voterID, targetID); err != nil {
				return err
			}
		default:
			if err := upsertVote(tx, t, voterID, targetID, polarity); err != nil {
				return err
			}
			p := polarity
			result.UserVote = &p
		}

		count, err := recount(tx, t, targetID)
		if err != nil {
			return err
		}
		result.VoteCount = count
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Uint("voter", voterID).
		Str("kind", string(kind)).
		Uint("target", targetID).
		Int("requested", polarity).
		Int("vote_count", result.VoteCount).
		Msg("vote applied")
	return result, nil
}

// Recount 重新汇总单个内容的 vote_count，供对账任务使用
func (s *VoteService) Recount(ctx context.Context, kind TargetKind, targetID uint) (int, error) {
	t, err := lookupTarget(kind)
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTarget(tx, t, targetID); err != nil {
			return err
		}
		count, err = recount(tx, t, targetID)
		return err
	})
	return count, err
}

// UserVotes 一次查询取出 userID 在 ids 上的投票，未投票的 id 不在结果里
func (s *VoteService) UserVotes(ctx context.Context, kind TargetKind, userID uint, ids []uint) (map[uint]int, error) {
	votes := make(map[uint]int)
	if userID == 0 || len(ids) == 0 {
		return votes, nil
	}
	t, err := lookupTarget(kind)
	if err != nil {
		return nil, err
	}

	type row struct {
		TargetID uint
		Polarity int
	}
	var rows []row
	if err := s.db.WithContext(ctx).Table(t.voteTable).
		Select(t.fkColumn+" AS target_id, polarity").
		Where("user_id = ? AND "+t.fkColumn+" IN ?", userID, ids).
		Scan(&rows).Error; err != nil {
		return nil, storeErr("read user votes", err)
	}

	for _, r := range rows {
		votes[r.TargetID] = r.Polarity
	}
	return votes, nil
}

func (s *VoteService) ensureExists(ctx context.Context, t target, id uint) error {
	return targetExists(s.db.WithContext(ctx), t, id)
}

// targetExists 软删除的内容视为不存在
func targetExists(db *gorm.DB, t target, id uint) error {
	var n int64
	if err := db.Model(t.newEntity()).
		Where("id = ? AND is_deleted = ?", id, false).
		Count(&n).Error; err != nil {
		return storeErr("check "+string(t.kind), err)
	}
	if n == 0 {
		return notFound(string(t.kind), id)
	}
	return nil
}

// lockTarget 对目标行加行锁，同一内容上的并发投票在数据库层排队（SQLite 下为空操作）
func lockTarget(tx *gorm.DB, t target, id uint) error {
	var ids []uint
	if err := tx.Model(t.newEntity()).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND is_deleted = ?", id, false).
		Pluck("id", &ids).Error; err != nil {
		return storeErr("lock "+string(t.kind), err)
	}
	if len(ids) == 0 {
		return notFound(string(t.kind), id)
	}
	return nil
}

func removeVote(tx *gorm.DB, t target, voterID, targetID uint) error {
	if err := tx.Where("user_id = ? AND "+t.fkColumn+" = ?", voterID, targetID).
		Delete(t.newVote(0, 0, 0)).Error; err != nil {
		return storeErr("delete vote", err)
	}
	return nil
}

// upsertVote 依赖 (user_id, target) 唯一索引做原子的插入或更新，
// 同一用户的并发首次投票不会产生重复行
func upsertVote(tx *gorm.DB, t target, voterID, targetID uint, polarity int) error {
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: t.fkColumn}},
		DoUpdates: clause.AssignmentColumns([]string{"polarity", "updated_at"}),
	}).Create(t.newVote(voterID, targetID, polarity)).Error; err != nil {
		return storeErr("upsert vote", err)
	}
	return nil
}

func recount(tx *gorm.DB, t target, id uint) (int, error) {
	var total int64
	if err := tx.Table(t.voteTable).
		Select("COALESCE(SUM(polarity), 0)").
		Where(t.fkColumn+" = ?", id).
		Row().Scan(&total); err != nil {
		return 0, storeErr("sum votes", err)
	}

	if err := tx.Model(t.newEntity()).
		Where("id = ?", id).
		UpdateColumn("vote_count", total).Error; err != nil {
		return 0, storeErr("update vote_count", err)
	}
	return int(total), nil
}
