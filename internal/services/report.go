package services

import (
	"context"
	"errors"
	"fmt"
	"forumcore/internal/cache"
	"forumcore/internal/models"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	DefaultReportWindow = 24 * time.Hour
	maxReportDetails    = 500
)

var reportReasons = map[string]bool{
	models.ReportReasonSpam:           true,
	models.ReportReasonHarassment:     true,
	models.ReportReasonInappropriate:  true,
	models.ReportReasonMisinformation: true,
	models.ReportReasonOther:          true,
}

// ReportInput 一次举报请求
type ReportInput struct {
	ReporterID uint
	TargetType TargetKind
	TargetID   uint
	Reason     string
	Details    string
}

// ReportService 举报与审核。
//
// 去重分两级：先查缓存快速拒绝，再查数据库做权威判断。缓存完全不可用时
// 只会变慢，不会放过重复举报。两次检查之间不加锁，同一用户几乎同时提交的
// 两次举报可能都成功，这是可以接受的。
type ReportService struct {
	db     *gorm.DB
	cache  cache.Store // 可为 nil
	window time.Duration
	log    zerolog.Logger

	// Now 返回当前时间，测试中可替换
	Now func() time.Time
}

func NewReportService(db *gorm.DB, store cache.Store, window time.Duration, logger zerolog.Logger) *ReportService {
	if window <= 0 {
		window = DefaultReportWindow
	}
	return &ReportService{
		db:     db,
		cache:  store,
		window: window,
		log:    logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// DuplicateKey 去重缓存键
func DuplicateKey(reporterID uint, kind TargetKind, targetID uint) string {
	return fmt.Sprintf("report:dup:%d:%s:%d", reporterID, kind, targetID)
}

func validateReport(in ReportInput) error {
	if _, err := ParseTargetKind(string(in.TargetType)); err != nil {
		return err
	}
	if !reportReasons[in.Reason] {
		return invalid("unknown report reason %q", in.Reason)
	}
	if in.Reason == models.ReportReasonOther && in.Details == "" {
		return invalid("details are required when reason is %q", models.ReportReasonOther)
	}
	if utf8.RuneCountInString(in.Details) > maxReportDetails {
		return invalid("details must be at most %d characters", maxReportDetails)
	}
	return nil
}

// Create 校验并记录一次举报，窗口期内重复举报返回 ErrDuplicateReport
func (s *ReportService) Create(ctx context.Context, in ReportInput) (*models.Report, error) {
	if err := validateReport(in); err != nil {
		return nil, err
	}
	if err := targetExists(s.db.WithContext(ctx), targets[in.TargetType], in.TargetID); err != nil {
		return nil, err
	}

	key := DuplicateKey(in.ReporterID, in.TargetType, in.TargetID)

	// 1. 缓存快速路径，出错直接跳过
	if s.cache != nil {
		hit, err := s.cache.Exists(ctx, key)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("key", key).Msg("report cache probe failed, falling back to database")
		case hit:
			return nil, fmt.Errorf("%s %d already reported: %w", in.TargetType, in.TargetID, ErrDuplicateReport)
		}
	}

	// 2. 数据库权威检查，不能跳过
	now := s.Now()
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("reporter_id = ? AND target_type = ? AND target_id = ? AND created_at >= ?",
			in.ReporterID, string(in.TargetType), in.TargetID, now.Add(-s.window)).
		Count(&n).Error; err != nil {
		return nil, storeErr("check duplicate report", err)
	}
	if n > 0 {
		return nil, fmt.Errorf("%s %d reported recently: %w", in.TargetType, in.TargetID, ErrDuplicateReport)
	}

	// 3. 写入
	report := &models.Report{
		ReporterID: in.ReporterID,
		TargetType: string(in.TargetType),
		TargetID:   in.TargetID,
		Reason:     in.Reason,
		Status:     models.ReportStatusPending,
		CreatedAt:  now,
	}
	if in.Details != "" {
		details := in.Details
		report.Details = &details
	}
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return nil, storeErr("create report", err)
	}

	// 4. 尽力写缓存，失败不影响结果
	if s.cache != nil {
		if err := s.cache.SetEX(ctx, key, s.window); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("report cache set failed")
		}
	}

	s.log.Info().
		Uint("report", report.ID).
		Uint("reporter", in.ReporterID).
		Str("target_type", report.TargetType).
		Uint("target", in.TargetID).
		Str("reason", in.Reason).
		Msg("report created")
	return report, nil
}

// Resolve 版主处理举报。一条举报只能从 pending 转换一次。
func (s *ReportService) Resolve(ctx context.Context, reportID uint, resolver *models.User, status string, note string) (*models.Report, error) {
	if resolver == nil || !resolver.IsModerator() {
		return nil, forbidden("only moderators can resolve reports")
	}
	if status != models.ReportStatusResolved && status != models.ReportStatusDismissed {
		return nil, invalid("status must be %q or %q", models.ReportStatusResolved, models.ReportStatusDismissed)
	}

	db := s.db.WithContext(ctx)
	var report models.Report
	if err := db.First(&report, reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("report", reportID)
		}
		return nil, storeErr("load report", err)
	}
	if report.Status != models.ReportStatusPending {
		return nil, fmt.Errorf("report %d already %s: %w", reportID, report.Status, ErrConflict)
	}

	updates := map[string]interface{}{
		"status":      status,
		"resolved_by": resolver.ID,
		"resolved_at": s.Now(),
	}
	if note != "" {
		updates["moderator_note"] = note
	}
	// 条件更新：并发处理同一条举报时只有一个能成功
	res := db.Model(&models.Report{}).
		Where("id = ? AND status = ?", reportID, models.ReportStatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, storeErr("resolve report", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("report %d resolved concurrently: %w", reportID, ErrConflict)
	}

	if err := db.First(&report, reportID).Error; err != nil {
		return nil, storeErr("reload report", err)
	}
	s.log.Info().Uint("report", reportID).Uint("resolver", resolver.ID).Str("status", status).Msg("report resolved")
	return &report, nil
}

// Pending 待处理举报，最新的在前
func (s *ReportService) Pending(ctx context.Context, offset, limit int) ([]models.Report, error) {
	var reports []models.Report
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.ReportStatusPending).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&reports).Error; err != nil {
		return nil, storeErr("list pending reports", err)
	}
	return reports, nil
}

// ForItem 某条内容收到的全部举报
func (s *ReportService) ForItem(ctx context.Context, kind TargetKind, id uint) ([]models.Report, error) {
	var reports []models.Report
	if err := s.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", string(kind), id).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, storeErr("list item reports", err)
	}
	return reports, nil
}

// CountPending 待处理举报数量
func (s *ReportService) CountPending(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("status = ?", models.ReportStatusPending).
		Count(&n).Error; err != nil {
		return 0, storeErr("count pending reports", err)
	}
	return n, nil
}
