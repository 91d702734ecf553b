package models

import (
	"time"
)

const (
	ReportStatusPending   = "pending"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

const (
	ReportReasonSpam           = "spam"
	ReportReasonHarassment     = "harassment"
	ReportReasonInappropriate  = "inappropriate"
	ReportReasonMisinformation = "misinformation"
	ReportReasonOther          = "other"
)

// Report 举报记录。同一用户对同一内容 24 小时内只能举报一次，
// 这个约束由查询保证，表上没有唯一索引。
type Report struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ReporterID    uint       `gorm:"not null;index:idx_report_dup,priority:1" json:"reporter_id"`
	TargetType    string     `gorm:"size:20;not null;index:idx_report_dup,priority:2;index:idx_report_target,priority:1" json:"target_type"` // "post", "comment"
	TargetID      uint       `gorm:"not null;index:idx_report_dup,priority:3;index:idx_report_target,priority:2" json:"target_id"`
	Reason        string     `gorm:"size:50;not null" json:"reason"`
	Details       *string    `gorm:"type:text" json:"details"`
	Status        string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ResolvedBy    *uint      `gorm:"index" json:"resolved_by"`
	ModeratorNote *string    `gorm:"type:text" json:"moderator_note"`
	ResolvedAt    *time.Time `json:"resolved_at"`
	CreatedAt     time.Time  `gorm:"index:idx_report_dup,priority:4" json:"created_at"`
}
