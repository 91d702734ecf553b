package handlers

import (
	"net/http"

	"forumcore/internal/middleware"
	"forumcore/internal/services"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Report POST /{posts|comments}/:id/report
func (h *ReportHandler) Report(kind services.TargetKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req struct {
			Reason  string `json:"reason" binding:"required"`
			Details string `json:"details"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		report, err := h.reports.Create(c.Request.Context(), services.ReportInput{
			ReporterID: middleware.ViewerID(c),
			TargetType: kind,
			TargetID:   id,
			Reason:     req.Reason,
			Details:    req.Details,
		})
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, report)
	}
}

// Pending GET /reports 待处理举报
func (h *ReportHandler) Pending(c *gin.Context) {
	offset, limit, ok := page(c)
	if !ok {
		return
	}
	reports, err := h.reports.Pending(c.Request.Context(), offset, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": reports, "total": len(reports)})
}

func (h *ReportHandler) Count(c *gin.Context) {
	n, err := h.reports.CountPending(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": n})
}

// ForItem GET /{posts|comments}/:id/reports 某条内容收到的全部举报
func (h *ReportHandler) ForItem(kind services.TargetKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		reports, err := h.reports.ForItem(c.Request.Context(), kind, id)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": reports, "total": len(reports)})
	}
}

// Resolve PATCH /reports/:id {"status": "resolved|dismissed", "moderator_note": "..."}
func (h *ReportHandler) Resolve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Status        string `json:"status" binding:"required"`
		ModeratorNote string `json:"moderator_note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	report, err := h.reports.Resolve(c.Request.Context(), id, middleware.CurrentUser(c), req.Status, req.ModeratorNote)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
