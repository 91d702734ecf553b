package handlers

import (
	"context"
	"net/http"

	"forumcore/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db         *gorm.DB
	reconciler *services.Reconciler
	log        zerolog.Logger
}

func NewAdminHandler(db *gorm.DB, reconciler *services.Reconciler, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{db: db, reconciler: reconciler, log: logger}
}

// Reconcile POST /admin/reconcile
// 带 {"kind","id"} 时把单个目标加入重算队列，否则在后台跑一次全量扫描
func (h *AdminHandler) Reconcile(c *gin.Context) {
	var req struct {
		Kind string `json:"kind"`
		ID   uint   `json:"id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	if req.Kind == "" && req.ID == 0 {
		go func() {
			// 请求结束后继续执行，不能用 request context
			if _, err := h.reconciler.Sweep(context.Background()); err != nil {
				h.log.Error().Err(err).Msg("manual reconcile sweep failed")
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"sweep": true})
		return
	}

	kind, err := services.ParseTargetKind(req.Kind)
	if err != nil {
		RespondError(c, err)
		return
	}
	if req.ID == 0 {
		badRequest(c, "id is required")
		return
	}
	target := services.ReconcileTarget{Kind: kind, ID: req.ID}
	if !h.reconciler.Schedule(target) {
		respond(c, http.StatusServiceUnavailable, "store_unavailable", "reconcile queue is full")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"scheduled": target})
}

// Health GET /healthz
func (h *AdminHandler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		h.log.Warn().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
