package handlers

import (
	"context"
	"errors"
	"net/http"

	"forumcore/internal/services"
	"forumcore/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// errorBody 统一错误响应 {"error": {"kind": ..., "message": ...}}
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func respond(c *gin.Context, code int, kind, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": errorBody{Kind: kind, Message: message}})
}

// RespondError 把业务错误映射为 HTTP 状态码
func RespondError(c *gin.Context, err error) {
	logger := zerolog.Ctx(c.Request.Context())
	_ = c.Error(err)

	switch {
	case errors.Is(err, services.ErrNotFound):
		respond(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrDuplicateReport):
		respond(c, http.StatusConflict, "duplicate_report", "you have already reported this content recently")
	case errors.Is(err, services.ErrValidation):
		respond(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, services.ErrForbidden):
		respond(c, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, services.ErrConflict):
		respond(c, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, services.ErrStore), errors.Is(err, context.DeadlineExceeded):
		logger.Error().Err(err).Msg("store unavailable")
		respond(c, http.StatusServiceUnavailable, "store_unavailable", "service temporarily unavailable")
	default:
		logger.Error().Err(err).Msg("unhandled error")
		respond(c, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func badRequest(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, "validation_error", message)
}

// pathID 解析 :id，非法时直接写 400
func pathID(c *gin.Context) (uint, bool) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		badRequest(c, "invalid id")
	}
	return id, ok
}

// page 解析 offset/limit，limit 取值 1-100，默认 20
func page(c *gin.Context) (offset, limit int, ok bool) {
	offset = utils.StringToInt(c.Query("offset"), 0)
	limit = utils.StringToInt(c.Query("limit"), services.DefaultPageSize)
	if offset < 0 {
		badRequest(c, "offset must be >= 0")
		return 0, 0, false
	}
	if limit < 1 || limit > services.MaxPageSize {
		badRequest(c, "limit must be between 1 and 100")
		return 0, 0, false
	}
	return offset, limit, true
}
