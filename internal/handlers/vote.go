package handlers

import (
	"net/http"

	"forumcore/internal/middleware"
	"forumcore/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes *services.VoteService
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// Vote POST /{posts|comments}/:id/vote {"vote": 1|-1|0}
// 同方向重复投票等于撤销，0 表示撤销
func (h *VoteHandler) Vote(kind services.TargetKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req struct {
			Vote *int `json:"vote" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "vote must be -1, 0 or 1")
			return
		}

		result, err := h.votes.Apply(c.Request.Context(), middleware.ViewerID(c), kind, id, *req.Vote)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
