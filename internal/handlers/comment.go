package handlers

import (
	"net/http"

	"forumcore/internal/middleware"
	"forumcore/internal/services"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	feed     *services.FeedService
	comments *services.CommentService
}

func NewCommentHandler(feed *services.FeedService, comments *services.CommentService) *CommentHandler {
	return &CommentHandler{feed: feed, comments: comments}
}

// List GET /posts/:id/comments?sort=new|old|best
func (h *CommentHandler) List(c *gin.Context) {
	postID, ok := pathID(c)
	if !ok {
		return
	}
	offset, limit, ok := page(c)
	if !ok {
		return
	}
	result, err := h.feed.Comments(c.Request.Context(), postID, services.CommentQuery{
		Sort:     c.Query("sort"),
		Offset:   offset,
		Limit:    limit,
		ViewerID: middleware.ViewerID(c),
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CommentHandler) Create(c *gin.Context) {
	postID, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Content  string `json:"content" binding:"required"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), postID, middleware.ViewerID(c), services.CommentInput{
		Content:  req.Content,
		ParentID: req.ParentID,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
