package handlers

import (
	"net/http"

	"forumcore/internal/middleware"
	"forumcore/internal/services"
	"forumcore/internal/utils"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	feed  *services.FeedService
	posts *services.PostService
}

func NewPostHandler(feed *services.FeedService, posts *services.PostService) *PostHandler {
	return &PostHandler{feed: feed, posts: posts}
}

type postRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	TopicIDs []uint `json:"topic_ids" binding:"required"`
}

func (r postRequest) input() services.PostInput {
	return services.PostInput{Title: r.Title, Content: r.Content, TopicIDs: r.TopicIDs}
}

// List GET /posts?sort=hot|new|top&topic_id=&offset=&limit=
func (h *PostHandler) List(c *gin.Context) {
	sort, ok := utils.ParseSort(c.Query("sort"))
	if !ok {
		badRequest(c, "sort must be one of hot, new, top")
		return
	}
	offset, limit, ok := page(c)
	if !ok {
		return
	}
	var topicID uint
	if s := c.Query("topic_id"); s != "" {
		if topicID, ok = utils.ParseID(s); !ok {
			badRequest(c, "invalid topic_id")
			return
		}
	}

	result, err := h.feed.Feed(c.Request.Context(), services.FeedQuery{
		Sort:     sort,
		TopicID:  topicID,
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

// Search GET /posts/search?q=
func (h *PostHandler) Search(c *gin.Context) {
	offset, limit, ok := page(c)
	if !ok {
		return
	}
	result, err := h.feed.Search(c.Request.Context(), services.SearchQuery{
		Q:        c.Query("q"),
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

func (h *PostHandler) Detail(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.feed.Detail(c.Request.Context(), id, middleware.ViewerID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *PostHandler) Create(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	post, err := h.posts.Create(c.Request.Context(), middleware.ViewerID(c), req.input())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	post, err := h.posts.Update(c.Request.Context(), id, middleware.CurrentUser(c), req.input())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
