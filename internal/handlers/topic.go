package handlers

import (
	"net/http"

	"forumcore/internal/middleware"
	"forumcore/internal/services"

	"github.com/gin-gonic/gin"
)

type TopicHandler struct {
	topics *services.TopicService
}

func NewTopicHandler(topics *services.TopicService) *TopicHandler {
	return &TopicHandler{topics: topics}
}

// List 所有启用的话题及帖子数
func (h *TopicHandler) List(c *gin.Context) {
	topics, err := h.topics.List(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": topics})
}

func (h *TopicHandler) Get(c *gin.Context) {
	topic, err := h.topics.BySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, topic)
}

// Create POST /topics {"name", "slug", "description"}，仅管理员
func (h *TopicHandler) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Slug        string `json:"slug" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	topic, err := h.topics.Create(c.Request.Context(), middleware.CurrentUser(c), services.TopicInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, topic)
}
