package handlers

import (
	"errors"
	"net/http"

	"forumcore/internal/middleware"
	"forumcore/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler 最小登录接口：校验密码后写 session 并签发 token。
// 注册、找回密码等账号流程不在这里。
type AuthHandler struct {
	db     *gorm.DB
	tokens *middleware.Tokens
}

func NewAuthHandler(db *gorm.DB, tokens *middleware.Tokens) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var user models.User
	err := h.db.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respond(c, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}
	if err != nil {
		RespondError(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respond(c, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	// 检查用户是否被封禁
	if !user.IsActive {
		respond(c, http.StatusForbidden, "forbidden", "account disabled")
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		RespondError(c, err)
		return
	}

	token, err := h.tokens.Issue(&user)
	if err != nil {
		RespondError(c, err)
		return
	}
	zerolog.Ctx(c.Request.Context()).Info().Uint("user", user.ID).Msg("user logged in")
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
