package middleware

import (
	"errors"
	"net/http"
	"strings"

	"forumcore/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const CheckUserKey = "user"

// SessionUserKey session 中保存用户 id 的键
const SessionUserKey = "user_id"

func abort(c *gin.Context, code int, kind, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": gin.H{"kind": kind, "message": message}})
}

// LoadUser 从 Bearer token 或 session 中识别当前用户并放入 context，
// 识别不到就按匿名继续。token 无效时直接返回 401。
func LoadUser(conn *gorm.DB, tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID uint

		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			claims, err := tokens.Parse(h[len("Bearer "):])
			if err != nil {
				abort(c, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}
			userID = claims.UserID
		} else if id, ok := sessions.Default(c).Get(SessionUserKey).(uint); ok {
			userID = id
		}

		if userID != 0 {
			var user models.User
			err := conn.WithContext(c.Request.Context()).
				Where("id = ? AND is_active = ?", userID, true).
				First(&user).Error
			if err == nil {
				c.Set(CheckUserKey, &user)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				zerolog.Ctx(c.Request.Context()).Warn().Err(err).Uint("user", userID).Msg("load user failed")
			}
		}
		c.Next()
	}
}

// CurrentUser 当前登录用户，匿名时返回 nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// ViewerID 当前用户 id，匿名为 0
func ViewerID(c *gin.Context) uint {
	if u := CurrentUser(c); u != nil {
		return u.ID
	}
	return 0
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		c.Next()
	}
}

// ModeratorRequired 版主或管理员
func ModeratorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		if !u.IsModerator() {
			abort(c, http.StatusForbidden, "forbidden", "moderator role required")
			return
		}
		c.Next()
	}
}

// AdminRequired 仅管理员
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		if u.Role != models.RoleAdmin {
			abort(c, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		c.Next()
	}
}
