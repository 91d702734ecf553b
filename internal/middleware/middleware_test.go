package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"forumcore/internal/db/dbtest"
	"forumcore/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	s, err := tokens.Issue(&models.User{ID: 7, Role: models.RoleModerator})
	require.NoError(t, err)

	claims, err := tokens.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, models.RoleModerator, claims.Role)

	_, err = NewTokens("other", time.Hour).Parse(s)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	s, err := tokens.Issue(&models.User{ID: 7})
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = tokens.Parse(s)
	assert.Error(t, err)
}

func newAuthRouter(conn *gorm.DB, tokens *Tokens) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(zerolog.Nop()))
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("session-secret"))))
	r.Use(LoadUser(conn, tokens))

	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": ViewerID(c)})
	})
	r.GET("/private", AuthRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/mod", ModeratorRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/admin", AdminRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/login/:id", func(c *gin.Context) {
		var u models.User
		if err := conn.Where("username = ?", c.Param("id")).First(&u).Error; err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		s := sessions.Default(c)
		s.Set(SessionUserKey, u.ID)
		if err := s.Save(); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, bearer string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoleGates(t *testing.T) {
	conn := dbtest.Open(t)
	tokens := NewTokens("secret", time.Hour)
	r := newAuthRouter(conn, tokens)

	user := dbtest.CreateUser(t, conn, "user", models.RoleUser)
	mod := dbtest.CreateUser(t, conn, "mod", models.RoleModerator)
	admin := dbtest.CreateUser(t, conn, "admin", models.RoleAdmin)
	token := func(u *models.User) string {
		s, err := tokens.Issue(u)
		require.NoError(t, err)
		return s
	}

	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "").Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/private", token(user)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "garbage").Code)

	assert.Equal(t, http.StatusForbidden, do(r, "/mod", token(user)).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/mod", token(mod)).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/mod", token(admin)).Code)

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", token(mod)).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", token(admin)).Code)
}

func TestInactiveUserIsAnonymous(t *testing.T) {
	conn := dbtest.Open(t)
	tokens := NewTokens("secret", time.Hour)
	r := newAuthRouter(conn, tokens)

	u := dbtest.CreateUser(t, conn, "banned", models.RoleUser)
	require.NoError(t, conn.Model(u).UpdateColumn("is_active", false).Error)
	s, err := tokens.Issue(u)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", s).Code)
}

func TestSessionLogin(t *testing.T) {
	conn := dbtest.Open(t)
	r := newAuthRouter(conn, NewTokens("secret", time.Hour))
	u := dbtest.CreateUser(t, conn, "alice", models.RoleUser)

	login := do(r, "/login/alice", "")
	require.Equal(t, http.StatusNoContent, login.Code)
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)

	w := do(r, "/whoami", "", cookies...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":`+strconv.FormatUint(uint64(u.ID), 10)+`}`, w.Body.String())
}

func TestRequestID(t *testing.T) {
	conn := dbtest.Open(t)
	r := newAuthRouter(conn, NewTokens("secret", time.Hour))

	w := do(r, "/whoami", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get(RequestIDHeader))
}
