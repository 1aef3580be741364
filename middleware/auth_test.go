package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

type users map[string]*models.User

func newEngine(t *testing.T) (*gin.Engine, users) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "test-secret", AdminUsernames: []string{"admin"}})
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: filepath.Join(t.TempDir(), "auth.sqlite3"),
		LogLevel:    "silent",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, &models.User{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	known := users{}
	for _, name := range []string{"admin", "leo", "mia", "sam"} {
		u := &models.User{Username: name}
		require.NoError(t, db.Create(u).Error)
		known[name] = u
	}

	r := gin.New()
	r.Use(CurrentUser(db))
	r.GET("/whoami", func(ctx *gin.Context) {
		id, _ := UserID(ctx)
		ctx.JSON(http.StatusOK, gin.H{"id": id, "username": Username(ctx), "auth": IsAuthenticated(ctx)})
	})
	r.GET("/private/", LoginRequired(), func(ctx *gin.Context) { ctx.String(http.StatusOK, "secret") })
	r.GET("/admin/", AdminRequired(), func(ctx *gin.Context) { ctx.String(http.StatusOK, "admin area") })
	return r, known
}

func token(t *testing.T, id uint, name string) string {
	t.Helper()
	tok, err := utils.GenerateToken(id, name, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestCurrentUser(t *testing.T) {
	r, u := newEngine(t)
	leo, mia, sam := u["leo"], u["mia"], u["sam"]

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.JSONEq(t, `{"id":0,"username":"","auth":false}`, rr.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token(t, leo.ID, "leo")})
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"username":"leo","auth":true}`, leo.ID), rr.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, mia.ID, "mia"))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"username":"mia","auth":true}`, mia.ID), rr.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token(t, 9999, "ghost")})
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.JSONEq(t, `{"id":0,"username":"","auth":false}`, rr.Body.String(), "a session whose user is gone is anonymous")

	revoked := token(t, sam.ID, "sam")
	utils.BlacklistToken(revoked, time.Now().Add(time.Hour))
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: revoked})
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.JSONEq(t, `{"id":0,"username":"","auth":false}`, rr.Body.String())
}

func TestLoginRequired(t *testing.T) {
	r, u := newEngine(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/private/?page=2", nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, LoginURL+"?next=%2Fprivate%2F%3Fpage%3D2", rr.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/private/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token(t, u["leo"].ID, "leo")})
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "secret", rr.Body.String())
}

func TestAdminRequired(t *testing.T) {
	r, u := newEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token(t, u["leo"].ID, "leo")})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token(t, u["admin"].ID, "admin")})
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimiterCountsOnlyWrites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(2).Middleware())
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	r.POST("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	r.POST("/api/v1/x", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	do := func(method, path string) int {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
		return rr.Code
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(http.MethodGet, "/"))
	}
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost, "/"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost, "/api/v1/x"))
}
