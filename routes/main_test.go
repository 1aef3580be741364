package routes

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

type testApp struct {
	t      *testing.T
	ctx    context.Context
	db     *gorm.DB
	router *gin.Engine
	cache  *utils.MemoryPageCache
	files  *utils.LocalStorage
	now    time.Time
}

func newTestApp(t *testing.T, opts ...func(*config.AppConfig)) *testApp {
	t.Helper()
	dir := t.TempDir()
	cfg := config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		GinPath:            filepath.Join(dir, "gin.log"),
		LogLevel:           "silent",
		RateLimitPerMinute: 100000,
		MediaRoot:          filepath.Join(dir, "media"),
		MediaURL:           "/media/",
		AdminUsernames:     []string{"admin"},
		PostsPerPage:       10,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = config.Set(cfg)

	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: filepath.Join(dir, "yatube.sqlite3"),
		LogLevel:    "silent",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	a := &testApp{t: t, ctx: context.Background(), db: db, now: time.Now()}
	a.cache = utils.NewMemoryPageCache(20 * time.Second).WithClock(func() time.Time { return a.now })
	a.files = utils.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	a.router, err = SetupRouter(db, a.cache, a.files)
	require.NoError(t, err)
	return a
}

func (a *testApp) advance(d time.Duration) { a.now = a.now.Add(d) }

func (a *testApp) user(username string) *models.User {
	a.t.Helper()
	u, err := services.NewUserService(a.db, a.files).Register(a.ctx, services.SignupInput{Username: username, Password: "s3cret-pass"})
	require.NoError(a.t, err)
	return u
}

func (a *testApp) group(slug string) *models.Group {
	a.t.Helper()
	g, err := services.NewGroupService(a.db).Create(a.ctx, "Group "+slug, slug, "")
	require.NoError(a.t, err)
	return g
}

func (a *testApp) post(author *models.User, text string, group *models.Group) *models.Post {
	a.t.Helper()
	in := services.PostInput{Text: text}
	if group != nil {
		in.GroupID = &group.ID
	}
	p, err := services.NewPostService(a.db, a.files).Create(a.ctx, author.ID, in)
	require.NoError(a.t, err)
	return p
}

func (a *testApp) count(model interface{}) int64 {
	a.t.Helper()
	var n int64
	require.NoError(a.t, a.db.Model(model).Count(&n).Error)
	return n
}

func sessionFor(t *testing.T, u *models.User) *http.Cookie {
	t.Helper()
	token, err := utils.GenerateToken(u.ID, u.Username, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.SessionCookie, Value: token}
}

func (a *testApp) serve(req *http.Request, as *models.User, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	if as != nil {
		req.AddCookie(sessionFor(a.t, as))
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) get(target string, as *models.User) *httptest.ResponseRecorder {
	return a.serve(httptest.NewRequest(http.MethodGet, target, nil), as)
}

func (a *testApp) postForm(target string, form url.Values, as *models.User, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.serve(req, as, cookies...)
}

func (a *testApp) postMultipart(target string, fields map[string]string, image []byte, as *models.User) *httptest.ResponseRecorder {
	a.t.Helper()
	return a.postUpload(target, fields, "small.gif", image, as)
}

func (a *testApp) postUpload(target string, fields map[string]string, filename string, image []byte, as *models.User) *httptest.ResponseRecorder {
	a.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(a.t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(a.t, err)
		_, err = io.Copy(part, bytes.NewReader(image))
		require.NoError(a.t, err)
	}
	require.NoError(a.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.serve(req, as)
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
