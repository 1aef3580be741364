package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/models"
)

func TestAdminRoutes(t *testing.T) {
	a := newTestApp(t)
	admin := a.user("admin")
	leo := a.user("leo")

	assert.Equal(t, http.StatusForbidden, a.postForm("/admin/groups/", url.Values{"title": {"Cats"}, "slug": {"cats"}}, leo).Code)
	assert.Equal(t, http.StatusFound, a.postForm("/admin/groups/", url.Values{"title": {"Cats"}, "slug": {"cats"}}, nil).Code)

	rr := a.postForm("/admin/groups/", url.Values{"title": {"Cats"}, "slug": {"cats"}}, admin)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, http.StatusConflict, a.postForm("/admin/groups/", url.Values{"title": {"More cats"}, "slug": {"cats"}}, admin).Code)
	assert.Equal(t, http.StatusBadRequest, a.postForm("/admin/groups/", url.Values{"title": {"Bad"}, "slug": {"bad slug"}}, admin).Code)

	var cats models.Group
	require.NoError(t, a.db.Where("slug = ?", "cats").First(&cats).Error)
	post := a.post(leo, "grouped", &cats)

	require.Equal(t, http.StatusOK, a.postForm("/admin/groups/cats/delete/", nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, a.postForm("/admin/groups/cats/delete/", nil, admin).Code)
	var stored models.Post
	require.NoError(t, a.db.First(&stored, post.ID).Error)
	assert.Nil(t, stored.GroupID)

	require.Equal(t, http.StatusOK, a.postForm("/admin/users/leo/delete/", nil, admin).Code)
	assert.Zero(t, a.count(&models.Post{}))
	assert.Equal(t, http.StatusNotFound, a.get("/profile/leo/", nil).Code)
}

func TestAdminClearsPageCache(t *testing.T) {
	a := newTestApp(t)
	admin := a.user("admin")
	leo := a.user("leo")

	a.get("/", nil)
	a.post(leo, "fresh news", nil)
	assert.NotContains(t, a.get("/", nil).Body.String(), "fresh news")

	require.Equal(t, http.StatusOK, a.postForm("/admin/cache/clear/", nil, admin).Code)
	assert.Contains(t, a.get("/", nil).Body.String(), "fresh news")
}

func TestStatsAPI(t *testing.T) {
	a := newTestApp(t)
	leo := a.user("leo")
	post := a.post(leo, "viewed", nil)
	detail := fmt.Sprintf("/posts/%d/", post.ID)
	a.get(detail, nil)
	a.get(detail, nil)

	var site struct {
		Code int `json:"code"`
		Data struct {
			Users int64 `json:"user_count"`
			Posts int64 `json:"post_count"`
			Views int64 `json:"today_view_count"`
		} `json:"data"`
	}
	rr := a.get("/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &site))
	assert.Equal(t, 0, site.Code)
	assert.Equal(t, int64(1), site.Data.Users)
	assert.Equal(t, int64(1), site.Data.Posts)
	assert.Equal(t, int64(2), site.Data.Views)

	var postStats struct {
		Data struct {
			Views    int64 `json:"views"`
			Comments int64 `json:"comments_count"`
		} `json:"data"`
	}
	rr = a.get(fmt.Sprintf("/api/v1/posts/%d/stats", post.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &postStats))
	assert.Equal(t, int64(2), postStats.Data.Views)

	assert.Contains(t, a.get(detail, nil).Body.String(), "Views: 2")

	assert.Equal(t, http.StatusNotFound, a.get("/api/v1/nothing", nil).Code)
	assert.Equal(t, http.StatusOK, a.get("/health", nil).Code)
	assert.Contains(t, a.get("/metrics", nil).Body.String(), "yatube_http_requests_total")
}
