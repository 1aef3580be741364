package routes

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
)

func TestSignupLoginLogout(t *testing.T) {
	a := newTestApp(t)

	rr := a.postForm("/auth/signup/", url.Values{
		"full_name": {"Leo Tolstoy"},
		"username":  {"leo"},
		"email":     {"leo@example.com"},
		"password":  {"war-and-peace"},
	}, nil)
	require.Equal(t, http.StatusFound, rr.Code, rr.Body.String())
	assert.NotNil(t, cookieNamed(rr, middleware.SessionCookie))
	assert.Equal(t, int64(1), a.count(&models.User{}))

	rr = a.postForm("/auth/signup/", url.Values{"username": {"leo"}, "password": {"another-one"}}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "already exists")

	rr = a.postForm("/auth/login/", url.Values{"username": {"leo"}, "password": {"wrong-pass"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Nil(t, cookieNamed(rr, middleware.SessionCookie))

	rr = a.postForm("/auth/login/", url.Values{"username": {"leo"}, "password": {"war-and-peace"}, "next": {"/follow/"}}, nil)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/follow/", rr.Header().Get("Location"))
	session := cookieNamed(rr, middleware.SessionCookie)
	require.NotNil(t, session)

	follow := httptest.NewRequest(http.MethodGet, "/follow/", nil)
	assert.Equal(t, http.StatusOK, a.serve(follow, nil, session).Code)

	rr = a.postForm("/auth/logout/", nil, nil, session)
	assert.Equal(t, http.StatusFound, rr.Code)

	follow = httptest.NewRequest(http.MethodGet, "/follow/", nil)
	assert.Equal(t, http.StatusFound, a.serve(follow, nil, session).Code, "token is revoked after logout")
}

func TestLoginIgnoresOffsiteNext(t *testing.T) {
	a := newTestApp(t)
	a.user("leo")

	rr := a.postForm("/auth/login/", url.Values{"username": {"leo"}, "password": {"s3cret-pass"}, "next": {"//evil.example.com/"}}, nil)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestGitHubSignIn(t *testing.T) {
	defer gock.Off()
	a := newTestApp(t, func(c *config.AppConfig) {
		c.GitHubClientID = "client-id"
		c.GitHubClientSecret = "client-secret"
		c.OAuthRedirectBase = "http://testserver"
	})

	rr := a.get("/auth/oauth/github/login/?next=/follow/", nil)
	require.Equal(t, http.StatusFound, rr.Code)
	location, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "github.com", location.Host)
	assert.Equal(t, "client-id", location.Query().Get("client_id"))
	assert.Equal(t, "http://testserver/auth/oauth/github/callback/", location.Query().Get("redirect_uri"))
	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	next := cookieNamed(rr, "yatube_oauth_next")
	require.NotNil(t, next)

	gock.New("https://github.com").
		Post("/login/oauth/access_token").
		Reply(http.StatusOK).
		JSON(map[string]string{"access_token": "gho_test", "token_type": "bearer", "scope": "read:user"})
	gock.New("https://api.github.com").
		Get("/user").
		Reply(http.StatusOK).
		JSON(map[string]interface{}{"id": 583231, "login": "octocat", "name": "The Octocat", "email": "octo@example.com"})

	req := httptest.NewRequest(http.MethodGet, "/auth/oauth/github/callback/?code=abc&state="+url.QueryEscape(state), nil)
	rr = a.serve(req, nil, next)
	require.Equal(t, http.StatusFound, rr.Code, rr.Body.String())
	assert.Equal(t, "/follow/", rr.Header().Get("Location"))
	assert.NotNil(t, cookieNamed(rr, middleware.SessionCookie))
	assert.True(t, gock.IsDone())

	var user models.User
	require.NoError(t, a.db.Where("provider = ? AND provider_id = ?", "github", "583231").First(&user).Error)
	assert.Equal(t, "octocat", user.Username)
	assert.Equal(t, "octo@example.com", user.Email)

	replay := httptest.NewRequest(http.MethodGet, "/auth/oauth/github/callback/?code=abc&state="+url.QueryEscape(state), nil)
	assert.Equal(t, http.StatusBadRequest, a.serve(replay, nil).Code, "state is single use")
}

func TestGitHubSignInDisabled(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, http.StatusNotFound, a.get("/auth/oauth/github/login/", nil).Code)
	assert.NotContains(t, a.get("/auth/login/", nil).Body.String(), "Sign in with GitHub")
}
