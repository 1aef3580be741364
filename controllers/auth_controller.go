package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/templates"
	"github.com/cppla/yatube/utils"
)

const (
	oauthStateTTL   = 10 * time.Minute
	oauthNextCookie = "yatube_oauth_next"
)

// GitHub API endpoints, variables so tests can point them elsewhere.
var (
	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"
)

// AuthController handles sign-up, login/logout and GitHub sign-in.
type AuthController struct {
	pages
	users *services.UserService
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB, views *templates.Renderer, files utils.FileStorage) *AuthController {
	return &AuthController{pages: pages{views: views}, users: services.NewUserService(db, files)}
}

type signupForm struct {
	FullName string `form:"full_name"`
	Username string `form:"username"`
	Email    string `form:"email"`
	Password string `form:"password"`
}

// SignupPage renders the registration form.
func (a *AuthController) SignupPage(ctx *gin.Context) {
	a.render(ctx, http.StatusOK, "signup.html", gin.H{"form": signupForm{}})
}

// Signup creates the account, logs it in and goes to the index.
func (a *AuthController) Signup(ctx *gin.Context) {
	var form signupForm
	_ = ctx.ShouldBind(&form)
	user, err := a.users.Register(ctx.Request.Context(), services.SignupInput{
		FullName: form.FullName,
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrDuplicateUsername) {
			errs := fieldErrors(err)
			if errors.Is(err, services.ErrDuplicateUsername) {
				errs = map[string]string{"username": services.ErrDuplicateUsername.Error()}
			}
			form.Password = ""
			a.render(ctx, http.StatusBadRequest, "signup.html", gin.H{"form": form, "errors": errs})
			return
		}
		a.fail(ctx, err)
		return
	}
	if err := a.startSession(ctx, user.ID, user.Username); err != nil {
		a.fail(ctx, err)
		return
	}
	utils.Sugar.Infow("user registered", "username", user.Username)
	ctx.Redirect(http.StatusFound, "/")
}

// LoginPage renders the login form.
func (a *AuthController) LoginPage(ctx *gin.Context) {
	a.render(ctx, http.StatusOK, "login.html", gin.H{
		"next":   safeNext(ctx.Query("next")),
		"github": githubEnabled(),
	})
}

// Login verifies credentials and sets the session cookie.
func (a *AuthController) Login(ctx *gin.Context) {
	var form struct {
		Username string `form:"username"`
		Password string `form:"password"`
		Next     string `form:"next"`
	}
	_ = ctx.ShouldBind(&form)
	next := safeNext(form.Next)

	user, err := a.users.Authenticate(ctx.Request.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			a.render(ctx, http.StatusUnauthorized, "login.html", gin.H{
				"error":    "Please enter a correct username and password.",
				"next":     next,
				"username": form.Username,
				"github":   githubEnabled(),
			})
			return
		}
		a.fail(ctx, err)
		return
	}
	if err := a.startSession(ctx, user.ID, user.Username); err != nil {
		a.fail(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, next)
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token := middleware.SessionToken(ctx); token != "" {
		expiresAt := time.Now().Add(utils.SessionTTL)
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		utils.BlacklistToken(token, expiresAt)
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	ctx.Redirect(http.StatusFound, "/")
}

// GitHubLogin redirects to GitHub's consent page.
func (a *AuthController) GitHubLogin(ctx *gin.Context) {
	cfg, ok := githubConfig()
	if !ok {
		a.NotFound(ctx)
		return
	}
	state := utils.NewState(oauthStateTTL)
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(oauthNextCookie, safeNext(ctx.Query("next")), int(oauthStateTTL.Seconds()), "/", "", false, true)
	ctx.Redirect(http.StatusFound, cfg.AuthCodeURL(state))
}

// GitHubCallback exchanges the authorization code for a user identity and starts a session.
func (a *AuthController) GitHubCallback(ctx *gin.Context) {
	cfg, ok := githubConfig()
	if !ok {
		a.NotFound(ctx)
		return
	}
	code := ctx.Query("code")
	if code == "" || !utils.ConsumeState(ctx.Query("state")) {
		a.ErrorPage(ctx, http.StatusBadRequest, "Invalid or expired sign-in request.")
		return
	}

	token, err := cfg.Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Sugar.Warnw("github code exchange failed", "err", err)
		a.ErrorPage(ctx, http.StatusBadRequest, "GitHub sign-in failed.")
		return
	}
	info, err := fetchGitHubUser(ctx.Request.Context(), cfg.Client(ctx.Request.Context(), token))
	if err != nil {
		utils.Sugar.Warnw("github user lookup failed", "err", err)
		a.ErrorPage(ctx, http.StatusBadGateway, "GitHub sign-in failed.")
		return
	}
	user, err := a.users.UpsertOAuth(ctx.Request.Context(), "github", info.ID, info.Login, info.Name, info.Email)
	if err != nil {
		a.fail(ctx, err)
		return
	}
	if err := a.startSession(ctx, user.ID, user.Username); err != nil {
		a.fail(ctx, err)
		return
	}

	next := "/"
	if c, err := ctx.Cookie(oauthNextCookie); err == nil {
		next = safeNext(c)
	}
	ctx.SetCookie(oauthNextCookie, "", -1, "/", "", false, true)
	ctx.Redirect(http.StatusFound, next)
}

func (a *AuthController) startSession(ctx *gin.Context, userID uint, username string) error {
	token, err := utils.GenerateToken(userID, username, utils.SessionTTL)
	if err != nil {
		return errors.Wrap(err, "generate token")
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookie, token, int(utils.SessionTTL.Seconds()), "/", "", false, true)
	return nil
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func githubEnabled() bool {
	_, ok := githubConfig()
	return ok
}

func githubConfig() (*oauth2.Config, bool) {
	cfg := config.Get()
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		return nil, false
	}
	return &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  fmt.Sprintf("%s/auth/oauth/github/callback/", strings.TrimRight(cfg.OAuthRedirectBase, "/")),
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}, true
}

type githubUser struct {
	ID    string
	Login string
	Name  string
	Email string
}

func fetchGitHubUser(ctx context.Context, client *http.Client) (*githubUser, error) {
	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := getGitHubJSON(ctx, client, githubUserURL, &payload); err != nil {
		return nil, err
	}
	if payload.ID == 0 || payload.Login == "" {
		return nil, errors.New("github user payload missing id or login")
	}

	email := payload.Email
	if email == "" {
		// private addresses are only listed by the emails endpoint
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getGitHubJSON(ctx, client, githubEmailsURL, &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					email = e.Email
					break
				}
			}
		}
	}
	return &githubUser{
		ID:    fmt.Sprintf("%d", payload.ID),
		Login: payload.Login,
		Name:  payload.Name,
		Email: email,
	}, nil
}

func getGitHubJSON(ctx context.Context, client *http.Client, url string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "github request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("github request %s failed: %s", url, resp.Status)
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(dst), "decode github response")
}
