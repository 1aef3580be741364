package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

const (
	// ContextUserIDKey is the key used to store the authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// SessionCookie carries the session JWT for browser clients.
	SessionCookie = "yatube_session"
	// LoginURL is where anonymous callers of protected pages are sent.
	LoginURL = "/auth/login/"
)

// CurrentUser resolves the session from the cookie or a Bearer header.
// Requests without a valid session, or whose user no longer exists, continue anonymously.
func CurrentUser(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := sessionToken(ctx)
		if token != "" && !utils.IsTokenBlacklisted(token) {
			if claims, err := utils.ParseToken(token); err == nil {
				var user models.User
				err := db.WithContext(ctx.Request.Context()).Select("id", "username").Take(&user, claims.UserID).Error
				switch {
				case err == nil:
					ctx.Set(ContextUserIDKey, user.ID)
					ctx.Set(ContextUsernameKey, user.Username)
				case errors.Is(err, gorm.ErrRecordNotFound):
					utils.Sugar.Debugw("session of a deleted user", "user_id", claims.UserID)
				default:
					utils.Sugar.Warnw("session user lookup failed", "user_id", claims.UserID, "err", err)
				}
			}
		}
		ctx.Next()
	}
}

// LoginRequired redirects anonymous callers to the login page, remembering where they were going.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := UserID(ctx); !ok {
			ctx.Redirect(http.StatusFound, LoginURL+"?next="+url.QueryEscape(ctx.Request.URL.RequestURI()))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// AdminRequired allows only users listed in AdminUsernames.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := UserID(ctx); !ok {
			ctx.Redirect(http.StatusFound, LoginURL+"?next="+url.QueryEscape(ctx.Request.URL.RequestURI()))
			ctx.Abort()
			return
		}
		if !config.Get().IsAdmin(Username(ctx)) {
			utils.AbortError(ctx, http.StatusForbidden, 40300, "admin only")
			return
		}
		ctx.Next()
	}
}

// UserID returns the authenticated user's id.
func UserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// Username returns the authenticated user's name, or "".
func Username(ctx *gin.Context) string {
	return ctx.GetString(ContextUsernameKey)
}

// IsAuthenticated reports whether the request carries a valid session.
func IsAuthenticated(ctx *gin.Context) bool {
	_, ok := UserID(ctx)
	return ok
}

// SessionToken returns the raw session token of the request, if any.
func SessionToken(ctx *gin.Context) string {
	return sessionToken(ctx)
}

func sessionToken(ctx *gin.Context) string {
	if h := ctx.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := ctx.Cookie(SessionCookie); err == nil {
		return c
	}
	return ""
}
