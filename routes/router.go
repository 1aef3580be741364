package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/controllers"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/templates"
	"github.com/cppla/yatube/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, cache utils.PageCache, files utils.FileStorage) (*gin.Engine, error) {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	views, err := templates.New(files.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}

	r := gin.New()
	// Access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, false))
	} else {
		utils.Sugar.Warnw("gin access log disabled", "path", cfg.GinPath, "err", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Metrics())
	r.Use(middleware.CurrentUser(db))
	// Record PV after each request
	r.Use(middleware.PageViewRecorder(db))
	r.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute).Middleware())

	if strings.HasPrefix(cfg.MediaURL, "/") {
		r.Static(strings.TrimRight(cfg.MediaURL, "/"), cfg.MediaRoot)
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	postController := controllers.NewPostController(db, views, cache, files)
	authController := controllers.NewAuthController(db, views, files)
	aboutController := controllers.NewAboutController(views)
	adminController := controllers.NewAdminController(db, cache, files)
	statsController := controllers.NewStatsController(db)

	r.GET("/", postController.Index)
	r.GET("/group/:slug/", postController.GroupPosts)
	r.GET("/profile/:username/", postController.Profile)
	r.GET("/posts/:post_id/", postController.PostDetail)

	r.GET("/about/author/", aboutController.Author)
	r.GET("/about/tech/", aboutController.Tech)

	auth := r.Group("/auth")
	auth.GET("/signup/", authController.SignupPage)
	auth.POST("/signup/", authController.Signup)
	auth.GET("/login/", authController.LoginPage)
	auth.POST("/login/", authController.Login)
	auth.GET("/logout/", authController.Logout)
	auth.POST("/logout/", authController.Logout)
	auth.GET("/oauth/github/login/", authController.GitHubLogin)
	auth.GET("/oauth/github/callback/", authController.GitHubCallback)

	protected := r.Group("")
	protected.Use(middleware.LoginRequired())
	protected.GET("/follow/", postController.FollowIndex)
	protected.GET("/create/", postController.NewPost)
	protected.POST("/create/", postController.CreatePost)
	protected.GET("/posts/:post_id/edit/", postController.EditPost)
	protected.POST("/posts/:post_id/edit/", postController.UpdatePost)
	protected.POST("/posts/:post_id/delete/", postController.DeletePost)
	protected.POST("/posts/:post_id/comment/", postController.AddComment)
	protected.POST("/profile/:username/follow/", postController.ProfileFollow)
	protected.POST("/profile/:username/unfollow/", postController.ProfileUnfollow)

	admin := r.Group("/admin")
	admin.Use(middleware.AdminRequired())
	admin.GET("/groups/", adminController.ListGroups)
	admin.POST("/groups/", adminController.CreateGroup)
	admin.POST("/groups/:slug/delete/", adminController.DeleteGroup)
	admin.POST("/users/:username/delete/", adminController.DeleteUser)
	admin.POST("/cache/clear/", adminController.ClearCache)

	api := r.Group("/api/v1")
	api.GET("/stats", statsController.GetStats)
	api.GET("/posts/:post_id/stats", statsController.GetPostStats)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		aboutController.NotFound(ctx)
	})

	return r, nil
}
