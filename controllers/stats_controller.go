package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// StatsController exposes site counters as JSON.
type StatsController struct {
	stats    *services.StatsService
	comments *services.CommentService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{stats: services.NewStatsService(db), comments: services.NewCommentService(db)}
}

// GetStats returns aggregate statistics for the site.
func (s *StatsController) GetStats(ctx *gin.Context) {
	utils.Success(ctx, s.stats.Site(ctx.Request.Context()))
}

// GetPostStats returns page views and comment count of one post.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	id, ok := idParam(ctx, "post_id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40400, "post not found")
		return
	}
	comments, err := s.comments.Count(ctx.Request.Context(), id)
	if err != nil {
		comments = 0
	}
	utils.Success(ctx, gin.H{
		"views":          s.stats.Views(ctx.Request.Context(), postURL(id)),
		"comments_count": comments,
	})
}
