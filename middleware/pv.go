package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// PageViewRecorder counts successful page GETs per day and path.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet {
			return
		}
		if status := c.Writer.Status(); status < 200 || status >= 300 {
			return
		}
		path := c.Request.URL.Path
		if !isPagePath(path) {
			return
		}

		// Atomic upsert so concurrent first views of a path don't collide on the unique index
		err := db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.PageView{Day: services.Today(), Path: path, Count: 1}).Error
		if err != nil {
			utils.Sugar.Debugw("page view not recorded", "path", path, "err", err)
		}
	}
}

func isPagePath(path string) bool {
	for _, prefix := range []string{"/api/", "/static/", "/media/", "/metrics", "/health", "/admin/", "/auth/"} {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}
