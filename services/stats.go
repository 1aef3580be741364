package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
)

// SiteStats are aggregate counters for the stats endpoint.
type SiteStats struct {
	Users      int64 `json:"user_count"`
	Posts      int64 `json:"post_count"`
	Groups     int64 `json:"group_count"`
	Comments   int64 `json:"comment_count"`
	Follows    int64 `json:"follow_count"`
	TodayViews int64 `json:"today_view_count"`
}

// StatsService reads counters. Failed counts degrade to zero instead of failing the page.
type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// Site returns the aggregate counters.
func (s *StatsService) Site(ctx context.Context) SiteStats {
	db := s.db.WithContext(ctx)
	var st SiteStats
	count := func(model interface{}, dst *int64) {
		if err := db.Model(model).Count(dst).Error; err != nil {
			*dst = 0
		}
	}
	count(&models.User{}, &st.Users)
	count(&models.Post{}, &st.Posts)
	count(&models.Group{}, &st.Groups)
	count(&models.Comment{}, &st.Comments)
	count(&models.Follow{}, &st.Follows)
	if err := db.Model(&models.PageView{}).
		Where("day = ?", Today()).
		Select("COALESCE(SUM(count),0)").
		Scan(&st.TodayViews).Error; err != nil {
		st.TodayViews = 0
	}
	return st
}

// Views returns the recorded views of path across all days.
func (s *StatsService) Views(ctx context.Context, path string) int64 {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.PageView{}).
		Where("path = ?", path).
		Select("COALESCE(SUM(count),0)").
		Scan(&n).Error; err != nil {
		return 0
	}
	return n
}

// Today is the local calendar day key used by PageView rows.
func Today() string {
	return time.Now().In(time.Local).Format("2006-01-02")
}
