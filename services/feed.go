package services

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// PostPage is one page of a feed.
type PostPage struct {
	Posts []models.Post
	utils.Page
}

// ProfileView is an author's feed plus the viewer's relation to them.
type ProfileView struct {
	Author     models.User
	PostsCount int64
	Following  bool
	PostPage
}

// PostDetail is a post with its comments, oldest first.
type PostDetail struct {
	Post        models.Post
	Comments    []models.Comment
	AuthorPosts int64
}

// FeedService resolves which posts appear on each feed page.
type FeedService struct {
	db      *gorm.DB
	perPage int
}

// NewFeedService creates a FeedService paginating perPage posts per page.
func NewFeedService(db *gorm.DB, perPage int) *FeedService {
	if perPage <= 0 {
		perPage = utils.DefaultPerPage
	}
	return &FeedService{db: db, perPage: perPage}
}

// Index returns every post, newest first.
func (s *FeedService) Index(ctx context.Context, page int) (*PostPage, error) {
	return s.paginate(s.db.WithContext(ctx).Model(&models.Post{}), page)
}

// Group returns the posts of the group with slug.
func (s *FeedService) Group(ctx context.Context, slug string, page int) (*models.Group, *PostPage, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, nil, notFound(err, "group "+slug)
	}
	p, err := s.paginate(s.db.WithContext(ctx).Model(&models.Post{}).Where("group_id = ?", group.ID), page)
	if err != nil {
		return nil, nil, err
	}
	return &group, p, nil
}

// Profile returns the posts of username. viewerID is 0 for anonymous visitors.
func (s *FeedService) Profile(ctx context.Context, username string, viewerID uint, page int) (*ProfileView, error) {
	var author models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&author).Error; err != nil {
		return nil, notFound(err, "user "+username)
	}
	p, err := s.paginate(s.db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", author.ID), page)
	if err != nil {
		return nil, err
	}
	view := &ProfileView{Author: author, PostsCount: p.Total, PostPage: *p}
	if viewerID != 0 && viewerID != author.ID {
		following, err := isFollowing(ctx, s.db, viewerID, author.ID)
		if err != nil {
			return nil, err
		}
		view.Following = following
	}
	return view, nil
}

// FollowIndex returns the posts of every author userID follows.
func (s *FeedService) FollowIndex(ctx context.Context, userID uint, page int) (*PostPage, error) {
	followed := s.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", userID)
	return s.paginate(s.db.WithContext(ctx).Model(&models.Post{}).Where("author_id IN (?)", followed), page)
}

// PostDetail loads a post with its comments.
func (s *FeedService) PostDetail(ctx context.Context, id uint) (*PostDetail, error) {
	db := s.db.WithContext(ctx)
	var d PostDetail
	if err := db.Preload("Author").Preload("Group").First(&d.Post, id).Error; err != nil {
		return nil, notFound(err, "post")
	}
	if err := db.Preload("Author").Where("post_id = ?", id).
		Order("created_at ASC, id ASC").Find(&d.Comments).Error; err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	if err := db.Model(&models.Post{}).Where("author_id = ?", d.Post.AuthorID).Count(&d.AuthorPosts).Error; err != nil {
		return nil, errors.Wrap(err, "count author posts")
	}
	return &d, nil
}

func (s *FeedService) paginate(q *gorm.DB, number int) (*PostPage, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, errors.Wrap(err, "count posts")
	}
	page := utils.Paginate(total, s.perPage, number)
	out := &PostPage{Page: page}
	if err := q.Session(&gorm.Session{}).Preload("Author").Preload("Group").
		Order("posts.created_at DESC, posts.id DESC").
		Scopes(utils.PageScope(page)).
		Find(&out.Posts).Error; err != nil {
		return nil, errors.Wrap(err, "list posts")
	}
	return out, nil
}
