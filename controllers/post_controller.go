package controllers

import (
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/metrics"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/templates"
	"github.com/cppla/yatube/utils"
)

// PostController serves the feeds, post pages, comments and follow actions.
type PostController struct {
	pages
	feed     *services.FeedService
	posts    *services.PostService
	comments *services.CommentService
	follows  *services.FollowService
	groups   *services.GroupService
	stats    *services.StatsService
	cache    utils.PageCache
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, views *templates.Renderer, cache utils.PageCache, files utils.FileStorage) *PostController {
	return &PostController{
		pages:    pages{views: views},
		feed:     services.NewFeedService(db, config.Get().PostsPerPage),
		posts:    services.NewPostService(db, files),
		comments: services.NewCommentService(db),
		follows:  services.NewFollowService(db),
		groups:   services.NewGroupService(db),
		stats:    services.NewStatsService(db),
		cache:    cache,
	}
}

type postForm struct {
	Text  string `form:"text"`
	Group string `form:"group"`
}

// Index renders the latest posts. Anonymous renderings are cached per page number.
func (p *PostController) Index(ctx *gin.Context) {
	number := utils.ParsePageNumber(ctx.Query("page"))
	anonymous := !middleware.IsAuthenticated(ctx)
	key := utils.IndexPageKey(number)
	if anonymous {
		if b, ok := p.cache.Get(ctx.Request.Context(), key); ok {
			metrics.CacheHit()
			ctx.Data(http.StatusOK, htmlContentType, b)
			return
		}
		metrics.CacheMiss()
	}

	feed, err := p.feed.Index(ctx.Request.Context(), number)
	if err != nil {
		p.fail(ctx, err)
		return
	}
	if anonymous && feed.Number != number {
		// out of range numbers share the entry of the page they clamp to
		key = utils.IndexPageKey(feed.Number)
		if b, ok := p.cache.Get(ctx.Request.Context(), key); ok {
			ctx.Data(http.StatusOK, htmlContentType, b)
			return
		}
	}
	b, err := p.renderBytes(ctx, "index.html", gin.H{"feed": feed})
	if err != nil {
		p.fail(ctx, errors.Wrap(err, "render index"))
		return
	}
	if anonymous {
		p.cache.Set(ctx.Request.Context(), key, b)
	}
	ctx.Data(http.StatusOK, htmlContentType, b)
}

// GroupPosts renders the posts of one group.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	group, feed, err := p.feed.Group(ctx.Request.Context(), ctx.Param("slug"), utils.ParsePageNumber(ctx.Query("page")))
	if err != nil {
		p.fail(ctx, err)
		return
	}
	p.render(ctx, http.StatusOK, "group_list.html", gin.H{"group": group, "feed": feed})
}

// Profile renders an author's posts and the follow button.
func (p *PostController) Profile(ctx *gin.Context) {
	viewerID, _ := middleware.UserID(ctx)
	profile, err := p.feed.Profile(ctx.Request.Context(), ctx.Param("username"), viewerID, utils.ParsePageNumber(ctx.Query("page")))
	if err != nil {
		p.fail(ctx, err)
		return
	}
	p.render(ctx, http.StatusOK, "profile.html", gin.H{"profile": profile})
}

// PostDetail renders one post with its comments.
func (p *PostController) PostDetail(ctx *gin.Context) {
	id, ok := idParam(ctx, "post_id")
	if !ok {
		p.NotFound(ctx)
		return
	}
	detail, err := p.feed.PostDetail(ctx.Request.Context(), id)
	if err != nil {
		p.fail(ctx, err)
		return
	}
	viewerID, _ := middleware.UserID(ctx)
	p.render(ctx, http.StatusOK, "post_detail.html", gin.H{
		"post":         detail.Post,
		"comments":     detail.Comments,
		"author_posts": detail.AuthorPosts,
		"views":        p.stats.Views(ctx.Request.Context(), ctx.Request.URL.Path),
		"can_edit":     viewerID != 0 && viewerID == detail.Post.AuthorID,
	})
}

// FollowIndex renders posts by the authors the current user follows.
func (p *PostController) FollowIndex(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	feed, err := p.feed.FollowIndex(ctx.Request.Context(), userID, utils.ParsePageNumber(ctx.Query("page")))
	if err != nil {
		p.fail(ctx, err)
		return
	}
	p.render(ctx, http.StatusOK, "follow.html", gin.H{"feed": feed})
}

// NewPost renders the empty post form.
func (p *PostController) NewPost(ctx *gin.Context) {
	p.renderForm(ctx, http.StatusOK, postForm{}, nil, "/create/", false)
}

// CreatePost publishes a post and sends the author to their profile.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	form, in, closer, err := p.bindPost(ctx)
	if closer != nil {
		defer closer.Close()
	}
	if err == nil {
		_, err = p.posts.Create(ctx.Request.Context(), userID, in)
	}
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			p.renderForm(ctx, http.StatusBadRequest, form, fieldErrors(err), "/create/", false)
			return
		}
		p.fail(ctx, err)
		return
	}
	metrics.Writes.WithLabelValues("post").Inc()
	ctx.Redirect(http.StatusFound, "/profile/"+url.PathEscape(middleware.Username(ctx))+"/")
}

// EditPost renders the form filled with the post. Only the author may edit.
func (p *PostController) EditPost(ctx *gin.Context) {
	id, ok := idParam(ctx, "post_id")
	if !ok {
		p.NotFound(ctx)
		return
	}
	post, err := p.posts.Get(ctx.Request.Context(), id)
	if err != nil {
		p.fail(ctx, err)
		return
	}
	if userID, _ := middleware.UserID(ctx); userID != post.AuthorID {
		p.fail(ctx, services.ErrForbidden)
		return
	}
	form := postForm{Text: post.Text}
	if post.GroupID != nil {
		form.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	p.renderForm(ctx, http.StatusOK, form, nil, editURL(id), true)
}

// UpdatePost saves the edit form.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := idParam(ctx, "post_id")
	if !ok {
		p.NotFound(ctx)
		return
	}
	userID, _ := middleware.UserID(ctx)
	form, in, closer, err := p.bindPost(ctx)
	if closer != nil {
		defer closer.Close()
	}
	if err == nil {
		_, err = p.posts.Update(ctx.Request.Context(), id, userID, in)
	}
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			p.renderForm(ctx, http.StatusBadRequest, form, fieldErrors(err), editURL(id), true)
			return
		}
		p.fail(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, postURL(id))
}

// DeletePost removes the post with its comments.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := idParam(ctx, "post_id")
	if !ok {
		p.NotFound(ctx)
		return
	}
	userID, _ := middleware.UserID(ctx)
	if err := p.posts.Delete(ctx.Request.Context(), id, userID); err != nil {
		p.fail(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, "/profile/"+url.PathEscape(middleware.Username(ctx))+"/")
}

// AddComment attaches a comment and returns to the post. Empty comments are dropped.
func (p *PostController) AddComment(ctx *gin.Context) {
	id, ok := idParam(ctx, "post_id")
	if !ok {
		p.NotFound(ctx)
		return
	}
	userID, _ := middleware.UserID(ctx)
	_, err := p.comments.AddComment(ctx.Request.Context(), id, userID, ctx.PostForm("text"))
	switch {
	case err == nil:
		metrics.Writes.WithLabelValues("comment").Inc()
	case errors.Is(err, services.ErrValidation):
	default:
		p.fail(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, postURL(id))
}

// ProfileFollow subscribes the current user to the profile's author.
func (p *PostController) ProfileFollow(ctx *gin.Context) {
	username := ctx.Param("username")
	userID, _ := middleware.UserID(ctx)
	err := p.follows.Follow(ctx.Request.Context(), userID, username)
	switch {
	case err == nil:
		metrics.Writes.WithLabelValues("follow").Inc()
	case errors.Is(err, services.ErrSelfFollow):
	default:
		p.fail(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, profileURL(username))
}

// ProfileUnfollow removes the subscription, if any.
func (p *PostController) ProfileUnfollow(ctx *gin.Context) {
	username := ctx.Param("username")
	userID, _ := middleware.UserID(ctx)
	if err := p.follows.Unfollow(ctx.Request.Context(), userID, username); err != nil {
		p.fail(ctx, err)
		return
	}
	metrics.Writes.WithLabelValues("unfollow").Inc()
	ctx.Redirect(http.StatusFound, profileURL(username))
}

func (p *PostController) renderForm(ctx *gin.Context, status int, form postForm, errs map[string]string, action string, isEdit bool) {
	groups, err := p.groups.List(ctx.Request.Context())
	if err != nil {
		p.fail(ctx, err)
		return
	}
	p.render(ctx, status, "create_post.html", gin.H{
		"form":    form,
		"groups":  groups,
		"errors":  errs,
		"action":  action,
		"is_edit": isEdit,
	})
}

// bindPost reads the post form. The returned file, when non-nil, must be closed by the caller.
func (p *PostController) bindPost(ctx *gin.Context) (postForm, services.PostInput, multipart.File, error) {
	var form postForm
	if err := ctx.ShouldBind(&form); err != nil {
		return form, services.PostInput{}, nil, errors.Wrap(err, "bind post form")
	}
	in := services.PostInput{Text: form.Text}
	if g := strings.TrimSpace(form.Group); g != "" {
		id, err := strconv.ParseUint(g, 10, 64)
		if err != nil {
			return form, in, nil, &services.ValidationError{Field: "group", Message: "select a valid choice"}
		}
		gid := uint(id)
		in.GroupID = &gid
	}

	// a missing file or a urlencoded form both mean "no image"
	fh, err := ctx.FormFile("image")
	if err != nil {
		return form, in, nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return form, in, nil, errors.Wrap(err, "open upload")
	}
	in.Image = &services.ImageUpload{Name: fh.Filename, Body: f}
	return form, in, f, nil
}

func postURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func editURL(id uint) string {
	return postURL(id) + "edit/"
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}
