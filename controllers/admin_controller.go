package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/utils"
)

// AdminController performs the maintenance operations reserved to admins.
type AdminController struct {
	groups *services.GroupService
	users  *services.UserService
	cache  utils.PageCache
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(db *gorm.DB, cache utils.PageCache, files utils.FileStorage) *AdminController {
	return &AdminController{
		groups: services.NewGroupService(db),
		users:  services.NewUserService(db, files),
		cache:  cache,
	}
}

// ListGroups returns every group.
func (a *AdminController) ListGroups(ctx *gin.Context) {
	groups, err := a.groups.List(ctx.Request.Context())
	if err != nil {
		utils.Sugar.Errorw("list groups failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to list groups")
		return
	}
	utils.Success(ctx, groups)
}

// CreateGroup adds a group from a form or JSON body.
func (a *AdminController) CreateGroup(ctx *gin.Context) {
	var req struct {
		Title       string `form:"title" json:"title"`
		Slug        string `form:"slug" json:"slug"`
		Description string `form:"description" json:"description"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	group, err := a.groups.Create(ctx.Request.Context(), req.Title, req.Slug, req.Description)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrDuplicateSlug):
		utils.Error(ctx, http.StatusConflict, 40901, err.Error())
		return
	case errors.Is(err, services.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
		return
	default:
		utils.Sugar.Errorw("create group failed", "slug", req.Slug, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create group")
		return
	}
	utils.Sugar.Infow("group created", "slug", group.Slug, "by", middleware.Username(ctx))
	utils.Respond(ctx, http.StatusCreated, 0, "success", group)
}

// DeleteGroup removes a group and leaves its posts ungrouped.
func (a *AdminController) DeleteGroup(ctx *gin.Context) {
	slug := ctx.Param("slug")
	if err := a.groups.Delete(ctx.Request.Context(), slug); err != nil {
		a.fail(ctx, err)
		return
	}
	utils.Sugar.Infow("group deleted", "slug", slug, "by", middleware.Username(ctx))
	utils.Success(ctx, gin.H{"deleted": slug})
}

// DeleteUser removes a user with their posts, comments and follows.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	username := ctx.Param("username")
	if err := a.users.Delete(ctx.Request.Context(), username); err != nil {
		a.fail(ctx, err)
		return
	}
	utils.Sugar.Infow("user deleted", "username", username, "by", middleware.Username(ctx))
	utils.Success(ctx, gin.H{"deleted": username})
}

// ClearCache drops every cached page.
func (a *AdminController) ClearCache(ctx *gin.Context) {
	if err := a.cache.Clear(ctx.Request.Context()); err != nil {
		a.fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"cleared": true})
}

func (a *AdminController) fail(ctx *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40400, err.Error())
		return
	}
	utils.Sugar.Errorw("admin request failed", "path", ctx.Request.URL.Path, "err", err)
	utils.Error(ctx, http.StatusInternalServerError, 50000, "internal error")
}
