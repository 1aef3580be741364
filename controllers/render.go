package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/services"
	"github.com/cppla/yatube/templates"
	"github.com/cppla/yatube/utils"
)

const htmlContentType = "text/html; charset=utf-8"

// Viewer is the requesting user as seen by templates.
type Viewer struct {
	ID            uint
	Username      string
	Authenticated bool
	IsAdmin       bool
}

// pages renders templates for every HTML controller.
type pages struct {
	views *templates.Renderer
}

func viewerOf(ctx *gin.Context) Viewer {
	id, ok := middleware.UserID(ctx)
	if !ok {
		return Viewer{}
	}
	name := middleware.Username(ctx)
	return Viewer{ID: id, Username: name, Authenticated: true, IsAdmin: config.Get().IsAdmin(name)}
}

func (p pages) renderBytes(ctx *gin.Context, page string, data gin.H) ([]byte, error) {
	if data == nil {
		data = gin.H{}
	}
	data["viewer"] = viewerOf(ctx)
	return p.views.Render(page, data)
}

func (p pages) render(ctx *gin.Context, status int, page string, data gin.H) {
	b, err := p.renderBytes(ctx, page, data)
	if err != nil {
		utils.Sugar.Errorw("render failed", "template", page, "err", err)
		ctx.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	ctx.Data(status, htmlContentType, b)
}

// ErrorPage renders the shared error page.
func (p pages) ErrorPage(ctx *gin.Context, status int, message string) {
	p.render(ctx, status, "error.html", gin.H{"status": status, "message": message})
}

// fail maps a service error onto a response.
func (p pages) fail(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		p.ErrorPage(ctx, http.StatusNotFound, "Page not found.")
	case errors.Is(err, services.ErrForbidden):
		p.ErrorPage(ctx, http.StatusForbidden, "You are not allowed to do this.")
	default:
		utils.Sugar.Errorw("request failed", "path", ctx.Request.URL.Path, "err", err)
		p.ErrorPage(ctx, http.StatusInternalServerError, "Something went wrong.")
	}
}

// NotFound is the NoRoute handler.
func (p pages) NotFound(ctx *gin.Context) {
	p.ErrorPage(ctx, http.StatusNotFound, "Page not found.")
}

func idParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// fieldErrors turns a validation error into a field -> message map for form templates.
func fieldErrors(err error) map[string]string {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return map[string]string{ve.Field: ve.Message}
	}
	return map[string]string{"__all__": err.Error()}
}
