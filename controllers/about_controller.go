package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/templates"
)

// AboutController serves the static about pages.
type AboutController struct {
	pages
}

func NewAboutController(views *templates.Renderer) *AboutController {
	return &AboutController{pages: pages{views: views}}
}

func (a *AboutController) Author(ctx *gin.Context) {
	a.render(ctx, http.StatusOK, "about_author.html", nil)
}

func (a *AboutController) Tech(ctx *gin.Context) {
	a.render(ctx, http.StatusOK, "about_tech.html", nil)
}
