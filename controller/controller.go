package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/metazen11/ajaxCRUD/service"
)

// Controller binds the grid service to HTTP routes. One instance serves
// every configured grid; the grid name is the final path segment.
type Controller struct {
	Service *service.Service
}

func New(svc *service.Service) *Controller {
	return &Controller{Service: svc}
}

// RegisterRoutes mounts the grid page and its edit endpoint under prefix.
// GET renders the page (or the CSV export), POST carries the edit
// protocol for the same grid.
func (c *Controller) RegisterRoutes(r gin.IRouter, prefix string) {
	group := r.Group(prefix)
	group.GET("/:grid", c.GridPage)
	group.POST("/:grid", c.GridEdit)
}

func (c *Controller) GridPage(ctx *gin.Context) {
	c.Service.RenderPage(ctx, ctx.Param("grid"))
}

func (c *Controller) GridEdit(ctx *gin.Context) {
	c.Service.HandleEdit(ctx)
}
