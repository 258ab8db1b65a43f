package ajaxcrud

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/metazen11/ajaxCRUD/controller"
	"github.com/metazen11/ajaxCRUD/model"
	"github.com/metazen11/ajaxCRUD/service"
)

// DefaultPathPrefix is where New mounts the grid routes.
const DefaultPathPrefix = "/ajaxcrud"

// New wires the grid service into the gin engine under DefaultPathPrefix
// and returns it for further setup (registering in-code definitions,
// scope rules and the like). cfg may be nil for all defaults.
func New(r *gin.Engine, db *gorm.DB, cfg *model.GridConfig) *service.Service {
	svc := service.NewService(db, cfg)
	controller.New(svc).RegisterRoutes(r, DefaultPathPrefix)
	return svc
}

// Mount is New with a caller-chosen route prefix and router group.
func Mount(r gin.IRouter, prefix string, db *gorm.DB, cfg *model.GridConfig) *service.Service {
	svc := service.NewService(db, cfg)
	controller.New(svc).RegisterRoutes(r, prefix)
	return svc
}
