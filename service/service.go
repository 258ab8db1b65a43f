package service

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/metazen11/ajaxCRUD/model"
)

// Service holds the database handle and process-wide configuration. All
// HTTP handlers are methods on it; per-request grid state lives in Grid
// values built fresh for every call.
type Service struct {
	DB     *gorm.DB
	Config *model.GridConfig

	cacheMu   sync.Mutex
	gridCache map[string]model.CachedGridDefinition
}

func NewService(db *gorm.DB, cfg *model.GridConfig) *Service {
	if cfg == nil {
		cfg = &model.GridConfig{}
	}

	if cfg.ConfigDir == "" {
		cfg.ConfigDir = "config/grids"
	}

	if cfg.HeadersTag == "" {
		cfg.HeadersTag = "h2"
	}

	if cfg.PageSize == 0 {
		cfg.PageSize = 50
	}

	if cfg.TextThreshold == 0 {
		cfg.TextThreshold = 50
	}

	if cfg.EmptyTableMessage == "" {
		cfg.EmptyTableMessage = "No data in this table. Click add button below."
	}

	if cfg.BreadcrumbsRootName == "" {
		cfg.BreadcrumbsRootName = "Home"
	}

	if cfg.BreadcrumbsRootURL == "" {
		cfg.BreadcrumbsRootURL = "/"
	}

	if cfg.Authorizer == nil {
		cfg.Authorizer = PermitAll{}
	}

	if cfg.Scope == nil {
		cfg.Scope = NewScope()
	}

	if cfg.DebugSQL {
		db = db.Debug()
	}

	return &Service{
		DB:        db,
		Config:    cfg,
		gridCache: make(map[string]model.CachedGridDefinition),
	}
}

// logError records a non-fatal error that the request can survive.
func (s *Service) logError(err error) {
	if err != nil {
		log.Printf("ajaxcrud: %v", err)
	}
}

// SomethingWentWrong logs the detail and answers a generic failure; raw
// error text never reaches the client.
func (s *Service) SomethingWentWrong(ctx *gin.Context, logString string) {
	log.Println("ajaxcrud: " + logString + " url=" + ctx.Request.URL.String())
	ctx.String(http.StatusInternalServerError, "Something went wrong, see log for details.")
}
