package service

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/metazen11/ajaxCRUD/model"
	"github.com/metazen11/ajaxCRUD/utils/sqlutils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlutils.ResetSchemaCache()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return db
}

// newContactsService builds a service over an in-memory contacts table with
// one seeded row (pkID=1) and a companies lookup table.
func newContactsService(t *testing.T, cfg *model.GridConfig) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)

	stmts := []string{
		`CREATE TABLE contacts (
			pkID INTEGER PRIMARY KEY AUTOINCREMENT,
			fldStatus TEXT,
			fldName TEXT,
			fldAge INTEGER,
			fldCompanyID INTEGER
		);`,
		`CREATE TABLE companies (
			pkID INTEGER PRIMARY KEY AUTOINCREMENT,
			fldName TEXT
		);`,
		`INSERT INTO companies (pkID, fldName) VALUES (1, 'Acme'), (2, 'Globex');`,
		`INSERT INTO contacts (pkID, fldStatus, fldName, fldAge, fldCompanyID)
			VALUES (1, 'new', 'Ada', 36, 1);`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}

	if cfg == nil {
		cfg = &model.GridConfig{}
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = t.TempDir()
	}
	svc := NewService(db, cfg)
	svc.RegisterGridDefinition(&model.GridDefinition{
		Table:            "contacts",
		SearchableFields: []string{"fldName", "fldStatus"},
	})
	return svc, db
}

func newEditRouter(svc *Service) *gin.Engine {
	r := gin.New()
	r.GET("/grid/:grid", func(c *gin.Context) { svc.RenderPage(c, c.Param("grid")) })
	r.POST("/grid/:grid", svc.HandleEdit)
	return r
}

func postForm(t *testing.T, r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getPage(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testContext(t *testing.T, rawURL string) *gin.Context {
	t.Helper()
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, rawURL, nil)
	return ctx
}
