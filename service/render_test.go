package service

import (
	"net/http"
	"strings"
	"testing"

	"github.com/metazen11/ajaxCRUD/model"
)

func TestRenderGrid_Basics(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	def, _ := svc.LoadGridDefinition("contacts")

	out, err := svc.RenderGrid(testContext(t, "/grid/contacts"), def)
	if err != nil {
		t.Fatalf("RenderGrid failed: %v", err)
	}

	for _, fragment := range []string{
		"<h2>contacts</h2>",
		"data-table='contacts'",
		"id='contactsfldStatus1_show'",
		"filter_fldName",
		"ajaxcrudDelete('contacts','1')",
		"Add record",
	} {
		if !strings.Contains(out, fragment) {
			t.Errorf("grid markup missing %q", fragment)
		}
	}
}

func TestRenderGrid_EmptyTableMessage(t *testing.T) {
	svc, db := newContactsService(t, nil)
	db.Exec("DELETE FROM contacts")
	def, _ := svc.LoadGridDefinition("contacts")

	out, err := svc.RenderGrid(testContext(t, "/grid/contacts"), def)
	if err != nil {
		t.Fatalf("RenderGrid failed: %v", err)
	}
	if !strings.Contains(out, svc.Config.EmptyTableMessage) {
		t.Error("empty table must render the configured message")
	}
	if strings.Contains(out, "<tbody>") {
		t.Error("empty table must not render a data table")
	}
}

func TestRenderGrid_SortToggle(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	svc.RegisterGridDefinition(&model.GridDefinition{
		Table:          "contacts",
		SortableFields: []string{"fldName"},
	})
	def, _ := svc.LoadGridDefinition("contacts")

	// fresh column: the header link starts a descending sort
	out, err := svc.RenderGrid(testContext(t, "/grid/contacts"), def)
	if err != nil {
		t.Fatalf("RenderGrid failed: %v", err)
	}
	if !strings.Contains(out, "dir=desc&sort=fldName") {
		t.Errorf("expected a desc link for an unsorted column:\n%s", out)
	}

	// clicking the current desc column flips the link to asc
	out, err = svc.RenderGrid(testContext(t, "/grid/contacts?sort=fldName&dir=desc"), def)
	if err != nil {
		t.Fatalf("RenderGrid failed: %v", err)
	}
	if !strings.Contains(out, "dir=asc&sort=fldName") {
		t.Errorf("expected the toggle to offer asc:\n%s", out)
	}
}

func TestRenderGrid_AddFormInputs(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	def, _ := svc.LoadGridDefinition("contacts")

	out, err := svc.RenderGrid(testContext(t, "/grid/contacts"), def)
	if err != nil {
		t.Fatalf("RenderGrid failed: %v", err)
	}

	for _, fragment := range []string{
		"<input type='text' name='add_fldName'",
		"<input type='number' step='1' name='add_fldAge'",
	} {
		if !strings.Contains(out, fragment) {
			t.Errorf("add form missing %q:\n%s", fragment, out)
		}
	}
	if strings.Contains(out, "name='add_pkID'") {
		t.Error("auto-increment primary key must not appear in the add form")
	}
}

func TestRenderGrid_NavigationKeepsFilters(t *testing.T) {
	svc, db := newContactsService(t, nil)
	db.Exec("INSERT INTO contacts (fldStatus, fldName) VALUES ('new', 'Zoe')")
	svc.RegisterGridDefinition(&model.GridDefinition{
		Table:            "contacts",
		PageSize:         1,
		SearchableFields: []string{"fldStatus"},
		SortableFields:   []string{"fldName"},
	})
	def, _ := svc.LoadGridDefinition("contacts")

	out, err := svc.RenderGrid(testContext(t, "/grid/contacts?filter_fldStatus=new&sort=fldName&dir=asc"), def)
	if err != nil {
		t.Fatalf("RenderGrid failed: %v", err)
	}

	// both rows match the filter, so a second page exists; its link must
	// keep the filter and the sort instead of resetting the view
	if !strings.Contains(out, "dir=asc&filter_fldStatus=new&page=2&sort=fldName") {
		t.Errorf("pagination dropped the active view parameters:\n%s", out)
	}
	// the sort toggle likewise carries the filter along
	if !strings.Contains(out, "dir=desc&filter_fldStatus=new&sort=fldName") {
		t.Errorf("sort link dropped the active filter:\n%s", out)
	}
}

func TestRenderGrid_ReadForbidden(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	svc.Config.Authorizer = NewSimpleRBAC(TablePermissions{})
	def, _ := svc.LoadGridDefinition("contacts")

	_, err := svc.RenderGrid(testContext(t, "/grid/contacts"), def)
	if err == nil {
		t.Fatal("expected an authorization error")
	}
	if _, ok := err.(*AuthorizationError); !ok {
		t.Errorf("expected AuthorizationError, got %T", err)
	}
}

func TestRenderGrid_ScopeHidesRows(t *testing.T) {
	scope := NewScope()
	scope.AddRule("contacts", "fldStatus", "active", "")
	svc, _ := newContactsService(t, &model.GridConfig{Scope: scope})
	def, _ := svc.LoadGridDefinition("contacts")

	out, err := svc.RenderGrid(testContext(t, "/grid/contacts"), def)
	if err != nil {
		t.Fatalf("RenderGrid failed: %v", err)
	}
	// the only seeded row is 'new', so the scoped grid is empty
	if !strings.Contains(out, svc.Config.EmptyTableMessage) {
		t.Error("scope must hide non-matching rows")
	}
}

func TestRenderGrid_VerticalOrientation(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	svc.RegisterGridDefinition(&model.GridDefinition{
		Table:       "contacts",
		Orientation: "vertical",
	})
	def, _ := svc.LoadGridDefinition("contacts")

	out, err := svc.RenderGrid(testContext(t, "/grid/contacts"), def)
	if err != nil {
		t.Fatalf("RenderGrid failed: %v", err)
	}
	if !strings.Contains(out, "ajaxcrud-vertical") {
		t.Error("vertical orientation not rendered")
	}
}

func TestRenderGrid_DisallowFlags(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	svc.RegisterGridDefinition(&model.GridDefinition{
		Table:          "contacts",
		DisallowAdd:    true,
		DisallowDelete: true,
	})
	def, _ := svc.LoadGridDefinition("contacts")

	out, err := svc.RenderGrid(testContext(t, "/grid/contacts"), def)
	if err != nil {
		t.Fatalf("RenderGrid failed: %v", err)
	}
	if strings.Contains(out, "ajaxcrud-add") {
		t.Error("add form rendered despite disallowAdd")
	}
	if strings.Contains(out, "ajaxcrudDelete(") {
		t.Error("delete link rendered despite disallowDelete")
	}
}

func TestRenderPage_FullDocument(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	r := newEditRouter(svc)

	w := getPage(t, r, "/grid/contacts")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	body := w.Body.String()
	for _, fragment := range []string{
		"<!DOCTYPE html>",
		"ajaxcrud-breadcrumbs",
		"function ajaxcrudSave",
		"id='contactsfldStatus1_show'",
	} {
		if !strings.Contains(body, fragment) {
			t.Errorf("page missing %q", fragment)
		}
	}
}

func TestRenderPage_UnknownGrid(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	r := newEditRouter(svc)

	w := getPage(t, r, "/grid/no_such_grid")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected the generic failure, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "no_such_grid") {
		t.Error("error detail must not reach the client")
	}
}

func TestFetchPage_Pagination(t *testing.T) {
	svc, db := newContactsService(t, nil)
	for i := 0; i < 25; i++ {
		db.Exec("INSERT INTO contacts (fldStatus, fldName) VALUES ('new', 'Person')")
	}
	svc.RegisterGridDefinition(&model.GridDefinition{Table: "contacts", PageSize: 10})
	def, _ := svc.LoadGridDefinition("contacts")
	g, err := svc.BuildGrid(def)
	if err != nil {
		t.Fatalf("BuildGrid failed: %v", err)
	}

	st := svc.parseRenderState(testContext(t, "/grid/contacts?page=3"), g)
	page, err := svc.FetchPage(g, st)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if page.TotalCount != 26 || page.TotalPages != 3 || page.CurrentPage != 3 {
		t.Errorf("unexpected paging: %+v", page)
	}
	if len(page.Rows) != 6 {
		t.Errorf("expected 6 rows on the last page, got %d", len(page.Rows))
	}
}
