package service

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/metazen11/ajaxCRUD/model"
)

func updateForm(table, field, id, value string) url.Values {
	return url.Values{
		"action": {"update"},
		"table":  {table},
		"field":  {field},
		"id":     {id},
		"value":  {value},
	}
}

func TestHandleEdit_Update(t *testing.T) {
	svc, db := newContactsService(t, nil)
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", updateForm("contacts", "fldStatus", "1", "active"))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "contactsfldStatus1|active" {
		t.Errorf("unexpected response: %q", got)
	}

	var status string
	db.Raw("SELECT fldStatus FROM contacts WHERE pkID = 1").Scan(&status)
	if status != "active" {
		t.Errorf("value not persisted: %q", status)
	}
}

func TestHandleEdit_UpdateEmptyValue(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", updateForm("contacts", "fldStatus", "1", ""))
	if got := w.Body.String(); got != "contactsfldStatus1|&nbsp;&nbsp;" {
		t.Errorf("empty value must answer the placeholder, got %q", got)
	}
}

func TestHandleEdit_UpdateMissingRowInsertsShell(t *testing.T) {
	svc, db := newContactsService(t, nil)
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", updateForm("contacts", "fldStatus", "999", "active"))
	if got := w.Body.String(); got != "contactsfldStatus999|active" {
		t.Fatalf("unexpected response: %q", got)
	}

	var count int64
	db.Raw("SELECT COUNT(*) FROM contacts WHERE pkID = 999 AND fldStatus = 'active'").Scan(&count)
	if count != 1 {
		t.Error("shell row was not created and updated")
	}
}

func TestHandleEdit_UpdatePrimaryKeyRejected(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", updateForm("contacts", "pkID", "1", "7"))
	if !strings.HasPrefix(w.Body.String(), "error|contactspkID1|") {
		t.Errorf("primary key edits must answer the error token, got %q", w.Body.String())
	}
}

func TestHandleEdit_UpdateErrorCarriesPrevious(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	svc.Config.Authorizer = NewSimpleRBAC(TablePermissions{Read: true})
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", updateForm("contacts", "fldStatus", "1", "active"))
	if got := w.Body.String(); got != "error|contactsfldStatus1|new" {
		t.Errorf("rejected update must carry the previous value, got %q", got)
	}
}

func TestHandleEdit_UpdateRejectedWhenEditingDisabled(t *testing.T) {
	svc, db := newContactsService(t, nil)
	svc.RegisterGridDefinition(&model.GridDefinition{
		Table:          "contacts",
		DisallowEdit:   true,
		EditableFields: []string{"fldStatus"},
	})
	r := newEditRouter(svc)

	// cells render read-only, but a hand-built request must be refused too
	w := postForm(t, r, "/grid/contacts", updateForm("contacts", "fldStatus", "1", "active"))
	if got := w.Body.String(); got != "error|contactsfldStatus1|new" {
		t.Errorf("disabled grid must reject the update, got %q", got)
	}

	var status string
	db.Raw("SELECT fldStatus FROM contacts WHERE pkID = 1").Scan(&status)
	if status != "new" {
		t.Errorf("disabled grid still persisted the write: %q", status)
	}
}

func TestHandleEdit_NumericSanitization(t *testing.T) {
	svc, db := newContactsService(t, nil)
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", updateForm("contacts", "fldAge", "1", "abc"))
	if !strings.HasPrefix(w.Body.String(), "error|") {
		t.Errorf("non-numeric value for numeric column must be rejected: %q", w.Body.String())
	}

	postForm(t, r, "/grid/contacts", updateForm("contacts", "fldAge", "1", "40"))
	var age int
	db.Raw("SELECT fldAge FROM contacts WHERE pkID = 1").Scan(&age)
	if age != 40 {
		t.Errorf("numeric update not persisted: %d", age)
	}
}

func TestHandleEdit_FKUpdateAnswersSelectboxSentinel(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	svc.RegisterGridDefinition(&model.GridDefinition{
		Table: "contacts",
		Relationships: map[string]*model.RelationshipDescriptor{
			"fldCompanyID": {Table: "companies", PrimaryKey: "pkID", DisplayField: "fldName"},
		},
	})
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", updateForm("contacts", "fldCompanyID", "1", "2"))
	if got := w.Body.String(); got != "contactsfldCompanyID1|{selectbox}" {
		t.Errorf("FK updates must answer the selectbox sentinel, got %q", got)
	}
}

func TestHandleEdit_Delete(t *testing.T) {
	svc, db := newContactsService(t, nil)
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", url.Values{
		"action": {"delete"}, "table": {"contacts"}, "id": {"1"},
	})
	if got := w.Body.String(); got != "contacts|1" {
		t.Fatalf("unexpected response: %q", got)
	}

	var count int64
	db.Raw("SELECT COUNT(*) FROM contacts").Scan(&count)
	if count != 0 {
		t.Error("row was not deleted")
	}
}

func TestHandleEdit_DeleteMissingRow(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", url.Values{
		"action": {"delete"}, "table": {"contacts"}, "id": {"12345"},
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a missing row, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no row 12345") {
		t.Errorf("expected the not-found message, got %q", w.Body.String())
	}
}

func TestHandleEdit_DeleteForbidden(t *testing.T) {
	svc, db := newContactsService(t, nil)
	svc.Config.Authorizer = NewSimpleRBAC(TablePermissions{Read: true, Write: true})
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", url.Values{
		"action": {"delete"}, "table": {"contacts"}, "id": {"1"},
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Raw("SELECT COUNT(*) FROM contacts").Scan(&count)
	if count != 1 {
		t.Error("forbidden delete still removed the row")
	}
}

func TestHandleEdit_Add(t *testing.T) {
	svc, db := newContactsService(t, nil)
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", url.Values{
		"action":        {"add"},
		"table":         {"contacts"},
		"add_fldName":   {"Grace"},
		"add_fldStatus": {"new"},
		"add_fldAge":    {"45"},
	})
	if w.Code != http.StatusOK && w.Code != http.StatusFound {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Raw("SELECT COUNT(*) FROM contacts WHERE fldName = 'Grace' AND fldAge = 45").Scan(&count)
	if count != 1 {
		t.Error("row was not inserted")
	}
}

func TestHandleEdit_AddRequiredField(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	svc.RegisterGridDefinition(&model.GridDefinition{
		Table:          "contacts",
		RequiredFields: []string{"fldName"},
	})
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", url.Values{
		"action":        {"add"},
		"table":         {"contacts"},
		"add_fldStatus": {"new"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a missing required field, got %d", w.Code)
	}
}

func TestHandleEdit_AddAssignsNextPrimaryKey(t *testing.T) {
	svc, db := newContactsService(t, nil)
	svc.RegisterGridDefinition(&model.GridDefinition{
		Table:                      "contacts",
		PrimaryKeyNotAutoIncrement: true,
	})
	r := newEditRouter(svc)

	postForm(t, r, "/grid/contacts", url.Values{
		"action":      {"add"},
		"table":       {"contacts"},
		"add_fldName": {"Edsger"},
	})

	var id int64
	db.Raw("SELECT pkID FROM contacts WHERE fldName = 'Edsger'").Scan(&id)
	if id != 2 {
		t.Errorf("expected MAX+1 key assignment (2), got %d", id)
	}
}

func TestHandleEdit_UpdateAcceptsValParameter(t *testing.T) {
	svc, db := newContactsService(t, nil)
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", url.Values{
		"action": {"update"},
		"table":  {"contacts"},
		"field":  {"fldStatus"},
		"pk":     {"pkID"},
		"id":     {"1"},
		"val":    {"active"},
	})
	if got := w.Body.String(); got != "contactsfldStatus1|active" {
		t.Errorf("unexpected response: %q", got)
	}

	var status string
	db.Raw("SELECT fldStatus FROM contacts WHERE pkID = 1").Scan(&status)
	if status != "active" {
		t.Errorf("value not persisted: %q", status)
	}
}

func TestHandleEdit_FilterRefreshIsIdempotent(t *testing.T) {
	svc, db := newContactsService(t, nil)
	db.Exec("INSERT INTO contacts (fldStatus, fldName) VALUES ('active', 'Barbara')")
	r := newEditRouter(svc)

	form := url.Values{
		"action":         {"filter"},
		"table":          {"contacts"},
		"filter_fldName": {"Bar"},
	}
	first := postForm(t, r, "/grid/contacts", form)
	second := postForm(t, r, "/grid/contacts", form)

	if first.Code != http.StatusOK {
		t.Fatalf("status %d: %s", first.Code, first.Body.String())
	}
	if first.Body.String() != second.Body.String() {
		t.Error("repeating the same filter request must yield an identical fragment")
	}
	if !strings.Contains(first.Body.String(), "Barbara") {
		t.Error("filtered fragment missing the matching row")
	}
	if strings.Contains(first.Body.String(), "id='contactsfldName1_show'") {
		t.Error("filtered fragment must omit non-matching rows")
	}
}

func TestHandleEdit_FilterOnUnsearchableColumn(t *testing.T) {
	svc, db := newContactsService(t, nil)
	db.Exec("INSERT INTO contacts (fldStatus, fldName, fldAge) VALUES ('new', 'Barbara', 72)")
	r := newEditRouter(svc)

	// fldAge is not in the search allow-list; the filter applies anyway
	w := postForm(t, r, "/grid/contacts", url.Values{
		"action":        {"filter"},
		"table":         {"contacts"},
		"filter_fldAge": {"72"},
	})
	body := w.Body.String()
	if !strings.Contains(body, "Barbara") {
		t.Errorf("matching row missing from the filtered fragment:\n%s", body)
	}
	if strings.Contains(body, "Ada") {
		t.Errorf("non-matching row survived the filter:\n%s", body)
	}

	// a bare column parameter filters by exact match
	w = postForm(t, r, "/grid/contacts", url.Values{
		"action": {"filter"},
		"table":  {"contacts"},
		"fldAge": {"36"},
	})
	body = w.Body.String()
	if !strings.Contains(body, "Ada") || strings.Contains(body, "Barbara") {
		t.Errorf("exact column filter not applied:\n%s", body)
	}
}

func TestHandleEdit_SortRefresh(t *testing.T) {
	svc, db := newContactsService(t, nil)
	db.Exec("INSERT INTO contacts (fldStatus, fldName) VALUES ('active', 'Zed')")
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", url.Values{
		"action": {"sort"},
		"table":  {"contacts"},
		"sort":   {"fldName"},
		"dir":    {"asc"},
	})
	body := w.Body.String()
	ada := strings.Index(body, "Ada")
	zed := strings.Index(body, "Zed")
	if ada == -1 || zed == -1 || ada > zed {
		t.Errorf("ascending name sort not applied (Ada at %d, Zed at %d)", ada, zed)
	}
}

func TestHandleEdit_UnknownAction(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", url.Values{"action": {"explode"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleEdit_RowCount(t *testing.T) {
	svc, db := newContactsService(t, nil)
	db.Exec("INSERT INTO contacts (fldStatus, fldName) VALUES ('new', 'Barbara')")
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", url.Values{
		"action": {"getRowCount"}, "table": {"contacts"},
	})
	if got := w.Body.String(); got != "2" {
		t.Errorf("expected 2, got %q", got)
	}
}

func TestHandleEdit_RowCountHonorsScope(t *testing.T) {
	scope := NewScope()
	scope.AddRule("contacts", "fldStatus", "active", "")
	svc, db := newContactsService(t, &model.GridConfig{Scope: scope})
	db.Exec("INSERT INTO contacts (fldStatus, fldName) VALUES ('active', 'Barbara')")
	r := newEditRouter(svc)

	w := postForm(t, r, "/grid/contacts", url.Values{
		"action": {"getRowCount"}, "table": {"contacts"},
	})
	if got := w.Body.String(); got != "1" {
		t.Errorf("scoped count must hide other rows, got %q", got)
	}
}

func TestHandleEdit_UpdateWritesAudit(t *testing.T) {
	svc, db := newContactsService(t, nil)
	auditLog := NewDBAuditLog(db)
	if err := auditLog.CreateTable(); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	svc.Config.Audit = auditLog
	r := newEditRouter(svc)

	postForm(t, r, "/grid/contacts", updateForm("contacts", "fldStatus", "1", "active"))

	entries, err := auditLog.RecordHistory("contacts", "1", 10)
	if err != nil {
		t.Fatalf("RecordHistory failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "UPDATE" {
		t.Errorf("expected one UPDATE entry, got %v", entries)
	}
	if !strings.Contains(entries[0].NewValues, "active") {
		t.Errorf("audit entry missing the new value: %s", entries[0].NewValues)
	}
}
