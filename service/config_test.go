package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseGridDefinition_JSON(t *testing.T) {
	def, err := ParseGridDefinition([]byte(`{
		"table": "contacts",
		"pageSize": 25,
		"fields": ["fldName", "fldStatus"],
		"labels": {"fldName": "Full Name"},
		"relationships": {"fldCompanyID": "companies.fldName"},
		"allowedValues": {"fldStatus": ["new", {"value": "a", "label": "Active"}]}
	}`), ".json")
	if err != nil {
		t.Fatalf("ParseGridDefinition failed: %v", err)
	}

	if def.Table != "contacts" || def.PageSize != 25 {
		t.Errorf("basics not parsed: %+v", def)
	}
	if def.Labels["fldName"] != "Full Name" {
		t.Errorf("labels not parsed: %v", def.Labels)
	}

	rel := def.Relationships["fldCompanyID"]
	if rel == nil || rel.Table != "companies" || rel.DisplayField != "fldName" {
		t.Errorf("shorthand relationship not parsed: %+v", rel)
	}

	opts := def.AllowedValues["fldStatus"]
	if len(opts) != 2 || opts[0].Value != "new" || opts[0].Label != "new" {
		t.Errorf("plain-string option not parsed: %+v", opts)
	}
	if opts[1].Label != "Active" {
		t.Errorf("object option not parsed: %+v", opts[1])
	}
}

func TestParseGridDefinition_YAML(t *testing.T) {
	def, err := ParseGridDefinition([]byte(`
table: contacts
pageSize: 10
searchableFields:
  - fldName
checkboxes:
  fldStatus:
    "on": "active"
    "off": "inactive"
    toggle: true
`), ".yaml")
	if err != nil {
		t.Fatalf("ParseGridDefinition failed: %v", err)
	}
	if def.PageSize != 10 || len(def.SearchableFields) != 1 {
		t.Errorf("yaml basics not parsed: %+v", def)
	}
	cb := def.Checkboxes["fldStatus"]
	if cb == nil || cb.On != "active" || !cb.Toggle {
		t.Errorf("yaml checkbox not parsed: %+v", cb)
	}
}

func TestParseGridDefinition_RejectsWrongTypes(t *testing.T) {
	if _, err := ParseGridDefinition([]byte(`{"pageSize": "ten"}`), ".json"); err == nil {
		t.Error("expected a schema error for a string pageSize")
	}
	if _, err := ParseGridDefinition([]byte(`{"feilds": []}`), ".json"); err == nil {
		t.Error("expected a schema error for a misspelled key")
	}
}

func TestLoadGridDefinition_FromFileWithCache(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	path := filepath.Join(svc.Config.ConfigDir, "people.json")
	if err := os.WriteFile(path, []byte(`{"table": "contacts", "pageSize": 5}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	def, err := svc.LoadGridDefinition("people")
	if err != nil {
		t.Fatalf("LoadGridDefinition failed: %v", err)
	}
	if def.GridName != "people" || def.Table != "contacts" || def.PageSize != 5 {
		t.Errorf("unexpected definition: %+v", def)
	}

	// unchanged file serves the cached instance
	again, err := svc.LoadGridDefinition("people")
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if again != def {
		t.Error("expected the cached definition to be reused")
	}

	// touching the file invalidates the cache
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"table": "contacts", "pageSize": 7}`), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	reloaded, err := svc.LoadGridDefinition("people")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.PageSize != 7 {
		t.Errorf("expected the edited config to take effect, got %d", reloaded.PageSize)
	}
}

func TestLoadGridDefinition_TableDefaultsToName(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	path := filepath.Join(svc.Config.ConfigDir, "companies.yaml")
	if err := os.WriteFile(path, []byte("pageSize: 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	def, err := svc.LoadGridDefinition("companies")
	if err != nil {
		t.Fatalf("LoadGridDefinition failed: %v", err)
	}
	if def.Table != "companies" {
		t.Errorf("table should default to the grid name, got %q", def.Table)
	}
}

func TestLoadGridDefinition_RejectsPathEscape(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	if _, err := svc.LoadGridDefinition("../etc/passwd"); err == nil {
		t.Error("expected path-escaping names to be rejected")
	}
	if _, err := svc.LoadGridDefinition(""); err == nil {
		t.Error("expected the empty name to be rejected")
	}
}

func TestLoadGridDefinition_Missing(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	if _, err := svc.LoadGridDefinition("nothere"); err == nil {
		t.Error("expected an error for a missing config")
	}
}
