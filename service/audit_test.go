package service

import (
	"strings"
	"testing"
)

func TestDBAuditLog_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	auditLog := NewDBAuditLog(db)
	if err := auditLog.CreateTable(); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	auditLog.LogInsert("contacts", "1", map[string]interface{}{"fldName": "Ada"})
	auditLog.LogUpdate("contacts", "1",
		map[string]interface{}{"fldName": "Ada", "fldStatus": "new"},
		map[string]interface{}{"fldStatus": "active"})
	auditLog.LogDelete("contacts", "1", map[string]interface{}{"fldName": "Ada"})

	entries, err := auditLog.RecordHistory("contacts", "1", 10)
	if err != nil {
		t.Fatalf("RecordHistory failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	actions := map[string]bool{}
	for _, e := range entries {
		actions[e.Action] = true
		if e.ID == "" {
			t.Error("entry is missing its id")
		}
	}
	for _, want := range []string{"INSERT", "UPDATE", "DELETE"} {
		if !actions[want] {
			t.Errorf("missing %s entry", want)
		}
	}
}

func TestDBAuditLog_ChangeDiff(t *testing.T) {
	db := openTestDB(t)
	auditLog := NewDBAuditLog(db)
	if err := auditLog.CreateTable(); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	auditLog.UserID = func() string { return "tester" }

	auditLog.LogUpdate("contacts", "5",
		map[string]interface{}{"fldStatus": "new", "fldName": "Ada"},
		map[string]interface{}{"fldStatus": "active", "fldName": "Ada"})

	entries, err := auditLog.RecordHistory("contacts", "5", 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("RecordHistory: %v (%d entries)", err, len(entries))
	}

	e := entries[0]
	if e.UserID != "tester" {
		t.Errorf("expected user id tester, got %q", e.UserID)
	}
	if !strings.Contains(e.Changes, "fldStatus") {
		t.Errorf("diff should contain the changed field: %s", e.Changes)
	}
	if strings.Contains(e.Changes, "fldName") {
		t.Errorf("diff should omit unchanged fields: %s", e.Changes)
	}
}

func TestServiceAudit_SwallowsPanic(t *testing.T) {
	svc, _ := newContactsService(t, nil)
	svc.Config.Audit = NewDBAuditLog(svc.DB)

	// must not propagate
	svc.audit(func() { panic("broken sink") })
}

func TestDiffValues(t *testing.T) {
	changes := diffValues(
		map[string]interface{}{"a": 1, "b": "x"},
		map[string]interface{}{"a": 2, "b": "x", "c": true},
	)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %v", changes)
	}
	if changes["a"] != 2 || changes["c"] != true {
		t.Errorf("unexpected diff: %v", changes)
	}
}
