package utils

import "testing"

func TestSanitizeIdentifier(t *testing.T) {
	cases := map[string]string{
		"fldName":            "fldName",
		"user_id":            "user_id",
		"name; DROP TABLE x": "nameDROPTABLEx",
		"a-b.c":              "abc",
		"":                   "",
	}
	for in, want := range cases {
		if got := SanitizeIdentifier(in); got != want {
			t.Errorf("SanitizeIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsSafeIdentifier(t *testing.T) {
	if !IsSafeIdentifier("fld_Name2") {
		t.Error("expected fld_Name2 to be safe")
	}
	if IsSafeIdentifier("") {
		t.Error("expected empty string to be unsafe")
	}
	if IsSafeIdentifier("name'--") {
		t.Error("expected quoted input to be unsafe")
	}
}

func TestCamelToSnake(t *testing.T) {
	if got := CamelToSnake("firstName"); got != "first_name" {
		t.Errorf("got %q", got)
	}
	if got := CamelToSnake("already_snake"); got != "already_snake" {
		t.Errorf("got %q", got)
	}
}

func TestSnakeToCamel(t *testing.T) {
	if got := SnakeToCamel("first_name"); got != "FirstName" {
		t.Errorf("got %q", got)
	}
}

func TestHumanizeColumn(t *testing.T) {
	cases := map[string]string{
		"fldFirstName": "First Name",
		"created_at":   "Created At",
		"pkID":         "Id",
		"status":       "Status",
	}
	for in, want := range cases {
		if got := HumanizeColumn(in); got != want {
			t.Errorf("HumanizeColumn(%q) = %q, want %q", in, got, want)
		}
	}
}
