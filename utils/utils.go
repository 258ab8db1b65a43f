package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var identifierRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeIdentifier strips everything outside [A-Za-z0-9_]. Any string
// destined for SQL text (as opposed to a bound parameter) passes through
// here after being checked against the table's known columns.
func SanitizeIdentifier(s string) string {
	return identifierRe.ReplaceAllString(s, "")
}

// IsSafeIdentifier reports whether s is non-empty and survives
// SanitizeIdentifier unchanged.
func IsSafeIdentifier(s string) bool {
	return s != "" && SanitizeIdentifier(s) == s
}

var camelBoundaryRe = regexp.MustCompile("([a-z0-9])([A-Z])")

// CamelToSnake converts camelCase to snake_case.
func CamelToSnake(input string) string {
	snake := camelBoundaryRe.ReplaceAllString(input, "${1}_${2}")
	return strings.ToLower(snake)
}

// SnakeToCamel converts snake_case to CamelCase.
func SnakeToCamel(input string) string {
	parts := strings.Split(input, "_")
	for i, part := range parts {
		parts[i] = cases.Title(language.Und).String(part)
	}
	return strings.Join(parts, "")
}

// IsCamelCase reports whether input carries any upper-case rune.
func IsCamelCase(input string) bool {
	for _, r := range input {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// HumanizeColumn turns a column name into a display label:
// "fldFirstName" -> "First Name", "created_at" -> "Created At".
func HumanizeColumn(name string) string {
	name = strings.TrimPrefix(name, "fld")
	name = strings.TrimPrefix(name, "pk")
	if !IsCamelCase(name) {
		parts := strings.Split(name, "_")
		for i, part := range parts {
			parts[i] = cases.Title(language.Und).String(part)
		}
		return strings.Join(parts, " ")
	}
	spaced := camelBoundaryRe.ReplaceAllString(name, "${1} ${2}")
	return cases.Title(language.Und).String(spaced)
}
