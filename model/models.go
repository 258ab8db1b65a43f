package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FieldKind is the semantic type of a column, derived from its raw declared
// type by the classifier in utils/sqlutils.
type FieldKind int

const (
	KindText FieldKind = iota
	KindInteger
	KindDecimal
	KindEnum
	KindDate
)

func (k FieldKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindEnum:
		return "enum"
	case KindDate:
		return "date"
	default:
		return "text"
	}
}

// ColumnDescriptor is one column of an introspected table.
type ColumnDescriptor struct {
	Name    string
	RawType string
	Kind    FieldKind
}

// TableDescriptor is the introspected shape of a table. Built once per grid
// instantiation and immutable afterward. The primary key is always a member
// of Columns.
type TableDescriptor struct {
	Table      string
	PrimaryKey string
	Columns    []ColumnDescriptor
}

// Column returns the descriptor for name, or nil if the table has no such
// column.
func (d *TableDescriptor) Column(name string) *ColumnDescriptor {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i]
		}
	}
	return nil
}

// HasColumn reports whether name is a column of the table. Every identifier
// destined for SQL text must pass this check first.
func (d *TableDescriptor) HasColumn(name string) bool {
	return d.Column(name) != nil
}

func (d *TableDescriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// EditKey is the composite identity correlating a cell's display and edit
// fragments with its update request. The token is embedded in the rendered
// DOM and echoed back by the client on every protocol call.
type EditKey struct {
	Table string
	Field string
	ID    string
}

func (k EditKey) Token() string {
	return strings.TrimSpace(k.Table + k.Field + k.ID)
}

// Option is one entry of a dropdown, radio group or multi-select. Value is
// what gets stored, Label what gets displayed.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

func (o *Option) UnmarshalJSON(data []byte) error {
	// simple format: "active" (value and label identical)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.Value = s
		o.Label = s
		return nil
	}

	type alias Option
	var tmp alias
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*o = Option(tmp)
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

// RelationshipDescriptor points a foreign-key column at the table it
// references. The widget dispatcher renders such columns as a dropdown
// sourced from the foreign table instead of the column's own classification.
type RelationshipDescriptor struct {
	Column       string `json:"column" yaml:"column"`
	Table        string `json:"table" yaml:"table"`
	PrimaryKey   string `json:"primaryKey" yaml:"primaryKey"`
	DisplayField string `json:"displayField" yaml:"displayField"`
	OrderBy      string `json:"orderBy,omitempty" yaml:"orderBy,omitempty"`
	Where        string `json:"where,omitempty" yaml:"where,omitempty"`
	Required     bool   `json:"required" yaml:"required"`
}

func (r *RelationshipDescriptor) UnmarshalJSON(data []byte) error {
	// simple format: "web_users.username"
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parts := strings.Split(s, ".")
		if len(parts) != 2 {
			return fmt.Errorf("invalid relationship string format: %s", s)
		}
		r.Table = parts[0]
		r.DisplayField = parts[1]
		r.Required = true
		return nil
	}

	type alias RelationshipDescriptor
	var tmp alias
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*r = RelationshipDescriptor(tmp)
	return nil
}

// CheckboxConfig maps a column to its on/off stored values. Toggle renders
// the modern switch style instead of a plain checkbox.
type CheckboxConfig struct {
	On     string `json:"on" yaml:"on"`
	Off    string `json:"off" yaml:"off"`
	Toggle bool   `json:"toggle" yaml:"toggle"`
}

// RadioConfig is a radio-button group for a column.
type RadioConfig struct {
	Options []Option `json:"options" yaml:"options"`
	Inline  bool     `json:"inline" yaml:"inline"`
}

// RangeConfig is a range-slider editor for a numeric column.
type RangeConfig struct {
	Min       float64 `json:"min" yaml:"min"`
	Max       float64 `json:"max" yaml:"max"`
	Step      float64 `json:"step" yaml:"step"`
	ShowValue bool    `json:"showValue" yaml:"showValue"`
}

// MultiSelectConfig stores several selected options in one column joined by
// Separator (default comma).
type MultiSelectConfig struct {
	Options   []Option `json:"options" yaml:"options"`
	Separator string   `json:"separator" yaml:"separator"`
}

// AutocompleteConfig sources type-ahead suggestions from another table.
type AutocompleteConfig struct {
	SourceTable  string `json:"sourceTable" yaml:"sourceTable"`
	DisplayField string `json:"displayField" yaml:"displayField"`
	MinChars     int    `json:"minChars" yaml:"minChars"`
}

// FieldConfig carries the per-column overrides of one grid. Owned by the
// grid instance and only mutated through its configuration before first
// render.
type FieldConfig struct {
	Field          string
	Label          string
	Note           string
	InitialValue   string
	Class          string
	TextareaHeight int

	Editable bool
	Addable  bool
	Required bool

	AllowedValues    []Option
	NoDropdownOnEdit bool
	Checkbox         *CheckboxConfig
	Radio            *RadioConfig
	Range            *RangeConfig
	MultiSelect      *MultiSelectConfig
	Autocomplete     *AutocompleteConfig
	Password         bool
	RichText         bool
	FileUpload       bool

	Relationship *RelationshipDescriptor
}

// QueryPlan is the resolved query shape for one render or one edit-protocol
// call. Built fresh per request, never persisted. Where and Args are shared
// verbatim between the count query and the paged data query so pagination
// metadata can never be weaker-scoped than the rows themselves.
type QueryPlan struct {
	Where    string
	Args     []interface{}
	OrderBy  string
	OrderDir string
	Limit    int
	Offset   int
}

// SelectSQL renders the paged data query over the given column list.
func (p *QueryPlan) SelectSQL(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(table)
	if p.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(p.Where)
	}
	if p.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(p.OrderBy)
		b.WriteString(" ")
		b.WriteString(p.OrderDir)
	}
	if p.Limit > 0 {
		b.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", p.Limit, p.Offset))
	}
	return b.String()
}

// CountSQL renders the count query with the identical WHERE clause and bind
// sequence as SelectSQL, minus ordering and paging.
func (p *QueryPlan) CountSQL(table string) string {
	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(table)
	if p.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(p.Where)
	}
	return b.String()
}

// PageResult is the paged outcome of one render. Recomputed on every
// request; there is no cross-request row cache.
type PageResult struct {
	Rows        []map[string]interface{}
	TotalCount  int64
	CurrentPage int
	PageSize    int
	TotalPages  int
}

// CachedGridDefinition pairs a loaded definition with the config file's
// modification time so edits on disk take effect without a restart.
type CachedGridDefinition struct {
	Definition *GridDefinition
	ModTime    time.Time
}
