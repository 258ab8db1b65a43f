package service

import (
	"fmt"

	"github.com/metazen11/ajaxCRUD/model"
	"github.com/metazen11/ajaxCRUD/utils"
	"github.com/metazen11/ajaxCRUD/utils/sqlutils"
)

// Grid is one grid instantiation: an introspected table plus the resolved
// per-field configuration. Grids are rebuilt per request; nothing here is
// shared across requests.
type Grid struct {
	Desc *model.TableDescriptor
	Def  *model.GridDefinition

	DisplayFields []string
	PageSize      int
	TextThreshold int
	Orientation   string

	fieldCfg map[string]*model.FieldConfig
}

// BuildGrid introspects the definition's table and resolves every field's
// configuration. Fails with SchemaError when the table cannot be described.
func (s *Service) BuildGrid(def *model.GridDefinition) (*Grid, error) {
	desc, err := sqlutils.Describe(s.DB, def.Table)
	if err != nil {
		return nil, &SchemaError{Table: def.Table, Err: err}
	}

	g := &Grid{
		Desc:          desc,
		Def:           def,
		PageSize:      def.PageSize,
		TextThreshold: def.TextThreshold,
		Orientation:   def.Orientation,
		fieldCfg:      make(map[string]*model.FieldConfig),
	}

	if g.PageSize == 0 {
		g.PageSize = s.Config.PageSize
	}
	if g.TextThreshold == 0 {
		g.TextThreshold = s.Config.TextThreshold
	}
	if g.Orientation == "" {
		g.Orientation = "horizontal"
	}

	if len(def.Fields) > 0 {
		g.DisplayFields = def.Fields
	} else {
		g.DisplayFields = desc.ColumnNames()
	}
	for _, field := range g.DisplayFields {
		if !desc.HasColumn(field) {
			return nil, &SchemaError{Table: def.Table, Err: fmt.Errorf("configured field %s is not a column", field)}
		}
	}

	for _, col := range desc.Columns {
		g.fieldCfg[col.Name] = &model.FieldConfig{
			Field: col.Name,
			Label: utils.HumanizeColumn(col.Name),
		}
	}

	apply := func(field string, fn func(fc *model.FieldConfig)) {
		if fc, ok := g.fieldCfg[field]; ok {
			fn(fc)
		}
	}

	for field, label := range def.Labels {
		apply(field, func(fc *model.FieldConfig) { fc.Label = label })
	}
	for field, note := range def.Notes {
		apply(field, func(fc *model.FieldConfig) { fc.Note = note })
	}
	for field, value := range def.InitialValues {
		apply(field, func(fc *model.FieldConfig) { fc.InitialValue = value })
	}
	for field, class := range def.Classes {
		apply(field, func(fc *model.FieldConfig) { fc.Class = class })
	}

	// the grid-wide flag wins over any per-field list; the server refuses
	// the write even when a client fabricates the edit request
	editable := make(map[string]bool)
	if !def.DisallowEdit {
		if len(def.EditableFields) > 0 {
			for _, field := range def.EditableFields {
				editable[field] = true
			}
		} else {
			for _, col := range desc.Columns {
				editable[col.Name] = true
			}
		}
	}
	for _, field := range def.UneditableFields {
		delete(editable, field)
	}
	// the primary key is never direct-editable unless the grid says so
	if !def.AddSpecifyPrimaryKey {
		delete(editable, desc.PrimaryKey)
	}
	for field := range editable {
		apply(field, func(fc *model.FieldConfig) { fc.Editable = true })
	}

	if len(def.AddableFields) > 0 {
		for _, field := range def.AddableFields {
			apply(field, func(fc *model.FieldConfig) { fc.Addable = true })
		}
	} else {
		for _, col := range desc.Columns {
			if col.Name != desc.PrimaryKey || def.AddSpecifyPrimaryKey {
				apply(col.Name, func(fc *model.FieldConfig) { fc.Addable = true })
			}
		}
	}

	for _, field := range def.RequiredFields {
		apply(field, func(fc *model.FieldConfig) { fc.Required = true })
	}

	// defaults are filled on copies; the cached definition stays untouched
	for field, rel := range def.Relationships {
		r := *rel
		if r.Column == "" {
			r.Column = field
		}
		if r.PrimaryKey == "" {
			pk, err := sqlutils.GetPrimaryKeyFieldName(s.DB, r.Table)
			if err != nil {
				return nil, &SchemaError{Table: r.Table, Err: err}
			}
			r.PrimaryKey = pk
		}
		apply(field, func(fc *model.FieldConfig) { fc.Relationship = &r })
	}

	for field, options := range def.AllowedValues {
		options := options
		apply(field, func(fc *model.FieldConfig) { fc.AllowedValues = options })
	}
	for field, cb := range def.Checkboxes {
		c := *cb
		if c.On == "" {
			c.On = "1"
		}
		if c.Off == "" {
			c.Off = "0"
		}
		apply(field, func(fc *model.FieldConfig) { fc.Checkbox = &c })
	}
	for field, radio := range def.Radios {
		apply(field, func(fc *model.FieldConfig) { fc.Radio = radio })
	}
	for field, rng := range def.Ranges {
		r := *rng
		if r.Step == 0 {
			r.Step = 1
		}
		apply(field, func(fc *model.FieldConfig) { fc.Range = &r })
	}
	for field, ms := range def.MultiSelects {
		m := *ms
		if m.Separator == "" {
			m.Separator = ","
		}
		apply(field, func(fc *model.FieldConfig) { fc.MultiSelect = &m })
	}
	for field, ac := range def.Autocompletes {
		a := *ac
		if a.MinChars == 0 {
			a.MinChars = 2
		}
		apply(field, func(fc *model.FieldConfig) { fc.Autocomplete = &a })
	}
	for _, field := range def.PasswordFields {
		apply(field, func(fc *model.FieldConfig) { fc.Password = true })
	}
	for _, field := range def.RichTextFields {
		apply(field, func(fc *model.FieldConfig) { fc.RichText = true })
	}
	for _, field := range def.FileFields {
		// stored filenames are not inline-editable; the cell renders a
		// link plus the add/replace affordance instead
		apply(field, func(fc *model.FieldConfig) {
			fc.FileUpload = true
			fc.Editable = false
		})
	}

	return g, nil
}

// FieldConfig returns the resolved configuration for a column. Unknown
// names get an empty read-only config rather than nil.
func (g *Grid) FieldConfig(field string) *model.FieldConfig {
	if fc, ok := g.fieldCfg[field]; ok {
		return fc
	}
	return &model.FieldConfig{Field: field, Label: field}
}

// EditingEnabled reports whether any field of the grid is inline-editable.
func (g *Grid) EditingEnabled() bool {
	if g.Def.DisallowEdit {
		return false
	}
	for _, fc := range g.fieldCfg {
		if fc.Editable {
			return true
		}
	}
	return false
}
