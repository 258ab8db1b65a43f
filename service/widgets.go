package service

import (
	"fmt"
	"html"
	"strings"

	"github.com/metazen11/ajaxCRUD/model"
	"github.com/metazen11/ajaxCRUD/utils/sqlutils"
)

// SelectWidget resolves the editor strategy for one cell. Precedence:
// file and read-only columns first, then foreign-key relationships, then
// the explicit per-field overrides, and finally the column's semantic
// kind. The text/textarea split is decided per cell by the current
// value's length against the grid's threshold.
func (g *Grid) SelectWidget(fc *model.FieldConfig, col *model.ColumnDescriptor, value string) model.WidgetKind {
	if fc.FileUpload {
		return model.WidgetFile
	}
	if !fc.Editable || g.Def.DisallowEdit {
		return model.WidgetReadOnly
	}

	if fc.Relationship != nil {
		return model.WidgetFKDropdown
	}

	switch {
	case len(fc.AllowedValues) > 0 && !fc.NoDropdownOnEdit:
		return model.WidgetDropdown
	case fc.Radio != nil:
		return model.WidgetRadio
	case fc.Range != nil:
		return model.WidgetRange
	case fc.MultiSelect != nil:
		return model.WidgetMultiSelect
	case fc.Autocomplete != nil:
		return model.WidgetAutocomplete
	case fc.Password:
		return model.WidgetPassword
	case fc.RichText:
		return model.WidgetRichText
	case fc.Checkbox != nil && fc.Checkbox.Toggle:
		return model.WidgetToggle
	case fc.Checkbox != nil:
		return model.WidgetCheckbox
	}

	switch col.Kind {
	case model.KindEnum:
		return model.WidgetEnumDropdown
	case model.KindInteger:
		return model.WidgetNumber
	case model.KindDecimal:
		return model.WidgetDecimal
	case model.KindDate:
		return model.WidgetDate
	default:
		if len(value) > g.TextThreshold {
			return model.WidgetTextarea
		}
		return model.WidgetText
	}
}

// relationshipOptions loads the dropdown entries for a foreign-key column,
// ordered by the configured field or the display field.
func (s *Service) relationshipOptions(rel *model.RelationshipDescriptor) ([]model.Option, error) {
	orderBy := rel.OrderBy
	if orderBy == "" {
		orderBy = rel.DisplayField
	}

	query := fmt.Sprintf("SELECT %s, %s FROM %s", rel.PrimaryKey, rel.DisplayField, rel.Table)
	if rel.Where != "" {
		query += " WHERE " + rel.Where
	}
	query += " ORDER BY " + orderBy

	rows := []map[string]interface{}{}
	if err := s.DB.Raw(query).Scan(&rows).Error; err != nil {
		return nil, &StorageError{Op: "relationship options for " + rel.Table, Err: err}
	}

	options := make([]model.Option, 0, len(rows))
	for _, row := range rows {
		options = append(options, model.Option{
			Value: fmt.Sprint(row[rel.PrimaryKey]),
			Label: fmt.Sprint(row[rel.DisplayField]),
		})
	}
	return options, nil
}

// relationshipLabel resolves one stored foreign-key value to its display
// text. Unresolvable keys fall back to the raw value.
func (s *Service) relationshipLabel(rel *model.RelationshipDescriptor, value string) string {
	if value == "" || value == "0" {
		return ""
	}
	var label string
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", rel.DisplayField, rel.Table, rel.PrimaryKey)
	if err := s.DB.Raw(query, value).Scan(&label).Error; err != nil || label == "" {
		return value
	}
	return label
}

// displayValue is the cell's read-mode text: foreign keys resolve to their
// display field, passwords mask, checkboxes show their on/off state, and
// multi-selects show labels instead of stored values.
func (s *Service) displayValue(fc *model.FieldConfig, value string) string {
	switch {
	case fc.Relationship != nil:
		return s.relationshipLabel(fc.Relationship, value)
	case fc.Password:
		if value == "" {
			return ""
		}
		return "********"
	case fc.Checkbox != nil:
		if value == fc.Checkbox.On {
			return "Yes"
		}
		return "No"
	case fc.MultiSelect != nil:
		return multiSelectLabels(fc.MultiSelect, value)
	case len(fc.AllowedValues) > 0:
		for _, opt := range fc.AllowedValues {
			if opt.Value == value {
				return opt.Label
			}
		}
		return value
	default:
		return value
	}
}

func multiSelectLabels(ms *model.MultiSelectConfig, value string) string {
	if value == "" {
		return ""
	}
	labels := map[string]string{}
	for _, opt := range ms.Options {
		labels[opt.Value] = opt.Label
	}
	parts := strings.Split(value, ms.Separator)
	for i, part := range parts {
		if label, ok := labels[strings.TrimSpace(part)]; ok {
			parts[i] = label
		}
	}
	return strings.Join(parts, ", ")
}

// renderCell writes the full cell for one column of one row: the display
// fragment, the hidden edit fragment with the chosen editor, and the
// saving indicator, all keyed by the cell's edit token.
func (s *Service) renderCell(b *strings.Builder, g *Grid, key model.EditKey, fc *model.FieldConfig, col *model.ColumnDescriptor, value string) {
	widget := g.SelectWidget(fc, col, value)
	token := key.Token()
	display := s.displayValue(fc, value)

	switch widget {
	case model.WidgetReadOnly:
		b.WriteString(html.EscapeString(display))
		return

	case model.WidgetFile:
		s.renderFileCell(b, g, fc, key, value)
		return

	case model.WidgetCheckbox, model.WidgetToggle:
		// checkboxes commit directly on change; no show/edit swap
		s.renderCheckboxCell(b, fc, key, value, widget == model.WidgetToggle)
		return
	}

	shown := html.EscapeString(display)
	if shown == "" {
		// keep the click target from collapsing to zero width
		shown = "&nbsp;&nbsp;"
	}

	b.WriteString(fmt.Sprintf("<span id='%s_show' class='ajaxcrud-show' onclick=\"ajaxcrudEdit('%s')\">%s</span>", token, token, shown))
	b.WriteString(fmt.Sprintf("<span id='%s_edit' class='ajaxcrud-edit' style='display:none'>", token))

	switch widget {
	case model.WidgetFKDropdown:
		s.renderFKDropdown(b, fc.Relationship, col, token, value)
	case model.WidgetDropdown:
		renderDropdown(b, token, value, fc.AllowedValues, false)
	case model.WidgetEnumDropdown:
		renderDropdown(b, token, value, enumOptions(col), false)
	case model.WidgetRadio:
		renderRadioGroup(b, token, value, fc.Radio)
	case model.WidgetRange:
		renderRange(b, token, value, fc.Range)
	case model.WidgetMultiSelect:
		renderMultiSelect(b, token, value, fc.MultiSelect)
	case model.WidgetAutocomplete:
		s.renderAutocomplete(b, token, value, fc.Autocomplete)
	case model.WidgetPassword:
		b.WriteString(fmt.Sprintf("<input type='password' id='%s_input' value=''>", token))
	case model.WidgetRichText:
		renderTextarea(b, token, value, richTextRows, "ajaxcrud-richtext")
	case model.WidgetNumber:
		b.WriteString(fmt.Sprintf("<input type='number' step='1' id='%s_input' value='%s'>", token, html.EscapeString(value)))
	case model.WidgetDecimal:
		b.WriteString(fmt.Sprintf("<input type='number' step='0.01' id='%s_input' value='%s'>", token, html.EscapeString(value)))
	case model.WidgetDate:
		b.WriteString(fmt.Sprintf("<input type='date' id='%s_input' value='%s'>", token, html.EscapeString(value)))
	case model.WidgetTextarea:
		renderTextarea(b, token, value, textareaRows(fc), "")
	default:
		b.WriteString(fmt.Sprintf("<input type='text' id='%s_input' value='%s'>", token, html.EscapeString(value)))
	}

	b.WriteString(saveCancelControls(token, key))
	b.WriteString("</span>")
	b.WriteString(fmt.Sprintf("<span id='%s_save' class='ajaxcrud-saving' style='display:none'>Saving...</span>", token))
}

const richTextRows = 8

func renderTextarea(b *strings.Builder, token, value string, rows int, class string) {
	classAttr := ""
	if class != "" {
		classAttr = fmt.Sprintf(" class='%s'", class)
	}
	b.WriteString(fmt.Sprintf("<textarea id='%s_input' rows='%d'%s>%s</textarea>",
		token, rows, classAttr, html.EscapeString(value)))
}

func textareaRows(fc *model.FieldConfig) int {
	if fc.TextareaHeight > 0 {
		return fc.TextareaHeight
	}
	return 4
}

// saveCancelControls emits the per-cell commit and revert buttons. Cancel
// only swaps the fragments back client-side; no request is made.
func saveCancelControls(token string, key model.EditKey) string {
	return fmt.Sprintf(
		" <input type='button' value='Save' onclick=\"ajaxcrudSave('%s','%s','%s','%s')\">"+
			"<input type='button' value='Cancel' onclick=\"ajaxcrudCancel('%s')\">",
		token, key.Table, key.Field, key.ID, token)
}

func enumOptions(col *model.ColumnDescriptor) []model.Option {
	values := sqlutils.EnumValues(col.RawType)
	options := make([]model.Option, len(values))
	for i, v := range values {
		options[i] = model.Option{Value: v, Label: v}
	}
	return options
}

func renderDropdown(b *strings.Builder, token, value string, options []model.Option, withEmpty bool) {
	b.WriteString(fmt.Sprintf("<select id='%s_input'>", token))
	if withEmpty {
		b.WriteString("<option value=''></option>")
	}
	for _, opt := range options {
		selected := ""
		if opt.Value == value {
			selected = " selected"
		}
		b.WriteString(fmt.Sprintf("<option value='%s'%s>%s</option>",
			html.EscapeString(opt.Value), selected, html.EscapeString(opt.Label)))
	}
	b.WriteString("</select>")
}

// renderFKDropdown sources the options from the foreign table. Optional
// relationships get a --Select-- sentinel whose stored value is '0' for
// numeric key columns and empty otherwise.
func (s *Service) renderFKDropdown(b *strings.Builder, rel *model.RelationshipDescriptor, col *model.ColumnDescriptor, token, value string) {
	options, err := s.relationshipOptions(rel)
	if err != nil {
		s.logError(err)
		b.WriteString(fmt.Sprintf("<input type='text' id='%s_input' value='%s'>", token, html.EscapeString(value)))
		return
	}

	b.WriteString(fmt.Sprintf("<select id='%s_input'>", token))
	if !rel.Required {
		sentinel := ""
		if col.Kind == model.KindInteger || col.Kind == model.KindDecimal {
			sentinel = "0"
		}
		b.WriteString(fmt.Sprintf("<option value='%s'>--Select--</option>", sentinel))
	}
	for _, opt := range options {
		selected := ""
		if opt.Value == value {
			selected = " selected"
		}
		b.WriteString(fmt.Sprintf("<option value='%s'%s>%s</option>",
			html.EscapeString(opt.Value), selected, html.EscapeString(opt.Label)))
	}
	b.WriteString("</select>")
}

func renderRadioGroup(b *strings.Builder, token, value string, radio *model.RadioConfig) {
	tag := "div"
	if radio.Inline {
		tag = "span"
	}
	for _, opt := range radio.Options {
		checked := ""
		if opt.Value == value {
			checked = " checked"
		}
		b.WriteString(fmt.Sprintf("<%s class='ajaxcrud-radio'><label><input type='radio' name='%s_input' value='%s'%s> %s</label></%s>",
			tag, token, html.EscapeString(opt.Value), checked, html.EscapeString(opt.Label), tag))
	}
}

func renderRange(b *strings.Builder, token, value string, rng *model.RangeConfig) {
	b.WriteString(fmt.Sprintf("<input type='range' id='%s_input' min='%v' max='%v' step='%v' value='%s'",
		token, rng.Min, rng.Max, rng.Step, html.EscapeString(value)))
	if rng.ShowValue {
		b.WriteString(fmt.Sprintf(" oninput=\"document.getElementById('%s_rangeval').textContent=this.value\">", token))
		b.WriteString(fmt.Sprintf("<span id='%s_rangeval'>%s</span>", token, html.EscapeString(value)))
		return
	}
	b.WriteString(">")
}

func renderMultiSelect(b *strings.Builder, token, value string, ms *model.MultiSelectConfig) {
	current := map[string]bool{}
	for _, part := range strings.Split(value, ms.Separator) {
		current[strings.TrimSpace(part)] = true
	}
	b.WriteString(fmt.Sprintf("<select id='%s_input' multiple data-separator='%s'>", token, html.EscapeString(ms.Separator)))
	for _, opt := range ms.Options {
		selected := ""
		if current[opt.Value] {
			selected = " selected"
		}
		b.WriteString(fmt.Sprintf("<option value='%s'%s>%s</option>",
			html.EscapeString(opt.Value), selected, html.EscapeString(opt.Label)))
	}
	b.WriteString("</select>")
}

// renderAutocomplete backs a plain text input with a datalist of distinct
// existing values from the source table.
func (s *Service) renderAutocomplete(b *strings.Builder, token, value string, ac *model.AutocompleteConfig) {
	b.WriteString(fmt.Sprintf("<input type='text' id='%s_input' list='%s_list' value='%s'>",
		token, token, html.EscapeString(value)))
	b.WriteString(fmt.Sprintf("<datalist id='%s_list'>", token))

	var suggestions []string
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s ORDER BY %s", ac.DisplayField, ac.SourceTable, ac.DisplayField)
	if err := s.DB.Raw(query).Scan(&suggestions).Error; err != nil {
		s.logError(&StorageError{Op: "autocomplete suggestions for " + ac.SourceTable, Err: err})
	}
	for _, suggestion := range suggestions {
		b.WriteString(fmt.Sprintf("<option value='%s'>", html.EscapeString(suggestion)))
	}
	b.WriteString("</datalist>")
}

// renderCheckboxCell emits the direct-commit checkbox (or toggle switch).
// Flipping it sends the opposite stored value straight to the protocol.
func (s *Service) renderCheckboxCell(b *strings.Builder, fc *model.FieldConfig, key model.EditKey, value string, toggle bool) {
	cb := fc.Checkbox
	token := key.Token()
	checked := ""
	next := cb.On
	if value == cb.On {
		checked = " checked"
		next = cb.Off
	}

	class := "ajaxcrud-checkbox"
	if toggle {
		class = "ajaxcrud-toggle"
	}
	b.WriteString(fmt.Sprintf(
		"<input type='checkbox' id='%s_input' class='%s' data-on='%s' data-off='%s'%s onchange=\"ajaxcrudToggle('%s','%s','%s','%s','%s')\">",
		token, class, html.EscapeString(cb.On), html.EscapeString(cb.Off), checked,
		token, key.Table, key.Field, key.ID, html.EscapeString(next)))
}

// renderFileCell links the stored filename through the file store and adds
// the upload affordance. With no file store the raw filename is shown.
func (s *Service) renderFileCell(b *strings.Builder, g *Grid, fc *model.FieldConfig, key model.EditKey, value string) {
	if value != "" {
		if s.Config.Files != nil {
			url := s.Config.Files.FileURL(key.Table, key.Field, value)
			b.WriteString(fmt.Sprintf("<a href='%s' target='_blank'>%s</a>", url, html.EscapeString(value)))
		} else {
			b.WriteString(html.EscapeString(value))
		}
		b.WriteString(" ")
	}
	label := "Add File"
	if value != "" {
		label = "Replace"
	}
	b.WriteString(fmt.Sprintf("<a class='ajaxcrud-file-add' href='?upload=%s&field=%s&id=%s'>[%s]</a>",
		key.Table, key.Field, key.ID, label))
}
