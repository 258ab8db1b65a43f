package service

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/metazen11/ajaxCRUD/model"
	"github.com/metazen11/ajaxCRUD/utils/sqlutils"
)

// renderState is the request-scoped input of one grid render: the resolved
// grid plus everything the client sent (page, sort, filters).
type renderState struct {
	grid      *Grid
	page      int
	sortField string
	sortDir   string
	search    string
	filters   map[string]string
	exact     map[string]string
	baseURL   string
}

// reservedParams are protocol and navigation parameter names that can never
// be read as field filters, even when a column shares the name.
var reservedParams = map[string]bool{
	"action": true, "table": true, "field": true, "id": true, "pk": true,
	"value": true, "val": true, "page": true, "sort": true, "dir": true,
	"order": true, "q": true, "export": true,
}

func (s *Service) parseRenderState(ctx *gin.Context, g *Grid) renderState {
	st := renderState{
		grid:    g,
		page:    1,
		sortDir: "desc",
		filters: map[string]string{},
		exact:   map[string]string{},
		baseURL: ctx.Request.URL.Path,
	}

	fmt.Sscanf(formValue(ctx, "page"), "%d", &st.page)
	if st.page < 1 {
		st.page = 1
	}

	st.sortField = formValue(ctx, "sort")
	if st.sortField == "" {
		st.sortField = g.Def.OrderBy
	}
	dir := formValue(ctx, "dir")
	if dir == "" {
		dir = formValue(ctx, "order")
	}
	if strings.EqualFold(dir, "asc") {
		st.sortDir = "asc"
	}

	// any displayed column can be filtered on, independent of the search
	// allow-list: filter_<field> matches substrings, a bare <field>
	// parameter matches exactly
	st.search = formValue(ctx, "q")
	for _, field := range g.DisplayFields {
		if v := formValue(ctx, "filter_"+field); v != "" {
			st.filters[field] = v
		}
		if reservedParams[field] {
			continue
		}
		if v := formValue(ctx, field); v != "" {
			st.exact[field] = v
		}
	}

	return st
}

// stickyParams carries the current search and filter values into generated
// navigation links, so paging or re-sorting keeps the filtered view.
func (st renderState) stickyParams() url.Values {
	v := url.Values{}
	if st.search != "" {
		v.Set("q", st.search)
	}
	for field, value := range st.filters {
		v.Set("filter_"+field, value)
	}
	for field, value := range st.exact {
		v.Set(field, value)
	}
	return v
}

// sortableFields is the sort allow-list: the configured list, or every
// displayed column when none is configured.
func (g *Grid) sortableFields() []string {
	if len(g.Def.SortableFields) > 0 {
		return g.Def.SortableFields
	}
	return g.DisplayFields
}

// FetchPage runs the composed count and data queries and returns the page.
// Both queries share the exact same WHERE text and bind sequence.
func (s *Service) FetchPage(g *Grid, st renderState) (*model.PageResult, error) {
	plan, err := ComposeSelect(g.Desc, s.Config.Scope, SelectQuery{
		Search:       st.search,
		SearchFields: g.Def.SearchableFields,
		Filters:      st.exact,
		LikeFilters:  st.filters,
		SortField:    st.sortField,
		SortDir:      st.sortDir,
		Sortable:     g.sortableFields(),
	})
	if err != nil {
		return nil, err
	}

	var total int64
	if err := s.DB.Raw(plan.CountSQL(g.Desc.Table), plan.Args...).Scan(&total).Error; err != nil {
		return nil, &StorageError{Op: "count " + g.Desc.Table, Err: err}
	}

	info := Paginate(total, g.PageSize, st.page)
	plan.Limit = g.PageSize
	plan.Offset = info.Offset

	columns := g.DisplayFields
	if !contains(columns, g.Desc.PrimaryKey) {
		columns = append([]string{g.Desc.PrimaryKey}, columns...)
	}

	rows := []map[string]interface{}{}
	if err := s.DB.Raw(plan.SelectSQL(g.Desc.Table, columns), plan.Args...).Scan(&rows).Error; err != nil {
		return nil, &StorageError{Op: "select " + g.Desc.Table, Err: err}
	}

	return &model.PageResult{
		Rows:        rows,
		TotalCount:  total,
		CurrentPage: info.EffectivePage,
		PageSize:    g.PageSize,
		TotalPages:  info.TotalPages,
	}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// RenderGrid builds the full grid markup for one table: title, filter row,
// data table, pagination and the add form.
func (s *Service) RenderGrid(ctx *gin.Context, def *model.GridDefinition) (string, error) {
	g, err := s.BuildGrid(def)
	if err != nil {
		return "", err
	}

	if !s.Config.Authorizer.CanRead(def.Table, nil) {
		return "", &AuthorizationError{Table: def.Table, Capability: "read"}
	}

	st := s.parseRenderState(ctx, g)
	page, err := s.FetchPage(g, st)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	title := def.PageTitle
	if title == "" {
		title = def.Table
	}
	b.WriteString(fmt.Sprintf("<%s>%s</%s>\n", s.Config.HeadersTag, html.EscapeString(title), s.Config.HeadersTag))

	b.WriteString(fmt.Sprintf("<div class='ajaxcrud-grid' id='grid_%s' data-table='%s'>\n", def.Table, def.Table))

	if len(def.SearchableFields) > 0 {
		s.renderFilterForm(&b, g, st)
	}

	if len(page.Rows) == 0 {
		b.WriteString(fmt.Sprintf("<p class='ajaxcrud-empty'>%s</p>\n", html.EscapeString(s.Config.EmptyTableMessage)))
	} else if g.Orientation == "vertical" {
		s.renderVertical(&b, g, page)
	} else {
		s.renderHorizontal(&b, g, st, page)
	}

	sticky := st.stickyParams()
	if st.sortField != "" {
		sticky.Set("sort", st.sortField)
		sticky.Set("dir", st.sortDir)
	}
	b.WriteString(buildPaginationLinks(page.TotalCount, g.PageSize, page.CurrentPage, st.baseURL, sticky))

	if def.ShowCSVExport {
		b.WriteString(fmt.Sprintf("<form method='get' action='%s' class='ajaxcrud-csv'><input type='hidden' name='export' value='csv'><input type='submit' value='Export CSV'></form>\n", st.baseURL))
	}

	if !def.DisallowAdd && s.Config.Authorizer.CanWrite(def.Table, nil) {
		s.renderAddForm(&b, g)
	}

	b.WriteString("</div>\n")
	return b.String(), nil
}

func (s *Service) renderFilterForm(b *strings.Builder, g *Grid, st renderState) {
	b.WriteString(fmt.Sprintf("<form method='get' action='%s' class='ajaxcrud-filters'>\n", st.baseURL))
	for _, field := range g.Def.SearchableFields {
		fc := g.FieldConfig(field)
		b.WriteString(fmt.Sprintf("<label>%s <input type='text' name='filter_%s' value='%s'></label>\n",
			html.EscapeString(fc.Label), field, html.EscapeString(st.filters[field])))
	}
	b.WriteString("<input type='submit' value='Filter'> <a href='" + st.baseURL + "'>Clear</a>\n")
	b.WriteString("</form>\n")
}

func (s *Service) renderHorizontal(b *strings.Builder, g *Grid, st renderState, page *model.PageResult) {
	def := g.Def
	canDelete := !def.DisallowDelete && s.Config.Authorizer.CanDelete(def.Table, nil)

	b.WriteString("<table class='ajaxcrud-table'>\n<thead><tr>\n")
	if def.ShowCheckbox {
		b.WriteString("<th class='ajaxcrud-checkcol'><input type='checkbox' onclick=\"ajaxcrudCheckAll(this)\"></th>\n")
	}
	for _, field := range g.DisplayFields {
		s.renderHeaderCell(b, g, st, field)
	}
	if canDelete {
		b.WriteString("<th></th>\n")
	}
	b.WriteString("</tr></thead>\n<tbody>\n")

	for _, row := range page.Rows {
		id := sqlutils.ValueString(row[g.Desc.PrimaryKey])
		b.WriteString("<tr>\n")
		if def.ShowCheckbox {
			b.WriteString(fmt.Sprintf("<td><input type='checkbox' class='ajaxcrud-rowcheck' value='%s'></td>\n", html.EscapeString(id)))
		}
		for _, field := range g.DisplayFields {
			s.renderBodyCell(b, g, field, id, row)
		}
		if canDelete {
			b.WriteString(fmt.Sprintf("<td><a class='ajaxcrud-delete' href='#' onclick=\"return ajaxcrudDelete('%s','%s')\">delete</a></td>\n",
				def.Table, html.EscapeString(id)))
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n")
}

// renderVertical turns each row into its own two-column table, label on
// the left and the editable cell on the right.
func (s *Service) renderVertical(b *strings.Builder, g *Grid, page *model.PageResult) {
	for _, row := range page.Rows {
		id := sqlutils.ValueString(row[g.Desc.PrimaryKey])
		b.WriteString("<table class='ajaxcrud-table ajaxcrud-vertical'>\n")
		for _, field := range g.DisplayFields {
			fc := g.FieldConfig(field)
			b.WriteString(fmt.Sprintf("<tr><th>%s</th>", html.EscapeString(fc.Label)))
			s.renderBodyCell(b, g, field, id, row)
			b.WriteString("</tr>\n")
		}
		b.WriteString("</table>\n")
	}
}

// renderHeaderCell writes one column header; sortable columns link back
// with the sort toggled. Clicking the current sort column flips direction,
// a fresh column starts descending.
func (s *Service) renderHeaderCell(b *strings.Builder, g *Grid, st renderState, field string) {
	fc := g.FieldConfig(field)
	if !contains(g.sortableFields(), field) {
		b.WriteString(fmt.Sprintf("<th>%s</th>\n", html.EscapeString(fc.Label)))
		return
	}

	nextDir := "desc"
	marker := ""
	if st.sortField == field {
		if st.sortDir == "desc" {
			nextDir = "asc"
			marker = " &#9660;"
		} else {
			marker = " &#9650;"
		}
	}
	params := st.stickyParams()
	params.Set("sort", field)
	params.Set("dir", nextDir)
	b.WriteString(fmt.Sprintf("<th><a href='%s?%s'>%s</a>%s</th>\n",
		st.baseURL, params.Encode(), html.EscapeString(fc.Label), marker))
}

func (s *Service) renderBodyCell(b *strings.Builder, g *Grid, field, id string, row map[string]interface{}) {
	fc := g.FieldConfig(field)
	col := g.Desc.Column(field)
	value := sqlutils.ValueString(row[field])

	class := "ajaxcrud-cell"
	if fc.Class != "" {
		class += " " + fc.Class
	}
	b.WriteString(fmt.Sprintf("<td class='%s'>", class))
	key := model.EditKey{Table: g.Desc.Table, Field: field, ID: id}
	s.renderCell(b, g, key, fc, col, value)
	b.WriteString("</td>\n")
}

// renderAddForm writes the new-row form under the grid. NOW() initial
// values are shown literally and travel to the insert as the marker.
func (s *Service) renderAddForm(b *strings.Builder, g *Grid) {
	def := g.Def
	item := def.Item
	if item == "" {
		item = "record"
	}

	b.WriteString(fmt.Sprintf("<form method='post' class='ajaxcrud-add' data-table='%s'>\n", def.Table))
	b.WriteString("<input type='hidden' name='action' value='add'>\n")
	b.WriteString(fmt.Sprintf("<fieldset><legend>Add %s</legend>\n", html.EscapeString(item)))

	for _, col := range g.Desc.Columns {
		fc := g.FieldConfig(col.Name)
		if !fc.Addable {
			continue
		}
		required := ""
		star := ""
		if fc.Required {
			required = " required"
			star = " <span class='ajaxcrud-required'>*</span>"
		}
		b.WriteString(fmt.Sprintf("<label>%s%s ", html.EscapeString(fc.Label), star))
		s.renderAddInput(b, g, fc, &col, required)
		if fc.Note != "" {
			b.WriteString(fmt.Sprintf(" <small>%s</small>", html.EscapeString(fc.Note)))
		}
		b.WriteString("</label>\n")
	}

	b.WriteString(fmt.Sprintf("<input type='submit' value='Add %s'>\n", html.EscapeString(item)))
	b.WriteString("</fieldset>\n</form>\n")
}

func (s *Service) renderAddInput(b *strings.Builder, g *Grid, fc *model.FieldConfig, col *model.ColumnDescriptor, required string) {
	name := "add_" + col.Name
	initial := html.EscapeString(fc.InitialValue)

	switch {
	case fc.Relationship != nil:
		options, err := s.relationshipOptions(fc.Relationship)
		if err != nil {
			s.logError(err)
		}
		b.WriteString(fmt.Sprintf("<select name='%s'%s>", name, required))
		if !fc.Relationship.Required {
			b.WriteString("<option value=''>--Select--</option>")
		}
		for _, opt := range options {
			b.WriteString(fmt.Sprintf("<option value='%s'>%s</option>",
				html.EscapeString(opt.Value), html.EscapeString(opt.Label)))
		}
		b.WriteString("</select>")
	case len(fc.AllowedValues) > 0:
		b.WriteString(fmt.Sprintf("<select name='%s'%s>", name, required))
		for _, opt := range fc.AllowedValues {
			b.WriteString(fmt.Sprintf("<option value='%s'>%s</option>",
				html.EscapeString(opt.Value), html.EscapeString(opt.Label)))
		}
		b.WriteString("</select>")
	case fc.Checkbox != nil:
		b.WriteString(fmt.Sprintf("<input type='checkbox' name='%s' value='%s'>", name, html.EscapeString(fc.Checkbox.On)))
	case fc.Password:
		b.WriteString(fmt.Sprintf("<input type='password' name='%s'%s>", name, required))
	case col.Kind == model.KindEnum:
		b.WriteString(fmt.Sprintf("<select name='%s'%s>", name, required))
		for _, opt := range enumOptions(col) {
			b.WriteString(fmt.Sprintf("<option value='%s'>%s</option>",
				html.EscapeString(opt.Value), html.EscapeString(opt.Label)))
		}
		b.WriteString("</select>")
	case col.Kind == model.KindInteger:
		b.WriteString(fmt.Sprintf("<input type='number' step='1' name='%s' value='%s'%s>", name, initial, required))
	case col.Kind == model.KindDecimal:
		b.WriteString(fmt.Sprintf("<input type='number' step='0.01' name='%s' value='%s'%s>", name, initial, required))
	case col.Kind == model.KindDate && !isNowMarker(fc.InitialValue):
		b.WriteString(fmt.Sprintf("<input type='date' name='%s' value='%s'%s>", name, initial, required))
	default:
		b.WriteString(fmt.Sprintf("<input type='text' name='%s' value='%s'%s>", name, initial, required))
	}
}
