package service

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/metazen11/ajaxCRUD/model"
	"github.com/metazen11/ajaxCRUD/utils/sqlutils"
)

// ExportCSV streams the grid's current result set as a CSV download. The
// export honors the same scope and filters as the rendered grid but
// ignores paging: every matching row goes out. Cell values are the display
// values, so foreign keys export as their labels.
func (s *Service) ExportCSV(ctx *gin.Context, def *model.GridDefinition) error {
	g, err := s.BuildGrid(def)
	if err != nil {
		return err
	}
	if !s.Config.Authorizer.CanRead(def.Table, nil) {
		return &AuthorizationError{Table: def.Table, Capability: "read"}
	}

	st := s.parseRenderState(ctx, g)
	plan, err := ComposeSelect(g.Desc, s.Config.Scope, SelectQuery{
		Search:       st.search,
		SearchFields: def.SearchableFields,
		LikeFilters:  st.filters,
		SortField:    st.sortField,
		SortDir:      st.sortDir,
		Sortable:     g.sortableFields(),
	})
	if err != nil {
		return err
	}

	rows := []map[string]interface{}{}
	if err := s.DB.Raw(plan.SelectSQL(g.Desc.Table, g.DisplayFields), plan.Args...).Scan(&rows).Error; err != nil {
		return &StorageError{Op: "export " + g.Desc.Table, Err: err}
	}

	filename := fmt.Sprintf("%s.csv", def.Table)
	ctx.Header("Content-Type", "text/csv; charset=utf-8")
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Status(http.StatusOK)

	w := csv.NewWriter(ctx.Writer)

	header := make([]string, len(g.DisplayFields))
	for i, field := range g.DisplayFields {
		header[i] = csvHeaderLabel(g.FieldConfig(field).Label)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, len(g.DisplayFields))
	for _, row := range rows {
		for i, field := range g.DisplayFields {
			fc := g.FieldConfig(field)
			if fc.Password {
				record[i] = ""
				continue
			}
			record[i] = s.displayValue(fc, sqlutils.ValueString(row[field]))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// csvHeaderLabel softens the all-caps ID labels for spreadsheet headers.
func csvHeaderLabel(label string) string {
	if label == "ID" {
		return "Id"
	}
	return strings.ReplaceAll(label, " ID", " Id")
}
