package service

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/metazen11/ajaxCRUD/model"
	"github.com/metazen11/ajaxCRUD/utils"
	"github.com/metazen11/ajaxCRUD/utils/sqlutils"
)

// selectboxSentinel tells the client to rebuild the cell's dropdown from
// the grid markup instead of splicing in a text value.
const selectboxSentinel = "{selectbox}"

// emptyCellText keeps an emptied cell clickable in the display fragment.
const emptyCellText = "&nbsp;&nbsp;"

// HandleEdit is the single ajax endpoint of the edit session. Responses
// are plain text in the pipe format the client splits on:
//
//	<token>|<display value>        committed update
//	error|<token>|<previous>       rejected update, client reverts
//	<table>|<id>                   committed delete
//
// where token is table+field+id as embedded in the cell's DOM ids.
// filter and sort are idempotent refresh actions: they answer the freshly
// rendered grid fragment for the submitted parameters and the client
// replaces the container wholesale.
func (s *Service) HandleEdit(ctx *gin.Context) {
	switch formValue(ctx, "action") {
	case "update":
		s.handleUpdate(ctx)
	case "add":
		s.handleAdd(ctx)
	case "delete":
		s.handleDelete(ctx)
	case "filter", "sort":
		s.handleRefresh(ctx)
	case "getRowCount":
		s.handleRowCount(ctx)
	default:
		ctx.String(http.StatusBadRequest, "unknown action")
	}
}

// formValue reads a protocol parameter from the form body or the query
// string, whichever carries it.
func formValue(ctx *gin.Context, name string) string {
	if v := ctx.PostForm(name); v != "" {
		return v
	}
	return ctx.Query(name)
}

func (s *Service) editInputs(ctx *gin.Context) (table, field, id string, ok bool) {
	table = formValue(ctx, "table")
	field = formValue(ctx, "field")
	id = formValue(ctx, "id")
	// the pk parameter names the key column; we introspect it ourselves,
	// but a malformed one is still a protocol violation
	pk := formValue(ctx, "pk")
	if !utils.IsSafeIdentifier(table) ||
		(field != "" && !utils.IsSafeIdentifier(field)) ||
		(pk != "" && !utils.IsSafeIdentifier(pk)) ||
		id == "" {
		ctx.String(http.StatusBadRequest, "invalid parameters")
		return "", "", "", false
	}
	return table, field, id, true
}

// editValue reads the submitted cell value, accepting both the short and
// long parameter spellings.
func editValue(ctx *gin.Context) string {
	if _, ok := ctx.GetPostForm("val"); ok {
		return ctx.PostForm("val")
	}
	return ctx.PostForm("value")
}

// fetchRow loads one row by primary key. A nil map with nil error means
// the row does not exist.
func (s *Service) fetchRow(desc *model.TableDescriptor, id string) (map[string]interface{}, error) {
	rows := []map[string]interface{}{}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? LIMIT 1", desc.Table, desc.PrimaryKey)
	if err := s.DB.Raw(query, id).Scan(&rows).Error; err != nil {
		return nil, &StorageError{Op: "fetch " + desc.Table, Err: err}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *Service) handleUpdate(ctx *gin.Context) {
	table, field, id, ok := s.editInputs(ctx)
	if !ok {
		return
	}
	value := editValue(ctx)

	def, err := s.LoadGridDefinition(table)
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("update: no grid for %s: %v", table, err))
		return
	}
	g, err := s.BuildGrid(def)
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("update: %v", err))
		return
	}

	key := model.EditKey{Table: table, Field: field, ID: id}
	token := key.Token()
	fc := g.FieldConfig(field)
	col := g.Desc.Column(field)

	row, err := s.fetchRow(g.Desc, id)
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("update: %v", err))
		return
	}
	previous := ""
	if row != nil {
		previous = s.displayValue(fc, sqlutils.ValueString(row[field]))
	}
	if previous == "" {
		previous = emptyCellText
	}

	reject := func(logMsg string) {
		if logMsg != "" {
			s.logError(fmt.Errorf("update %s.%s id=%s rejected: %s", table, field, id, logMsg))
		}
		ctx.String(http.StatusOK, "error|"+token+"|"+previous)
	}

	if col == nil || !fc.Editable {
		reject("field is not editable")
		return
	}
	if !s.Config.Authorizer.CanWrite(table, row) {
		reject("write not permitted")
		return
	}

	// a stale client can still hold an edit fragment for a row someone
	// else removed; recreate the shell row so the edit lands
	if row == nil {
		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", g.Desc.Table, g.Desc.PrimaryKey)
		if err := s.DB.Exec(insert, id).Error; err != nil {
			s.logError(&StorageError{Op: "shell row " + table, Err: err})
			reject("")
			return
		}
		row = map[string]interface{}{g.Desc.PrimaryKey: id}
	}

	var storeValue interface{} = value
	if sqlutils.IsNumericColumnType(col.RawType) && !isNowMarker(value) {
		if value == "" {
			storeValue = nil
		} else {
			sanitized, numOK := sqlutils.SanitizeNumericField(value)
			if !numOK {
				reject("non-numeric value for numeric column")
				return
			}
			storeValue = sanitized
			value = fmt.Sprint(sanitized)
		}
	}

	query, args, err := ComposeUpdate(g.Desc, field, storeValue, id)
	if err != nil {
		reject(err.Error())
		return
	}
	if err := s.DB.Exec(query, args...).Error; err != nil {
		s.logError(&StorageError{Op: "update " + table, Err: err})
		reject("")
		return
	}

	s.audit(func() {
		s.Config.Audit.LogUpdate(table, id, row, map[string]interface{}{field: storeValue})
	})

	if fc.Relationship != nil {
		ctx.String(http.StatusOK, token+"|"+selectboxSentinel)
		return
	}
	display := s.displayValue(fc, value)
	if display == "" {
		display = emptyCellText
	}
	ctx.String(http.StatusOK, token+"|"+display)
}

func (s *Service) handleDelete(ctx *gin.Context) {
	table, _, id, ok := s.editInputs(ctx)
	if !ok {
		return
	}

	def, err := s.LoadGridDefinition(table)
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("delete: no grid for %s: %v", table, err))
		return
	}
	g, err := s.BuildGrid(def)
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("delete: %v", err))
		return
	}

	if def.DisallowDelete {
		ctx.String(http.StatusForbidden, "deleting is disabled for this table")
		return
	}

	row, err := s.fetchRow(g.Desc, id)
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("delete: %v", err))
		return
	}
	if row == nil {
		missing := &NotFoundError{Table: table, ID: id}
		s.logError(missing)
		ctx.String(http.StatusNotFound, missing.Error())
		return
	}
	if !s.Config.Authorizer.CanDelete(table, row) {
		ctx.String(http.StatusForbidden, "you do not have permission to delete this record")
		return
	}

	query, args := ComposeDelete(g.Desc, id)
	if err := s.DB.Exec(query, args...).Error; err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("delete %s id=%s: %v", table, id, err))
		return
	}

	s.audit(func() {
		s.Config.Audit.LogDelete(table, id, row)
	})

	// the client fades out every DOM row sharing this identity
	ctx.String(http.StatusOK, table+"|"+id)
}

// handleRefresh re-renders the grid fragment for the submitted filter and
// sort parameters. Repeating the same request yields the same fragment.
func (s *Service) handleRefresh(ctx *gin.Context) {
	table := formValue(ctx, "table")
	if !utils.IsSafeIdentifier(table) {
		ctx.String(http.StatusBadRequest, "invalid parameters")
		return
	}

	def, err := s.LoadGridDefinition(table)
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("refresh: no grid for %s: %v", table, err))
		return
	}

	fragment, err := s.RenderGrid(ctx, def)
	if err != nil {
		if _, ok := err.(*AuthorizationError); ok {
			ctx.String(http.StatusForbidden, "you do not have permission to view this table")
			return
		}
		s.SomethingWentWrong(ctx, fmt.Sprintf("refresh: %v", err))
		return
	}
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fragment))
}

func (s *Service) handleAdd(ctx *gin.Context) {
	table := formValue(ctx, "table")
	if !utils.IsSafeIdentifier(table) {
		ctx.String(http.StatusBadRequest, "invalid parameters")
		return
	}

	def, err := s.LoadGridDefinition(table)
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("add: no grid for %s: %v", table, err))
		return
	}
	g, err := s.BuildGrid(def)
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("add: %v", err))
		return
	}

	if def.DisallowAdd {
		ctx.String(http.StatusForbidden, "adding is disabled for this table")
		return
	}
	if !s.Config.Authorizer.CanWrite(table, nil) {
		ctx.String(http.StatusForbidden, "you do not have permission to add records")
		return
	}

	values := map[string]interface{}{}
	for _, col := range g.Desc.Columns {
		fc := g.FieldConfig(col.Name)
		if !fc.Addable {
			continue
		}
		v := ctx.PostForm("add_" + col.Name)
		if v == "" {
			if fill, ok := def.AddValues[col.Name]; ok {
				v = fill
			} else if fc.InitialValue != "" && isNowMarker(fc.InitialValue) {
				v = fc.InitialValue
			}
		}
		if v == "" {
			if fc.Required {
				ctx.String(http.StatusBadRequest, fmt.Sprintf("%s is required", fc.Label))
				return
			}
			continue
		}
		if sqlutils.IsNumericColumnType(col.RawType) && !isNowMarker(v) {
			sanitized, numOK := sqlutils.SanitizeNumericField(v)
			if !numOK {
				ctx.String(http.StatusBadRequest, fmt.Sprintf("%s must be numeric", fc.Label))
				return
			}
			values[col.Name] = sanitized
			continue
		}
		values[col.Name] = v
	}

	// tables without auto-increment keys get the next free key assigned here
	if def.PrimaryKeyNotAutoIncrement {
		if _, set := values[g.Desc.PrimaryKey]; !set {
			nextID, err := s.nextPrimaryKey(g.Desc)
			if err != nil {
				s.SomethingWentWrong(ctx, fmt.Sprintf("add: %v", err))
				return
			}
			values[g.Desc.PrimaryKey] = nextID
		}
	}

	query, args, err := ComposeInsert(g.Desc, values)
	if err != nil {
		ctx.String(http.StatusBadRequest, err.Error())
		return
	}
	if err := s.DB.Exec(query, args...).Error; err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("insert into %s: %v", table, err))
		return
	}

	id := fmt.Sprint(values[g.Desc.PrimaryKey])
	if !def.PrimaryKeyNotAutoIncrement {
		var lastID int64
		if err := s.DB.Raw(fmt.Sprintf("SELECT MAX(%s) FROM %s", g.Desc.PrimaryKey, g.Desc.Table)).Scan(&lastID).Error; err == nil {
			id = fmt.Sprint(lastID)
		}
	}

	s.audit(func() {
		s.Config.Audit.LogInsert(table, id, values)
	})

	if referer := ctx.Request.Referer(); referer != "" {
		ctx.Redirect(http.StatusFound, referer)
		return
	}
	ctx.String(http.StatusOK, "added|"+id)
}

func (s *Service) nextPrimaryKey(desc *model.TableDescriptor) (int64, error) {
	var maxID int64
	query := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s", desc.PrimaryKey, desc.Table)
	if err := s.DB.Raw(query).Scan(&maxID).Error; err != nil {
		return 0, &StorageError{Op: "next key for " + desc.Table, Err: err}
	}
	return maxID + 1, nil
}

// handleRowCount answers the scoped row count for the table, honoring the
// same filters as the grid render.
func (s *Service) handleRowCount(ctx *gin.Context) {
	table := formValue(ctx, "table")
	if !utils.IsSafeIdentifier(table) {
		ctx.String(http.StatusBadRequest, "invalid parameters")
		return
	}

	def, err := s.LoadGridDefinition(table)
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("rowcount: no grid for %s: %v", table, err))
		return
	}
	g, err := s.BuildGrid(def)
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("rowcount: %v", err))
		return
	}
	if !s.Config.Authorizer.CanRead(table, nil) {
		ctx.String(http.StatusForbidden, "you do not have permission to view this table")
		return
	}

	st := s.parseRenderState(ctx, g)
	plan, err := ComposeSelect(g.Desc, s.Config.Scope, SelectQuery{
		Search:       st.search,
		SearchFields: def.SearchableFields,
		Filters:      st.exact,
		LikeFilters:  st.filters,
	})
	if err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("rowcount: %v", err))
		return
	}

	var total int64
	if err := s.DB.Raw(plan.CountSQL(g.Desc.Table), plan.Args...).Scan(&total).Error; err != nil {
		s.SomethingWentWrong(ctx, fmt.Sprintf("rowcount %s: %v", table, err))
		return
	}
	ctx.String(http.StatusOK, fmt.Sprint(total))
}
