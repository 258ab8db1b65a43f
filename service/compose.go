package service

import (
	"fmt"
	"strings"

	"github.com/metazen11/ajaxCRUD/model"
	"github.com/metazen11/ajaxCRUD/utils"
)

// nowMarker is the only submitted value permitted into SQL text instead of
// a bind parameter, matched case-insensitively and substituted as the
// literal function call.
const nowMarker = "NOW()"

func isNowMarker(value interface{}) bool {
	s, ok := value.(string)
	return ok && strings.EqualFold(strings.TrimSpace(s), nowMarker)
}

// SelectQuery carries the request-supplied inputs of one grid render.
// Filters are exact matches; LikeFilters come from the grid's filter boxes
// and match substrings. All values end up as bind parameters; all keys are
// validated against the table's columns before touching SQL text.
type SelectQuery struct {
	Search       string
	SearchFields []string
	Filters      map[string]string
	LikeFilters  map[string]string
	SortField    string
	SortDir      string
	Sortable     []string
	Page         int
	PageSize     int
}

// ComposeSelect resolves one QueryPlan: security scope first, then the
// free-text search OR-group, then field filters, then sort against the
// allow-list with the primary key as fallback, then paging. The returned
// plan renders both the data query and the count query from the same WHERE
// text and parameter sequence.
func ComposeSelect(desc *model.TableDescriptor, scope model.ScopeProvider, q SelectQuery) (*model.QueryPlan, error) {
	plan := &model.QueryPlan{}
	var conditions []string

	if scope != nil {
		if clause := scope.WhereClause(desc.Table); clause != "" {
			conditions = append(conditions, clause)
			plan.Args = append(plan.Args, scope.Params(desc.Table)...)
		}
	}

	// free-text search over the searchable allow-list; with no searchable
	// fields configured the search term is ignored entirely
	if q.Search != "" && len(q.SearchFields) > 0 {
		var likes []string
		for _, field := range q.SearchFields {
			if !desc.HasColumn(field) {
				return nil, &ValidationError{Field: field, Reason: "not a column of " + desc.Table}
			}
			likes = append(likes, utils.SanitizeIdentifier(field)+" LIKE ?")
			plan.Args = append(plan.Args, "%"+q.Search+"%")
		}
		conditions = append(conditions, "("+strings.Join(likes, " OR ")+")")
	}

	appendFilters := func(filters map[string]string, operator string) error {
		for _, field := range sortedKeys(filters) {
			if !utils.IsSafeIdentifier(field) || !desc.HasColumn(field) {
				return &ValidationError{Field: field, Reason: "not a column of " + desc.Table}
			}
			if operator == "LIKE" {
				conditions = append(conditions, field+" LIKE ?")
				plan.Args = append(plan.Args, "%"+filters[field]+"%")
			} else {
				conditions = append(conditions, field+" = ?")
				plan.Args = append(plan.Args, filters[field])
			}
		}
		return nil
	}

	if err := appendFilters(q.Filters, "="); err != nil {
		return nil, err
	}
	if err := appendFilters(q.LikeFilters, "LIKE"); err != nil {
		return nil, err
	}

	plan.Where = strings.Join(conditions, " AND ")

	plan.OrderBy = desc.PrimaryKey
	for _, allowed := range q.Sortable {
		if allowed == q.SortField && desc.HasColumn(allowed) {
			plan.OrderBy = utils.SanitizeIdentifier(allowed)
			break
		}
	}

	if strings.EqualFold(q.SortDir, "asc") {
		plan.OrderDir = "ASC"
	} else {
		plan.OrderDir = "DESC"
	}

	if q.PageSize > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		plan.Limit = q.PageSize
		plan.Offset = (page - 1) * q.PageSize
	}

	return plan, nil
}

// ComposeInsert builds a parameterized INSERT over the submitted columns.
// Column order follows the table descriptor so the statement text is
// deterministic. NOW() submissions become the literal call.
func ComposeInsert(desc *model.TableDescriptor, values map[string]interface{}) (string, []interface{}, error) {
	var columns []string
	var placeholders []string
	var args []interface{}

	for _, col := range desc.Columns {
		value, ok := values[col.Name]
		if !ok {
			continue
		}
		columns = append(columns, col.Name)
		if isNowMarker(value) {
			placeholders = append(placeholders, nowMarker)
		} else {
			placeholders = append(placeholders, "?")
			args = append(args, value)
		}
	}

	for name := range values {
		if !desc.HasColumn(name) {
			return "", nil, &ValidationError{Field: name, Reason: "not a column of " + desc.Table}
		}
	}

	if len(columns) == 0 {
		return "", nil, &ValidationError{Reason: "no columns to insert"}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		desc.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	return query, args, nil
}

// ComposeUpdate builds the single-column UPDATE used by the edit protocol.
func ComposeUpdate(desc *model.TableDescriptor, field string, value, id interface{}) (string, []interface{}, error) {
	if !utils.IsSafeIdentifier(field) || !desc.HasColumn(field) {
		return "", nil, &ValidationError{Field: field, Reason: "not a column of " + desc.Table}
	}

	if isNowMarker(value) {
		query := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = ?",
			desc.Table, field, nowMarker, desc.PrimaryKey)
		return query, []interface{}{id}, nil
	}

	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		desc.Table, field, desc.PrimaryKey)
	return query, []interface{}{value, id}, nil
}

// ComposeDelete builds the single-row DELETE by primary key.
func ComposeDelete(desc *model.TableDescriptor, id interface{}) (string, []interface{}) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", desc.Table, desc.PrimaryKey)
	return query, []interface{}{id}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// deterministic clause order keeps count and data queries textually
	// identical across the two calls of one render
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
