// Package sqlutils reads table shapes from a live database and classifies
// raw column types into the semantic kinds the widget dispatcher works with.
package sqlutils

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/metazen11/ajaxCRUD/model"
)

type columnSchema struct {
	Name         string
	Type         string
	IsPrimaryKey bool
}

var (
	schemaMu    sync.RWMutex
	schemaCache = make(map[string][]columnSchema)
)

// ResetSchemaCache drops the per-process schema cache. Intended for tests
// and for callers that alter tables at runtime.
func ResetSchemaCache() {
	schemaMu.Lock()
	schemaCache = make(map[string][]columnSchema)
	schemaMu.Unlock()
}

func getTableSchema(db *gorm.DB, tableName string) ([]columnSchema, error) {
	schemaMu.RLock()
	cached, ok := schemaCache[tableName]
	schemaMu.RUnlock()
	if ok {
		return cached, nil
	}

	var schema []columnSchema
	dialector := db.Dialector.Name()

	switch dialector {
	case "mysql":
		query := `
			SELECT COLUMN_NAME, COLUMN_TYPE, COLUMN_KEY
			FROM INFORMATION_SCHEMA.COLUMNS
			WHERE TABLE_SCHEMA = DATABASE()
			  AND TABLE_NAME = ?
			ORDER BY ORDINAL_POSITION
		`
		type mysqlCol struct {
			ColumnName string `gorm:"column:COLUMN_NAME"`
			ColumnType string `gorm:"column:COLUMN_TYPE"`
			ColumnKey  string `gorm:"column:COLUMN_KEY"`
		}
		var results []mysqlCol
		if err := db.Raw(query, tableName).Scan(&results).Error; err != nil {
			return nil, err
		}
		for _, col := range results {
			schema = append(schema, columnSchema{
				Name:         col.ColumnName,
				Type:         strings.ToLower(col.ColumnType),
				IsPrimaryKey: col.ColumnKey == "PRI",
			})
		}

	case "postgres":
		query := `
			SELECT
				a.attname AS column_name,
				format_type(a.atttypid, a.atttypmod) AS data_type,
				(i.indisprimary IS TRUE) AS is_primary
			FROM pg_attribute a
			LEFT JOIN pg_index i ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey) AND i.indisprimary
			JOIN pg_class c ON a.attrelid = c.oid
			JOIN pg_namespace n ON c.relnamespace = n.oid
			WHERE c.relname = $1 AND a.attnum > 0 AND NOT a.attisdropped
			ORDER BY a.attnum
		`
		type pgCol struct {
			ColumnName string
			DataType   string
			IsPrimary  sql.NullBool
		}
		var results []pgCol
		if err := db.Raw(query, tableName).Scan(&results).Error; err != nil {
			return nil, err
		}
		for _, col := range results {
			schema = append(schema, columnSchema{
				Name:         col.ColumnName,
				Type:         strings.ToLower(col.DataType),
				IsPrimaryKey: col.IsPrimary.Valid && col.IsPrimary.Bool,
			})
		}

	case "sqlite", "sqlite3":
		type pragmaInfo struct {
			Name string `gorm:"column:name"`
			Type string `gorm:"column:type"`
			PK   int    `gorm:"column:pk"`
		}
		var results []pragmaInfo
		query := fmt.Sprintf("PRAGMA table_info(`%s`);", tableName)
		if err := db.Raw(query).Scan(&results).Error; err != nil {
			return nil, err
		}
		for _, col := range results {
			schema = append(schema, columnSchema{
				Name:         col.Name,
				Type:         strings.ToLower(col.Type),
				IsPrimaryKey: col.PK > 0,
			})
		}

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", dialector)
	}

	schemaMu.Lock()
	schemaCache[tableName] = schema
	schemaMu.Unlock()
	return schema, nil
}

// Describe introspects tableName into an immutable TableDescriptor. A table
// with zero columns (missing or empty) is fatal for rendering.
func Describe(db *gorm.DB, tableName string) (*model.TableDescriptor, error) {
	schema, err := getTableSchema(db, tableName)
	if err != nil {
		return nil, err
	}
	if len(schema) == 0 {
		return nil, fmt.Errorf("no fields in table %s", tableName)
	}

	desc := &model.TableDescriptor{Table: tableName}
	for _, col := range schema {
		desc.Columns = append(desc.Columns, model.ColumnDescriptor{
			Name:    col.Name,
			RawType: col.Type,
			Kind:    Classify(col.Type),
		})
		if col.IsPrimaryKey && desc.PrimaryKey == "" {
			desc.PrimaryKey = col.Name
		}
	}
	if desc.PrimaryKey == "" {
		// fall back to the first column; ajax editing needs some row identity
		desc.PrimaryKey = desc.Columns[0].Name
	}
	return desc, nil
}

// GetPrimaryKeyFieldName resolves just the primary key column of a table.
func GetPrimaryKeyFieldName(db *gorm.DB, tableName string) (string, error) {
	schema, err := getTableSchema(db, tableName)
	if err != nil {
		return "", err
	}
	for _, col := range schema {
		if col.IsPrimaryKey {
			return col.Name, nil
		}
	}
	return "", fmt.Errorf("primary key not found in schema of %s", tableName)
}

// Classify maps a raw column type string to its semantic kind. Pure and
// total: unknown types fall through to text. Precedence matters -- an
// enum('a','b') contains no numeric marker, but int must win before the
// date check sees "int" inside nothing, and so on.
func Classify(rawType string) model.FieldKind {
	t := strings.ToLower(rawType)
	switch {
	case strings.Contains(t, "enum"):
		return model.KindEnum
	case strings.Contains(t, "int"):
		return model.KindInteger
	case strings.Contains(t, "decimal"), strings.Contains(t, "double"),
		strings.Contains(t, "float"), strings.Contains(t, "numeric"),
		strings.Contains(t, "real"):
		return model.KindDecimal
	case strings.Contains(t, "date"), strings.Contains(t, "time"):
		return model.KindDate
	default:
		return model.KindText
	}
}

// EnumValues parses the value list out of an enum('a','b','c') declaration.
func EnumValues(rawType string) []string {
	start := strings.Index(rawType, "(")
	end := strings.LastIndex(rawType, ")")
	if start == -1 || end == -1 || start > end {
		return nil
	}
	inner := rawType[start+1 : end]
	inner = strings.ReplaceAll(inner, "'", "")
	inner = strings.ReplaceAll(inner, `"`, "")
	parts := strings.Split(inner, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		values = append(values, strings.TrimSpace(p))
	}
	return values
}

// IsNumericColumnType reports whether a raw type stores numbers, across the
// mysql/postgres/sqlite spellings.
func IsNumericColumnType(sqlType string) bool {
	sqlType = strings.ToLower(sqlType)
	switch {
	case strings.HasPrefix(sqlType, "int"),
		strings.HasPrefix(sqlType, "bigint"),
		strings.HasPrefix(sqlType, "smallint"),
		strings.HasPrefix(sqlType, "tinyint"),
		strings.HasPrefix(sqlType, "mediumint"),
		strings.HasPrefix(sqlType, "serial"),
		strings.HasPrefix(sqlType, "integer"),
		strings.HasPrefix(sqlType, "float"),
		strings.HasPrefix(sqlType, "double"),
		strings.HasPrefix(sqlType, "real"),
		strings.HasPrefix(sqlType, "numeric"),
		strings.HasPrefix(sqlType, "decimal"):
		return true
	default:
		return false
	}
}

// SanitizeNumericField reduces a submitted value to a number, rejecting
// anything that is not one. Client-side keystroke filtering is advisory
// only; this is the server-side authority.
func SanitizeNumericField(value interface{}) (interface{}, bool) {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, false
		}
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f, true
		}
		return nil, false

	case float64, float32, int, int64, int32, uint, uint64:
		return v, true

	default:
		return nil, false
	}
}

// ValueString renders a scanned cell value the way it should appear in a
// fragment, flattening driver-specific types ([]byte, time.Time).
func ValueString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(v)
	}
}
