package model

// WidgetKind is the editor strategy bound to one cell. Exactly one kind is
// selected per cell by the dispatcher's precedence rules.
type WidgetKind int

const (
	WidgetReadOnly WidgetKind = iota
	WidgetFile
	WidgetFKDropdown
	WidgetDropdown
	WidgetRadio
	WidgetRange
	WidgetMultiSelect
	WidgetAutocomplete
	WidgetPassword
	WidgetRichText
	WidgetToggle
	WidgetCheckbox
	WidgetEnumDropdown
	WidgetNumber
	WidgetDecimal
	WidgetDate
	WidgetText
	WidgetTextarea
)

func (w WidgetKind) String() string {
	switch w {
	case WidgetReadOnly:
		return "readonly"
	case WidgetFile:
		return "file"
	case WidgetFKDropdown:
		return "fkdropdown"
	case WidgetDropdown:
		return "dropdown"
	case WidgetRadio:
		return "radio"
	case WidgetRange:
		return "range"
	case WidgetMultiSelect:
		return "multiselect"
	case WidgetAutocomplete:
		return "autocomplete"
	case WidgetPassword:
		return "password"
	case WidgetRichText:
		return "richtext"
	case WidgetToggle:
		return "toggle"
	case WidgetCheckbox:
		return "checkbox"
	case WidgetEnumDropdown:
		return "enumdropdown"
	case WidgetNumber:
		return "number"
	case WidgetDecimal:
		return "decimal"
	case WidgetDate:
		return "date"
	case WidgetTextarea:
		return "textarea"
	default:
		return "text"
	}
}

// GridDefinition is the declarative per-table configuration, loaded from a
// JSON or YAML file in the config dir (or assembled in code). Field names in
// the maps refer to database column names.
type GridDefinition struct {
	GridName   string `json:"-" yaml:"-"`
	Table      string `json:"table" yaml:"table"`
	Item       string `json:"item" yaml:"item"`
	PageTitle  string `json:"pageTitle" yaml:"pageTitle"`
	PageSize   int    `json:"pageSize" yaml:"pageSize"`
	OrderBy    string `json:"orderBy" yaml:"orderBy"`
	Orientation string `json:"orientation" yaml:"orientation"`

	Fields           []string          `json:"fields" yaml:"fields"`
	Labels           map[string]string `json:"labels" yaml:"labels"`
	Notes            map[string]string `json:"notes" yaml:"notes"`
	InitialValues    map[string]string `json:"initialValues" yaml:"initialValues"`
	Classes          map[string]string `json:"classes" yaml:"classes"`
	EditableFields   []string          `json:"editableFields" yaml:"editableFields"`
	UneditableFields []string          `json:"uneditableFields" yaml:"uneditableFields"`
	AddableFields    []string          `json:"addableFields" yaml:"addableFields"`
	RequiredFields   []string          `json:"requiredFields" yaml:"requiredFields"`
	SearchableFields []string          `json:"searchableFields" yaml:"searchableFields"`
	SortableFields   []string          `json:"sortableFields" yaml:"sortableFields"`

	Relationships map[string]*RelationshipDescriptor `json:"relationships" yaml:"relationships"`
	AllowedValues map[string][]Option                `json:"allowedValues" yaml:"allowedValues"`
	Checkboxes    map[string]*CheckboxConfig         `json:"checkboxes" yaml:"checkboxes"`
	Radios        map[string]*RadioConfig            `json:"radios" yaml:"radios"`
	Ranges        map[string]*RangeConfig            `json:"ranges" yaml:"ranges"`
	MultiSelects  map[string]*MultiSelectConfig      `json:"multiSelects" yaml:"multiSelects"`
	Autocompletes map[string]*AutocompleteConfig     `json:"autocompletes" yaml:"autocompletes"`
	PasswordFields []string                          `json:"passwordFields" yaml:"passwordFields"`
	RichTextFields []string                          `json:"richTextFields" yaml:"richTextFields"`
	FileFields     []string                          `json:"fileFields" yaml:"fileFields"`

	ShowCheckbox  bool `json:"showCheckbox" yaml:"showCheckbox"`
	ShowCSVExport bool `json:"showCSVExport" yaml:"showCSVExport"`
	DisallowAdd   bool `json:"disallowAdd" yaml:"disallowAdd"`
	DisallowDelete bool `json:"disallowDelete" yaml:"disallowDelete"`
	DisallowEdit   bool `json:"disallowEdit" yaml:"disallowEdit"`

	// AddSpecifyPrimaryKey exposes the primary key on the add form instead
	// of assuming auto-increment.
	AddSpecifyPrimaryKey bool `json:"addSpecifyPrimaryKey" yaml:"addSpecifyPrimaryKey"`
	// PrimaryKeyNotAutoIncrement makes inserts assign MAX(pk)+1 themselves.
	PrimaryKeyNotAutoIncrement bool `json:"primaryKeyNotAutoIncrement" yaml:"primaryKeyNotAutoIncrement"`

	// AddValues are injected into every insert when the submission left the
	// field empty.
	AddValues map[string]string `json:"addValues" yaml:"addValues"`

	// TextThreshold splits plain text cells between single-line input and
	// textarea by the current value's length. Zero means the grid default.
	TextThreshold int `json:"textThreshold" yaml:"textThreshold"`
}

// GridConfig is the process-wide configuration handed to New. The three
// provider fields are the external collaborators; nil means the built-in
// defaults (permit-all authorization, empty scope, no audit).
type GridConfig struct {
	ConfigDir        string
	HeadersTag       string
	PageSize         int
	TextThreshold    int
	EmptyTableMessage string
	BreadcrumbsRootName string
	BreadcrumbsRootURL  string
	DebugSQL         bool

	Authorizer Authorizer
	Scope      ScopeProvider
	Audit      AuditSink
	Files      FileStore
}

// Authorizer answers table-scoped capability checks. Row data is passed to
// the mutating checks when available so implementations may refine per row.
type Authorizer interface {
	CanRead(table string, row map[string]interface{}) bool
	CanWrite(table string, row map[string]interface{}) bool
	CanDelete(table string, row map[string]interface{}) bool
}

// ScopeProvider supplies the row-level-security WHERE fragment and its bind
// parameters for a table. Both methods must be called for every query of a
// single render so count and data queries agree.
type ScopeProvider interface {
	WhereClause(table string) string
	Params(table string) []interface{}
}

// AuditSink receives change notifications after successful writes. Sink
// failures must never abort the primary operation; callers swallow and log.
type AuditSink interface {
	LogInsert(table, id string, newData map[string]interface{})
	LogUpdate(table, id string, oldData, newData map[string]interface{})
	LogDelete(table, id string, oldData map[string]interface{})
}

// FileStore resolves stored file column values to links. Actual storage is
// outside this module; the grid only renders the affordances.
type FileStore interface {
	FileURL(table, field, filename string) string
}
