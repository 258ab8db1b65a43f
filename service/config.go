package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/metazen11/ajaxCRUD/model"
)

// gridDefinitionSchema guards the obvious config mistakes: wrong value
// types and misspelled structural keys. Shorthand forms (relationship as
// "table.field", option as plain string) are legal, so the nested shapes
// stay permissive and the custom unmarshalers do the strict parsing.
const gridDefinitionSchema = `{
	"type": "object",
	"properties": {
		"table":        {"type": "string"},
		"item":         {"type": "string"},
		"pageTitle":    {"type": "string"},
		"pageSize":     {"type": "integer", "minimum": 0},
		"orderBy":      {"type": "string"},
		"orientation":  {"type": "string", "enum": ["", "horizontal", "vertical"]},
		"fields":           {"type": "array", "items": {"type": "string"}},
		"labels":           {"type": "object"},
		"notes":            {"type": "object"},
		"initialValues":    {"type": "object"},
		"classes":          {"type": "object"},
		"editableFields":   {"type": "array", "items": {"type": "string"}},
		"uneditableFields": {"type": "array", "items": {"type": "string"}},
		"addableFields":    {"type": "array", "items": {"type": "string"}},
		"requiredFields":   {"type": "array", "items": {"type": "string"}},
		"searchableFields": {"type": "array", "items": {"type": "string"}},
		"sortableFields":   {"type": "array", "items": {"type": "string"}},
		"relationships":  {"type": "object"},
		"allowedValues":  {"type": "object"},
		"checkboxes":     {"type": "object"},
		"radios":         {"type": "object"},
		"ranges":         {"type": "object"},
		"multiSelects":   {"type": "object"},
		"autocompletes":  {"type": "object"},
		"passwordFields": {"type": "array", "items": {"type": "string"}},
		"richTextFields": {"type": "array", "items": {"type": "string"}},
		"fileFields":     {"type": "array", "items": {"type": "string"}},
		"showCheckbox":   {"type": "boolean"},
		"showCSVExport":  {"type": "boolean"},
		"disallowAdd":    {"type": "boolean"},
		"disallowDelete": {"type": "boolean"},
		"disallowEdit":   {"type": "boolean"},
		"addSpecifyPrimaryKey":       {"type": "boolean"},
		"primaryKeyNotAutoIncrement": {"type": "boolean"},
		"addValues":     {"type": "object"},
		"textThreshold": {"type": "integer", "minimum": 0}
	},
	"additionalProperties": false
}`

var definitionExtensions = []string{".json", ".yaml", ".yml"}

// LoadGridDefinition reads the named grid's config file from the config
// dir. Parsed definitions are cached by file modification time, so editing
// the file on disk takes effect on the next request without a restart.
func (s *Service) LoadGridDefinition(name string) (*model.GridDefinition, error) {
	if !isSafeConfigName(name) {
		return nil, fmt.Errorf("invalid grid name %q", name)
	}

	s.cacheMu.Lock()
	cached, ok := s.gridCache[name]
	s.cacheMu.Unlock()
	// registered definitions have no backing file and never expire
	if ok && cached.ModTime.IsZero() {
		return cached.Definition, nil
	}

	path, info, err := s.findDefinitionFile(name)
	if err != nil {
		return nil, err
	}
	if ok && cached.ModTime.Equal(info.ModTime()) {
		return cached.Definition, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grid config %s: %w", path, err)
	}

	def, err := ParseGridDefinition(data, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("grid config %s: %w", path, err)
	}

	def.GridName = name
	if def.Table == "" {
		def.Table = name
	}

	s.cacheMu.Lock()
	s.gridCache[name] = model.CachedGridDefinition{Definition: def, ModTime: info.ModTime()}
	s.cacheMu.Unlock()

	return def, nil
}

func (s *Service) findDefinitionFile(name string) (string, os.FileInfo, error) {
	for _, ext := range definitionExtensions {
		path := filepath.Join(s.Config.ConfigDir, name+ext)
		if info, err := os.Stat(path); err == nil {
			return path, info, nil
		}
	}
	return "", nil, fmt.Errorf("no grid config found for %q in %s", name, s.Config.ConfigDir)
}

// ParseGridDefinition decodes and validates one definition document. YAML
// goes through a JSON round-trip so both formats share the schema check
// and the custom unmarshalers.
func ParseGridDefinition(data []byte, ext string) (*model.GridDefinition, error) {
	jsonBytes := data
	if ext == ".yaml" || ext == ".yml" {
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		var err error
		jsonBytes, err = json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("convert yaml: %w", err)
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(gridDefinitionSchema),
		gojsonschema.NewBytesLoader(jsonBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if !result.Valid() {
		var reasons []string
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return nil, fmt.Errorf("invalid grid config: %s", strings.Join(reasons, "; "))
	}

	def := &model.GridDefinition{}
	if err := json.Unmarshal(jsonBytes, def); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return def, nil
}

// RegisterGridDefinition installs a code-assembled definition, bypassing
// the config dir. It never expires from the cache.
func (s *Service) RegisterGridDefinition(def *model.GridDefinition) {
	name := def.GridName
	if name == "" {
		name = def.Table
		def.GridName = name
	}
	s.cacheMu.Lock()
	s.gridCache[name] = model.CachedGridDefinition{Definition: def}
	s.cacheMu.Unlock()
}

// isSafeConfigName keeps grid names from escaping the config dir.
func isSafeConfigName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
