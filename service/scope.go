package service

import (
	"strings"
	"sync"
)

// ValueProvider defers a scope value to query-build time, for values that
// depend on request-scoped context (current tenant, session user). Never
// cached across requests.
type ValueProvider func() interface{}

// ScopeRule is one (column, operator, value) constraint. Value may be a
// ValueProvider.
type ScopeRule struct {
	Column   string
	Operator string
	Value    interface{}
}

type globalScopeRule struct {
	ScopeRule
	Except []string
}

// Scope implements model.ScopeProvider: per-table row-visibility rules plus
// global rules with table exceptions, merged into one WHERE fragment. The
// same fragment and parameter order feed both the count query and the data
// query of a render, so pagination metadata can never leak hidden-row
// counts.
type Scope struct {
	mu      sync.RWMutex
	rules   map[string][]ScopeRule
	global  []globalScopeRule
	enabled bool
}

func NewScope() *Scope {
	return &Scope{
		rules:   make(map[string][]ScopeRule),
		enabled: true,
	}
}

// AddRule constrains one table. Operator defaults to "=" when empty;
// IS / IS NOT / IN / NOT IN are understood specially.
func (s *Scope) AddRule(table, column string, value interface{}, operator string) {
	if operator == "" {
		operator = "="
	}
	s.mu.Lock()
	s.rules[table] = append(s.rules[table], ScopeRule{Column: column, Operator: operator, Value: value})
	s.mu.Unlock()
}

// AddGlobalRule constrains every table except those listed. Useful for
// soft-delete or tenant columns present across the schema.
func (s *Scope) AddGlobalRule(column string, value interface{}, operator string, exceptTables ...string) {
	if operator == "" {
		operator = "="
	}
	s.mu.Lock()
	s.global = append(s.global, globalScopeRule{
		ScopeRule: ScopeRule{Column: column, Operator: operator, Value: value},
		Except:    exceptTables,
	})
	s.mu.Unlock()
}

func (s *Scope) ClearRules() {
	s.mu.Lock()
	s.rules = make(map[string][]ScopeRule)
	s.global = nil
	s.mu.Unlock()
}

// Disable suspends all rules (admin operations); Enable restores them.
func (s *Scope) Disable() { s.mu.Lock(); s.enabled = false; s.mu.Unlock() }
func (s *Scope) Enable()  { s.mu.Lock(); s.enabled = true; s.mu.Unlock() }

func (s *Scope) tableRules(table string) []ScopeRule {
	var out []ScopeRule
	out = append(out, s.rules[table]...)
	for _, g := range s.global {
		skip := false
		for _, except := range g.Except {
			if except == table {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, g.ScopeRule)
		}
	}
	return out
}

// WhereClause renders the merged fragment for table, without the WHERE
// keyword. Empty when no rules apply.
func (s *Scope) WhereClause(table string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.enabled {
		return ""
	}

	var conditions []string
	for _, rule := range s.tableRules(table) {
		conditions = append(conditions, buildCondition(rule))
	}
	return strings.Join(conditions, " AND ")
}

// Params returns the bind values for WhereClause in clause order, resolving
// providers at call time.
func (s *Scope) Params(table string) []interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.enabled {
		return nil
	}

	var params []interface{}
	for _, rule := range s.tableRules(table) {
		value := resolveValue(rule.Value)
		if value == nil {
			continue
		}
		switch rule.Operator {
		case "IN", "NOT IN":
			if list, ok := value.([]interface{}); ok {
				params = append(params, list...)
				continue
			}
			params = append(params, value)
		default:
			params = append(params, value)
		}
	}
	return params
}

func buildCondition(rule ScopeRule) string {
	value := resolveValue(rule.Value)

	if value == nil {
		if rule.Operator == "IS NOT" {
			return rule.Column + " IS NOT NULL"
		}
		return rule.Column + " IS NULL"
	}

	if rule.Operator == "IN" || rule.Operator == "NOT IN" {
		if list, ok := value.([]interface{}); ok {
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(list)), ",")
			return rule.Column + " " + rule.Operator + " (" + placeholders + ")"
		}
	}

	return rule.Column + " " + rule.Operator + " ?"
}

func resolveValue(value interface{}) interface{} {
	if provider, ok := value.(ValueProvider); ok {
		return provider()
	}
	if provider, ok := value.(func() interface{}); ok {
		return provider()
	}
	return value
}
