package service

// PermitAll is the default Authorizer: every capability check passes.
type PermitAll struct{}

func (PermitAll) CanRead(string, map[string]interface{}) bool   { return true }
func (PermitAll) CanWrite(string, map[string]interface{}) bool  { return true }
func (PermitAll) CanDelete(string, map[string]interface{}) bool { return true }

// TablePermissions are the three capabilities for one table.
type TablePermissions struct {
	Read   bool
	Write  bool
	Delete bool
}

// SimpleRBAC authorizes per-table from a static permission map. Tables
// without an entry fall back to Default.
type SimpleRBAC struct {
	Default TablePermissions
	tables  map[string]TablePermissions
}

func NewSimpleRBAC(defaults TablePermissions) *SimpleRBAC {
	return &SimpleRBAC{
		Default: defaults,
		tables:  make(map[string]TablePermissions),
	}
}

func (a *SimpleRBAC) SetTablePermissions(table string, perms TablePermissions) {
	a.tables[table] = perms
}

func (a *SimpleRBAC) permsFor(table string) TablePermissions {
	if perms, ok := a.tables[table]; ok {
		return perms
	}
	return a.Default
}

func (a *SimpleRBAC) CanRead(table string, _ map[string]interface{}) bool {
	return a.permsFor(table).Read
}

func (a *SimpleRBAC) CanWrite(table string, _ map[string]interface{}) bool {
	return a.permsFor(table).Write
}

func (a *SimpleRBAC) CanDelete(table string, _ map[string]interface{}) bool {
	return a.permsFor(table).Delete
}

// RolePermissions returns the preset capability set for a named role:
// admin and editor may write, only admin may delete, viewer reads, guest
// gets nothing.
func RolePermissions(role string) TablePermissions {
	switch role {
	case "admin":
		return TablePermissions{Read: true, Write: true, Delete: true}
	case "editor":
		return TablePermissions{Read: true, Write: true}
	case "viewer":
		return TablePermissions{Read: true}
	default:
		return TablePermissions{}
	}
}
