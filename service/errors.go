package service

import "fmt"

// SchemaError is fatal for rendering: the table does not exist or has no
// columns.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error for table %s: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ValidationError rejects one submitted value or identifier before any SQL
// text is constructed. It is surfaced to the offending cell only.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// AuthorizationError means a capability check refused the operation before
// any query executed.
type AuthorizationError struct {
	Table      string
	Capability string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("access denied: %s on %s", e.Capability, e.Table)
}

// NotFoundError reports an absent target row. Updates resolve this by
// inserting a shell row instead; deletes report it as a no-op.
type NotFoundError struct {
	Table string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no row %s in %s", e.ID, e.Table)
}

// StorageError wraps an underlying query failure. The raw driver text is
// logged but never reaches the client.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
