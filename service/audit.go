package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEntry is one recorded change. Old/new values are stored as JSON
// text so the log table works for any audited table.
type AuditEntry struct {
	ID        string `gorm:"primaryKey"`
	TableName string
	RecordID  string
	Action    string
	OldValues string
	NewValues string
	Changes   string
	UserID    string
	CreatedAt time.Time
}

// DBAuditLog writes audit entries into a dedicated table through gorm. It
// implements model.AuditSink. Errors are logged and swallowed: audit is a
// non-essential side effect and must never block the primary write.
type DBAuditLog struct {
	DB        *gorm.DB
	TableName string
	// UserID resolves the acting user per entry; nil leaves the column empty.
	UserID func() string
}

func NewDBAuditLog(db *gorm.DB) *DBAuditLog {
	return &DBAuditLog{DB: db, TableName: "audit_log"}
}

// CreateTable sets up the audit table. Callers typically run this once at
// bootstrap.
func (a *DBAuditLog) CreateTable() error {
	return a.DB.Table(a.TableName).AutoMigrate(&AuditEntry{})
}

func (a *DBAuditLog) LogInsert(table, id string, newData map[string]interface{}) {
	a.write(AuditEntry{
		TableName: table,
		RecordID:  id,
		Action:    "INSERT",
		NewValues: marshalValues(newData),
	})
}

func (a *DBAuditLog) LogUpdate(table, id string, oldData, newData map[string]interface{}) {
	a.write(AuditEntry{
		TableName: table,
		RecordID:  id,
		Action:    "UPDATE",
		OldValues: marshalValues(oldData),
		NewValues: marshalValues(newData),
		Changes:   marshalValues(diffValues(oldData, newData)),
	})
}

func (a *DBAuditLog) LogDelete(table, id string, oldData map[string]interface{}) {
	a.write(AuditEntry{
		TableName: table,
		RecordID:  id,
		Action:    "DELETE",
		OldValues: marshalValues(oldData),
	})
}

func (a *DBAuditLog) write(entry AuditEntry) {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	if a.UserID != nil {
		entry.UserID = a.UserID()
	}

	if err := a.DB.Table(a.TableName).Create(&entry).Error; err != nil {
		log.Printf("ajaxcrud: audit write failed for %s/%s: %v", entry.TableName, entry.RecordID, err)
	}
}

// RecordHistory returns the most recent entries for one row, newest first.
func (a *DBAuditLog) RecordHistory(table, recordID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []AuditEntry
	err := a.DB.Table(a.TableName).
		Where("table_name = ? AND record_id = ?", table, recordID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func marshalValues(values map[string]interface{}) string {
	if len(values) == 0 {
		return ""
	}
	// driver byte slices marshal to base64 otherwise
	flat := make(map[string]string, len(values))
	for k, v := range values {
		flat[k] = fmt.Sprint(v)
	}
	data, err := json.Marshal(flat)
	if err != nil {
		return ""
	}
	return string(data)
}

func diffValues(oldData, newData map[string]interface{}) map[string]interface{} {
	changes := make(map[string]interface{})
	for key, newVal := range newData {
		oldVal, existed := oldData[key]
		if !existed || fmt.Sprint(oldVal) != fmt.Sprint(newVal) {
			changes[key] = newVal
		}
	}
	return changes
}

// audit runs one sink call, isolating panics as well as errors; a broken
// sink must not take the request down with it.
func (s *Service) audit(fn func()) {
	if s.Config.Audit == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ajaxcrud: audit sink panic: %v", r)
		}
	}()
	fn()
}
