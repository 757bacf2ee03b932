package database

import (
	"context"
	"fmt"
	"time"
)

// AuditEntry records one mutation of a template or reservation.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Entity    string    `json:"entity"` // "template", "reservation"
	EntityID  int64     `json:"entity_id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordAudit appends an audit row.
func (db *DB) RecordAudit(ctx context.Context, entry AuditEntry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO audit_log (entity, entity_id, action, actor, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Entity, entry.EntityID, entry.Action, entry.Actor, entry.Details, time.Now())
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListAuditEntries returns the newest audit rows for an entity.
func (db *DB) ListAuditEntries(ctx context.Context, entity string, entityID int64, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, entity, entity_id, action, actor, details, created_at
		FROM audit_log WHERE entity = ? AND entity_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`,
		entity, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var result []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Entity, &e.EntityID, &e.Action, &e.Actor, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// DeleteOldAuditEntries trims rows older than the retention window and
// returns how many were removed.
func (db *DB) DeleteOldAuditEntries(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := db.ExecContext(ctx, "DELETE FROM audit_log WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete audit entries: %w", err)
	}
	return result.RowsAffected()
}
