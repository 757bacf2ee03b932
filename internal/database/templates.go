package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dockbook/internal/models"
	"dockbook/internal/service"
)

// GetTemplate returns a template by id, or nil when absent.
func (db *DB) GetTemplate(ctx context.Context, id int64) (*models.ScheduleTemplate, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, branch_id, day_of_week, start_time, end_time, slot_duration, is_active, created_at, updated_at
		FROM schedule_templates WHERE id = ?`, id)
	return scanTemplate(row)
}

// GetActiveByBranchAndDay returns the active template for (branch, day), or
// nil when none exists.
func (db *DB) GetActiveByBranchAndDay(ctx context.Context, branchID int64, dayOfWeek int) (*models.ScheduleTemplate, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, branch_id, day_of_week, start_time, end_time, slot_duration, is_active, created_at, updated_at
		FROM schedule_templates
		WHERE branch_id = ? AND day_of_week = ? AND is_active = 1
		LIMIT 1`, branchID, dayOfWeek)
	return scanTemplate(row)
}

// ListByBranch returns a branch's templates ordered by day and start time.
func (db *DB) ListByBranch(ctx context.Context, branchID int64, filter service.TemplateFilter) ([]models.ScheduleTemplate, error) {
	query := `
		SELECT id, branch_id, day_of_week, start_time, end_time, slot_duration, is_active, created_at, updated_at
		FROM schedule_templates WHERE branch_id = ?`
	args := []interface{}{branchID}

	if filter.DayOfWeek != nil {
		query += " AND day_of_week = ?"
		args = append(args, *filter.DayOfWeek)
	}
	if filter.IsActive != nil {
		query += " AND is_active = ?"
		args = append(args, *filter.IsActive)
	}
	query += " ORDER BY day_of_week, start_time"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var result []models.ScheduleTemplate
	for rows.Next() {
		var t models.ScheduleTemplate
		if err := rows.Scan(&t.ID, &t.BranchID, &t.DayOfWeek, &t.StartTime, &t.EndTime,
			&t.SlotDuration, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// CreateTemplate inserts a template and fills in its id and timestamps. The
// partial unique index on (branch_id, day_of_week) rejects a second active
// row even if two writers race past the editor's existence check.
func (db *DB) CreateTemplate(ctx context.Context, tpl *models.ScheduleTemplate) error {
	now := time.Now()
	result, err := db.ExecContext(ctx, `
		INSERT INTO schedule_templates (branch_id, day_of_week, start_time, end_time, slot_duration, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tpl.BranchID, tpl.DayOfWeek, tpl.StartTime, tpl.EndTime, tpl.SlotDuration, tpl.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("template id: %w", err)
	}
	tpl.ID = id
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	return nil
}

// UpdateTemplate rewrites a template row in place.
func (db *DB) UpdateTemplate(ctx context.Context, tpl *models.ScheduleTemplate) error {
	now := time.Now()
	result, err := db.ExecContext(ctx, `
		UPDATE schedule_templates
		SET day_of_week = ?, start_time = ?, end_time = ?, slot_duration = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		tpl.DayOfWeek, tpl.StartTime, tpl.EndTime, tpl.SlotDuration, tpl.IsActive, now, tpl.ID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	tpl.UpdatedAt = now
	return nil
}

// DeleteTemplate removes a template row.
func (db *DB) DeleteTemplate(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, "DELETE FROM schedule_templates WHERE id = ?", id)
	return err
}

// ExistsActiveByBranchAndDay reports whether an active template exists for
// (branch, day), ignoring excludeID when non-zero.
func (db *DB) ExistsActiveByBranchAndDay(ctx context.Context, branchID int64, dayOfWeek int, excludeID int64) (bool, error) {
	query := "SELECT COUNT(*) FROM schedule_templates WHERE branch_id = ? AND day_of_week = ? AND is_active = 1"
	args := []interface{}{branchID, dayOfWeek}
	if excludeID != 0 {
		query += " AND id != ?"
		args = append(args, excludeID)
	}
	var count int
	err := db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count > 0, err
}

func scanTemplate(row *sql.Row) (*models.ScheduleTemplate, error) {
	var t models.ScheduleTemplate
	err := row.Scan(&t.ID, &t.BranchID, &t.DayOfWeek, &t.StartTime, &t.EndTime,
		&t.SlotDuration, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	// Stored times may carry seconds from manual edits; keep HH:MM.
	t.StartTime = trimClock(t.StartTime)
	t.EndTime = trimClock(t.EndTime)
	return &t, nil
}

func trimClock(s string) string {
	if n := strings.Count(s, ":"); n > 1 {
		return s[:strings.LastIndex(s, ":")]
	}
	return s
}
