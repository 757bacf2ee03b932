package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dockbook/internal/models"
)

// GetBranch returns a branch by id, or nil when absent.
func (db *DB) GetBranch(ctx context.Context, id int64) (*models.Branch, error) {
	var b models.Branch
	err := db.QueryRowContext(ctx, `
		SELECT id, name, is_active, created_at, updated_at
		FROM branches WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan branch: %w", err)
	}
	return &b, nil
}

// ListActiveBranches returns all active branches ordered by name.
func (db *DB) ListActiveBranches(ctx context.Context) ([]models.Branch, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, is_active, created_at, updated_at
		FROM branches WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()

	var result []models.Branch
	for rows.Next() {
		var b models.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// EnsureBranch inserts a branch by name if it does not already exist and
// returns its id. Used at startup for seed data.
func (db *DB) EnsureBranch(ctx context.Context, name string) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx, "SELECT id FROM branches WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup branch: %w", err)
	}

	now := time.Now()
	result, err := db.ExecContext(ctx,
		"INSERT INTO branches (name, is_active, created_at, updated_at) VALUES (?, 1, ?, ?)",
		name, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert branch: %w", err)
	}
	return result.LastInsertId()
}
