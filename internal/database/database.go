// Package database implements the template, reservation and branch stores
// on sqlite.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the reservation service.
type DB struct {
	*sql.DB
	path string
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{DB: db, path: path}, nil
}

// Path returns the database file path (used by the backup service).
func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Branch catalog; reservations snapshot the name at booking time.
		`CREATE TABLE IF NOT EXISTS branches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			is_active BOOLEAN DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Weekly schedule templates
		`CREATE TABLE IF NOT EXISTS schedule_templates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			branch_id INTEGER NOT NULL,
			day_of_week INTEGER NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			slot_duration INTEGER NOT NULL DEFAULT 60,
			is_active BOOLEAN DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (branch_id) REFERENCES branches(id)
		)`,

		// One active template per (branch, day); inactive rows may coexist.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_templates_active_unique
			ON schedule_templates(branch_id, day_of_week) WHERE is_active = 1`,

		// Reservations; date is a YYYY-MM-DD string, times are HH:MM.
		`CREATE TABLE IF NOT EXISTS reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT UNIQUE NOT NULL,
			requester_id INTEGER NOT NULL,
			requester_name TEXT,
			branch_id INTEGER NOT NULL,
			branch_name TEXT,
			customer_name TEXT,
			cargo_details TEXT,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			reason TEXT,
			notes TEXT,
			closing_outcome TEXT,
			closing_actor TEXT,
			closing_reason TEXT,
			closed_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (branch_id) REFERENCES branches(id)
		)`,

		// Dock bookings, one row per sub-area held by a reservation.
		`CREATE TABLE IF NOT EXISTS dock_bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reservation_id INTEGER NOT NULL,
			dock_id INTEGER NOT NULL,
			dock_name TEXT,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE
		)`,

		// Audit log for template and reservation mutations.
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entity TEXT NOT NULL,
			entity_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			actor TEXT,
			details TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_templates_branch ON schedule_templates(branch_id, day_of_week)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_branch_date ON reservations(branch_id, date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_dock_bookings_reservation ON dock_bookings(reservation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dock_bookings_dock ON dock_bookings(dock_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity, entity_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}
