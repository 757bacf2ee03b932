package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dockbook/internal/apperr"
	"dockbook/internal/models"
	"dockbook/internal/service"
)

const dateLayout = "2006-01-02"

const reservationColumns = `id, reference, requester_id, requester_name, branch_id, branch_name,
	customer_name, cargo_details, date, start_time, end_time, status, reason, notes,
	closing_outcome, closing_actor, closing_reason, closed_at, created_at, updated_at`

// GetReservation returns a reservation with its dock bookings, or nil when
// absent.
func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id)
	res, err := scanReservation(row)
	if err != nil || res == nil {
		return res, err
	}
	if err := db.loadDocks(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ListReservations returns reservations matching the filter plus the total
// count before pagination, newest first.
func (db *DB) ListReservations(ctx context.Context, filter service.ReservationFilter) ([]models.Reservation, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if filter.BranchID != 0 {
		where += " AND branch_id = ?"
		args = append(args, filter.BranchID)
	}
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if !filter.DateFrom.IsZero() {
		where += " AND date >= ?"
		args = append(args, filter.DateFrom.Format(dateLayout))
	}
	if !filter.DateTo.IsZero() {
		where += " AND date <= ?"
		args = append(args, filter.DateTo.Format(dateLayout))
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reservations"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	query := "SELECT " + reservationColumns + " FROM reservations" + where + " ORDER BY date DESC, start_time DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	result, err := db.queryReservations(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// CreateReservation inserts a reservation and its dock bookings in one
// transaction. Each dock's overlap is re-checked inside the transaction so
// two racing writers cannot both pass the service-layer conflict check;
// sqlite's single-writer model serializes them here.
func (db *DB) CreateReservation(ctx context.Context, res *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	date := res.Date.Format(dateLayout)
	for _, dock := range res.Docks {
		taken, err := dockTaken(ctx, tx, res.BranchID, dock.DockID, date, res.StartTime, res.EndTime, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperr.New(apperr.KindReservationConflict,
				"dock %d already reserved in the requested window", dock.DockID)
		}
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (reference, requester_id, requester_name, branch_id, branch_name,
			customer_name, cargo_details, date, start_time, end_time, status, reason, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.Reference, res.RequesterID, res.RequesterName, res.BranchID, res.BranchName,
		res.CustomerName, res.CargoDetails, date, res.StartTime, res.EndTime,
		string(res.Status), res.Reason, res.Notes, now, now)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reservation id: %w", err)
	}

	for i := range res.Docks {
		dockResult, err := tx.ExecContext(ctx, `
			INSERT INTO dock_bookings (reservation_id, dock_id, dock_name, start_time, end_time, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, res.Docks[i].DockID, res.Docks[i].DockName, res.Docks[i].StartTime, res.Docks[i].EndTime, now)
		if err != nil {
			return fmt.Errorf("insert dock booking: %w", err)
		}
		dockID, err := dockResult.LastInsertId()
		if err != nil {
			return fmt.Errorf("dock booking id: %w", err)
		}
		res.Docks[i].ID = dockID
		res.Docks[i].ReservationID = id
		res.Docks[i].CreatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	res.ID = id
	res.CreatedAt = now
	res.UpdatedAt = now
	return nil
}

// UpdateReservation rewrites a reservation row and its dock intervals.
func (db *DB) UpdateReservation(ctx context.Context, res *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	var outcome, actor, reason interface{}
	var closedAt interface{}
	if res.Closing != nil {
		outcome = res.Closing.Outcome
		actor = res.Closing.Actor
		reason = res.Closing.Reason
		closedAt = res.Closing.ClosedAt
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET date = ?, start_time = ?, end_time = ?, status = ?, reason = ?, notes = ?,
			closing_outcome = ?, closing_actor = ?, closing_reason = ?, closed_at = ?, updated_at = ?
		WHERE id = ?`,
		res.Date.Format(dateLayout), res.StartTime, res.EndTime, string(res.Status),
		res.Reason, res.Notes, outcome, actor, reason, closedAt, now, res.ID)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	for _, dock := range res.Docks {
		if _, err := tx.ExecContext(ctx,
			"UPDATE dock_bookings SET start_time = ?, end_time = ? WHERE id = ?",
			dock.StartTime, dock.EndTime, dock.ID); err != nil {
			return fmt.Errorf("update dock booking: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	res.UpdatedAt = now
	return nil
}

// DeleteReservation removes a reservation; dock bookings cascade.
func (db *DB) DeleteReservation(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	return err
}

// ListActiveForDate returns pending/confirmed reservations for a branch on
// a calendar date, ordered by start time.
func (db *DB) ListActiveForDate(ctx context.Context, branchID int64, date time.Time) ([]models.Reservation, error) {
	query := "SELECT " + reservationColumns + ` FROM reservations
		WHERE branch_id = ? AND date = ? AND status IN ('pending', 'confirmed')
		ORDER BY start_time`
	return db.queryReservations(ctx, query, branchID, date.Format(dateLayout))
}

// ListActiveForDock returns pending/confirmed reservations holding a dock
// on a calendar date.
func (db *DB) ListActiveForDock(ctx context.Context, branchID, dockID int64, date time.Time) ([]models.Reservation, error) {
	query := "SELECT " + qualifyReservationColumns("r") + ` FROM reservations r
		JOIN dock_bookings d ON d.reservation_id = r.id
		WHERE r.branch_id = ? AND d.dock_id = ? AND r.date = ? AND r.status IN ('pending', 'confirmed')
		ORDER BY r.start_time`
	return db.queryReservations(ctx, query, branchID, dockID, date.Format(dateLayout))
}

// ListActiveByWeekday returns pending/confirmed reservations for a branch
// whose date falls on the given ISO day of week (Monday=1 .. Sunday=7).
func (db *DB) ListActiveByWeekday(ctx context.Context, branchID int64, dayOfWeek int) ([]models.Reservation, error) {
	// sqlite's %w is 0=Sunday..6=Saturday; remap to ISO.
	query := "SELECT " + reservationColumns + ` FROM reservations
		WHERE branch_id = ?
		AND status IN ('pending', 'confirmed')
		AND (CASE strftime('%w', date) WHEN '0' THEN 7 ELSE CAST(strftime('%w', date) AS INTEGER) END) = ?
		ORDER BY date, start_time`
	return db.queryReservations(ctx, query, branchID, dayOfWeek)
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...interface{}) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var result []models.Reservation
	for rows.Next() {
		res, err := scanReservationRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		if err := db.loadDocks(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (db *DB) loadDocks(ctx context.Context, res *models.Reservation) error {
	rows, err := db.QueryContext(ctx, `
		SELECT id, reservation_id, dock_id, dock_name, start_time, end_time, created_at
		FROM dock_bookings WHERE reservation_id = ? ORDER BY dock_id`, res.ID)
	if err != nil {
		return fmt.Errorf("load dock bookings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d models.DockBooking
		var name sql.NullString
		if err := rows.Scan(&d.ID, &d.ReservationID, &d.DockID, &name, &d.StartTime, &d.EndTime, &d.CreatedAt); err != nil {
			return fmt.Errorf("scan dock booking: %w", err)
		}
		d.DockName = name.String
		res.Docks = append(res.Docks, d)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row *sql.Row) (*models.Reservation, error) {
	res, err := scanReservationFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return res, err
}

func scanReservationRows(rows *sql.Rows) (*models.Reservation, error) {
	return scanReservationFrom(rows)
}

func scanReservationFrom(scanner rowScanner) (*models.Reservation, error) {
	var res models.Reservation
	var requesterName, branchName, customerName, cargo, reason, notes sql.NullString
	var outcome, actor, closingReason sql.NullString
	var closedAt sql.NullTime
	var date, status string

	err := scanner.Scan(&res.ID, &res.Reference, &res.RequesterID, &requesterName,
		&res.BranchID, &branchName, &customerName, &cargo, &date,
		&res.StartTime, &res.EndTime, &status, &reason, &notes,
		&outcome, &actor, &closingReason, &closedAt, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}

	res.RequesterName = requesterName.String
	res.BranchName = branchName.String
	res.CustomerName = customerName.String
	res.CargoDetails = cargo.String
	res.Reason = reason.String
	res.Notes = notes.String
	res.Status = models.ReservationStatus(status)
	res.StartTime = trimClock(res.StartTime)
	res.EndTime = trimClock(res.EndTime)

	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parse reservation date %q: %w", date, err)
	}
	res.Date = parsed

	if outcome.Valid {
		res.Closing = &models.ClosingSummary{
			Outcome:  outcome.String,
			Actor:    actor.String,
			Reason:   closingReason.String,
			ClosedAt: closedAt.Time,
		}
	}
	return &res, nil
}

func dockTaken(ctx context.Context, tx *sql.Tx, branchID, dockID int64, date, start, end string, excludeReservationID int64) (bool, error) {
	query := `
		SELECT COUNT(*) FROM reservations r
		JOIN dock_bookings d ON d.reservation_id = r.id
		WHERE r.branch_id = ? AND d.dock_id = ? AND r.date = ?
		AND r.status IN ('pending', 'confirmed')
		AND r.start_time < ? AND r.end_time > ?`
	args := []interface{}{branchID, dockID, date, end, start}
	if excludeReservationID != 0 {
		query += " AND r.id != ?"
		args = append(args, excludeReservationID)
	}
	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("check dock conflicts: %w", err)
	}
	return count > 0, nil
}

func qualifyReservationColumns(alias string) string {
	return alias + `.id, ` + alias + `.reference, ` + alias + `.requester_id, ` + alias + `.requester_name, ` +
		alias + `.branch_id, ` + alias + `.branch_name, ` + alias + `.customer_name, ` + alias + `.cargo_details, ` +
		alias + `.date, ` + alias + `.start_time, ` + alias + `.end_time, ` + alias + `.status, ` +
		alias + `.reason, ` + alias + `.notes, ` + alias + `.closing_outcome, ` + alias + `.closing_actor, ` +
		alias + `.closing_reason, ` + alias + `.closed_at, ` + alias + `.created_at, ` + alias + `.updated_at`
}
