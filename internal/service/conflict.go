package service

import (
	"context"
	"fmt"
	"time"

	"dockbook/internal/models"
)

// ConflictDetector decides whether a proposed interval for a branch dock
// collides with an existing active reservation. The check is advisory: it
// is not atomic with the subsequent write, so strict exclusivity must be
// enforced at the store layer (see the unique-index note in the sqlite
// store).
type ConflictDetector struct {
	reservations ReservationStore
}

// NewConflictDetector creates a detector over the given store.
func NewConflictDetector(reservations ReservationStore) *ConflictDetector {
	return &ConflictDetector{reservations: reservations}
}

// FindConflicts returns the active reservations on (branch, dock, date)
// whose interval overlaps [start, end). excludeReservationID, when non-zero,
// skips that reservation so updates can check against all others.
//
// The overlap rule covers the three equivalent cases (candidate starts
// inside an existing interval, ends inside one, or fully contains one) with
// the half-open test candidate.start < other.end && candidate.end > other.start.
func (d *ConflictDetector) FindConflicts(ctx context.Context, branchID, dockID int64, date time.Time, start, end string, excludeReservationID int64) ([]models.Reservation, error) {
	startMin, err := models.MinutesOfDay(start)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	endMin, err := models.MinutesOfDay(end)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	existing, err := d.reservations.ListActiveForDock(ctx, branchID, dockID, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations for dock: %w", err)
	}

	var conflicts []models.Reservation
	for _, res := range existing {
		if excludeReservationID != 0 && res.ID == excludeReservationID {
			continue
		}
		if !res.Status.IsActive() {
			continue
		}
		if res.OverlapsWindow(startMin, endMin) {
			conflicts = append(conflicts, res)
		}
	}
	return conflicts, nil
}

// HasConflict is the boolean form of FindConflicts.
func (d *ConflictDetector) HasConflict(ctx context.Context, branchID, dockID int64, date time.Time, start, end string, excludeReservationID int64) (bool, error) {
	conflicts, err := d.FindConflicts(ctx, branchID, dockID, date, start, end, excludeReservationID)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}
