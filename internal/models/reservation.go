package models

import (
	"time"

	"dockbook/internal/apperr"
)

// ReservationStatus is the lifecycle status of a reservation.
type ReservationStatus string

const (
	StatusPending              ReservationStatus = "pending"
	StatusConfirmed            ReservationStatus = "confirmed"
	StatusCompleted            ReservationStatus = "completed"
	StatusCancelled            ReservationStatus = "cancelled"
	StatusReschedulingRequired ReservationStatus = "rescheduling_required"
)

// ActiveStatuses are the statuses that count toward conflict detection and
// availability computations.
var ActiveStatuses = []ReservationStatus{StatusPending, StatusConfirmed}

// IsActive reports whether the status participates in conflict and
// availability checks.
func (s ReservationStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// IsTerminal reports whether the status accepts no further transitions.
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// allowedTransitions is the lifecycle table. rescheduling_required is
// entered only by the rescheduler, never by user action, and is not
// terminal: a consumer re-times the reservation and normal transitions
// resume.
var allowedTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:              {StatusConfirmed, StatusCancelled, StatusReschedulingRequired},
	StatusConfirmed:            {StatusCompleted, StatusCancelled, StatusReschedulingRequired},
	StatusReschedulingRequired: {StatusConfirmed, StatusCancelled},
	StatusCompleted:            {},
	StatusCancelled:            {},
}

// CanTransitionTo reports whether the lifecycle allows moving to the given
// status.
func (s ReservationStatus) CanTransitionTo(to ReservationStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Closing outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
)

// ClosingSummary records who closed a reservation, when, and why. The
// outcome distinguishes completion from rejection for audit history.
type ClosingSummary struct {
	Outcome  string    `json:"outcome"` // completed, rejected
	Actor    string    `json:"actor"`
	Reason   string    `json:"reason"`
	ClosedAt time.Time `json:"closed_at"`
}

// Reservation is the aggregate root for a booking. Branch and customer
// fields are snapshot copies taken at booking time so the record stays
// interpretable even if the referenced branch row changes later; templates
// are never referenced by a stored key.
type Reservation struct {
	ID            int64             `json:"id"`
	Reference     string            `json:"reference"` // uuid, external-facing
	RequesterID   int64             `json:"requester_id"`
	RequesterName string            `json:"requester_name"`
	BranchID      int64             `json:"branch_id"`
	BranchName    string            `json:"branch_name"` // snapshot
	CustomerName  string            `json:"customer_name"`
	CargoDetails  string            `json:"cargo_details"`
	Date          time.Time         `json:"date"`       // calendar date
	StartTime     string            `json:"start_time"` // "09:00"
	EndTime       string            `json:"end_time"`   // "11:00"
	Status        ReservationStatus `json:"status"`
	Reason        string            `json:"reason"`
	Notes         string            `json:"notes"`
	Closing       *ClosingSummary   `json:"closing,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`

	// Docks booked by this reservation; loaded with the aggregate.
	Docks []DockBooking `json:"docks,omitempty"`
}

// ValidateInterval checks start < end and that both parse.
func (r *Reservation) ValidateInterval() error {
	start, err := MinutesOfDay(r.StartTime)
	if err != nil {
		return apperr.New(apperr.KindInvalidTemplateTime, "start time: %v", err)
	}
	end, err := MinutesOfDay(r.EndTime)
	if err != nil {
		return apperr.New(apperr.KindInvalidTemplateTime, "end time: %v", err)
	}
	if start >= end {
		return apperr.New(apperr.KindInvalidTemplateTime,
			"reservation start %s must be before end %s", r.StartTime, r.EndTime)
	}
	return nil
}

// Window returns the reservation interval in minutes since midnight.
func (r *Reservation) Window() (start, end int) {
	start, _ = MinutesOfDay(r.StartTime)
	end, _ = MinutesOfDay(r.EndTime)
	return start, end
}

// OverlapsWindow reports whether the reservation interval shares an instant
// with [start, end), half-open.
func (r *Reservation) OverlapsWindow(start, end int) bool {
	s, e := r.Window()
	return ClockOverlaps(s, e, start, end)
}

// FitsWithin reports whether the reservation interval lies entirely inside
// [start, end).
func (r *Reservation) FitsWithin(start, end int) bool {
	s, e := r.Window()
	return s >= start && e <= end
}

// DockBooking books one branch sub-area (a dock) for a reservation. The
// dock name is a snapshot; the interval normally equals the parent's. A
// dock booking belongs to exactly one reservation and is removed with it.
type DockBooking struct {
	ID            int64     `json:"id"`
	ReservationID int64     `json:"reservation_id"`
	DockID        int64     `json:"dock_id"`
	DockName      string    `json:"dock_name"` // snapshot
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// Branch is the minimal catalog row reservations snapshot their branch data
// from.
type Branch struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
