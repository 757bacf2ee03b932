package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dockbook/internal/apperr"
	"dockbook/internal/events"
	"dockbook/internal/metrics"
	"dockbook/internal/models"
)

// BookingRules bound how far ahead reservations may be placed.
type BookingRules struct {
	MinAdvance time.Duration
	MaxAdvance time.Duration
}

// DockRequest names one dock a reservation wants to hold.
type DockRequest struct {
	DockID   int64  `json:"dock_id"`
	DockName string `json:"dock_name"`
}

// CreateReservationInput carries everything needed to place a reservation.
type CreateReservationInput struct {
	RequesterID   int64         `json:"requester_id"`
	RequesterName string        `json:"requester_name"`
	BranchID      int64         `json:"branch_id"`
	CustomerName  string        `json:"customer_name"`
	CargoDetails  string        `json:"cargo_details"`
	Date          time.Time     `json:"date"`
	StartTime     string        `json:"start_time"`
	EndTime       string        `json:"end_time"`
	Reason        string        `json:"reason"`
	Notes         string        `json:"notes"`
	Docks         []DockRequest `json:"docks"`
}

// UpdateReservationInput carries the editable time/content fields. Nil
// fields keep the current value.
type UpdateReservationInput struct {
	Date      *time.Time `json:"date,omitempty"`
	StartTime *string    `json:"start_time,omitempty"`
	EndTime   *string    `json:"end_time,omitempty"`
	Reason    *string    `json:"reason,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// ReservationService owns the reservation lifecycle: creation behind the
// conflict detector, guarded status transitions, and rescheduling flags.
type ReservationService struct {
	reservations ReservationStore
	branches     BranchStore
	detector     *ConflictDetector
	bus          *events.Bus
	rules        BookingRules
	logger       *zerolog.Logger
	now          func() time.Time
}

// NewReservationService creates the service. bus may be nil; zero rules
// disable the advance-window checks.
func NewReservationService(reservations ReservationStore, branches BranchStore, detector *ConflictDetector, bus *events.Bus, rules BookingRules, logger *zerolog.Logger) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		branches:     branches,
		detector:     detector,
		bus:          bus,
		rules:        rules,
		logger:       logger,
		now:          time.Now,
	}
}

// GetReservation returns a reservation by id.
func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	res, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	if res == nil {
		return nil, apperr.New(apperr.KindReservationNotFound, "reservation %d not found", id)
	}
	return res, nil
}

// ListReservations returns reservations matching the filter plus the total
// count before pagination.
func (s *ReservationService) ListReservations(ctx context.Context, filter ReservationFilter) ([]models.Reservation, int, error) {
	return s.reservations.ListReservations(ctx, filter)
}

// CreateReservation validates the request, runs the conflict detector for
// every requested dock, snapshots branch data and persists the reservation
// with its dock bookings in pending status.
//
// The conflict check and the insert are two separate store calls; the race
// window between them is closed by the store's exclusion constraint, not
// here.
func (s *ReservationService) CreateReservation(ctx context.Context, input CreateReservationInput) (*models.Reservation, error) {
	res := &models.Reservation{
		Reference:     uuid.NewString(),
		RequesterID:   input.RequesterID,
		RequesterName: input.RequesterName,
		BranchID:      input.BranchID,
		CustomerName:  input.CustomerName,
		CargoDetails:  input.CargoDetails,
		Date:          models.DateOnly(input.Date),
		StartTime:     input.StartTime,
		EndTime:       input.EndTime,
		Status:        models.StatusPending,
		Reason:        input.Reason,
		Notes:         input.Notes,
	}
	if err := res.ValidateInterval(); err != nil {
		return nil, err
	}
	if len(input.Docks) == 0 {
		return nil, apperr.New(apperr.KindReservationConflict, "reservation must book at least one dock")
	}

	today := models.DateOnly(s.now())
	if res.Date.Before(today) {
		return nil, apperr.New(apperr.KindPastDate, "reservation date %s is in the past", res.Date.Format("2006-01-02"))
	}
	if err := s.checkAdvanceWindow(res); err != nil {
		return nil, err
	}

	for _, dock := range input.Docks {
		conflicts, err := s.detector.FindConflicts(ctx, res.BranchID, dock.DockID, res.Date, res.StartTime, res.EndTime, 0)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			metrics.IncConflictDetected()
			return nil, apperr.New(apperr.KindReservationConflict,
				"dock %d already reserved %s-%s by reservation %d",
				dock.DockID, conflicts[0].StartTime, conflicts[0].EndTime, conflicts[0].ID)
		}
		res.Docks = append(res.Docks, models.DockBooking{
			DockID:    dock.DockID,
			DockName:  dock.DockName,
			StartTime: res.StartTime,
			EndTime:   res.EndTime,
		})
	}

	// Snapshot branch data so the record survives later catalog edits.
	if s.branches != nil {
		branch, err := s.branches.GetBranch(ctx, res.BranchID)
		if err != nil {
			return nil, fmt.Errorf("get branch: %w", err)
		}
		if branch != nil {
			res.BranchName = branch.Name
		}
	}

	if err := s.reservations.CreateReservation(ctx, res); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	metrics.IncReservationCreated(string(res.Status))
	s.publish(events.ReservationCreated, res)
	s.logger.Info().
		Int64("reservation_id", res.ID).
		Str("reference", res.Reference).
		Int64("branch_id", res.BranchID).
		Str("date", res.Date.Format("2006-01-02")).
		Msg("reservation created")
	return res, nil
}

// UpdateReservation edits time/content fields, re-running the conflict
// detector when the interval or date moves. Refused once the reservation is
// cancelled or completed.
func (s *ReservationService) UpdateReservation(ctx context.Context, id int64, input UpdateReservationInput) (*models.Reservation, error) {
	res, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status.IsTerminal() {
		return nil, apperr.New(apperr.KindReservationStatus,
			"cannot update reservation %d in status %s", id, res.Status)
	}

	retime := input.Date != nil || input.StartTime != nil || input.EndTime != nil
	if input.Date != nil {
		res.Date = models.DateOnly(*input.Date)
	}
	if input.StartTime != nil {
		res.StartTime = *input.StartTime
	}
	if input.EndTime != nil {
		res.EndTime = *input.EndTime
	}
	if input.Reason != nil {
		res.Reason = *input.Reason
	}
	if input.Notes != nil {
		res.Notes = *input.Notes
	}

	if retime {
		if err := res.ValidateInterval(); err != nil {
			return nil, err
		}
		if res.Date.Before(models.DateOnly(s.now())) {
			return nil, apperr.New(apperr.KindPastDate, "reservation date %s is in the past", res.Date.Format("2006-01-02"))
		}
		for i := range res.Docks {
			conflict, err := s.detector.HasConflict(ctx, res.BranchID, res.Docks[i].DockID, res.Date, res.StartTime, res.EndTime, res.ID)
			if err != nil {
				return nil, err
			}
			if conflict {
				metrics.IncConflictDetected()
				return nil, apperr.New(apperr.KindReservationConflict,
					"dock %d already reserved in the requested window", res.Docks[i].DockID)
			}
			res.Docks[i].StartTime = res.StartTime
			res.Docks[i].EndTime = res.EndTime
		}
		// A re-timed rescheduling_required reservation goes back to the
		// normal flow.
		if res.Status == models.StatusReschedulingRequired {
			res.Status = models.StatusPending
		}
	}

	if err := s.reservations.UpdateReservation(ctx, res); err != nil {
		return nil, fmt.Errorf("update reservation: %w", err)
	}
	return res, nil
}

// Confirm moves a reservation to confirmed.
func (s *ReservationService) Confirm(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.transition(ctx, id, models.StatusConfirmed, nil, events.ReservationConfirmed)
}

// Complete closes a reservation as successfully carried out, attaching a
// closing summary. Refused when the reservation is already completed or
// cancelled.
func (s *ReservationService) Complete(ctx context.Context, id int64, actor, reason string) (*models.Reservation, error) {
	closing := &models.ClosingSummary{
		Outcome:  models.OutcomeCompleted,
		Actor:    actor,
		Reason:   reason,
		ClosedAt: s.now(),
	}
	return s.transition(ctx, id, models.StatusCompleted, closing, events.ReservationCompleted)
}

// Reject cancels a reservation on the branch's initiative, attaching a
// closing summary with the rejected outcome. Refused when already
// cancelled.
func (s *ReservationService) Reject(ctx context.Context, id int64, actor, reason string) (*models.Reservation, error) {
	closing := &models.ClosingSummary{
		Outcome:  models.OutcomeRejected,
		Actor:    actor,
		Reason:   reason,
		ClosedAt: s.now(),
	}
	return s.transition(ctx, id, models.StatusCancelled, closing, events.ReservationCancelled)
}

// Cancel cancels a reservation at the requester's initiative.
func (s *ReservationService) Cancel(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.transition(ctx, id, models.StatusCancelled, nil, events.ReservationCancelled)
}

// RequireRescheduling flags a reservation whose template window disappeared.
// Driven only by the template service, never by user action.
func (s *ReservationService) RequireRescheduling(ctx context.Context, id int64, reason string) error {
	res, err := s.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if !res.Status.CanTransitionTo(models.StatusReschedulingRequired) {
		return apperr.New(apperr.KindReservationStatus,
			"cannot flag reservation %d for rescheduling from status %s", id, res.Status)
	}
	res.Status = models.StatusReschedulingRequired
	if reason != "" {
		res.Notes = reason
	}
	if err := s.reservations.UpdateReservation(ctx, res); err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	metrics.IncReservationTransition(string(models.StatusReschedulingRequired))
	s.publish(events.ReservationRescheduling, res)
	s.logger.Info().Int64("reservation_id", id).Str("reason", reason).Msg("reservation flagged for rescheduling")
	return nil
}

// DeleteReservation removes a reservation and its dock bookings. Completed
// reservations are kept for history and cannot be deleted.
func (s *ReservationService) DeleteReservation(ctx context.Context, id int64) error {
	res, err := s.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if res.Status == models.StatusCompleted {
		return apperr.New(apperr.KindReservationStatus, "completed reservation %d cannot be deleted", id)
	}
	if err := s.reservations.DeleteReservation(ctx, id); err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return nil
}

func (s *ReservationService) transition(ctx context.Context, id int64, to models.ReservationStatus, closing *models.ClosingSummary, eventType string) (*models.Reservation, error) {
	res, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Status.CanTransitionTo(to) {
		return nil, apperr.New(apperr.KindReservationStatus,
			"cannot move reservation %d from %s to %s", id, res.Status, to)
	}
	res.Status = to
	if closing != nil {
		res.Closing = closing
	}
	if err := s.reservations.UpdateReservation(ctx, res); err != nil {
		return nil, fmt.Errorf("update reservation: %w", err)
	}
	metrics.IncReservationTransition(string(to))
	s.publish(eventType, res)
	s.logger.Info().Int64("reservation_id", id).Str("status", string(to)).Msg("reservation transitioned")
	return res, nil
}

func (s *ReservationService) checkAdvanceWindow(res *models.Reservation) error {
	if s.rules.MinAdvance <= 0 && s.rules.MaxAdvance <= 0 {
		return nil
	}
	startMin, _ := models.MinutesOfDay(res.StartTime)
	startAt := res.Date.Add(time.Duration(startMin) * time.Minute)
	now := s.now()
	if s.rules.MinAdvance > 0 && startAt.Before(now.Add(s.rules.MinAdvance)) {
		return apperr.New(apperr.KindPastDate,
			"reservations require at least %s advance notice", s.rules.MinAdvance)
	}
	if s.rules.MaxAdvance > 0 && startAt.After(now.Add(s.rules.MaxAdvance)) {
		return apperr.New(apperr.KindPastDate,
			"reservations may be placed at most %s ahead", s.rules.MaxAdvance)
	}
	return nil
}

func (s *ReservationService) publish(eventType string, res *models.Reservation) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, BranchID: res.BranchID, ReservationID: res.ID})
}
