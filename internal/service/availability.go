package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dockbook/internal/apperr"
	"dockbook/internal/models"
	"dockbook/internal/slots"
)

// AvailabilityService answers "which slots are bookable on this date".
type AvailabilityService struct {
	templates    TemplateStore
	reservations ReservationStore
	branches     BranchStore
	logger       *zerolog.Logger
	now          func() time.Time
}

// NewAvailabilityService creates the service. now may be nil and defaults
// to time.Now.
func NewAvailabilityService(templates TemplateStore, reservations ReservationStore, branches BranchStore, logger *zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{
		templates:    templates,
		reservations: reservations,
		branches:     branches,
		logger:       logger,
		now:          time.Now,
	}
}

// AvailableSlots generates the slot sequence for (branch, date) and marks
// each slot occupied when its window overlaps a pending or confirmed
// reservation, attaching the owning reservation id.
func (s *AvailabilityService) AvailableSlots(ctx context.Context, branchID int64, date time.Time) (*AvailableSlotsReport, error) {
	today := models.DateOnly(s.now())
	if models.DateOnly(date).Before(today) {
		return nil, apperr.New(apperr.KindPastDate, "date %s is in the past", date.Format("2006-01-02"))
	}

	dayOfWeek := models.ISOWeekday(date)

	tpl, err := s.templates.GetActiveByBranchAndDay(ctx, branchID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	if tpl == nil {
		return nil, apperr.New(apperr.KindNoScheduleForDate,
			"no active schedule for branch %d on %s", branchID, models.WeekdayName(dayOfWeek))
	}

	generated := slots.Generate(tpl)

	reservations, err := s.reservations.ListActiveForDate(ctx, branchID, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	available := 0
	for i := range generated {
		slotStart, slotEnd := generated[i].Window()
		for _, res := range reservations {
			if res.OverlapsWindow(slotStart, slotEnd) {
				generated[i].Available = false
				generated[i].ReservationID = res.ID
				break
			}
		}
		if generated[i].Available {
			available++
		}
	}

	branchName := ""
	if s.branches != nil {
		branch, err := s.branches.GetBranch(ctx, branchID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("branch_id", branchID).Msg("resolve branch name failed")
		} else if branch != nil {
			branchName = branch.Name
		}
	}

	return &AvailableSlotsReport{
		BranchID:       branchID,
		BranchName:     branchName,
		Date:           date.Format("2006-01-02"),
		DayOfWeek:      dayOfWeek,
		DayName:        models.WeekdayName(dayOfWeek),
		Slots:          generated,
		TotalSlots:     len(generated),
		AvailableSlots: available,
	}, nil
}
