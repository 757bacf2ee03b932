package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"dockbook/internal/apperr"
	"dockbook/internal/events"
	"dockbook/internal/metrics"
	"dockbook/internal/models"
)

// Rescheduler flags reservations for follow-up when a template change
// invalidates them. Flagging does not pick a new slot; a consumer must
// re-time the reservation.
type Rescheduler interface {
	RequireRescheduling(ctx context.Context, reservationID int64, reason string) error
}

// TemplateService creates, edits and removes schedule templates. Every
// mutation of an existing template runs through the impact analyzer first,
// so a caller always sees the blast radius before anything is committed.
type TemplateService struct {
	templates    TemplateStore
	reservations ReservationStore
	rescheduler  Rescheduler
	bus          *events.Bus
	logger       *zerolog.Logger
}

// NewTemplateService creates the service. bus may be nil.
func NewTemplateService(templates TemplateStore, reservations ReservationStore, rescheduler Rescheduler, bus *events.Bus, logger *zerolog.Logger) *TemplateService {
	return &TemplateService{
		templates:    templates,
		reservations: reservations,
		rescheduler:  rescheduler,
		bus:          bus,
		logger:       logger,
	}
}

// GetTemplate returns a template by id.
func (s *TemplateService) GetTemplate(ctx context.Context, id int64) (*models.ScheduleTemplate, error) {
	tpl, err := s.templates.GetTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	if tpl == nil {
		return nil, apperr.New(apperr.KindTemplateNotFound, "template %d not found", id)
	}
	return tpl, nil
}

// ListTemplates returns a branch's templates, optionally filtered.
func (s *TemplateService) ListTemplates(ctx context.Context, branchID int64, filter TemplateFilter) ([]models.ScheduleTemplate, error) {
	return s.templates.ListByBranch(ctx, branchID, filter)
}

// CreateTemplate validates and persists a new active template. Checks run
// in order: duplicate active (branch, day), time invariants, same-day
// overlap with other active templates.
func (s *TemplateService) CreateTemplate(ctx context.Context, branchID int64, dayOfWeek int, start, end string, slotDuration int) (*models.ScheduleTemplate, error) {
	exists, err := s.templates.ExistsActiveByBranchAndDay(ctx, branchID, dayOfWeek, 0)
	if err != nil {
		return nil, fmt.Errorf("check existing template: %w", err)
	}
	if exists {
		return nil, apperr.New(apperr.KindTemplateAlreadyExists,
			"active template already exists for branch %d on %s", branchID, models.WeekdayName(dayOfWeek))
	}

	tpl, err := models.NewScheduleTemplate(branchID, dayOfWeek, start, end, slotDuration)
	if err != nil {
		return nil, err
	}

	if err := s.checkOverlap(ctx, tpl, 0); err != nil {
		return nil, err
	}

	if err := s.templates.CreateTemplate(ctx, tpl); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}

	metrics.IncTemplateChange("create")
	s.publish(events.TemplateCreated, tpl)
	s.logger.Info().
		Int64("template_id", tpl.ID).
		Int64("branch_id", branchID).
		Int("day_of_week", dayOfWeek).
		Msg("template created")
	return tpl, nil
}

// AnalyzeImpact computes which existing pending/confirmed reservations on
// (branch, dayOfWeek) would be invalidated by the proposed change. A
// reservation is impacted when the template is being deactivated or
// deleted, or when its interval has zero overlap with the proposed window.
// Reservations partially overlapping the new window count as safe but are
// reported separately so callers can judge the rule for themselves.
func (s *TemplateService) AnalyzeImpact(ctx context.Context, branchID int64, dayOfWeek int, proposed ProposedChange) (*ImpactReport, error) {
	current, err := s.templates.GetActiveByBranchAndDay(ctx, branchID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	if current == nil {
		return nil, apperr.New(apperr.KindTemplateNotFound,
			"no active template for branch %d on %s", branchID, models.WeekdayName(dayOfWeek))
	}
	return s.analyzeAgainst(ctx, current, proposed)
}

func (s *TemplateService) analyzeAgainst(ctx context.Context, current *models.ScheduleTemplate, proposed ProposedChange) (*ImpactReport, error) {
	reservations, err := s.reservations.ListActiveByWeekday(ctx, current.BranchID, current.DayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	deactivating := proposed.Delete || (proposed.IsActive != nil && !*proposed.IsActive)
	newStart, newEnd := proposedWindow(current, proposed)

	report := &ImpactReport{
		Template:          *current,
		Proposed:          proposed,
		TotalReservations: len(reservations),
	}

	for _, res := range reservations {
		impacted := deactivating || !res.OverlapsWindow(newStart, newEnd)
		if impacted {
			report.ImpactedCount++
			report.ImpactedIDs = append(report.ImpactedIDs, res.ID)
			continue
		}
		report.SafeCount++
		report.SafeIDs = append(report.SafeIDs, res.ID)
		if !res.FitsWithin(newStart, newEnd) {
			report.PartialOverlapCount++
		}
	}

	report.CanProceed = report.ImpactedCount == 0
	report.RequiresRescheduling = report.ImpactedCount > 0

	if report.CanProceed {
		metrics.IncImpactAnalysis("clear")
	} else {
		metrics.IncImpactAnalysis("impacted")
	}
	return report, nil
}

// UpdateTemplate applies a partial edit. When the change invalidates
// reservations and autoReschedule is false, the report comes back with
// Applied=false and nothing is mutated. With autoReschedule=true every
// impacted reservation is flagged for rescheduling before the template row
// is updated.
func (s *TemplateService) UpdateTemplate(ctx context.Context, templateID int64, proposed ProposedChange, autoReschedule bool) (*ImpactReport, error) {
	current, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	updated := *current
	if proposed.StartTime != nil {
		updated.StartTime = *proposed.StartTime
	}
	if proposed.EndTime != nil {
		updated.EndTime = *proposed.EndTime
	}
	if proposed.SlotDuration != nil {
		updated.SlotDuration = *proposed.SlotDuration
	}
	if proposed.IsActive != nil {
		updated.IsActive = *proposed.IsActive
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if updated.IsActive {
		if err := s.checkOverlap(ctx, &updated, current.ID); err != nil {
			return nil, err
		}
	}

	report, err := s.analyzeAgainst(ctx, current, proposed)
	if err != nil {
		return nil, err
	}
	if !report.CanProceed && !autoReschedule {
		// Dry run: confirmation required, nothing mutated.
		return report, nil
	}
	if err := s.flagImpacted(ctx, report); err != nil {
		return nil, err
	}

	if err := s.templates.UpdateTemplate(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	report.Applied = true

	metrics.IncTemplateChange("update")
	s.publish(events.TemplateUpdated, &updated)
	s.logger.Info().
		Int64("template_id", updated.ID).
		Int("impacted", report.ImpactedCount).
		Bool("auto_reschedule", autoReschedule).
		Msg("template updated")
	return report, nil
}

// DeleteTemplate removes a template, subject to the same impact gate as
// updates.
func (s *TemplateService) DeleteTemplate(ctx context.Context, templateID int64, autoReschedule bool) (*ImpactReport, error) {
	current, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	report, err := s.analyzeAgainst(ctx, current, ProposedChange{Delete: true})
	if err != nil {
		return nil, err
	}
	if !report.CanProceed && !autoReschedule {
		return report, nil
	}
	if err := s.flagImpacted(ctx, report); err != nil {
		return nil, err
	}

	if err := s.templates.DeleteTemplate(ctx, templateID); err != nil {
		return nil, fmt.Errorf("delete template: %w", err)
	}
	report.Applied = true

	metrics.IncTemplateChange("delete")
	s.publish(events.TemplateDeleted, current)
	s.logger.Info().
		Int64("template_id", templateID).
		Int("impacted", report.ImpactedCount).
		Msg("template deleted")
	return report, nil
}

func (s *TemplateService) flagImpacted(ctx context.Context, report *ImpactReport) error {
	if report.ImpactedCount == 0 {
		return nil
	}
	if s.rescheduler == nil {
		return fmt.Errorf("no rescheduler configured for %d impacted reservations", report.ImpactedCount)
	}
	reason := fmt.Sprintf("schedule template %d for branch %d changed",
		report.Template.ID, report.Template.BranchID)
	for _, id := range report.ImpactedIDs {
		if err := s.rescheduler.RequireRescheduling(ctx, id, reason); err != nil {
			return fmt.Errorf("flag reservation %d for rescheduling: %w", id, err)
		}
	}
	return nil
}

// checkOverlap rejects a template whose window overlaps another active
// template for the same branch and day. Same test shape as the reservation
// conflict detector.
func (s *TemplateService) checkOverlap(ctx context.Context, tpl *models.ScheduleTemplate, excludeID int64) error {
	day := tpl.DayOfWeek
	active := true
	others, err := s.templates.ListByBranch(ctx, tpl.BranchID, TemplateFilter{DayOfWeek: &day, IsActive: &active})
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	for i := range others {
		if others[i].ID == excludeID {
			continue
		}
		if tpl.OverlapsWith(&others[i]) {
			return apperr.New(apperr.KindTemplateOverlap,
				"window %s-%s overlaps template %d (%s-%s)",
				tpl.StartTime, tpl.EndTime, others[i].ID, others[i].StartTime, others[i].EndTime)
		}
	}
	return nil
}

func (s *TemplateService) publish(eventType string, tpl *models.ScheduleTemplate) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, BranchID: tpl.BranchID, TemplateID: tpl.ID})
}

func proposedWindow(current *models.ScheduleTemplate, proposed ProposedChange) (start, end int) {
	start, end = current.Window()
	if proposed.StartTime != nil {
		if v, err := models.MinutesOfDay(*proposed.StartTime); err == nil {
			start = v
		}
	}
	if proposed.EndTime != nil {
		if v, err := models.MinutesOfDay(*proposed.EndTime); err == nil {
			end = v
		}
	}
	return start, end
}
