package models

import (
	"time"

	"dockbook/internal/apperr"
)

// ScheduleTemplate is a branch's configured opening window and slot
// granularity for one day of week (ISO, Monday=1 .. Sunday=7). At most one
// active template may exist per (branch, day); soft-inactive rows may
// coexist, so the editor enforces uniqueness, not the table alone.
type ScheduleTemplate struct {
	ID           int64     `json:"id"`
	BranchID     int64     `json:"branch_id"`
	DayOfWeek    int       `json:"day_of_week"`   // 1-7 (Monday-Sunday)
	StartTime    string    `json:"start_time"`    // "08:00"
	EndTime      string    `json:"end_time"`      // "18:00"
	SlotDuration int       `json:"slot_duration"` // minutes
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewScheduleTemplate builds a validated active template.
func NewScheduleTemplate(branchID int64, dayOfWeek int, start, end string, slotDuration int) (*ScheduleTemplate, error) {
	t := &ScheduleTemplate{
		BranchID:     branchID,
		DayOfWeek:    dayOfWeek,
		StartTime:    start,
		EndTime:      end,
		SlotDuration: slotDuration,
		IsActive:     true,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the template invariants: parseable times, start < end,
// 0 < interval <= duration.
func (t *ScheduleTemplate) Validate() error {
	if t.DayOfWeek < 1 || t.DayOfWeek > 7 {
		return apperr.New(apperr.KindInvalidTemplateTime, "day of week %d out of range 1..7", t.DayOfWeek)
	}
	start, err := MinutesOfDay(t.StartTime)
	if err != nil {
		return apperr.New(apperr.KindInvalidTemplateTime, "start time: %v", err)
	}
	end, err := MinutesOfDay(t.EndTime)
	if err != nil {
		return apperr.New(apperr.KindInvalidTemplateTime, "end time: %v", err)
	}
	if start >= end {
		return apperr.New(apperr.KindInvalidTemplateTime,
			"start time %s must be before end time %s", t.StartTime, t.EndTime)
	}
	if t.SlotDuration <= 0 || t.SlotDuration > end-start {
		return apperr.New(apperr.KindInvalidInterval,
			"slot duration %d must be within (0, %d] minutes", t.SlotDuration, end-start)
	}
	return nil
}

// Window returns the template's opening window in minutes since midnight.
// Callers must have validated the template first.
func (t *ScheduleTemplate) Window() (start, end int) {
	start, _ = MinutesOfDay(t.StartTime)
	end, _ = MinutesOfDay(t.EndTime)
	return start, end
}

// DurationMinutes returns the length of the opening window.
func (t *ScheduleTemplate) DurationMinutes() int {
	start, end := t.Window()
	return end - start
}

// OverlapsWith reports whether two templates' windows share an instant,
// using half-open semantics.
func (t *ScheduleTemplate) OverlapsWith(other *ScheduleTemplate) bool {
	s1, e1 := t.Window()
	s2, e2 := other.Window()
	return ClockOverlaps(s1, e1, s2, e2)
}
