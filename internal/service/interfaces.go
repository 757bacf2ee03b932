package service

import (
	"context"
	"time"

	"dockbook/internal/models"
)

// TemplateStore persists weekly schedule templates. Implementations return
// (nil, nil) when a lookup finds nothing; the services translate absence
// into business errors.
type TemplateStore interface {
	GetTemplate(ctx context.Context, id int64) (*models.ScheduleTemplate, error)
	// GetActiveByBranchAndDay returns the active template for (branch, day),
	// or nil when none exists.
	GetActiveByBranchAndDay(ctx context.Context, branchID int64, dayOfWeek int) (*models.ScheduleTemplate, error)
	ListByBranch(ctx context.Context, branchID int64, filter TemplateFilter) ([]models.ScheduleTemplate, error)
	CreateTemplate(ctx context.Context, tpl *models.ScheduleTemplate) error
	UpdateTemplate(ctx context.Context, tpl *models.ScheduleTemplate) error
	DeleteTemplate(ctx context.Context, id int64) error
	// ExistsActiveByBranchAndDay reports whether an active template exists
	// for (branch, day), ignoring excludeID when non-zero.
	ExistsActiveByBranchAndDay(ctx context.Context, branchID int64, dayOfWeek int, excludeID int64) (bool, error)
}

// TemplateFilter narrows ListByBranch results.
type TemplateFilter struct {
	DayOfWeek *int
	IsActive  *bool
}

// ReservationStore persists reservations and their dock bookings. A
// reservation is stored and loaded together with its docks.
type ReservationStore interface {
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]models.Reservation, int, error)
	CreateReservation(ctx context.Context, res *models.Reservation) error
	UpdateReservation(ctx context.Context, res *models.Reservation) error
	DeleteReservation(ctx context.Context, id int64) error
	// ListActiveForDate returns pending/confirmed reservations for a branch
	// on a calendar date.
	ListActiveForDate(ctx context.Context, branchID int64, date time.Time) ([]models.Reservation, error)
	// ListActiveForDock returns pending/confirmed reservations holding the
	// given dock on a calendar date.
	ListActiveForDock(ctx context.Context, branchID, dockID int64, date time.Time) ([]models.Reservation, error)
	// ListActiveByWeekday returns pending/confirmed reservations for a
	// branch whose reservation date falls on the given ISO day of week.
	ListActiveByWeekday(ctx context.Context, branchID int64, dayOfWeek int) ([]models.Reservation, error)
}

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	BranchID int64
	Status   models.ReservationStatus
	DateFrom time.Time
	DateTo   time.Time
	Limit    int
	Offset   int
}

// BranchStore resolves the branch catalog rows reservations snapshot their
// data from.
type BranchStore interface {
	GetBranch(ctx context.Context, id int64) (*models.Branch, error)
}

// AvailableSlotsReport is the result of an availability query.
type AvailableSlotsReport struct {
	BranchID       int64             `json:"branch_id"`
	BranchName     string            `json:"branch_name"`
	Date           string            `json:"date"` // YYYY-MM-DD
	DayOfWeek      int               `json:"day_of_week"`
	DayName        string            `json:"day_name"`
	Slots          []models.TimeSlot `json:"slots"`
	TotalSlots     int               `json:"total_slots"`
	AvailableSlots int               `json:"available_slots"`
}

// ProposedChange describes a partial template edit. Nil fields keep the
// current value; IsActive=false models deactivation, Delete models removal.
type ProposedChange struct {
	StartTime    *string `json:"start_time,omitempty"`
	EndTime      *string `json:"end_time,omitempty"`
	SlotDuration *int    `json:"slot_duration,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
	Delete       bool    `json:"delete,omitempty"`
}

// ImpactReport describes the blast radius of a proposed template change on
// existing reservations. Callers always see the report before anything is
// committed; nothing impacted is resolved silently.
type ImpactReport struct {
	Template             models.ScheduleTemplate `json:"template"`
	Proposed             ProposedChange          `json:"proposed"`
	TotalReservations    int                     `json:"total_reservations"`
	ImpactedCount        int                     `json:"impacted_reservations"`
	SafeCount            int                     `json:"safe_reservations"`
	ImpactedIDs          []int64                 `json:"impacted_ids"`
	SafeIDs              []int64                 `json:"safe_ids"`
	PartialOverlapCount  int                     `json:"partial_overlap_count"`
	CanProceed           bool                    `json:"can_proceed"`
	RequiresRescheduling bool                    `json:"requires_rescheduling"`
	Applied              bool                    `json:"applied"`
}
