package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"dockbook/internal/apperr"
	"dockbook/internal/models"
)

type mockTemplateStore struct {
	mock.Mock
}

func (m *mockTemplateStore) GetTemplate(ctx context.Context, id int64) (*models.ScheduleTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScheduleTemplate), args.Error(1)
}

func (m *mockTemplateStore) GetActiveByBranchAndDay(ctx context.Context, branchID int64, dayOfWeek int) (*models.ScheduleTemplate, error) {
	args := m.Called(ctx, branchID, dayOfWeek)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScheduleTemplate), args.Error(1)
}

func (m *mockTemplateStore) ListByBranch(ctx context.Context, branchID int64, filter TemplateFilter) ([]models.ScheduleTemplate, error) {
	args := m.Called(ctx, branchID, filter)
	return args.Get(0).([]models.ScheduleTemplate), args.Error(1)
}

func (m *mockTemplateStore) CreateTemplate(ctx context.Context, tpl *models.ScheduleTemplate) error {
	return m.Called(ctx, tpl).Error(0)
}

func (m *mockTemplateStore) UpdateTemplate(ctx context.Context, tpl *models.ScheduleTemplate) error {
	return m.Called(ctx, tpl).Error(0)
}

func (m *mockTemplateStore) DeleteTemplate(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTemplateStore) ExistsActiveByBranchAndDay(ctx context.Context, branchID int64, dayOfWeek int, excludeID int64) (bool, error) {
	args := m.Called(ctx, branchID, dayOfWeek, excludeID)
	return args.Bool(0), args.Error(1)
}

type mockReservationStore struct {
	mock.Mock
}

func (m *mockReservationStore) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *mockReservationStore) ListReservations(ctx context.Context, filter ReservationFilter) ([]models.Reservation, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Reservation), args.Int(1), args.Error(2)
}

func (m *mockReservationStore) CreateReservation(ctx context.Context, res *models.Reservation) error {
	return m.Called(ctx, res).Error(0)
}

func (m *mockReservationStore) UpdateReservation(ctx context.Context, res *models.Reservation) error {
	return m.Called(ctx, res).Error(0)
}

func (m *mockReservationStore) DeleteReservation(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockReservationStore) ListActiveForDate(ctx context.Context, branchID int64, date time.Time) ([]models.Reservation, error) {
	args := m.Called(ctx, branchID, date)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *mockReservationStore) ListActiveForDock(ctx context.Context, branchID, dockID int64, date time.Time) ([]models.Reservation, error) {
	args := m.Called(ctx, branchID, dockID, date)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *mockReservationStore) ListActiveByWeekday(ctx context.Context, branchID int64, dayOfWeek int) ([]models.Reservation, error) {
	args := m.Called(ctx, branchID, dayOfWeek)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

type mockBranchStore struct {
	mock.Mock
}

func (m *mockBranchStore) GetBranch(ctx context.Context, id int64) (*models.Branch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Branch), args.Error(1)
}

type mockRescheduler struct {
	mock.Mock
}

func (m *mockRescheduler) RequireRescheduling(ctx context.Context, reservationID int64, reason string) error {
	return m.Called(ctx, reservationID, reason).Error(0)
}

// Monday 2026-01-05 08:00 UTC; Wednesday of that week is Jan 7.
var (
	fixedNow  = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	wednesday = time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
)

func wedTemplate() *models.ScheduleTemplate {
	return &models.ScheduleTemplate{
		ID:           1,
		BranchID:     1,
		DayOfWeek:    3,
		StartTime:    "08:00",
		EndTime:      "18:00",
		SlotDuration: 120,
		IsActive:     true,
	}
}

func TestAvailabilityService(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	t.Run("BookedSlotsMarked", func(t *testing.T) {
		templates := new(mockTemplateStore)
		reservations := new(mockReservationStore)
		branches := new(mockBranchStore)
		svc := NewAvailabilityService(templates, reservations, branches, &logger)
		svc.now = func() time.Time { return fixedNow }

		templates.On("GetActiveByBranchAndDay", ctx, int64(1), 3).Return(wedTemplate(), nil).Once()
		reservations.On("ListActiveForDate", ctx, int64(1), wednesday).Return([]models.Reservation{
			{ID: 10, StartTime: "09:00", EndTime: "11:00", Status: models.StatusConfirmed},
		}, nil).Once()
		branches.On("GetBranch", ctx, int64(1)).Return(&models.Branch{ID: 1, Name: "North Terminal"}, nil).Once()

		report, err := svc.AvailableSlots(ctx, 1, wednesday)
		assert.NoError(t, err)
		assert.Equal(t, 5, report.TotalSlots)
		// 09:00-11:00 straddles the 08:00-10:00 and 10:00-12:00 slots.
		assert.Equal(t, 3, report.AvailableSlots)
		assert.False(t, report.Slots[0].Available)
		assert.False(t, report.Slots[1].Available)
		assert.Equal(t, int64(10), report.Slots[0].ReservationID)
		assert.True(t, report.Slots[2].Available)
		assert.Equal(t, "North Terminal", report.BranchName)
		assert.Equal(t, 3, report.DayOfWeek)
		assert.Equal(t, "Wednesday", report.DayName)
		templates.AssertExpectations(t)
		reservations.AssertExpectations(t)
	})

	t.Run("PastDate", func(t *testing.T) {
		svc := NewAvailabilityService(new(mockTemplateStore), new(mockReservationStore), nil, &logger)
		svc.now = func() time.Time { return fixedNow }

		_, err := svc.AvailableSlots(ctx, 1, fixedNow.AddDate(0, 0, -1))
		assert.True(t, apperr.IsKind(err, apperr.KindPastDate))
	})

	t.Run("NoScheduleForDate", func(t *testing.T) {
		templates := new(mockTemplateStore)
		svc := NewAvailabilityService(templates, new(mockReservationStore), nil, &logger)
		svc.now = func() time.Time { return fixedNow }

		templates.On("GetActiveByBranchAndDay", ctx, int64(1), 3).Return(nil, nil).Once()

		_, err := svc.AvailableSlots(ctx, 1, wednesday)
		assert.True(t, apperr.IsKind(err, apperr.KindNoScheduleForDate))
	})
}

func TestTemplateService(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	day3 := 3
	active := true

	t.Run("CreateRejectsDuplicateActive", func(t *testing.T) {
		templates := new(mockTemplateStore)
		svc := NewTemplateService(templates, new(mockReservationStore), nil, nil, &logger)

		templates.On("ExistsActiveByBranchAndDay", ctx, int64(1), 3, int64(0)).Return(true, nil).Once()

		_, err := svc.CreateTemplate(ctx, 1, 3, "08:00", "18:00", 120)
		assert.True(t, apperr.IsKind(err, apperr.KindTemplateAlreadyExists))
		templates.AssertExpectations(t)
	})

	t.Run("CreateRejectsInvalidTimes", func(t *testing.T) {
		templates := new(mockTemplateStore)
		svc := NewTemplateService(templates, new(mockReservationStore), nil, nil, &logger)

		templates.On("ExistsActiveByBranchAndDay", ctx, int64(1), 3, int64(0)).Return(false, nil).Once()

		_, err := svc.CreateTemplate(ctx, 1, 3, "18:00", "08:00", 60)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidTemplateTime))
	})

	t.Run("CreateRejectsOverlap", func(t *testing.T) {
		templates := new(mockTemplateStore)
		svc := NewTemplateService(templates, new(mockReservationStore), nil, nil, &logger)

		templates.On("ExistsActiveByBranchAndDay", ctx, int64(2), 3, int64(0)).Return(false, nil).Once()
		templates.On("ListByBranch", ctx, int64(2), TemplateFilter{DayOfWeek: &day3, IsActive: &active}).
			Return([]models.ScheduleTemplate{
				{ID: 9, BranchID: 2, DayOfWeek: 3, StartTime: "06:00", EndTime: "09:00", SlotDuration: 60, IsActive: true},
			}, nil).Once()

		_, err := svc.CreateTemplate(ctx, 2, 3, "08:00", "18:00", 120)
		assert.True(t, apperr.IsKind(err, apperr.KindTemplateOverlap))
	})

	t.Run("CreateOK", func(t *testing.T) {
		templates := new(mockTemplateStore)
		svc := NewTemplateService(templates, new(mockReservationStore), nil, nil, &logger)

		templates.On("ExistsActiveByBranchAndDay", ctx, int64(1), 3, int64(0)).Return(false, nil).Once()
		templates.On("ListByBranch", ctx, int64(1), TemplateFilter{DayOfWeek: &day3, IsActive: &active}).
			Return([]models.ScheduleTemplate{}, nil).Once()
		templates.On("CreateTemplate", ctx, mock.AnythingOfType("*models.ScheduleTemplate")).Return(nil).Once()

		tpl, err := svc.CreateTemplate(ctx, 1, 3, "08:00", "18:00", 120)
		assert.NoError(t, err)
		assert.True(t, tpl.IsActive)
		templates.AssertExpectations(t)
	})

	t.Run("UpdateDryRunReportsImpact", func(t *testing.T) {
		templates := new(mockTemplateStore)
		reservations := new(mockReservationStore)
		rescheduler := new(mockRescheduler)
		svc := NewTemplateService(templates, reservations, rescheduler, nil, &logger)

		templates.On("GetTemplate", ctx, int64(1)).Return(wedTemplate(), nil).Once()
		templates.On("ListByBranch", ctx, int64(1), TemplateFilter{DayOfWeek: &day3, IsActive: &active}).
			Return([]models.ScheduleTemplate{}, nil).Once()
		reservations.On("ListActiveByWeekday", ctx, int64(1), 3).Return([]models.Reservation{
			{ID: 10, StartTime: "09:00", EndTime: "11:00", Status: models.StatusConfirmed},
			{ID: 11, StartTime: "13:00", EndTime: "15:00", Status: models.StatusPending},
		}, nil).Once()

		newStart := "12:00"
		report, err := svc.UpdateTemplate(ctx, 1, ProposedChange{StartTime: &newStart}, false)
		assert.NoError(t, err)
		assert.False(t, report.Applied)
		assert.False(t, report.CanProceed)
		assert.True(t, report.RequiresRescheduling)
		assert.Equal(t, 2, report.TotalReservations)
		assert.Equal(t, 1, report.ImpactedCount)
		assert.Equal(t, []int64{10}, report.ImpactedIDs)
		assert.Equal(t, []int64{11}, report.SafeIDs)
		// No UpdateTemplate or rescheduling expectations set: the dry run
		// must not touch either.
		templates.AssertExpectations(t)
		rescheduler.AssertExpectations(t)
	})

	t.Run("UpdateWithAutoRescheduleFlagsAndApplies", func(t *testing.T) {
		templates := new(mockTemplateStore)
		reservations := new(mockReservationStore)
		rescheduler := new(mockRescheduler)
		svc := NewTemplateService(templates, reservations, rescheduler, nil, &logger)

		templates.On("GetTemplate", ctx, int64(1)).Return(wedTemplate(), nil).Once()
		templates.On("ListByBranch", ctx, int64(1), TemplateFilter{DayOfWeek: &day3, IsActive: &active}).
			Return([]models.ScheduleTemplate{}, nil).Once()
		reservations.On("ListActiveByWeekday", ctx, int64(1), 3).Return([]models.Reservation{
			{ID: 10, StartTime: "09:00", EndTime: "11:00", Status: models.StatusConfirmed},
		}, nil).Once()
		rescheduler.On("RequireRescheduling", ctx, int64(10), mock.AnythingOfType("string")).Return(nil).Once()
		templates.On("UpdateTemplate", ctx, mock.AnythingOfType("*models.ScheduleTemplate")).Return(nil).Once()

		newStart := "12:00"
		report, err := svc.UpdateTemplate(ctx, 1, ProposedChange{StartTime: &newStart}, true)
		assert.NoError(t, err)
		assert.True(t, report.Applied)
		assert.Equal(t, 1, report.ImpactedCount)
		templates.AssertExpectations(t)
		rescheduler.AssertExpectations(t)
	})

	t.Run("PartialOverlapStaysSafe", func(t *testing.T) {
		templates := new(mockTemplateStore)
		reservations := new(mockReservationStore)
		svc := NewTemplateService(templates, reservations, nil, nil, &logger)

		templates.On("GetTemplate", ctx, int64(1)).Return(wedTemplate(), nil).Once()
		templates.On("ListByBranch", ctx, int64(1), TemplateFilter{DayOfWeek: &day3, IsActive: &active}).
			Return([]models.ScheduleTemplate{}, nil).Once()
		// 16:00-18:00 sticks out of the shortened 08:00-17:00 window but
		// still overlaps it.
		reservations.On("ListActiveByWeekday", ctx, int64(1), 3).Return([]models.Reservation{
			{ID: 12, StartTime: "16:00", EndTime: "18:00", Status: models.StatusConfirmed},
		}, nil).Once()
		templates.On("UpdateTemplate", ctx, mock.AnythingOfType("*models.ScheduleTemplate")).Return(nil).Once()

		newEnd := "17:00"
		report, err := svc.UpdateTemplate(ctx, 1, ProposedChange{EndTime: &newEnd}, false)
		assert.NoError(t, err)
		assert.True(t, report.Applied)
		assert.True(t, report.CanProceed)
		assert.Equal(t, 0, report.ImpactedCount)
		assert.Equal(t, 1, report.SafeCount)
		assert.Equal(t, 1, report.PartialOverlapCount)
	})

	t.Run("DeleteWithNoImpactProceeds", func(t *testing.T) {
		templates := new(mockTemplateStore)
		reservations := new(mockReservationStore)
		svc := NewTemplateService(templates, reservations, nil, nil, &logger)

		templates.On("GetTemplate", ctx, int64(1)).Return(wedTemplate(), nil).Once()
		reservations.On("ListActiveByWeekday", ctx, int64(1), 3).Return([]models.Reservation{}, nil).Once()
		templates.On("DeleteTemplate", ctx, int64(1)).Return(nil).Once()

		report, err := svc.DeleteTemplate(ctx, 1, false)
		assert.NoError(t, err)
		assert.True(t, report.Applied)
		assert.True(t, report.CanProceed)
		templates.AssertExpectations(t)
	})

	t.Run("DeleteBlockedByImpact", func(t *testing.T) {
		templates := new(mockTemplateStore)
		reservations := new(mockReservationStore)
		svc := NewTemplateService(templates, reservations, new(mockRescheduler), nil, &logger)

		templates.On("GetTemplate", ctx, int64(1)).Return(wedTemplate(), nil).Once()
		reservations.On("ListActiveByWeekday", ctx, int64(1), 3).Return([]models.Reservation{
			{ID: 10, StartTime: "09:00", EndTime: "11:00", Status: models.StatusPending},
		}, nil).Once()

		report, err := svc.DeleteTemplate(ctx, 1, false)
		assert.NoError(t, err)
		assert.False(t, report.Applied)
		assert.Equal(t, 1, report.ImpactedCount)
		templates.AssertExpectations(t)
	})

	t.Run("AnalyzeImpactDeactivationHitsEverything", func(t *testing.T) {
		templates := new(mockTemplateStore)
		reservations := new(mockReservationStore)
		svc := NewTemplateService(templates, reservations, nil, nil, &logger)

		templates.On("GetActiveByBranchAndDay", ctx, int64(1), 3).Return(wedTemplate(), nil).Once()
		reservations.On("ListActiveByWeekday", ctx, int64(1), 3).Return([]models.Reservation{
			{ID: 10, StartTime: "09:00", EndTime: "11:00", Status: models.StatusConfirmed},
			{ID: 11, StartTime: "13:00", EndTime: "15:00", Status: models.StatusPending},
		}, nil).Once()

		inactive := false
		report, err := svc.AnalyzeImpact(ctx, 1, 3, ProposedChange{IsActive: &inactive})
		assert.NoError(t, err)
		assert.Equal(t, 2, report.ImpactedCount)
		assert.Equal(t, 0, report.SafeCount)
		assert.False(t, report.CanProceed)
		assert.False(t, report.Applied)
	})
}

func TestReservationService(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	newSvc := func(reservations *mockReservationStore, branches BranchStore, rules BookingRules) *ReservationService {
		svc := NewReservationService(reservations, branches, NewConflictDetector(reservations), nil, rules, &logger)
		svc.now = func() time.Time { return fixedNow }
		return svc
	}

	t.Run("Create", func(t *testing.T) {
		reservations := new(mockReservationStore)
		branches := new(mockBranchStore)
		svc := newSvc(reservations, branches, BookingRules{})

		reservations.On("ListActiveForDock", ctx, int64(1), int64(2), wednesday).
			Return([]models.Reservation{}, nil).Once()
		branches.On("GetBranch", ctx, int64(1)).Return(&models.Branch{ID: 1, Name: "North Terminal"}, nil).Once()
		reservations.On("CreateReservation", ctx, mock.AnythingOfType("*models.Reservation")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.Reservation).ID = 42
			}).Return(nil).Once()

		res, err := svc.CreateReservation(ctx, CreateReservationInput{
			RequesterID:  7,
			BranchID:     1,
			CustomerName: "Maersk Line",
			Date:         wednesday,
			StartTime:    "09:00",
			EndTime:      "11:00",
			Docks:        []DockRequest{{DockID: 2, DockName: "Dock B"}},
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(42), res.ID)
		assert.NotEmpty(t, res.Reference)
		assert.Equal(t, models.StatusPending, res.Status)
		assert.Equal(t, "North Terminal", res.BranchName)
		assert.Len(t, res.Docks, 1)
		assert.Equal(t, "09:00", res.Docks[0].StartTime)
		reservations.AssertExpectations(t)
	})

	t.Run("CreateRejectsConflict", func(t *testing.T) {
		reservations := new(mockReservationStore)
		svc := newSvc(reservations, nil, BookingRules{})

		reservations.On("ListActiveForDock", ctx, int64(1), int64(2), wednesday).
			Return([]models.Reservation{
				{ID: 10, StartTime: "10:00", EndTime: "12:00", Status: models.StatusConfirmed},
			}, nil).Once()

		_, err := svc.CreateReservation(ctx, CreateReservationInput{
			BranchID:  1,
			Date:      wednesday,
			StartTime: "09:00",
			EndTime:   "11:00",
			Docks:     []DockRequest{{DockID: 2}},
		})
		assert.True(t, apperr.IsKind(err, apperr.KindReservationConflict))
		reservations.AssertExpectations(t)
	})

	t.Run("CreateRequiresDocks", func(t *testing.T) {
		svc := newSvc(new(mockReservationStore), nil, BookingRules{})

		_, err := svc.CreateReservation(ctx, CreateReservationInput{
			BranchID:  1,
			Date:      wednesday,
			StartTime: "09:00",
			EndTime:   "11:00",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindReservationConflict))
	})

	t.Run("CreateRejectsPastDate", func(t *testing.T) {
		svc := newSvc(new(mockReservationStore), nil, BookingRules{})

		_, err := svc.CreateReservation(ctx, CreateReservationInput{
			BranchID:  1,
			Date:      fixedNow.AddDate(0, 0, -1),
			StartTime: "09:00",
			EndTime:   "11:00",
			Docks:     []DockRequest{{DockID: 2}},
		})
		assert.True(t, apperr.IsKind(err, apperr.KindPastDate))
	})

	t.Run("CreateEnforcesAdvanceWindow", func(t *testing.T) {
		svc := newSvc(new(mockReservationStore), nil, BookingRules{
			MinAdvance: 72 * time.Hour,
			MaxAdvance: 30 * 24 * time.Hour,
		})

		// Wednesday 09:00 is ~49h after the fixed Monday 08:00 clock.
		_, err := svc.CreateReservation(ctx, CreateReservationInput{
			BranchID:  1,
			Date:      wednesday,
			StartTime: "09:00",
			EndTime:   "11:00",
			Docks:     []DockRequest{{DockID: 2}},
		})
		assert.True(t, apperr.IsKind(err, apperr.KindPastDate))

		_, err = svc.CreateReservation(ctx, CreateReservationInput{
			BranchID:  1,
			Date:      fixedNow.AddDate(0, 0, 60),
			StartTime: "09:00",
			EndTime:   "11:00",
			Docks:     []DockRequest{{DockID: 2}},
		})
		assert.True(t, apperr.IsKind(err, apperr.KindPastDate))
	})

	t.Run("ConfirmPending", func(t *testing.T) {
		reservations := new(mockReservationStore)
		svc := newSvc(reservations, nil, BookingRules{})

		reservations.On("GetReservation", ctx, int64(10)).
			Return(&models.Reservation{ID: 10, Status: models.StatusPending}, nil).Once()
		reservations.On("UpdateReservation", ctx, mock.AnythingOfType("*models.Reservation")).Return(nil).Once()

		res, err := svc.Confirm(ctx, 10)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, res.Status)
		reservations.AssertExpectations(t)
	})

	t.Run("CompleteFromCancelledRefused", func(t *testing.T) {
		reservations := new(mockReservationStore)
		svc := newSvc(reservations, nil, BookingRules{})

		reservations.On("GetReservation", ctx, int64(10)).
			Return(&models.Reservation{ID: 10, Status: models.StatusCancelled}, nil).Once()

		_, err := svc.Complete(ctx, 10, "ops", "done")
		assert.True(t, apperr.IsKind(err, apperr.KindReservationStatus))
		// No UpdateReservation expectation: the record must stay untouched.
		reservations.AssertExpectations(t)
	})

	t.Run("CompleteAttachesClosingSummary", func(t *testing.T) {
		reservations := new(mockReservationStore)
		svc := newSvc(reservations, nil, BookingRules{})

		reservations.On("GetReservation", ctx, int64(10)).
			Return(&models.Reservation{ID: 10, Status: models.StatusConfirmed}, nil).Once()
		reservations.On("UpdateReservation", ctx, mock.AnythingOfType("*models.Reservation")).Return(nil).Once()

		res, err := svc.Complete(ctx, 10, "gate-ops", "unloaded on time")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, res.Status)
		if assert.NotNil(t, res.Closing) {
			assert.Equal(t, models.OutcomeCompleted, res.Closing.Outcome)
			assert.Equal(t, "gate-ops", res.Closing.Actor)
			assert.Equal(t, fixedNow, res.Closing.ClosedAt)
		}
	})

	t.Run("RejectRecordsOutcome", func(t *testing.T) {
		reservations := new(mockReservationStore)
		svc := newSvc(reservations, nil, BookingRules{})

		reservations.On("GetReservation", ctx, int64(10)).
			Return(&models.Reservation{ID: 10, Status: models.StatusPending}, nil).Once()
		reservations.On("UpdateReservation", ctx, mock.AnythingOfType("*models.Reservation")).Return(nil).Once()

		res, err := svc.Reject(ctx, 10, "branch-manager", "no capacity")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, res.Status)
		if assert.NotNil(t, res.Closing) {
			assert.Equal(t, models.OutcomeRejected, res.Closing.Outcome)
		}
	})

	t.Run("RequireRescheduling", func(t *testing.T) {
		reservations := new(mockReservationStore)
		svc := newSvc(reservations, nil, BookingRules{})

		stored := &models.Reservation{ID: 10, Status: models.StatusConfirmed}
		reservations.On("GetReservation", ctx, int64(10)).Return(stored, nil).Once()
		reservations.On("UpdateReservation", ctx, stored).Return(nil).Once()

		err := svc.RequireRescheduling(ctx, 10, "template changed")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusReschedulingRequired, stored.Status)
		assert.Equal(t, "template changed", stored.Notes)
	})

	t.Run("RetimeClearsReschedulingFlag", func(t *testing.T) {
		reservations := new(mockReservationStore)
		svc := newSvc(reservations, nil, BookingRules{})

		stored := &models.Reservation{
			ID:        10,
			BranchID:  1,
			Date:      wednesday,
			StartTime: "09:00",
			EndTime:   "11:00",
			Status:    models.StatusReschedulingRequired,
			Docks:     []models.DockBooking{{DockID: 2, StartTime: "09:00", EndTime: "11:00"}},
		}
		reservations.On("GetReservation", ctx, int64(10)).Return(stored, nil).Once()
		reservations.On("ListActiveForDock", ctx, int64(1), int64(2), wednesday).
			Return([]models.Reservation{}, nil).Once()
		reservations.On("UpdateReservation", ctx, stored).Return(nil).Once()

		newStart, newEnd := "13:00", "15:00"
		res, err := svc.UpdateReservation(ctx, 10, UpdateReservationInput{StartTime: &newStart, EndTime: &newEnd})
		assert.NoError(t, err)
		assert.Equal(t, models.StatusPending, res.Status)
		assert.Equal(t, "13:00", res.Docks[0].StartTime)
		assert.Equal(t, "15:00", res.Docks[0].EndTime)
	})

	t.Run("RetimeExcludesSelfFromConflicts", func(t *testing.T) {
		reservations := new(mockReservationStore)
		svc := newSvc(reservations, nil, BookingRules{})

		stored := &models.Reservation{
			ID:        10,
			BranchID:  1,
			Date:      wednesday,
			StartTime: "09:00",
			EndTime:   "11:00",
			Status:    models.StatusConfirmed,
			Docks:     []models.DockBooking{{DockID: 2, StartTime: "09:00", EndTime: "11:00"}},
		}
		reservations.On("GetReservation", ctx, int64(10)).Return(stored, nil).Once()
		// Only the reservation itself occupies the dock; extending must not
		// collide with its own booking.
		reservations.On("ListActiveForDock", ctx, int64(1), int64(2), wednesday).
			Return([]models.Reservation{*stored}, nil).Once()
		reservations.On("UpdateReservation", ctx, stored).Return(nil).Once()

		newEnd := "12:00"
		res, err := svc.UpdateReservation(ctx, 10, UpdateReservationInput{EndTime: &newEnd})
		assert.NoError(t, err)
		assert.Equal(t, "12:00", res.EndTime)
	})

	t.Run("UpdateTerminalRefused", func(t *testing.T) {
		reservations := new(mockReservationStore)
		svc := newSvc(reservations, nil, BookingRules{})

		reservations.On("GetReservation", ctx, int64(10)).
			Return(&models.Reservation{ID: 10, Status: models.StatusCompleted}, nil).Once()

		notes := "late note"
		_, err := svc.UpdateReservation(ctx, 10, UpdateReservationInput{Notes: &notes})
		assert.True(t, apperr.IsKind(err, apperr.KindReservationStatus))
	})

	t.Run("DeleteCompletedRefused", func(t *testing.T) {
		reservations := new(mockReservationStore)
		svc := newSvc(reservations, nil, BookingRules{})

		reservations.On("GetReservation", ctx, int64(10)).
			Return(&models.Reservation{ID: 10, Status: models.StatusCompleted}, nil).Once()

		err := svc.DeleteReservation(ctx, 10)
		assert.True(t, apperr.IsKind(err, apperr.KindReservationStatus))
	})

	t.Run("NotFound", func(t *testing.T) {
		reservations := new(mockReservationStore)
		svc := newSvc(reservations, nil, BookingRules{})

		reservations.On("GetReservation", ctx, int64(99)).Return(nil, nil).Once()

		_, err := svc.GetReservation(ctx, 99)
		assert.True(t, apperr.IsKind(err, apperr.KindReservationNotFound))
	})
}
