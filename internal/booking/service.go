package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/shop-scheduler/internal/recurrence"
	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

// maxCalendarBookings bounds a single month view.
const maxCalendarBookings = 1000

type Timeframe string

const (
	TimeframeAll      Timeframe = ""
	TimeframeUpcoming Timeframe = "upcoming"
	TimeframePast     Timeframe = "past"
)

type CreateRequest struct {
	OwnerID      string
	CustomerID   string
	VehicleID    string
	TechnicianID *string
	Date         wallclock.Date
	StartTime    wallclock.TimeOfDay
	ServiceType  ServiceType
	Notes        string

	seriesID *string
}

// UpdateRequest is a partial update; nil fields are left unchanged.
type UpdateRequest struct {
	Date        *wallclock.Date
	StartTime   *wallclock.TimeOfDay
	Status      *Status
	ServiceType *ServiceType
	Notes       *string
	CustomerID  *string
	VehicleID   *string
	// TechnicianID set to "" unassigns the technician.
	TechnicianID *string
}

func (r UpdateRequest) reschedules() bool {
	return r.Date != nil || r.StartTime != nil
}

// ListRequest is a Filter plus a timeframe resolved against the current time.
type ListRequest struct {
	Filter
	Timeframe Timeframe
}

// CalendarDay groups the bookings of one local date.
type CalendarDay struct {
	Date     wallclock.Date
	Bookings []*Booking
}

// TransitionError reports a status change the state machine does not allow.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition.Message, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

type Service interface {
	ComputeAvailability(ctx context.Context, ownerID string, date wallclock.Date) (*Availability, error)
	CheckConflict(ctx context.Context, ownerID string, date wallclock.Date, start wallclock.TimeOfDay, excludeBookingID string) (*ConflictResult, error)
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	CreateRecurring(ctx context.Context, req CreateRequest, pattern recurrence.Pattern) (*RecurringResult, error)
	GetByID(ctx context.Context, ownerID, id string) (*Booking, error)
	List(ctx context.Context, req ListRequest) ([]*Booking, int, error)
	Calendar(ctx context.Context, ownerID string, year int, month time.Month) ([]CalendarDay, error)
	Update(ctx context.Context, ownerID, id string, req UpdateRequest) (*Booking, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type service struct {
	repo   Repository
	cache  DayCache
	zone   wallclock.Zone
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, cache DayCache, zone wallclock.Zone, logger *zap.Logger) Service {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:   repo,
		cache:  cache,
		zone:   zone,
		logger: logger.Named("booking"),
		now:    time.Now,
	}
}

func requiredField(name string) error {
	return ErrInvalidInput.WithMessage(name + " is required")
}

func validateSlot(start wallclock.TimeOfDay) error {
	if !NewSlot(start).WithinBusinessHours() {
		return ErrOutsideHours
	}
	return nil
}

func validateCreate(req CreateRequest) error {
	switch {
	case strings.TrimSpace(req.OwnerID) == "":
		return requiredField("owner_id")
	case strings.TrimSpace(req.CustomerID) == "":
		return requiredField("customer_id")
	case strings.TrimSpace(req.VehicleID) == "":
		return requiredField("vehicle_id")
	case req.Date.IsZero():
		return requiredField("date")
	case req.ServiceType == "":
		return requiredField("service_type")
	case !req.ServiceType.IsValid():
		return ErrInvalidServiceType
	}
	return validateSlot(req.StartTime)
}

// dayBookings reads the live bookings of a date straight from the store.
func (s *service) dayBookings(ctx context.Context, ownerID string, date wallclock.Date) ([]*Booking, error) {
	from, to := s.zone.DayBounds(date)
	return s.repo.ListActive(ctx, ownerID, from, to)
}

func (s *service) detect(ctx context.Context, ownerID string, date wallclock.Date, start wallclock.TimeOfDay, excludeBookingID string) (*ConflictResult, error) {
	bookings, err := s.dayBookings(ctx, ownerID, date)
	if err != nil {
		return nil, err
	}
	result := DetectConflicts(s.zone, NewSlot(start), bookings, excludeBookingID)
	return &result, nil
}

// ensureNoConflict is the check half of check-then-write.
func (s *service) ensureNoConflict(ctx context.Context, ownerID string, date wallclock.Date, start wallclock.TimeOfDay, excludeBookingID string) error {
	result, err := s.detect(ctx, ownerID, date, start, excludeBookingID)
	if err != nil {
		return err
	}
	if result.HasConflict {
		return &ConflictError{Conflicting: result.Conflicting}
	}
	return nil
}

// lostRace converts a store-level overlap rejection into a ConflictError
// listing whatever the store now holds for the slot.
func (s *service) lostRace(ctx context.Context, ownerID string, date wallclock.Date, start wallclock.TimeOfDay, excludeBookingID string) error {
	s.logger.Warn("booking rejected by store overlap constraint",
		zap.String("owner_id", ownerID),
		zap.Stringer("date", date),
		zap.Stringer("start", start),
	)
	result, err := s.detect(ctx, ownerID, date, start, excludeBookingID)
	if err != nil || !result.HasConflict {
		return &ConflictError{Conflicting: []*Booking{}}
	}
	return &ConflictError{Conflicting: result.Conflicting}
}

func (s *service) invalidate(ctx context.Context, ownerID string, dates ...wallclock.Date) {
	if err := s.cache.Invalidate(ctx, ownerID, slices.Compact(dates)...); err != nil {
		s.logger.Warn("failed to invalidate day cache", zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func (s *service) ComputeAvailability(ctx context.Context, ownerID string, date wallclock.Date) (*Availability, error) {
	if date.IsZero() {
		return nil, requiredField("date")
	}

	bookings, version, hit, err := s.cache.Get(ctx, ownerID, date)
	if err != nil {
		s.logger.Warn("day cache read failed", zap.String("owner_id", ownerID), zap.Error(err))
	}
	if !hit {
		bookings, err = s.dayBookings(ctx, ownerID, date)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, ownerID, date, version, bookings); err != nil {
			s.logger.Warn("day cache write failed", zap.String("owner_id", ownerID), zap.Error(err))
		}
	}

	availability := CalculateAvailability(date, BusyIntervals(s.zone, bookings))
	return &availability, nil
}

func (s *service) CheckConflict(ctx context.Context, ownerID string, date wallclock.Date, start wallclock.TimeOfDay, excludeBookingID string) (*ConflictResult, error) {
	if date.IsZero() {
		return nil, requiredField("date")
	}
	return s.detect(ctx, ownerID, date, start, excludeBookingID)
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	return s.create(ctx, req)
}

// create assumes req has been validated.
func (s *service) create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if err := s.ensureNoConflict(ctx, req.OwnerID, req.Date, req.StartTime, ""); err != nil {
		return nil, err
	}

	b := &Booking{
		OwnerID:      req.OwnerID,
		CustomerID:   req.CustomerID,
		VehicleID:    req.VehicleID,
		TechnicianID: normalizeTechnician(req.TechnicianID),
		SeriesID:     req.seriesID,
		OccursAt:     s.zone.Combine(req.Date, req.StartTime),
		Status:       StatusPending,
		ServiceType:  req.ServiceType,
		Notes:        req.Notes,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		if errors.Is(err, ErrTimeConflict) {
			return nil, s.lostRace(ctx, req.OwnerID, req.Date, req.StartTime, "")
		}
		return nil, err
	}
	s.invalidate(ctx, req.OwnerID, req.Date)

	s.logger.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("owner_id", b.OwnerID),
		zap.Stringer("date", req.Date),
		zap.Stringer("start", req.StartTime),
	)
	return b, nil
}

func normalizeTechnician(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := strings.TrimSpace(*id)
	return &v
}

func (s *service) GetByID(ctx context.Context, ownerID, id string) (*Booking, error) {
	return s.repo.GetByID(ctx, ownerID, id)
}

func (s *service) List(ctx context.Context, req ListRequest) ([]*Booking, int, error) {
	filter := req.Filter
	now := s.now()

	switch req.Timeframe {
	case TimeframeAll:
	case TimeframeUpcoming:
		if filter.From == nil || filter.From.Before(now) {
			filter.From = &now
		}
	case TimeframePast:
		if filter.To == nil || filter.To.After(now) {
			filter.To = &now
		}
		if filter.SortOrder == "" {
			filter.SortOrder = "DESC"
		}
	default:
		return nil, 0, ErrInvalidInput.WithMessage("timeframe must be upcoming or past")
	}

	return s.repo.List(ctx, filter)
}

func (s *service) Calendar(ctx context.Context, ownerID string, year int, month time.Month) ([]CalendarDay, error) {
	from, to := s.zone.MonthBounds(year, month)
	bookings, _, err := s.repo.List(ctx, Filter{
		OwnerID:   ownerID,
		From:      &from,
		To:        &to,
		SortBy:    "occurs_at",
		SortOrder: "ASC",
		PageSize:  maxCalendarBookings,
	})
	if err != nil {
		return nil, err
	}

	days := []CalendarDay{}
	for _, b := range bookings {
		d := s.zone.DateOf(b.OccursAt)
		if n := len(days); n > 0 && days[n-1].Date == d {
			days[n-1].Bookings = append(days[n-1].Bookings, b)
			continue
		}
		days = append(days, CalendarDay{Date: d, Bookings: []*Booking{b}})
	}
	return days, nil
}

func (s *service) Update(ctx context.Context, ownerID, id string, req UpdateRequest) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	oldDate, oldStart, _ := s.zone.Split(b.OccursAt)
	newDate, newStart := oldDate, oldStart
	if req.Date != nil {
		newDate = *req.Date
	}
	if req.StartTime != nil {
		newStart = *req.StartTime
	}
	timeChanged := req.reschedules() && (newDate != oldDate || newStart != oldStart)

	if req.Status != nil {
		next := *req.Status
		if !next.IsValid() {
			return nil, ErrInvalidStatus
		}
		if !b.Status.CanTransitionTo(next) {
			return nil, &TransitionError{From: b.Status, To: next}
		}
	}

	if timeChanged {
		if b.Status.IsTerminal() {
			return nil, ErrBookingClosed
		}
		if err := validateSlot(newStart); err != nil {
			return nil, err
		}
		if err := s.ensureNoConflict(ctx, ownerID, newDate, newStart, b.ID); err != nil {
			return nil, err
		}
		b.OccursAt = s.zone.Combine(newDate, newStart)
	}

	if req.Status != nil {
		b.Status = *req.Status
	}
	if req.ServiceType != nil {
		if !req.ServiceType.IsValid() {
			return nil, ErrInvalidServiceType
		}
		b.ServiceType = *req.ServiceType
	}
	if req.Notes != nil {
		b.Notes = *req.Notes
	}
	if req.CustomerID != nil {
		if strings.TrimSpace(*req.CustomerID) == "" {
			return nil, requiredField("customer_id")
		}
		b.CustomerID = *req.CustomerID
	}
	if req.VehicleID != nil {
		if strings.TrimSpace(*req.VehicleID) == "" {
			return nil, requiredField("vehicle_id")
		}
		b.VehicleID = *req.VehicleID
	}
	if req.TechnicianID != nil {
		b.TechnicianID = normalizeTechnician(req.TechnicianID)
	}

	if err := s.repo.Update(ctx, b); err != nil {
		if errors.Is(err, ErrTimeConflict) {
			return nil, s.lostRace(ctx, ownerID, newDate, newStart, b.ID)
		}
		return nil, err
	}
	s.invalidate(ctx, ownerID, oldDate, newDate)

	s.logger.Info("booking updated",
		zap.String("booking_id", b.ID),
		zap.String("owner_id", ownerID),
		zap.String("status", string(b.Status)),
		zap.Bool("rescheduled", timeChanged),
	)
	return b, nil
}

func (s *service) Delete(ctx context.Context, ownerID, id string) error {
	b, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID, s.zone.DateOf(b.OccursAt))

	s.logger.Info("booking deleted", zap.String("booking_id", id), zap.String("owner_id", ownerID))
	return nil
}
