package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/shop-scheduler/internal/booking"
	"github.com/nekogravitycat/shop-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/shop-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/shop-scheduler/internal/recurrence"
	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	// Status is a comma-separated list of statuses.
	Status       string     `form:"status"`
	CustomerID   string     `form:"customer_id" binding:"omitempty,uuid"`
	VehicleID    string     `form:"vehicle_id" binding:"omitempty,uuid"`
	TechnicianID string     `form:"technician_id" binding:"omitempty,uuid"`
	SeriesID     string     `form:"series_id" binding:"omitempty,uuid"`
	ServiceType  string     `form:"service_type" binding:"omitempty,oneof=periodic repair inspection other"`
	From         *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To           *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Timeframe    string     `form:"timeframe" binding:"omitempty,oneof=upcoming past"`
	SortBy       string     `form:"sort_by" binding:"omitempty,oneof=occurs_at status created_at"`
}

func (r *ListBookingsRequest) statuses() []booking.Status {
	if r.Status == "" {
		return nil
	}
	parts := strings.Split(r.Status, ",")
	out := make([]booking.Status, 0, len(parts))
	for _, p := range parts {
		out = append(out, booking.Status(strings.TrimSpace(p)))
	}
	return out
}

// Validate performs custom validation for ListBookingsRequest.
func (r *ListBookingsRequest) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return booking.ErrInvalidTimeRange
	}
	for _, s := range r.statuses() {
		if !s.IsValid() {
			return booking.ErrInvalidStatus
		}
	}
	return nil
}

func (r *ListBookingsRequest) toDomain(ownerID string) booking.ListRequest {
	return booking.ListRequest{
		Filter: booking.Filter{
			OwnerID:      ownerID,
			CustomerID:   r.CustomerID,
			VehicleID:    r.VehicleID,
			TechnicianID: r.TechnicianID,
			SeriesID:     r.SeriesID,
			ServiceType:  r.ServiceType,
			Statuses:     r.statuses(),
			From:         r.From,
			To:           r.To,
			Page:         r.Page,
			PageSize:     r.PageSize,
			SortBy:       r.SortBy,
			SortOrder:    strings.ToUpper(r.SortOrder),
		},
		Timeframe: booking.Timeframe(r.Timeframe),
	}
}

type AvailabilityRequest struct {
	Date string `form:"date" binding:"required,date"`
}

type CalendarRequest struct {
	Month string `form:"month" binding:"required,yearmonth"`
}

func (r *CalendarRequest) yearMonth() (int, time.Month) {
	t, _ := time.Parse("2006-01", r.Month)
	return t.Year(), t.Month()
}

type ConflictCheckRequest struct {
	Date             string `json:"date" binding:"required,date"`
	StartTime        string `json:"start_time" binding:"required,hhmm"`
	ExcludeBookingID string `json:"exclude_booking_id" binding:"omitempty,uuid"`
}

type CreateBookingRequest struct {
	CustomerID   string  `json:"customer_id" binding:"required,uuid"`
	VehicleID    string  `json:"vehicle_id" binding:"required,uuid"`
	TechnicianID *string `json:"technician_id"`
	Date         string  `json:"date" binding:"required,date"`
	StartTime    string  `json:"start_time" binding:"required,hhmm"`
	ServiceType  string  `json:"service_type" binding:"required,oneof=periodic repair inspection other"`
	Notes        string  `json:"notes" binding:"max=2000"`
}

// Validate performs custom validation for CreateBookingRequest.
func (r *CreateBookingRequest) Validate() error {
	return validateTechnician(r.TechnicianID, false)
}

func (r *CreateBookingRequest) toDomain(ownerID string) booking.CreateRequest {
	return booking.CreateRequest{
		OwnerID:      ownerID,
		CustomerID:   r.CustomerID,
		VehicleID:    r.VehicleID,
		TechnicianID: r.TechnicianID,
		Date:         wallclock.MustParseDate(r.Date),
		StartTime:    wallclock.MustParseTimeOfDay(r.StartTime),
		ServiceType:  booking.ServiceType(r.ServiceType),
		Notes:        r.Notes,
	}
}

func validateTechnician(id *string, allowEmpty bool) error {
	if id == nil || (allowEmpty && *id == "") {
		return nil
	}
	if _, err := uuid.Parse(*id); err != nil {
		return booking.ErrInvalidInput
	}
	return nil
}

type RecurrenceBody struct {
	Frequency  string `json:"frequency" binding:"required,oneof=none daily weekly biweekly monthly yearly"`
	Interval   int    `json:"interval" binding:"omitempty,min=1,max=52"`
	Count      int    `json:"count" binding:"omitempty,min=1"`
	Until      string `json:"until" binding:"omitempty,date"`
	Weekdays   []int  `json:"weekdays" binding:"omitempty,dive,min=0,max=6"`
	DayOfMonth int    `json:"day_of_month" binding:"omitempty,min=1,max=31"`
}

func (r RecurrenceBody) toPattern() recurrence.Pattern {
	p := recurrence.Pattern{
		Frequency:  recurrence.Frequency(r.Frequency),
		Interval:   r.Interval,
		Count:      r.Count,
		DayOfMonth: r.DayOfMonth,
	}
	if r.Until != "" {
		until := wallclock.MustParseDate(r.Until)
		p.Until = &until
	}
	for _, wd := range r.Weekdays {
		p.Weekdays = append(p.Weekdays, time.Weekday(wd))
	}
	return p
}

type CreateRecurringRequest struct {
	CreateBookingRequest
	Recurrence RecurrenceBody `json:"recurrence" binding:"required"`
}

type UpdateBookingRequest struct {
	Date        *string `json:"date" binding:"omitempty,date"`
	StartTime   *string `json:"start_time" binding:"omitempty,hhmm"`
	Status      *string `json:"status" binding:"omitempty,oneof=pending confirmed in_progress completed cancelled"`
	ServiceType *string `json:"service_type" binding:"omitempty,oneof=periodic repair inspection other"`
	Notes       *string `json:"notes" binding:"omitempty,max=2000"`
	CustomerID  *string `json:"customer_id" binding:"omitempty,uuid"`
	VehicleID   *string `json:"vehicle_id" binding:"omitempty,uuid"`
	// TechnicianID "" unassigns the technician.
	TechnicianID *string `json:"technician_id"`
}

// Validate performs custom validation for UpdateBookingRequest.
func (r *UpdateBookingRequest) Validate() error {
	return validateTechnician(r.TechnicianID, true)
}

func (r *UpdateBookingRequest) toDomain() (booking.UpdateRequest, error) {
	req := booking.UpdateRequest{
		Notes:        r.Notes,
		CustomerID:   r.CustomerID,
		VehicleID:    r.VehicleID,
		TechnicianID: r.TechnicianID,
	}
	if r.Date != nil {
		d, err := wallclock.ParseDate(*r.Date)
		if err != nil {
			return req, apperror.Wrap(err, http.StatusBadRequest, err.Error())
		}
		req.Date = &d
	}
	if r.StartTime != nil {
		t, err := wallclock.ParseTimeOfDay(*r.StartTime)
		if err != nil {
			return req, apperror.Wrap(err, http.StatusBadRequest, err.Error())
		}
		req.StartTime = &t
	}
	if r.Status != nil {
		s := booking.Status(*r.Status)
		req.Status = &s
	}
	if r.ServiceType != nil {
		st := booking.ServiceType(*r.ServiceType)
		req.ServiceType = &st
	}
	return req, nil
}

type BookingResponse struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	VehicleID    string    `json:"vehicle_id"`
	TechnicianID *string   `json:"technician_id"`
	SeriesID     *string   `json:"series_id,omitempty"`
	Date         string    `json:"date"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	OccursAt     time.Time `json:"occurs_at"`
	Status       string    `json:"status"`
	ServiceType  string    `json:"service_type"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking, zone wallclock.Zone) BookingResponse {
	date, start, end := zone.Split(b.OccursAt)
	return BookingResponse{
		ID:           b.ID,
		CustomerID:   b.CustomerID,
		VehicleID:    b.VehicleID,
		TechnicianID: b.TechnicianID,
		SeriesID:     b.SeriesID,
		Date:         date.String(),
		StartTime:    start.String(),
		EndTime:      end.String(),
		OccursAt:     b.OccursAt,
		Status:       string(b.Status),
		ServiceType:  string(b.ServiceType),
		Notes:        b.Notes,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func newBookingResponses(bookings []*booking.Booking, zone wallclock.Zone) []BookingResponse {
	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b, zone)
	}
	return items
}

type SlotResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type BusySlotResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type AvailabilityResponse struct {
	Date           string             `json:"date"`
	AvailableSlots []SlotResponse     `json:"available_slots"`
	BusySlots      []BusySlotResponse `json:"busy_slots"`
}

func NewAvailabilityResponse(a *booking.Availability) AvailabilityResponse {
	resp := AvailabilityResponse{
		Date:           a.Date.String(),
		AvailableSlots: make([]SlotResponse, len(a.AvailableSlots)),
		BusySlots:      make([]BusySlotResponse, len(a.BusySlots)),
	}
	for i, s := range a.AvailableSlots {
		resp.AvailableSlots[i] = SlotResponse{StartTime: s.Start.String(), EndTime: s.End.String()}
	}
	for i, b := range a.BusySlots {
		resp.BusySlots[i] = BusySlotResponse{
			StartTime: b.Start.String(),
			EndTime:   b.End.String(),
			BookingID: b.Booking.ID,
			Status:    string(b.Booking.Status),
		}
	}
	return resp
}

type ConflictCheckResponse struct {
	HasConflict         bool              `json:"has_conflict"`
	ConflictingBookings []BookingResponse `json:"conflicting_bookings"`
}

// ConflictErrorResponse is the 409 body for writes rejected by the conflict detector.
type ConflictErrorResponse struct {
	Error               string            `json:"error"`
	ConflictingBookings []BookingResponse `json:"conflicting_bookings"`
}

type SkippedOccurrenceResponse struct {
	Date                  string   `json:"date"`
	ConflictingBookingIDs []string `json:"conflicting_booking_ids"`
}

type RecurringResponse struct {
	SeriesID     string                      `json:"series_id"`
	Requested    int                         `json:"requested"`
	CreatedCount int                         `json:"created_count"`
	Created      []BookingResponse           `json:"created"`
	Skipped      []SkippedOccurrenceResponse `json:"skipped"`
}

func NewRecurringResponse(r *booking.RecurringResult, zone wallclock.Zone) RecurringResponse {
	resp := RecurringResponse{
		SeriesID:     r.SeriesID,
		Requested:    r.Requested,
		CreatedCount: len(r.Created),
		Created:      newBookingResponses(r.Created, zone),
		Skipped:      make([]SkippedOccurrenceResponse, len(r.Skipped)),
	}
	for i, s := range r.Skipped {
		ids := make([]string, len(s.Conflicting))
		for j, b := range s.Conflicting {
			ids[j] = b.ID
		}
		resp.Skipped[i] = SkippedOccurrenceResponse{Date: s.Date.String(), ConflictingBookingIDs: ids}
	}
	return resp
}

type CalendarDayResponse struct {
	Date     string            `json:"date"`
	Bookings []BookingResponse `json:"bookings"`
}

type CalendarResponse struct {
	Month string                `json:"month"`
	Days  []CalendarDayResponse `json:"days"`
}

func NewCalendarResponse(month string, days []booking.CalendarDay, zone wallclock.Zone) CalendarResponse {
	resp := CalendarResponse{Month: month, Days: make([]CalendarDayResponse, len(days))}
	for i, d := range days {
		resp.Days[i] = CalendarDayResponse{Date: d.Date.String(), Bookings: newBookingResponses(d.Bookings, zone)}
	}
	return resp
}
