package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/shop-scheduler/internal/auth"
	"github.com/nekogravitycat/shop-scheduler/internal/booking"
	"github.com/nekogravitycat/shop-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/shop-scheduler/internal/pkg/response"
	"github.com/nekogravitycat/shop-scheduler/internal/precheck"
	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

// ClientIDHeader identifies one interactive client (a browser tab, a form)
// so its conflict pre-checks can be debounced together.
const ClientIDHeader = "X-Client-Id"

type Handler struct {
	service  booking.Service
	precheck *precheck.Checker
	zone     wallclock.Zone
}

func NewHandler(service booking.Service, checker *precheck.Checker, zone wallclock.Zone) *Handler {
	return &Handler{
		service:  service,
		precheck: checker,
		zone:     zone,
	}
}

// ownerID returns the authenticated owner, writing a 401 when there is none.
func (h *Handler) ownerID(c *gin.Context) (string, bool) {
	ownerID := auth.GetOwnerID(c)
	if ownerID == "" {
		response.Error(c, auth.ErrAuthRequired)
		return "", false
	}
	return ownerID, true
}

// fail renders conflicts with the bookings in the way and defers every
// other error to response.Error.
func (h *Handler) fail(c *gin.Context, err error) {
	var conflict *booking.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, ConflictErrorResponse{
			Error:               booking.ErrTimeConflict.Message,
			ConflictingBookings: newBookingResponses(conflict.Conflicting, h.zone),
		})
		return
	}

	var transition *booking.TransitionError
	if errors.As(err, &transition) {
		c.JSON(http.StatusUnprocessableEntity, response.ErrorResponse{Error: transition.Error()})
		return
	}

	response.Error(c, err)
}

// Availability returns the free and busy slots of one date.
func (h *Handler) Availability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	availability, err := h.service.ComputeAvailability(c.Request.Context(), ownerID, wallclock.MustParseDate(req.Date))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewAvailabilityResponse(availability))
}

// CheckConflict is the read-only pre-check used while a booking is being edited.
func (h *Handler) CheckConflict(c *gin.Context) {
	var body ConflictCheckRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	query := precheck.Query{
		OwnerID:          ownerID,
		Date:             wallclock.MustParseDate(body.Date),
		StartTime:        wallclock.MustParseTimeOfDay(body.StartTime),
		ExcludeBookingID: body.ExcludeBookingID,
	}
	result, err := h.precheck.Check(c.Request.Context(), ownerID+":"+c.GetHeader(ClientIDHeader), query)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ConflictCheckResponse{
		HasConflict:         result.HasConflict,
		ConflictingBookings: newBookingResponses(result.Conflicting, h.zone),
	})
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	bookings, total, err := h.service.List(c.Request.Context(), req.toDomain(ownerID))
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := response.NewPageResponse(newBookingResponses(bookings, h.zone), req.Page, req.PageSize, total)
	c.JSON(http.StatusOK, resp)
}

// Calendar returns the month's bookings grouped by local date.
func (h *Handler) Calendar(c *gin.Context) {
	var req CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	year, month := req.yearMonth()
	days, err := h.service.Calendar(c.Request.Context(), ownerID, year, month)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewCalendarResponse(req.Month, days, h.zone))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	b, err := h.service.Create(c.Request.Context(), body.toDomain(ownerID))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b, h.zone))
}

// CreateRecurring books a whole series. Occurrences that collide with
// existing bookings are reported in "skipped" rather than failing the request.
func (h *Handler) CreateRecurring(c *gin.Context) {
	var body CreateRecurringRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	result, err := h.service.CreateRecurring(c.Request.Context(), body.toDomain(ownerID), body.Recurrence.toPattern())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewRecurringResponse(result, h.zone))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), ownerID, req.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b, h.zone))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	var body UpdateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	req, err := body.toDomain()
	if err != nil {
		response.Error(c, err)
		return
	}
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	b, err := h.service.Update(c.Request.Context(), ownerID, uri.ID, req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b, h.zone))
}

func (h *Handler) Delete(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), ownerID, req.ID); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
