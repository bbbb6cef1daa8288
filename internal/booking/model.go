package booking

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/shop-scheduler/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "booking not found")
	ErrTimeConflict       = apperror.New(http.StatusConflict, "time slot already booked")
	ErrInvalidStatus      = apperror.New(http.StatusBadRequest, "invalid booking status")
	ErrInvalidServiceType = apperror.New(http.StatusBadRequest, "invalid service type")
	ErrInvalidTransition  = apperror.New(http.StatusUnprocessableEntity, "invalid status transition")
	ErrBookingClosed      = apperror.New(http.StatusUnprocessableEntity, "completed or cancelled bookings cannot be rescheduled")
	ErrOutsideHours       = apperror.New(http.StatusBadRequest, "start time is outside business hours")
	ErrInvalidInput       = apperror.New(http.StatusBadRequest, "invalid input parameters")
	ErrInvalidTimeRange   = apperror.New(http.StatusBadRequest, "from must not be after to")
)

type ServiceType string

const (
	ServiceTypePeriodic   ServiceType = "periodic"
	ServiceTypeRepair     ServiceType = "repair"
	ServiceTypeInspection ServiceType = "inspection"
	ServiceTypeOther      ServiceType = "other"
)

func (t ServiceType) IsValid() bool {
	switch t {
	case ServiceTypePeriodic, ServiceTypeRepair, ServiceTypeInspection, ServiceTypeOther:
		return true
	}
	return false
}

// Booking is a single appointment. Its duration is always wallclock.SlotLength.
type Booking struct {
	ID           string
	OwnerID      string
	CustomerID   string
	VehicleID    string
	TechnicianID *string
	SeriesID     *string
	OccursAt     time.Time
	Status       Status
	ServiceType  ServiceType
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Filter selects bookings for listings. OwnerID is mandatory.
type Filter struct {
	OwnerID      string
	CustomerID   string
	VehicleID    string
	TechnicianID string
	SeriesID     string
	ServiceType  string
	Statuses     []Status
	From         *time.Time // occurs_at >= From
	To           *time.Time // occurs_at < To
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
