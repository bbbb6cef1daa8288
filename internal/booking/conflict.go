package booking

import (
	"fmt"
	"strings"

	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

// ConflictResult lists every existing booking that overlaps a candidate.
type ConflictResult struct {
	HasConflict bool
	Conflicting []*Booking
}

// ConflictError is returned when a booking would overlap existing bookings.
// It unwraps to ErrTimeConflict.
type ConflictError struct {
	Conflicting []*Booking
}

func (e *ConflictError) Error() string {
	ids := make([]string, len(e.Conflicting))
	for i, b := range e.Conflicting {
		ids[i] = b.ID
	}
	return fmt.Sprintf("%s: conflicts with %s", ErrTimeConflict.Message, strings.Join(ids, ", "))
}

func (e *ConflictError) Unwrap() error {
	return ErrTimeConflict
}

// DetectConflicts checks candidate against the bookings of a single date.
// Cancelled bookings and the booking with ID excludeBookingID are ignored.
func DetectConflicts(zone wallclock.Zone, candidate TimeInterval, dayBookings []*Booking, excludeBookingID string) ConflictResult {
	result := ConflictResult{Conflicting: []*Booking{}}
	for _, busy := range BusyIntervals(zone, dayBookings) {
		if excludeBookingID != "" && busy.Booking.ID == excludeBookingID {
			continue
		}
		if candidate.Overlaps(busy.TimeInterval) {
			result.Conflicting = append(result.Conflicting, busy.Booking)
		}
	}
	result.HasConflict = len(result.Conflicting) > 0
	return result
}
