package booking

import (
	"slices"

	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

// Business hours of the shop. Slots are SlotLength long and start on the hour.
var (
	BusinessHoursStart = wallclock.NewTimeOfDay(8, 0)
	BusinessHoursEnd   = wallclock.NewTimeOfDay(18, 0)
	// LatestStart is the last start time whose slot still ends within business hours.
	LatestStart = BusinessHoursEnd.Add(-wallclock.SlotLength)
)

// TimeInterval is a half-open [Start, End) range of wall-clock times on one date.
type TimeInterval struct {
	Start wallclock.TimeOfDay
	End   wallclock.TimeOfDay
}

// NewSlot returns the SlotLength interval starting at start.
func NewSlot(start wallclock.TimeOfDay) TimeInterval {
	return TimeInterval{Start: start, End: start.Add(wallclock.SlotLength)}
}

// Overlaps uses the half-open rule: touching endpoints do not overlap.
func (i TimeInterval) Overlaps(other TimeInterval) bool {
	return i.Start < other.End && i.End > other.Start
}

// WithinBusinessHours reports whether the interval lies fully inside business hours.
func (i TimeInterval) WithinBusinessHours() bool {
	return i.Start >= BusinessHoursStart && i.End <= BusinessHoursEnd && i.Start < i.End
}

// BusyInterval is the time occupied by an existing booking.
type BusyInterval struct {
	TimeInterval
	Booking *Booking
}

// Availability is the result of the slot calculation for one date.
type Availability struct {
	Date           wallclock.Date
	AvailableSlots []TimeInterval
	BusySlots      []BusyInterval
}

// BusyIntervals derives the busy intervals of the non-cancelled bookings in
// the list, ordered by start time.
func BusyIntervals(zone wallclock.Zone, bookings []*Booking) []BusyInterval {
	busy := make([]BusyInterval, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == StatusCancelled {
			continue
		}
		_, start, end := zone.Split(b.OccursAt)
		busy = append(busy, BusyInterval{
			TimeInterval: TimeInterval{Start: start, End: end},
			Booking:      b,
		})
	}
	slices.SortStableFunc(busy, func(a, b BusyInterval) int {
		return int(a.Start) - int(b.Start)
	})
	return busy
}

// CalculateAvailability enumerates the hourly slots of the business day and
// drops every slot overlapping a busy interval. Slots are ordered by start.
func CalculateAvailability(date wallclock.Date, busy []BusyInterval) Availability {
	slots := make([]TimeInterval, 0, int((BusinessHoursEnd-BusinessHoursStart)/60))
	for start := BusinessHoursStart; start <= LatestStart; start = start.Add(wallclock.SlotLength) {
		slot := NewSlot(start)
		if !overlapsAny(slot, busy) {
			slots = append(slots, slot)
		}
	}

	sorted := slices.Clone(busy)
	slices.SortStableFunc(sorted, func(a, b BusyInterval) int {
		return int(a.Start) - int(b.Start)
	})
	if sorted == nil {
		sorted = []BusyInterval{}
	}

	return Availability{
		Date:           date,
		AvailableSlots: slots,
		BusySlots:      sorted,
	}
}

func overlapsAny(slot TimeInterval, busy []BusyInterval) bool {
	for _, b := range busy {
		if slot.Overlaps(b.TimeInterval) {
			return true
		}
	}
	return false
}
