package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

func testZone(t *testing.T) wallclock.Zone {
	t.Helper()
	zone, err := wallclock.LoadZone("Europe/Istanbul")
	require.NoError(t, err)
	return zone
}

func at(zone wallclock.Zone, date, clock string) time.Time {
	return zone.Combine(wallclock.MustParseDate(date), wallclock.MustParseTimeOfDay(clock))
}

func slotStarts(slots []TimeInterval) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.String()
	}
	return out
}

func TestTimeIntervalOverlaps(t *testing.T) {
	nine := NewSlot(wallclock.MustParseTimeOfDay("09:00"))

	tests := []struct {
		name  string
		other TimeInterval
		want  bool
	}{
		{"same slot", nine, true},
		{"half past", NewSlot(wallclock.MustParseTimeOfDay("09:30")), true},
		{"starts at end", NewSlot(wallclock.MustParseTimeOfDay("10:00")), false},
		{"ends at start", NewSlot(wallclock.MustParseTimeOfDay("08:00")), false},
		{"ends inside", NewSlot(wallclock.MustParseTimeOfDay("08:01")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nine.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(nine), "overlap must be symmetric")
		})
	}
}

func TestWithinBusinessHours(t *testing.T) {
	assert.True(t, NewSlot(wallclock.MustParseTimeOfDay("08:00")).WithinBusinessHours())
	assert.True(t, NewSlot(wallclock.MustParseTimeOfDay("17:00")).WithinBusinessHours())
	assert.True(t, NewSlot(wallclock.MustParseTimeOfDay("09:30")).WithinBusinessHours())
	assert.False(t, NewSlot(wallclock.MustParseTimeOfDay("07:59")).WithinBusinessHours())
	assert.False(t, NewSlot(wallclock.MustParseTimeOfDay("17:01")).WithinBusinessHours())
	assert.False(t, NewSlot(wallclock.MustParseTimeOfDay("23:30")).WithinBusinessHours())
}

func TestCalculateAvailability(t *testing.T) {
	zone := testZone(t)
	date := wallclock.MustParseDate("2024-06-10")

	tests := []struct {
		name     string
		bookings []*Booking
		want     []string
		wantBusy int
	}{
		{
			name:     "No bookings, full day available",
			bookings: nil,
			want:     []string{"08:00", "09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"},
		},
		{
			name: "Confirmed booking removes its slot",
			bookings: []*Booking{
				{ID: "b1", OccursAt: at(zone, "2024-06-10", "09:00"), Status: StatusConfirmed},
			},
			want:     []string{"08:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"},
			wantBusy: 1,
		},
		{
			name: "Pending booking is busy too",
			bookings: []*Booking{
				{ID: "b1", OccursAt: at(zone, "2024-06-10", "17:00"), Status: StatusPending},
			},
			want:     []string{"08:00", "09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"},
			wantBusy: 1,
		},
		{
			name: "Cancelled booking is ignored",
			bookings: []*Booking{
				{ID: "b1", OccursAt: at(zone, "2024-06-10", "09:00"), Status: StatusCancelled},
			},
			want: []string{"08:00", "09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"},
		},
		{
			name: "Off-hour booking blocks two slots",
			bookings: []*Booking{
				{ID: "b1", OccursAt: at(zone, "2024-06-10", "10:30"), Status: StatusConfirmed},
			},
			want:     []string{"08:00", "09:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"},
			wantBusy: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateAvailability(date, BusyIntervals(zone, tt.bookings))
			assert.Equal(t, date, got.Date)
			assert.Equal(t, tt.want, slotStarts(got.AvailableSlots))
			assert.Len(t, got.BusySlots, tt.wantBusy)
			assert.NotNil(t, got.BusySlots)
		})
	}
}

func TestCalculateAvailabilityIsAlwaysOrdered(t *testing.T) {
	zone := testZone(t)
	date := wallclock.MustParseDate("2024-06-10")
	bookings := []*Booking{
		{ID: "late", OccursAt: at(zone, "2024-06-10", "15:00"), Status: StatusConfirmed},
		{ID: "early", OccursAt: at(zone, "2024-06-10", "08:00"), Status: StatusInProgress},
		{ID: "mid", OccursAt: at(zone, "2024-06-10", "11:00"), Status: StatusPending},
	}

	got := CalculateAvailability(date, BusyIntervals(zone, bookings))

	require.Len(t, got.BusySlots, 3)
	assert.Equal(t, "early", got.BusySlots[0].Booking.ID)
	assert.Equal(t, "mid", got.BusySlots[1].Booking.ID)
	assert.Equal(t, "late", got.BusySlots[2].Booking.ID)
	assert.Len(t, got.AvailableSlots, 7)
	for i := 1; i < len(got.AvailableSlots); i++ {
		assert.Less(t, int(got.AvailableSlots[i-1].Start), int(got.AvailableSlots[i].Start))
	}
	for _, slot := range got.AvailableSlots {
		for _, busy := range got.BusySlots {
			assert.False(t, slot.Overlaps(busy.TimeInterval), "slot %s overlaps busy %s", slot.Start, busy.Start)
		}
	}
}
