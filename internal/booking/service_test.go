package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nekogravitycat/shop-scheduler/internal/booking"
	"github.com/nekogravitycat/shop-scheduler/internal/booking/bookingtest"
	"github.com/nekogravitycat/shop-scheduler/internal/recurrence"
	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

const owner = "owner-1"

type fixture struct {
	zone  wallclock.Zone
	store *bookingtest.Store
	svc   booking.Service
	// seeded is a confirmed booking on 2024-06-10 at 09:00.
	seeded *booking.Booking
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	zone, err := wallclock.LoadZone("Europe/Istanbul")
	require.NoError(t, err)

	store := bookingtest.NewStore()
	seeded := &booking.Booking{
		ID:          "seeded",
		OwnerID:     owner,
		CustomerID:  "customer-1",
		VehicleID:   "vehicle-1",
		OccursAt:    zone.Combine(wallclock.MustParseDate("2024-06-10"), wallclock.MustParseTimeOfDay("09:00")),
		Status:      booking.StatusConfirmed,
		ServiceType: booking.ServiceTypePeriodic,
	}
	store.Seed(seeded)

	return &fixture{
		zone:   zone,
		store:  store,
		svc:    booking.NewService(store, nil, zone, zaptest.NewLogger(t)),
		seeded: seeded,
	}
}

func createReq(date, start string) booking.CreateRequest {
	return booking.CreateRequest{
		OwnerID:     owner,
		CustomerID:  "customer-2",
		VehicleID:   "vehicle-2",
		Date:        wallclock.MustParseDate(date),
		StartTime:   wallclock.MustParseTimeOfDay(start),
		ServiceType: booking.ServiceTypeRepair,
	}
}

func availableStarts(a *booking.Availability) []string {
	out := make([]string, len(a.AvailableSlots))
	for i, s := range a.AvailableSlots {
		out[i] = s.Start.String()
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestComputeAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.ComputeAvailability(ctx, owner, wallclock.MustParseDate("2024-06-10"))
	require.NoError(t, err)

	assert.Len(t, got.AvailableSlots, 9)
	assert.NotContains(t, availableStarts(got), "09:00")
	require.Len(t, got.BusySlots, 1)
	assert.Equal(t, "seeded", got.BusySlots[0].Booking.ID)

	t.Run("Other owners do not see the booking", func(t *testing.T) {
		got, err := f.svc.ComputeAvailability(ctx, "owner-2", wallclock.MustParseDate("2024-06-10"))
		require.NoError(t, err)
		assert.Len(t, got.AvailableSlots, 10)
	})

	t.Run("Other dates are free", func(t *testing.T) {
		got, err := f.svc.ComputeAvailability(ctx, owner, wallclock.MustParseDate("2024-06-11"))
		require.NoError(t, err)
		assert.Len(t, got.AvailableSlots, 10)
		assert.Empty(t, got.BusySlots)
	})
}

func TestCheckConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := wallclock.MustParseDate("2024-06-10")

	got, err := f.svc.CheckConflict(ctx, owner, date, wallclock.MustParseTimeOfDay("09:30"), "")
	require.NoError(t, err)
	assert.True(t, got.HasConflict)
	require.Len(t, got.Conflicting, 1)
	assert.Equal(t, "seeded", got.Conflicting[0].ID)

	got, err = f.svc.CheckConflict(ctx, owner, date, wallclock.MustParseTimeOfDay("10:00"), "")
	require.NoError(t, err)
	assert.False(t, got.HasConflict)
	assert.Empty(t, got.Conflicting)

	got, err = f.svc.CheckConflict(ctx, owner, date, wallclock.MustParseTimeOfDay("09:00"), "seeded")
	require.NoError(t, err)
	assert.False(t, got.HasConflict)
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Overlapping booking is rejected with the conflicting bookings", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Create(ctx, createReq("2024-06-10", "09:30"))

		var conflict *booking.ConflictError
		require.ErrorAs(t, err, &conflict)
		require.Len(t, conflict.Conflicting, 1)
		assert.Equal(t, "seeded", conflict.Conflicting[0].ID)
		assert.ErrorIs(t, err, booking.ErrTimeConflict)
		assert.Equal(t, 1, f.store.Len())
	})

	t.Run("Adjacent booking is accepted as pending", func(t *testing.T) {
		f := newFixture(t)

		b, err := f.svc.Create(ctx, createReq("2024-06-10", "10:00"))
		require.NoError(t, err)

		assert.NotEmpty(t, b.ID)
		assert.Equal(t, booking.StatusPending, b.Status)
		assert.Nil(t, b.SeriesID)
		date, start, end := f.zone.Split(b.OccursAt)
		assert.Equal(t, "2024-06-10", date.String())
		assert.Equal(t, "10:00", start.String())
		assert.Equal(t, "11:00", end.String())
	})

	t.Run("Technician is stored when given", func(t *testing.T) {
		f := newFixture(t)
		req := createReq("2024-06-10", "12:00")
		req.TechnicianID = ptr("tech-1")

		b, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
		require.NotNil(t, b.TechnicianID)
		assert.Equal(t, "tech-1", *b.TechnicianID)
	})

	t.Run("Validation", func(t *testing.T) {
		f := newFixture(t)
		tests := []struct {
			name    string
			mutate  func(r *booking.CreateRequest)
			wantErr error
		}{
			{"Before opening", func(r *booking.CreateRequest) { r.StartTime = wallclock.MustParseTimeOfDay("07:00") }, booking.ErrOutsideHours},
			{"Ends after closing", func(r *booking.CreateRequest) { r.StartTime = wallclock.MustParseTimeOfDay("17:30") }, booking.ErrOutsideHours},
			{"Missing customer", func(r *booking.CreateRequest) { r.CustomerID = " " }, booking.ErrInvalidInput},
			{"Missing vehicle", func(r *booking.CreateRequest) { r.VehicleID = "" }, booking.ErrInvalidInput},
			{"Missing date", func(r *booking.CreateRequest) { r.Date = wallclock.Date{} }, booking.ErrInvalidInput},
			{"Unknown service type", func(r *booking.CreateRequest) { r.ServiceType = "wash" }, booking.ErrInvalidServiceType},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := createReq("2024-06-11", "10:00")
				tt.mutate(&req)

				_, err := f.svc.Create(ctx, req)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
		assert.Equal(t, 1, f.store.Len())
	})

	t.Run("Booking that loses a race reports the winner", func(t *testing.T) {
		f := newFixture(t)
		winner := &booking.Booking{
			ID:          "winner",
			OwnerID:     owner,
			CustomerID:  "customer-3",
			VehicleID:   "vehicle-3",
			OccursAt:    f.zone.Combine(wallclock.MustParseDate("2024-06-10"), wallclock.MustParseTimeOfDay("14:00")),
			Status:      booking.StatusPending,
			ServiceType: booking.ServiceTypeOther,
		}
		f.store.BeforeWrite = func(context.Context, *booking.Booking) error {
			f.store.Seed(winner)
			return nil
		}

		_, err := f.svc.Create(ctx, createReq("2024-06-10", "14:00"))

		var conflict *booking.ConflictError
		require.ErrorAs(t, err, &conflict)
		require.Len(t, conflict.Conflicting, 1)
		assert.Equal(t, "winner", conflict.Conflicting[0].ID)
	})
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := wallclock.MustParseDate("2024-06-10")

	updated, err := f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{Status: ptr(booking.StatusCancelled)})
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, updated.Status)

	got, err := f.svc.ComputeAvailability(ctx, owner, date)
	require.NoError(t, err)
	assert.Contains(t, availableStarts(got), "09:00")
	assert.Len(t, got.AvailableSlots, 10)

	_, err = f.svc.Create(ctx, createReq("2024-06-10", "09:00"))
	assert.NoError(t, err)
}

func TestUpdateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Rescheduling onto its own slot never conflicts with itself", func(t *testing.T) {
		f := newFixture(t)

		got, err := f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{
			StartTime: ptr(wallclock.MustParseTimeOfDay("09:30")),
		})
		require.NoError(t, err)
		_, start, _ := f.zone.Split(got.OccursAt)
		assert.Equal(t, "09:30", start.String())
	})

	t.Run("Rescheduling onto another booking is rejected", func(t *testing.T) {
		f := newFixture(t)
		other, err := f.svc.Create(ctx, createReq("2024-06-10", "11:00"))
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, owner, other.ID, booking.UpdateRequest{
			StartTime: ptr(wallclock.MustParseTimeOfDay("09:15")),
		})

		var conflict *booking.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "seeded", conflict.Conflicting[0].ID)

		stored, err := f.svc.GetByID(ctx, owner, other.ID)
		require.NoError(t, err)
		assert.True(t, stored.OccursAt.Equal(other.OccursAt))
	})

	t.Run("Moving to another date", func(t *testing.T) {
		f := newFixture(t)

		got, err := f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{
			Date: ptr(wallclock.MustParseDate("2024-06-12")),
		})
		require.NoError(t, err)
		assert.Equal(t, "2024-06-12", f.zone.DateOf(got.OccursAt).String())

		avail, err := f.svc.ComputeAvailability(ctx, owner, wallclock.MustParseDate("2024-06-10"))
		require.NoError(t, err)
		assert.Len(t, avail.AvailableSlots, 10)
	})

	t.Run("Rescheduling outside business hours", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{
			StartTime: ptr(wallclock.MustParseTimeOfDay("18:00")),
		})
		assert.ErrorIs(t, err, booking.ErrOutsideHours)
	})

	t.Run("Status follows the state machine", func(t *testing.T) {
		f := newFixture(t)

		got, err := f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{Status: ptr(booking.StatusInProgress)})
		require.NoError(t, err)
		assert.Equal(t, booking.StatusInProgress, got.Status)

		got, err = f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{Status: ptr(booking.StatusCompleted)})
		require.NoError(t, err)
		assert.Equal(t, booking.StatusCompleted, got.Status)

		_, err = f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{Status: ptr(booking.StatusPending)})
		var transition *booking.TransitionError
		require.ErrorAs(t, err, &transition)
		assert.Equal(t, booking.StatusCompleted, transition.From)
		assert.Equal(t, booking.StatusPending, transition.To)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)

		_, err = f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{Status: ptr(booking.StatusCompleted)})
		require.ErrorAs(t, err, &transition)
		assert.Equal(t, booking.StatusCompleted, transition.To)

		_, err = f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{
			StartTime: ptr(wallclock.MustParseTimeOfDay("12:00")),
		})
		assert.ErrorIs(t, err, booking.ErrBookingClosed)

		notes, err := f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{Notes: ptr("brake pads replaced")})
		require.NoError(t, err)
		assert.Equal(t, "brake pads replaced", notes.Notes)
	})

	t.Run("Unknown status", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{Status: ptr(booking.Status("archived"))})
		assert.ErrorIs(t, err, booking.ErrInvalidStatus)
	})

	t.Run("Technician can be assigned and cleared", func(t *testing.T) {
		f := newFixture(t)

		got, err := f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{TechnicianID: ptr("tech-9")})
		require.NoError(t, err)
		require.NotNil(t, got.TechnicianID)
		assert.Equal(t, "tech-9", *got.TechnicianID)

		got, err = f.svc.Update(ctx, owner, "seeded", booking.UpdateRequest{TechnicianID: ptr("")})
		require.NoError(t, err)
		assert.Nil(t, got.TechnicianID)
	})

	t.Run("Missing booking", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Update(ctx, "owner-2", "seeded", booking.UpdateRequest{Notes: ptr("x")})
		assert.ErrorIs(t, err, booking.ErrNotFound)
	})
}

func TestDeleteBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Delete(ctx, "owner-2", "seeded"), booking.ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, owner, "seeded"))

	_, err := f.svc.GetByID(ctx, owner, "seeded")
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, owner, "seeded"), booking.ErrNotFound)
}

func TestCreateRecurring(t *testing.T) {
	ctx := context.Background()
	weekly := recurrence.Pattern{Frequency: recurrence.FrequencyWeekly}.WithCount(4)

	t.Run("Conflicting occurrences are skipped and counted", func(t *testing.T) {
		f := newFixture(t)
		// Occupies the second Monday.
		_, err := f.svc.Create(ctx, createReq("2024-06-17", "09:00"))
		require.NoError(t, err)

		got, err := f.svc.CreateRecurring(ctx, createReq("2024-06-03", "09:00"), weekly)
		require.NoError(t, err)

		assert.Equal(t, 4, got.Requested)
		assert.Len(t, got.Created, 2)
		require.Len(t, got.Skipped, 2)
		assert.Equal(t, "2024-06-10", got.Skipped[0].Date.String())
		assert.Equal(t, "seeded", got.Skipped[0].Conflicting[0].ID)
		assert.Equal(t, "2024-06-17", got.Skipped[1].Date.String())

		for _, b := range got.Created {
			require.NotNil(t, b.SeriesID)
			assert.Equal(t, got.SeriesID, *b.SeriesID)
			assert.Equal(t, time.Monday, f.zone.DateOf(b.OccursAt).Weekday())
		}

		series, total, err := f.svc.List(ctx, booking.ListRequest{Filter: booking.Filter{OwnerID: owner, SeriesID: got.SeriesID}})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, series, 2)
	})

	t.Run("Invalid pattern creates nothing", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateRecurring(ctx, createReq("2024-06-03", "09:00"), recurrence.Pattern{Frequency: recurrence.FrequencyDaily})
		assert.ErrorIs(t, err, recurrence.ErrUnbounded)
		assert.Equal(t, 1, f.store.Len())
	})

	t.Run("Store failure stops the series and keeps what was created", func(t *testing.T) {
		f := newFixture(t)
		boom := errors.New("connection reset")
		writes := 0
		f.store.BeforeWrite = func(context.Context, *booking.Booking) error {
			writes++
			if writes == 3 {
				return boom
			}
			return nil
		}

		got, err := f.svc.CreateRecurring(ctx, createReq("2024-07-01", "15:00"), weekly)
		assert.ErrorIs(t, err, boom)
		require.NotNil(t, got)
		assert.Equal(t, 4, got.Requested)
		assert.Len(t, got.Created, 2)
		assert.Empty(t, got.Skipped)
	})
}

func TestListBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booking.SetClock(f.svc, func() time.Time {
		return f.zone.Combine(wallclock.MustParseDate("2024-06-10"), wallclock.MustParseTimeOfDay("12:00"))
	})

	later, err := f.svc.Create(ctx, createReq("2024-06-11", "10:00"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, createReq("2024-06-12", "10:00"))
	require.NoError(t, err)

	all, total, err := f.svc.List(ctx, booking.ListRequest{Filter: booking.Filter{OwnerID: owner}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "seeded", all[0].ID)

	upcoming, total, err := f.svc.List(ctx, booking.ListRequest{
		Filter:    booking.Filter{OwnerID: owner},
		Timeframe: booking.TimeframeUpcoming,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, later.ID, upcoming[0].ID)

	past, total, err := f.svc.List(ctx, booking.ListRequest{
		Filter:    booking.Filter{OwnerID: owner},
		Timeframe: booking.TimeframePast,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "seeded", past[0].ID)

	paged, total, err := f.svc.List(ctx, booking.ListRequest{
		Filter: booking.Filter{OwnerID: owner, Page: 2, PageSize: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, paged, 1)

	_, _, err = f.svc.List(ctx, booking.ListRequest{Filter: booking.Filter{OwnerID: owner}, Timeframe: "someday"})
	assert.ErrorIs(t, err, booking.ErrInvalidInput)
}

func TestCalendarGroupsByLocalDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 00:30 local on June 11th is still June 10th in UTC.
	f.store.Seed(&booking.Booking{
		ID:          "night",
		OwnerID:     owner,
		OccursAt:    f.zone.Combine(wallclock.MustParseDate("2024-06-11"), wallclock.MustParseTimeOfDay("00:30")),
		Status:      booking.StatusPending,
		ServiceType: booking.ServiceTypeOther,
	})
	_, err := f.svc.Create(ctx, createReq("2024-06-10", "15:00"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, createReq("2024-07-01", "15:00"))
	require.NoError(t, err)

	days, err := f.svc.Calendar(ctx, owner, 2024, time.June)
	require.NoError(t, err)

	require.Len(t, days, 2)
	assert.Equal(t, "2024-06-10", days[0].Date.String())
	assert.Len(t, days[0].Bookings, 2)
	assert.Equal(t, "2024-06-11", days[1].Date.String())
	assert.Equal(t, "night", days[1].Bookings[0].ID)
}
