package wallclock

import (
	"fmt"
	"time"
	// Zone names must resolve on hosts without a system zoneinfo database.
	_ "time/tzdata"
)

// SlotLength is the fixed duration of every booking.
const SlotLength = 60 * time.Minute

// Zone is the shop's single local time zone.
type Zone struct {
	loc *time.Location
}

// LoadZone resolves an IANA zone name such as "Europe/Istanbul".
func LoadZone(name string) (Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return Zone{loc: loc}, nil
}

func NewZone(loc *time.Location) Zone {
	return Zone{loc: loc}
}

func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// Combine builds the absolute instant for a local date and time of day.
func (z Zone) Combine(d Date, t TimeOfDay) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), 0, 0, z.Location())
}

// Split returns the local date, start time and end time (start + SlotLength)
// of an instant.
func (z Zone) Split(instant time.Time) (Date, TimeOfDay, TimeOfDay) {
	local := instant.In(z.Location())
	start := NewTimeOfDay(local.Hour(), local.Minute())
	return z.DateOf(instant), start, start.Add(SlotLength)
}

// DateOf returns the local calendar date of an instant.
func (z Zone) DateOf(instant time.Time) Date {
	local := instant.In(z.Location())
	return Date{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// DayBounds returns [start of d, start of the next day) as instants.
func (z Zone) DayBounds(d Date) (time.Time, time.Time) {
	next := d.AddDays(1)
	return z.Combine(d, 0), z.Combine(next, 0)
}

// MonthBounds returns [first day of the month, first day of the next month).
func (z Zone) MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := NewDate(year, month, 1)
	return z.Combine(first, 0), z.Combine(first.AddMonthsClamped(1, 1), 0)
}
