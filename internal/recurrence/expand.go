package recurrence

import (
	"net/http"
	"slices"
	"time"

	"github.com/nekogravitycat/shop-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

var ErrUntilBeforeStart = apperror.New(http.StatusBadRequest, "recurrence end date is before the start date")

// Expand returns the ordered candidate dates for a series beginning on start.
// The first candidate is never earlier than start. The result is computed
// from the inputs alone, so calling Expand again yields the same sequence.
func Expand(start wallclock.Date, p Pattern) ([]wallclock.Date, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Frequency == "" || p.Frequency == FrequencyNone {
		return []wallclock.Date{start}, nil
	}
	if p.Until != nil && p.Until.Before(start) {
		return nil, ErrUntilBeforeStart
	}

	c := &collector{count: p.Count, until: p.Until}
	iv := p.interval()

	var err error
	switch p.Frequency {
	case FrequencyDaily:
		err = c.each(func(k int) (wallclock.Date, bool) {
			return start.AddDays(k * iv), true
		})
	case FrequencyWeekly:
		err = expandWeekly(c, start, iv, p.Weekdays)
	case FrequencyBiweekly:
		err = expandWeekly(c, start, 2*iv, p.Weekdays)
	case FrequencyMonthly:
		day := p.DayOfMonth
		if day == 0 {
			day = start.Day
		}
		err = c.each(func(k int) (wallclock.Date, bool) {
			d := start.AddMonthsClamped(k*iv, day)
			return d, !d.Before(start)
		})
	case FrequencyYearly:
		err = c.each(func(k int) (wallclock.Date, bool) {
			return start.AddYearsClamped(k * iv), true
		})
	}
	if err != nil {
		return nil, err
	}
	return c.out, nil
}

// expandWeekly walks Sunday-based weeks starting with the week containing
// start and emits one candidate per selected weekday.
func expandWeekly(c *collector, start wallclock.Date, stepWeeks int, weekdays []time.Weekday) error {
	days := normalizeWeekdays(weekdays, start.Weekday())
	weekStart := start.AddDays(-int(start.Weekday()))

	for k := 0; ; k++ {
		base := weekStart.AddDays(7 * stepWeeks * k)
		for _, wd := range days {
			d := base.AddDays(int(wd))
			if d.Before(start) {
				continue
			}
			more, err := c.add(d)
			if err != nil || !more {
				return err
			}
		}
	}
}

func normalizeWeekdays(in []time.Weekday, fallback time.Weekday) []time.Weekday {
	if len(in) == 0 {
		return []time.Weekday{fallback}
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

// collector accumulates candidates until the count or end date is reached.
type collector struct {
	out   []wallclock.Date
	count int
	until *wallclock.Date
}

// add appends d unless it is past the end date. It reports whether more
// candidates may follow.
func (c *collector) add(d wallclock.Date) (bool, error) {
	if c.until != nil && d.After(*c.until) {
		return false, nil
	}
	if len(c.out) >= MaxOccurrences {
		return false, ErrTooManyOccurrences
	}
	c.out = append(c.out, d)
	if c.count > 0 && len(c.out) >= c.count {
		return false, nil
	}
	return true, nil
}

// each feeds step k = 0, 1, 2, ... to next until the collector is full.
// Steps for which next reports false are skipped.
func (c *collector) each(next func(k int) (wallclock.Date, bool)) error {
	for k := 0; ; k++ {
		d, ok := next(k)
		if !ok {
			continue
		}
		more, err := c.add(d)
		if err != nil || !more {
			return err
		}
	}
}
