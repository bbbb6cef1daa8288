// Package recurrence expands a recurrence definition into the ordered,
// bounded list of dates a series of bookings should occur on.
package recurrence

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/shop-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

// MaxOccurrences caps the size of a single expansion.
const MaxOccurrences = 366

var (
	ErrInvalidPattern     = apperror.New(http.StatusBadRequest, "invalid recurrence pattern")
	ErrUnbounded          = apperror.New(http.StatusBadRequest, "recurrence needs either an occurrence count or an end date")
	ErrBothBounds         = apperror.New(http.StatusBadRequest, "recurrence cannot have both an occurrence count and an end date")
	ErrTooManyOccurrences = apperror.New(http.StatusBadRequest, "recurrence produces too many occurrences")
)

type Frequency string

const (
	FrequencyNone     Frequency = "none"
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyYearly   Frequency = "yearly"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyNone, FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Pattern describes how a booking repeats. Exactly one of Count and Until
// bounds every frequency except FrequencyNone.
type Pattern struct {
	Frequency Frequency
	// Interval is the step between periods; 0 means 1.
	Interval int
	Count    int
	Until    *wallclock.Date
	// Weekdays applies to weekly and biweekly patterns. Empty means the
	// weekday of the start date.
	Weekdays []time.Weekday
	// DayOfMonth applies to monthly patterns. 0 means the day of the start date.
	DayOfMonth int
}

// WithCount bounds the pattern by occurrence count and clears any end date.
func (p Pattern) WithCount(n int) Pattern {
	p.Count = n
	p.Until = nil
	return p
}

// WithUntil bounds the pattern by end date and clears any occurrence count.
func (p Pattern) WithUntil(d wallclock.Date) Pattern {
	p.Until = &d
	p.Count = 0
	return p
}

func (p Pattern) interval() int {
	if p.Interval == 0 {
		return 1
	}
	return p.Interval
}

// Validate checks the pattern in isolation from any start date.
func (p Pattern) Validate() error {
	if p.Frequency == "" || p.Frequency == FrequencyNone {
		return nil
	}
	if !p.Frequency.IsValid() || p.Interval < 0 {
		return ErrInvalidPattern
	}
	switch {
	case p.Count > 0 && p.Until != nil:
		return ErrBothBounds
	case p.Count <= 0 && p.Until == nil:
		return ErrUnbounded
	case p.Count > MaxOccurrences:
		return ErrTooManyOccurrences
	}
	for _, wd := range p.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return ErrInvalidPattern.WithMessage("weekdays must be between 0 (Sunday) and 6 (Saturday)")
		}
	}
	if p.DayOfMonth < 0 || p.DayOfMonth > 31 {
		return ErrInvalidPattern.WithMessage("day of month must be between 1 and 31")
	}
	return nil
}
