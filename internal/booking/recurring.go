package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nekogravitycat/shop-scheduler/internal/recurrence"
	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

// SkippedOccurrence is a series date that was not booked because its slot was taken.
type SkippedOccurrence struct {
	Date        wallclock.Date
	Conflicting []*Booking
}

// RecurringResult reports how many occurrences the pattern produced and
// which of them were booked.
type RecurringResult struct {
	SeriesID  string
	Requested int
	Created   []*Booking
	Skipped   []SkippedOccurrence
}

// CreateRecurring books req at every date of the pattern. Occurrences whose
// slot is taken are skipped. Any other failure stops the series and is
// returned together with what was created so far.
func (s *service) CreateRecurring(ctx context.Context, req CreateRequest, pattern recurrence.Pattern) (*RecurringResult, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	dates, err := recurrence.Expand(req.Date, pattern)
	if err != nil {
		return nil, err
	}

	seriesID := uuid.NewString()
	result := &RecurringResult{
		SeriesID:  seriesID,
		Requested: len(dates),
		Created:   make([]*Booking, 0, len(dates)),
		Skipped:   []SkippedOccurrence{},
	}

	for _, date := range dates {
		occurrence := req
		occurrence.Date = date
		occurrence.seriesID = &seriesID

		b, err := s.create(ctx, occurrence)
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			s.logger.Debug("recurring occurrence skipped",
				zap.String("series_id", seriesID),
				zap.Stringer("date", date),
				zap.Int("conflicts", len(conflict.Conflicting)),
			)
			result.Skipped = append(result.Skipped, SkippedOccurrence{Date: date, Conflicting: conflict.Conflicting})
			continue
		}
		if err != nil {
			s.logger.Error("recurring booking aborted",
				zap.String("series_id", seriesID),
				zap.Stringer("date", date),
				zap.Int("created", len(result.Created)),
				zap.Error(err),
			)
			return result, err
		}
		result.Created = append(result.Created, b)
	}

	s.logger.Info("recurring booking created",
		zap.String("series_id", seriesID),
		zap.String("frequency", string(pattern.Frequency)),
		zap.Int("requested", result.Requested),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}
