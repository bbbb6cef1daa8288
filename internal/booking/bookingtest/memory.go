// Package bookingtest provides an in-memory booking.Repository for tests.
package bookingtest

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/shop-scheduler/internal/booking"
	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

// Store keeps bookings in a map and rejects overlapping active bookings of
// the same owner with booking.ErrTimeConflict, like the database constraint.
type Store struct {
	mu       sync.Mutex
	bookings map[string]*booking.Booking
	now      func() time.Time

	// BeforeWrite, when set, runs before every Create and Update with the
	// lock released. A non-nil error aborts the write.
	BeforeWrite func(ctx context.Context, b *booking.Booking) error
}

func NewStore() *Store {
	return &Store{
		bookings: make(map[string]*booking.Booking),
		now:      time.Now,
	}
}

// Seed inserts bookings as-is, bypassing the overlap check.
func (s *Store) Seed(bookings ...*booking.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bookings {
		c := clone(b)
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		s.bookings[c.ID] = c
	}
}

// Len returns the number of stored bookings.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func clone(b *booking.Booking) *booking.Booking {
	c := *b
	return &c
}

func (s *Store) overlaps(b *booking.Booking) bool {
	if b.Status == booking.StatusCancelled {
		return false
	}
	end := b.OccursAt.Add(wallclock.SlotLength)
	for _, other := range s.bookings {
		if other.ID == b.ID || other.OwnerID != b.OwnerID || other.Status == booking.StatusCancelled {
			continue
		}
		if b.OccursAt.Before(other.OccursAt.Add(wallclock.SlotLength)) && end.After(other.OccursAt) {
			return true
		}
	}
	return false
}

func (s *Store) Create(ctx context.Context, b *booking.Booking) error {
	if s.BeforeWrite != nil {
		if err := s.BeforeWrite(ctx, b); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.overlaps(b) {
		return booking.ErrTimeConflict
	}
	b.ID = uuid.NewString()
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	s.bookings[b.ID] = clone(b)
	return nil
}

func (s *Store) GetByID(_ context.Context, ownerID, id string) (*booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok || b.OwnerID != ownerID {
		return nil, booking.ErrNotFound
	}
	return clone(b), nil
}

func matches(b *booking.Booking, f booking.Filter) bool {
	switch {
	case b.OwnerID != f.OwnerID:
		return false
	case f.CustomerID != "" && b.CustomerID != f.CustomerID:
		return false
	case f.VehicleID != "" && b.VehicleID != f.VehicleID:
		return false
	case f.TechnicianID != "" && (b.TechnicianID == nil || *b.TechnicianID != f.TechnicianID):
		return false
	case f.SeriesID != "" && (b.SeriesID == nil || *b.SeriesID != f.SeriesID):
		return false
	case f.ServiceType != "" && string(b.ServiceType) != f.ServiceType:
		return false
	case len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status):
		return false
	case f.From != nil && b.OccursAt.Before(*f.From):
		return false
	case f.To != nil && !b.OccursAt.Before(*f.To):
		return false
	}
	return true
}

func (s *Store) List(_ context.Context, f booking.Filter) ([]*booking.Booking, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*booking.Booking
	for _, b := range s.bookings {
		if matches(b, f) {
			out = append(out, clone(b))
		}
	}

	slices.SortFunc(out, func(a, b *booking.Booking) int {
		var c int
		switch f.SortBy {
		case "status":
			c = cmp.Compare(a.Status, b.Status)
		case "created_at":
			c = a.CreatedAt.Compare(b.CreatedAt)
		default:
			c = a.OccursAt.Compare(b.OccursAt)
		}
		if f.SortOrder == "DESC" {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		return c
	})

	total := len(out)
	page, size := max(f.Page, 1), f.PageSize
	if size < 1 {
		size = 20
	}
	lo := min((page-1)*size, total)
	hi := min(lo+size, total)
	return out[lo:hi], total, nil
}

func (s *Store) ListActive(ctx context.Context, ownerID string, from, to time.Time) ([]*booking.Booking, error) {
	all, _, err := s.List(ctx, booking.Filter{
		OwnerID:  ownerID,
		From:     &from,
		To:       &to,
		Statuses: []booking.Status{booking.StatusPending, booking.StatusConfirmed, booking.StatusInProgress, booking.StatusCompleted},
		PageSize: 1 << 30,
	})
	return all, err
}

func (s *Store) Update(ctx context.Context, b *booking.Booking) error {
	if s.BeforeWrite != nil {
		if err := s.BeforeWrite(ctx, b); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.bookings[b.ID]
	if !ok || existing.OwnerID != b.OwnerID {
		return booking.ErrNotFound
	}
	if s.overlaps(b) {
		return booking.ErrTimeConflict
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = s.now()
	s.bookings[b.ID] = clone(b)
	return nil
}

func (s *Store) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok || b.OwnerID != ownerID {
		return booking.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}
