// Package precheck serves conflict checks for interactive callers that fire a
// request on every edit. Requests sharing a key are debounced and only the
// most recent one is answered.
package precheck

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/nekogravitycat/shop-scheduler/internal/booking"
	"github.com/nekogravitycat/shop-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

const DefaultDebounce = 250 * time.Millisecond

// ErrSuperseded is returned to a caller whose check was replaced by a newer
// one with the same key.
var ErrSuperseded = apperror.New(http.StatusTooManyRequests, "conflict check superseded by a newer request")

type ConflictChecker interface {
	CheckConflict(ctx context.Context, ownerID string, date wallclock.Date, start wallclock.TimeOfDay, excludeBookingID string) (*booking.ConflictResult, error)
}

type Query struct {
	OwnerID          string
	Date             wallclock.Date
	StartTime        wallclock.TimeOfDay
	ExcludeBookingID string
}

type pending struct {
	cancel context.CancelCauseFunc
}

type Checker struct {
	checker  ConflictChecker
	debounce time.Duration

	mu     sync.Mutex
	latest map[string]*pending
}

// New returns a Checker. A debounce of zero checks immediately but still
// discards superseded results.
func New(checker ConflictChecker, debounce time.Duration) *Checker {
	if debounce < 0 {
		debounce = 0
	}
	return &Checker{
		checker:  checker,
		debounce: debounce,
		latest:   make(map[string]*pending),
	}
}

func (c *Checker) register(ctx context.Context, key string) (context.Context, *pending) {
	ctx, cancel := context.WithCancelCause(ctx)
	p := &pending{cancel: cancel}

	c.mu.Lock()
	if prev, ok := c.latest[key]; ok {
		prev.cancel(ErrSuperseded)
	}
	c.latest[key] = p
	c.mu.Unlock()
	return ctx, p
}

func (c *Checker) release(key string, p *pending) {
	c.mu.Lock()
	if c.latest[key] == p {
		delete(c.latest, key)
	}
	c.mu.Unlock()
	p.cancel(nil)
}

// Check waits out the debounce window and runs the conflict check, unless a
// newer Check with the same key arrives first.
func (c *Checker) Check(ctx context.Context, key string, q Query) (*booking.ConflictResult, error) {
	ctx, p := c.register(ctx, key)
	defer c.release(key, p)

	if c.debounce > 0 {
		timer := time.NewTimer(c.debounce)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, context.Cause(ctx)
		case <-timer.C:
		}
	}

	result, err := c.checker.CheckConflict(ctx, q.OwnerID, q.Date, q.StartTime, q.ExcludeBookingID)
	if cause := context.Cause(ctx); errors.Is(cause, ErrSuperseded) {
		return nil, ErrSuperseded
	}
	return result, err
}
