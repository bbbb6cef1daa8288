package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/shop-scheduler/internal/wallclock"
)

// DayCache caches the active bookings of one owner on one date for the
// availability view. Conflict checks never read from it.
//
// Get returns a version alongside a miss; Set must be given that version and
// drops the fill when the day was invalidated in between.
type DayCache interface {
	Get(ctx context.Context, ownerID string, date wallclock.Date) (bookings []*Booking, version int64, hit bool, err error)
	Set(ctx context.Context, ownerID string, date wallclock.Date, version int64, bookings []*Booking) error
	Invalidate(ctx context.Context, ownerID string, dates ...wallclock.Date) error
}

// NopCache disables caching.
type NopCache struct{}

func (NopCache) Get(context.Context, string, wallclock.Date) ([]*Booking, int64, bool, error) {
	return nil, 0, false, nil
}
func (NopCache) Set(context.Context, string, wallclock.Date, int64, []*Booking) error { return nil }
func (NopCache) Invalidate(context.Context, string, ...wallclock.Date) error          { return nil }

// generationTTL keeps a day's generation counter well beyond any data entry.
const generationTTL = 24 * time.Hour

// fillScript writes KEYS[2] only while the generation in KEYS[1] still
// equals ARGV[1].
var fillScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1]) or "0"
if current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// RedisDayCache stores each day as a JSON document with a TTL, guarded by a
// per-day generation counter that every invalidation bumps.
type RedisDayCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisDayCache(rdb *redis.Client, ttl time.Duration) *RedisDayCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisDayCache{rdb: rdb, ttl: ttl, prefix: "bookings:day"}
}

func (c *RedisDayCache) key(ownerID string, date wallclock.Date) string {
	return c.prefix + ":" + ownerID + ":" + date.String()
}

func (c *RedisDayCache) genKey(ownerID string, date wallclock.Date) string {
	return c.prefix + ":gen:" + ownerID + ":" + date.String()
}

func (c *RedisDayCache) Get(ctx context.Context, ownerID string, date wallclock.Date) ([]*Booking, int64, bool, error) {
	vals, err := c.rdb.MGet(ctx, c.genKey(ownerID, date), c.key(ownerID, date)).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("read day cache: %w", err)
	}

	var version int64
	if s, ok := vals[0].(string); ok {
		if version, err = strconv.ParseInt(s, 10, 64); err != nil {
			return nil, 0, false, fmt.Errorf("decode day cache generation: %w", err)
		}
	}

	raw, ok := vals[1].(string)
	if !ok {
		return nil, version, false, nil
	}

	var bookings []*Booking
	if err := json.Unmarshal([]byte(raw), &bookings); err != nil {
		return nil, version, false, fmt.Errorf("decode day cache: %w", err)
	}
	return bookings, version, true, nil
}

func (c *RedisDayCache) Set(ctx context.Context, ownerID string, date wallclock.Date, version int64, bookings []*Booking) error {
	if bookings == nil {
		bookings = []*Booking{}
	}
	raw, err := json.Marshal(bookings)
	if err != nil {
		return fmt.Errorf("encode day cache: %w", err)
	}

	keys := []string{c.genKey(ownerID, date), c.key(ownerID, date)}
	if err := fillScript.Run(ctx, c.rdb, keys, strconv.FormatInt(version, 10), raw, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("write day cache: %w", err)
	}
	return nil
}

func (c *RedisDayCache) Invalidate(ctx context.Context, ownerID string, dates ...wallclock.Date) error {
	if len(dates) == 0 {
		return nil
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, d := range dates {
			gen := c.genKey(ownerID, d)
			pipe.Incr(ctx, gen)
			pipe.Expire(ctx, gen, generationTTL)
			pipe.Del(ctx, c.key(ownerID, d))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate day cache: %w", err)
	}
	return nil
}
