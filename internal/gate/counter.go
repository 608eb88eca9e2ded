package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/impify/impify/internal/calendar"
)

const (
	dailyKeyPrefix = "gate:daily:"
	dailyKeyTTL    = 48 * time.Hour
)

// DailyCounter counts free uses of an action per user per calendar day.
type DailyCounter interface {
	// Allow records one use and returns true if the count was below limit.
	// At or above the limit nothing is recorded.
	Allow(ctx context.Context, userID uuid.UUID, counter string, limit int, now time.Time) (bool, error)
	Usage(ctx context.Context, userID uuid.UUID, counter string, now time.Time) (int, error)
}

// The check and the increment run as one script so concurrent requests
// cannot both take the last free slot.
var allowScript = redis.NewScript(`
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
if n >= tonumber(ARGV[1]) then
	return 0
end
n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// RedisCounter keeps one key per user, counter and day, expiring after two
// days.
type RedisCounter struct {
	rdb redis.Cmdable
	cal *calendar.Calendar
}

func NewRedisCounter(rdb redis.Cmdable, cal *calendar.Calendar) *RedisCounter {
	return &RedisCounter{rdb: rdb, cal: cal}
}

func (c *RedisCounter) key(userID uuid.UUID, counter string, now time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", dailyKeyPrefix, counter, userID, c.cal.DayKey(now))
}

func (c *RedisCounter) Allow(ctx context.Context, userID uuid.UUID, counter string, limit int, now time.Time) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	res, err := allowScript.Run(ctx, c.rdb,
		[]string{c.key(userID, counter, now)},
		limit, int(dailyKeyTTL/time.Second)).Int()
	if err != nil {
		return false, fmt.Errorf("daily counter script: %w", err)
	}
	return res == 1, nil
}

func (c *RedisCounter) Usage(ctx context.Context, userID uuid.UUID, counter string, now time.Time) (int, error) {
	n, err := c.rdb.Get(ctx, c.key(userID, counter, now)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading daily counter: %w", err)
	}
	return n, nil
}
