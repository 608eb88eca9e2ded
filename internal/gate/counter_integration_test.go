//go:build integration

package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impify/impify/internal/calendar"
	"github.com/impify/impify/internal/testutil"
)

func TestRedis_CounterUnderContention(t *testing.T) {
	rdb := testutil.NewRedis(t)
	c := NewRedisCounter(rdb, calendar.New(ist))
	ctx := context.Background()
	userID := uuid.New()

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := c.Allow(ctx, userID, "chat", 10, now)
			assert.NoError(t, err)
			if ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, admitted.Load())

	ttl, err := rdb.TTL(ctx, c.key(userID, "chat", now)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 47*time.Hour)
}
