package searchcache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, now Clock) *Redis {
	t.Helper()
	addr := os.Getenv("LEADSCOUT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LEADSCOUT_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() }) //nolint:errcheck
	require.NoError(t, client.Ping(context.Background()).Err())
	return NewRedis(client, now)
}

func TestRedis_RoundTrip(t *testing.T) {
	c := newTestRedis(t, nil)
	ctx := context.Background()
	fp := "test-" + uuid.NewString()

	_, err := c.Put(ctx, fp, sampleRecords())
	require.NoError(t, err)

	got, ok, err := c.Get(ctx, fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleRecords(), got.Businesses)

	ttl, err := c.client.TTL(ctx, redisKeyPrefix+fp).Result()
	require.NoError(t, err)
	assert.InDelta(t, float64(TTL), float64(ttl), float64(time.Minute))
}

func TestRedis_ExpiredByClock(t *testing.T) {
	clk := newFakeClock()
	c := newTestRedis(t, clk.Now)
	ctx := context.Background()
	fp := "test-" + uuid.NewString()

	_, err := c.Put(ctx, fp, sampleRecords())
	require.NoError(t, err)

	clk.Advance(TTL + time.Minute)
	_, ok, err := c.Get(ctx, fp)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_Miss(t *testing.T) {
	c := newTestRedis(t, nil)
	_, ok, err := c.Get(context.Background(), "missing-"+uuid.NewString())
	require.NoError(t, err)
	assert.False(t, ok)
}
