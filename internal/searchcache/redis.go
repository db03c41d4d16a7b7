package searchcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
)

const redisKeyPrefix = "leadscout:search:"

var _ Cache = (*Redis)(nil)

// Redis is a Cache shared by every process pointing at the same server.
// Expiry is enforced both by the key TTL and by ExpiresAt on read.
type Redis struct {
	client redis.UniversalClient
	now    Clock
}

// NewRedis wraps an existing go-redis client.
func NewRedis(client redis.UniversalClient, now Clock) *Redis {
	if now == nil {
		now = time.Now
	}
	return &Redis{client: client, now: now}
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, fp string) (*Entry, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+fp).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "searchcache: redis get")
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, eris.Wrap(err, "searchcache: decode entry")
	}
	if e.Expired(r.now()) {
		return nil, false, nil
	}
	return &e, true, nil
}

// Put implements Cache.
func (r *Redis) Put(ctx context.Context, fp string, businesses []model.BusinessRecord) (*Entry, error) {
	e := NewEntry(fp, businesses, r.now())
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, eris.Wrap(err, "searchcache: encode entry")
	}
	if err := r.client.Set(ctx, redisKeyPrefix+fp, raw, TTL).Err(); err != nil {
		return nil, eris.Wrap(err, "searchcache: redis set")
	}
	return e.clone(), nil
}
