package places

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMemoTTL is how long geocode and detail lookups are remembered.
const DefaultMemoTTL = 24 * time.Hour

type memoEntry[T any] struct {
	val       T
	expiresAt time.Time
}

// CachingClient memoizes Geocode and Details lookups, which repeat across
// searches for the same areas and businesses. Searches pass through.
type CachingClient struct {
	inner Client
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	geocodes map[string]memoEntry[LatLng]
	details  map[string]memoEntry[Place]
}

// CachingOption configures a CachingClient.
type CachingOption func(*CachingClient)

// WithMemoClock overrides the clock used for expiry.
func WithMemoClock(now func() time.Time) CachingOption {
	return func(c *CachingClient) {
		c.now = now
	}
}

// NewCachingClient wraps inner. A non-positive ttl uses DefaultMemoTTL.
func NewCachingClient(inner Client, ttl time.Duration, opts ...CachingOption) *CachingClient {
	if ttl <= 0 {
		ttl = DefaultMemoTTL
	}
	c := &CachingClient{
		inner:    inner,
		ttl:      ttl,
		now:      time.Now,
		geocodes: make(map[string]memoEntry[LatLng]),
		details:  make(map[string]memoEntry[Place]),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func geocodeKey(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// Geocode returns a remembered coordinate or asks the inner client.
// Failures are not remembered.
func (c *CachingClient) Geocode(ctx context.Context, query string) (*LatLng, error) {
	key := geocodeKey(query)
	now := c.now()

	c.mu.Lock()
	if e, ok := c.geocodes[key]; ok && now.Before(e.expiresAt) {
		c.mu.Unlock()
		zap.L().Debug("places: geocode memo hit", zap.String("query", key))
		v := e.val
		return &v, nil
	}
	c.mu.Unlock()

	ll, err := c.inner.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.geocodes[key] = memoEntry[LatLng]{val: *ll, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
	return ll, nil
}

// Details returns remembered details or asks the inner client.
func (c *CachingClient) Details(ctx context.Context, placeID string) (*Place, error) {
	now := c.now()

	c.mu.Lock()
	if e, ok := c.details[placeID]; ok && now.Before(e.expiresAt) {
		c.mu.Unlock()
		v := e.val.clone()
		return &v, nil
	}
	c.mu.Unlock()

	p, err := c.inner.Details(ctx, placeID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.details[placeID] = memoEntry[Place]{val: p.clone(), expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
	return p, nil
}

// SearchNearby is not memoized; search results are cached a layer up.
func (c *CachingClient) SearchNearby(ctx context.Context, req NearbyRequest) (*Page, error) {
	return c.inner.SearchNearby(ctx, req)
}

// SearchText is not memoized.
func (c *CachingClient) SearchText(ctx context.Context, req TextRequest) (*Page, error) {
	return c.inner.SearchText(ctx, req)
}

// Purge drops expired memo entries and returns how many were removed.
func (c *CachingClient) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.geocodes {
		if !now.Before(e.expiresAt) {
			delete(c.geocodes, k)
			n++
		}
	}
	for k, e := range c.details {
		if !now.Before(e.expiresAt) {
			delete(c.details, k)
			n++
		}
	}
	return n
}
