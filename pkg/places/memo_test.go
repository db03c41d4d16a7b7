package places

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	geocodes int
	details  int
	searches int
	fail     bool
}

func (c *countingClient) Geocode(_ context.Context, _ string) (*LatLng, error) {
	c.geocodes++
	if c.fail {
		return nil, ErrNotFound
	}
	return &LatLng{Lat: 1, Lng: 2}, nil
}

func (c *countingClient) Details(_ context.Context, id string) (*Place, error) {
	c.details++
	return &Place{ID: id, Name: "Acme", Location: &LatLng{Lat: 3, Lng: 4}}, nil
}

func (c *countingClient) SearchNearby(_ context.Context, _ NearbyRequest) (*Page, error) {
	c.searches++
	return &Page{}, nil
}

func (c *countingClient) SearchText(_ context.Context, _ TextRequest) (*Page, error) {
	c.searches++
	return &Page{}, nil
}

func TestCachingClient_Geocode(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inner := &countingClient{}
	c := NewCachingClient(inner, time.Hour, WithMemoClock(func() time.Time { return now }))

	_, err := c.Geocode(context.Background(), "Miami, FL")
	require.NoError(t, err)
	ll, err := c.Geocode(context.Background(), "  miami,   fl ")
	require.NoError(t, err)
	assert.Equal(t, LatLng{Lat: 1, Lng: 2}, *ll)
	assert.Equal(t, 1, inner.geocodes)

	now = now.Add(time.Hour)
	_, err = c.Geocode(context.Background(), "Miami, FL")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.geocodes)
}

func TestCachingClient_FailuresNotRemembered(t *testing.T) {
	inner := &countingClient{fail: true}
	c := NewCachingClient(inner, 0)

	_, err := c.Geocode(context.Background(), "x")
	assert.True(t, eris.Is(err, ErrNotFound))
	_, err = c.Geocode(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.geocodes)
}

func TestCachingClient_DetailsReturnsCopies(t *testing.T) {
	inner := &countingClient{}
	c := NewCachingClient(inner, time.Hour)

	p, err := c.Details(context.Background(), "p1")
	require.NoError(t, err)
	p.Name = "mutated"
	p.Location.Lat = 99

	again, err := c.Details(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.Name)
	assert.InDelta(t, 3, again.Location.Lat, 1e-9)
	assert.Equal(t, 1, inner.details)
}

func TestCachingClient_SearchesPassThrough(t *testing.T) {
	inner := &countingClient{}
	c := NewCachingClient(inner, time.Hour)

	_, _ = c.SearchText(context.Background(), TextRequest{Query: "a"})
	_, _ = c.SearchText(context.Background(), TextRequest{Query: "a"})
	_, _ = c.SearchNearby(context.Background(), NearbyRequest{Keyword: "a"})
	assert.Equal(t, 3, inner.searches)
}

func TestCachingClient_Purge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCachingClient(&countingClient{}, time.Minute, WithMemoClock(func() time.Time { return now }))

	_, _ = c.Geocode(context.Background(), "a")
	_, _ = c.Details(context.Background(), "p1")
	assert.Equal(t, 0, c.Purge())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, c.Purge())
}
