package areas

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Contains(t, c.Regions(), "TX")
	assert.Contains(t, c.Regions(), "FL")
}

func TestListAreas_RegionForms(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	for _, region := range []string{"TX", "tx", "texas", "  Texas  "} {
		t.Run(region, func(t *testing.T) {
			got, err := c.ListAreas(context.Background(), region, 3)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, Area{City: "Houston", State: "TX"}, got[0])
			assert.Equal(t, "Dallas, TX", got[2].Label())
		})
	}
}

func TestListAreas_LimitLargerThanCatalog(t *testing.T) {
	c, err := Parse([]byte("states:\n  VT: [Burlington, Essex]\n"))
	require.NoError(t, err)

	got, err := c.ListAreas(context.Background(), "Vermont", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListAreas_UnknownRegion(t *testing.T) {
	c, err := Parse([]byte("states:\n  VT: [Burlington]\n"))
	require.NoError(t, err)

	_, err = c.ListAreas(context.Background(), "Atlantis", 5)
	assert.True(t, eris.Is(err, ErrUnknownRegion))

	_, err = c.ListAreas(context.Background(), "TX", 5)
	assert.True(t, eris.Is(err, ErrUnknownRegion))
}

func TestListAreas_Cancelled(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.ListAreas(ctx, "TX", 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("states: [not, a, map]"))
	assert.Error(t, err)

	_, err = Parse([]byte("states:\n  Narnia: [Cair Paravel]\n"))
	assert.Error(t, err)
}
