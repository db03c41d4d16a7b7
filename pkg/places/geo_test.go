package places

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMiles(t *testing.T) {
	austin := LatLng{Lat: 30.2672, Lng: -97.7431}
	dallas := LatLng{Lat: 32.7767, Lng: -96.7970}

	assert.InDelta(t, 0, DistanceMiles(austin, austin), 1e-9)
	assert.InDelta(t, 182, DistanceMiles(austin, dallas), 3)
	assert.InDelta(t, DistanceMiles(austin, dallas), DistanceMiles(dallas, austin), 1e-9)
}
