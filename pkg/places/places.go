// Package places is a thin client for the Google Places API (New) and the
// Geocoding API, shaped to what lead discovery needs: geocode a location,
// page through keyword searches and fetch details for sparse results.
package places

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/resilience"
)

// MaxPageSize is the largest page the Places API returns.
const MaxPageSize = 20

// ErrNotFound is returned when a geocode or detail lookup has no result.
var ErrNotFound = eris.New("places: not found")

// Client performs places provider operations.
type Client interface {
	Geocode(ctx context.Context, query string) (*LatLng, error)
	SearchNearby(ctx context.Context, req NearbyRequest) (*Page, error)
	SearchText(ctx context.Context, req TextRequest) (*Page, error)
	Details(ctx context.Context, placeID string) (*Place, error)
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is one business as reported by the provider. Website and Address are
// often empty in search results and filled in by Details.
type Place struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Website  string  `json:"website,omitempty"`
	Address  string  `json:"address,omitempty"`
	Location *LatLng `json:"location,omitempty"`
}

func (p Place) clone() Place {
	if p.Location != nil {
		ll := *p.Location
		p.Location = &ll
	}
	return p
}

// Page is one page of search results.
type Page struct {
	Places        []Place
	NextPageToken string
}

// NearbyRequest searches for a keyword around a point.
type NearbyRequest struct {
	Keyword      string
	Center       LatLng
	RadiusMeters int
	PageSize     int
	PageToken    string
}

// TextRequest is a free-text search such as "plumbers in Austin, TX".
type TextRequest struct {
	Query     string
	PageSize  int
	PageToken string
}

// StatusError is a non-success response from the provider.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("places: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("places: unexpected status %d: %s", e.Code, e.Message)
}

// Transient reports whether the status indicates a temporary provider condition.
func (e *StatusError) Transient() bool {
	return resilience.IsTransientHTTPStatus(e.Code)
}

func clampPageSize(n int) int {
	if n <= 0 || n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
