package crawl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sells-group/leadscout/internal/areas"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/pkg/places"
)

// mockPlaces implements places.Client for testing. Nil funcs return empty results.
type mockPlaces struct {
	mu sync.Mutex

	geocode func(query string) (*places.LatLng, error)
	nearby  func(req places.NearbyRequest) (*places.Page, error)
	text    func(req places.TextRequest) (*places.Page, error)
	details func(id string) (*places.Place, error)

	calls     []string
	pageSizes []int
}

func (m *mockPlaces) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockPlaces) callsWithPrefix(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockPlaces) Geocode(_ context.Context, query string) (*places.LatLng, error) {
	m.record("geocode:" + query)
	if m.geocode == nil {
		return &places.LatLng{Lat: 30.2672, Lng: -97.7431}, nil
	}
	return m.geocode(query)
}

func (m *mockPlaces) SearchNearby(_ context.Context, req places.NearbyRequest) (*places.Page, error) {
	m.record("nearby:" + req.PageToken)
	m.mu.Lock()
	m.pageSizes = append(m.pageSizes, req.PageSize)
	m.mu.Unlock()
	if m.nearby == nil {
		return &places.Page{}, nil
	}
	return m.nearby(req)
}

func (m *mockPlaces) SearchText(_ context.Context, req places.TextRequest) (*places.Page, error) {
	m.record("text:" + req.Query)
	m.mu.Lock()
	m.pageSizes = append(m.pageSizes, req.PageSize)
	m.mu.Unlock()
	if m.text == nil {
		return &places.Page{}, nil
	}
	return m.text(req)
}

func (m *mockPlaces) Details(_ context.Context, id string) (*places.Place, error) {
	m.record("details:" + id)
	if m.details == nil {
		return nil, places.ErrNotFound
	}
	return m.details(id)
}

// mockLister implements areas.Lister for testing.
type mockLister struct {
	areas []areas.Area
	err   error
}

func (m *mockLister) ListAreas(_ context.Context, _ string, limit int) ([]areas.Area, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.areas) {
		return m.areas[:limit], nil
	}
	return m.areas, nil
}

func texasAreas(cities ...string) *mockLister {
	l := &mockLister{}
	for _, c := range cities {
		l.areas = append(l.areas, areas.Area{City: c, State: "TX"})
	}
	return l
}

// recordingSleeper returns immediately and records requested delays.
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

// placesFor builds n distinct places in city. Addresses carry no state so
// the city + state fallback never ties them together.
func placesFor(city string, n int) []places.Place {
	slug := strings.ToLower(strings.ReplaceAll(city, " ", ""))
	out := make([]places.Place, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, places.Place{
			ID:       fmt.Sprintf("%s-%d", slug, i),
			Name:     fmt.Sprintf("%s Biz %d", city, i),
			Website:  fmt.Sprintf("https://%s%d.com", slug, i),
			Address:  fmt.Sprintf("%d Main St, %s", i, city),
			Location: &places.LatLng{Lat: 30.30 + float64(i)*0.01, Lng: -97.74},
		})
	}
	return out
}

// recordsFor builds n distinct Live records, as a crawl would cache them.
func recordsFor(n int) []model.BusinessRecord {
	out := make([]model.BusinessRecord, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.BusinessRecord{
			PlaceID: fmt.Sprintf("cached-%d", i),
			Name:    fmt.Sprintf("Cached Biz %d", i),
			Source:  model.SourceLive,
		})
	}
	return out
}

// paged serves pages in order; page i carries token "p<i+1>" unless last.
func paged(pages ...[]places.Place) func(token string) (*places.Page, error) {
	return func(token string) (*places.Page, error) {
		idx := 0
		if token != "" {
			if _, err := fmt.Sscanf(token, "p%d", &idx); err != nil {
				return nil, err
			}
		}
		if idx >= len(pages) {
			return &places.Page{}, nil
		}
		page := &places.Page{Places: pages[idx]}
		if idx+1 < len(pages) {
			page.NextPageToken = fmt.Sprintf("p%d", idx+1)
		}
		return page, nil
	}
}

// cityOf extracts the city from a "<type> in <City>, ST" query.
func cityOf(query string) string {
	_, after, _ := strings.Cut(query, " in ")
	city, _, _ := strings.Cut(after, ",")
	return city
}
