// Package areas lists the sub-areas (cities) a state-wide crawl visits.
package areas

import (
	"context"
	_ "embed"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadscout/internal/normalize"
)

//go:embed catalog.yaml
var catalogYAML []byte

// ErrUnknownRegion is returned for a region the catalog has no areas for.
var ErrUnknownRegion = eris.New("areas: unknown region")

// Area is one searchable sub-area of a region.
type Area struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// Label is the human-readable name, e.g. "Austin, TX".
func (a Area) Label() string {
	return a.City + ", " + a.State
}

// Lister produces the ordered areas for a region.
type Lister interface {
	ListAreas(ctx context.Context, region string, limit int) ([]Area, error)
}

// Catalog is a static Lister backed by a YAML document.
type Catalog struct {
	states map[string][]string
}

type catalogFile struct {
	States map[string][]string `yaml:"states"`
}

// Parse builds a Catalog from YAML of the form `states: {TX: [Houston, ...]}`.
// Keys may be state codes or full state names.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "areas: parse catalog")
	}

	c := &Catalog{states: make(map[string][]string, len(f.States))}
	for key, cities := range f.States {
		code := normalize.StateCode(key)
		if code == "" {
			return nil, eris.Errorf("areas: unknown state %q in catalog", key)
		}
		for _, city := range cities {
			if city = strings.TrimSpace(city); city != "" {
				c.states[code] = append(c.states[code], city)
			}
		}
	}
	return c, nil
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(catalogYAML)
}

// ListAreas returns at most limit areas for region in catalog order. Region
// may be a state code or name in any case.
func (c *Catalog) ListAreas(ctx context.Context, region string, limit int) ([]Area, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "areas: list")
	}
	code := normalize.StateCode(region)
	cities, ok := c.states[code]
	if code == "" || !ok || len(cities) == 0 {
		return nil, eris.Wrapf(ErrUnknownRegion, "areas: region %q", region)
	}

	if limit > 0 && limit < len(cities) {
		cities = cities[:limit]
	}
	out := make([]Area, 0, len(cities))
	upper := strings.ToUpper(code)
	for _, city := range cities {
		out = append(out, Area{City: city, State: upper})
	}
	return out, nil
}

// Regions returns the upper-case state codes present in the catalog.
func (c *Catalog) Regions() []string {
	out := make([]string, 0, len(c.states))
	for code := range c.states {
		out = append(out, strings.ToUpper(code))
	}
	sort.Strings(out)
	return out
}
