package crawl

import (
	"context"
	"time"

	"github.com/sells-group/leadscout/pkg/places"
)

// Phase is a step of a single search.
type Phase string

const (
	PhaseInit       Phase = "init"
	PhaseCacheCheck Phase = "cache_check"
	PhaseGeocoding  Phase = "geocoding"
	PhaseCrawling   Phase = "crawling"
	PhaseFinalizing Phase = "finalizing"
	PhaseDone       Phase = "done"
)

// Area is one entry of an AreaPlan. Center is set for single-area searches,
// which run a keyword search around it; state-wide areas run Query as text.
type Area struct {
	Label        string
	Query        string
	Center       *places.LatLng
	RadiusMeters int
}

// AreaPlan is the ordered list of areas a search visits.
type AreaPlan []Area

// Config tunes pagination, pacing and concurrency.
type Config struct {
	// PageTokenDelay is waited before a next-page token is used.
	PageTokenDelay time.Duration
	// MaxPagesPerArea bounds pagination within one area.
	MaxPagesPerArea int
	// PaceEvery inserts PaceDelay after every PaceEvery areas. Zero disables pacing.
	PaceEvery int
	PaceDelay time.Duration
	// AreaConcurrency is how many state-wide areas are crawled at once.
	AreaConcurrency int
	// DefaultRadiusMeters applies when a single-area request has no radius.
	DefaultRadiusMeters int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PageTokenDelay:      2 * time.Second,
		MaxPagesPerArea:     3,
		PaceEvery:           5,
		PaceDelay:           time.Second,
		AreaConcurrency:     1,
		DefaultRadiusMeters: 5000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PageTokenDelay < 0 {
		c.PageTokenDelay = 0
	}
	if c.MaxPagesPerArea <= 0 {
		c.MaxPagesPerArea = d.MaxPagesPerArea
	}
	if c.PaceEvery < 0 {
		c.PaceEvery = 0
	}
	if c.AreaConcurrency <= 0 {
		c.AreaConcurrency = 1
	}
	if c.DefaultRadiusMeters <= 0 {
		c.DefaultRadiusMeters = d.DefaultRadiusMeters
	}
	return c
}

// fairShare is the per-area cap: the remaining budget spread evenly over the
// remaining areas, rounded up. Unused share rolls forward because it is
// recomputed before every area.
func fairShare(remainingBudget, remainingAreas int) int {
	if remainingBudget <= 0 {
		return 0
	}
	if remainingAreas <= 1 {
		return remainingBudget
	}
	return (remainingBudget + remainingAreas - 1) / remainingAreas
}

// paceDue reports whether a window starting at start crosses a multiple of
// every. With a window of one this is every Nth area.
func paceDue(start, window, every int) bool {
	if every <= 0 || start == 0 {
		return false
	}
	return start/every > (start-window)/every
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
