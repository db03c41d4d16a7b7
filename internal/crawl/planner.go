// Package crawl plans and runs lead searches against the places provider:
// one geocoded area or many areas of a region, cached by request fingerprint
// and flagged for duplicates before they are returned.
package crawl

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/areas"
	"github.com/sells-group/leadscout/internal/identity"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/normalize"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/searchcache"
	"github.com/sells-group/leadscout/pkg/places"
)

// Planner runs searches. It holds no per-search state and is safe for
// concurrent use.
type Planner struct {
	places  places.Client
	areas   areas.Lister
	cache   searchcache.Cache
	cfg     Config
	sleep   Sleeper
	onPhase func(Phase)
}

// Option configures a Planner.
type Option func(*Planner)

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(p *Planner) {
		p.cfg = cfg.withDefaults()
	}
}

// WithSleeper replaces the timer used for page-token and pacing delays.
func WithSleeper(s Sleeper) Option {
	return func(p *Planner) {
		p.sleep = s
	}
}

// WithPhaseHook is called on every phase transition.
func WithPhaseHook(fn func(Phase)) Option {
	return func(p *Planner) {
		p.onPhase = fn
	}
}

// NewPlanner creates a Planner.
func NewPlanner(pc places.Client, lister areas.Lister, cache searchcache.Cache, opts ...Option) *Planner {
	p := &Planner{
		places: pc,
		areas:  lister,
		cache:  cache,
		cfg:    DefaultConfig(),
		sleep:  sleepContext,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type crawlOutcome struct {
	records  []model.BusinessRecord
	planned  int
	searched int
	failed   []model.AreaFailure
}

// Search runs req and flags duplicates against the batch itself and saved.
// A miss crawls to the request's result bucket and caches the whole set; the
// caller gets at most MaxResults records, on hits and misses alike. The cached
// set carries only batch-internal flags; flags against saved are applied to a
// copy.
func (p *Planner) Search(ctx context.Context, req model.SearchRequest, saved []model.BusinessRecord) (*model.SearchResult, error) {
	p.phase(PhaseInit)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fp := searchcache.Fingerprint(req)
	log := zap.L().With(
		zap.String("fingerprint", fp[:12]),
		zap.String("business_type", req.BusinessType),
		zap.Bool("state_wide", req.StateWide()),
	)

	p.phase(PhaseCacheCheck)
	entry, ok, err := p.cache.Get(ctx, fp)
	if err != nil {
		log.Warn("crawl: cache lookup failed, crawling", zap.Error(err))
	}
	if ok {
		businesses := firstN(entry.Businesses, req.MaxResults)
		dups := identity.MarkDuplicates(businesses, saved)
		log.Info("crawl: cache hit",
			zap.Int("businesses", len(businesses)),
			zap.Int("cached", len(entry.Businesses)),
			zap.Int("duplicates", dups),
			zap.Time("expires_at", entry.ExpiresAt),
		)
		p.phase(PhaseDone)
		return &model.SearchResult{
			Businesses:  businesses,
			Total:       len(businesses),
			Fingerprint: fp,
			FromCache:   true,
		}, nil
	}

	target := searchcache.ResultBucket(req.MaxResults)
	var out *crawlOutcome
	if req.StateWide() {
		out, err = p.crawlRegion(ctx, req, target, log)
	} else {
		out, err = p.crawlLocation(ctx, req, target, log)
	}
	if err != nil {
		log.Warn("crawl: search failed", zap.Error(err))
		return nil, err
	}

	p.phase(PhaseFinalizing)
	identity.MarkDuplicates(out.records, nil)
	if _, err := p.cache.Put(ctx, fp, out.records); err != nil {
		log.Warn("crawl: cache write failed", zap.Error(err))
	}

	businesses := firstN(out.records, req.MaxResults)
	dups := identity.MarkDuplicates(businesses, saved)

	res := &model.SearchResult{
		Businesses:  businesses,
		Total:       len(businesses),
		Fingerprint: fp,
	}
	if req.StateWide() {
		res.AreasPlanned = out.planned
		res.AreasSearched = out.searched
		res.Failed = out.failed
	}

	log.Info("crawl: search complete",
		zap.Int("businesses", res.Total),
		zap.Int("cached", len(out.records)),
		zap.Int("duplicates", dups),
		zap.Int("areas_searched", out.searched),
		zap.Int("areas_planned", out.planned),
	)
	p.phase(PhaseDone)
	return res, nil
}

// crawlLocation geocodes the location once and pages through a keyword
// search around it, collecting up to target records. Any provider failure is
// fatal.
func (p *Planner) crawlLocation(ctx context.Context, req model.SearchRequest, target int, log *zap.Logger) (*crawlOutcome, error) {
	p.phase(PhaseGeocoding)
	center, err := p.places.Geocode(ctx, req.Location)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		if eris.Is(err, places.ErrNotFound) {
			return nil, eris.Wrapf(model.ErrGeocodeFailed, "crawl: %q", req.Location)
		}
		return nil, providerUnavailable(req.Location, err)
	}
	log.Debug("crawl: geocoded", zap.String("location", req.Location),
		zap.Float64("lat", center.Lat), zap.Float64("lng", center.Lng))

	radius := req.RadiusMeters
	if radius == 0 {
		radius = p.cfg.DefaultRadiusMeters
	}
	area := Area{
		Label:        req.Location,
		Query:        req.BusinessType,
		Center:       center,
		RadiusMeters: radius,
	}

	p.phase(PhaseCrawling)
	recs, err := p.crawlArea(ctx, area, target)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		log.Warn("crawl: area failed", zap.String("area", area.Label),
			zap.Bool("transient", resilience.IsTransient(err)), zap.Error(err))
		return nil, providerUnavailable(area.Label, err)
	}
	return &crawlOutcome{records: recs, planned: 1, searched: 1}, nil
}

// crawlRegion walks the region's areas in order under a fair-share budget of
// target records. A failure of the first area is fatal; later failures are
// skipped.
func (p *Planner) crawlRegion(ctx context.Context, req model.SearchRequest, target int, log *zap.Logger) (*crawlOutcome, error) {
	p.phase(PhaseGeocoding)
	listed, err := p.areas.ListAreas(ctx, req.Region, req.MaxAreas)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		if eris.Is(err, areas.ErrUnknownRegion) {
			return nil, eris.Wrapf(model.ErrInvalidRequest, "crawl: unknown region %q", req.Region)
		}
		return nil, eris.Wrap(err, "crawl: list areas")
	}
	if len(listed) > req.MaxAreas {
		listed = listed[:req.MaxAreas]
	}

	plan := make(AreaPlan, 0, len(listed))
	for _, a := range listed {
		plan = append(plan, Area{
			Label: a.Label(),
			Query: fmt.Sprintf("%s in %s", strings.TrimSpace(req.BusinessType), a.Label()),
		})
	}
	log.Info("crawl: area plan built", zap.String("region", req.Region), zap.Int("areas", len(plan)))

	p.phase(PhaseCrawling)
	out := &crawlOutcome{planned: len(plan)}
	var skipped error
	window := p.cfg.AreaConcurrency

	for start := 0; start < len(plan); start += window {
		if len(out.records) >= target {
			break
		}
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		if paceDue(start, window, p.cfg.PaceEvery) {
			log.Debug("crawl: pacing", zap.Int("areas_done", start), zap.Duration("delay", p.cfg.PaceDelay))
			if err := p.sleep(ctx, p.cfg.PaceDelay); err != nil {
				return nil, cancelled(ctx)
			}
		}

		end := min(start+window, len(plan))
		share := fairShare(target-len(out.records), len(plan)-start)
		results := p.runWindow(ctx, plan[start:end], share)
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}

		for j, r := range results {
			i := start + j
			area := plan[i]
			if r.err != nil {
				log.Warn("crawl: area failed",
					zap.String("area", area.Label),
					zap.Int("position", i+1),
					zap.Bool("transient", resilience.IsTransient(r.err)),
					zap.Error(r.err),
				)
				if i == 0 {
					return nil, providerUnavailable(area.Label, r.err)
				}
				skipped = multierr.Append(skipped, eris.Wrapf(r.err, "area %s", area.Label))
				out.failed = append(out.failed, model.AreaFailure{Area: area.Label, Reason: r.err.Error()})
				continue
			}

			out.searched++
			recs := r.records
			if room := target - len(out.records); len(recs) > room {
				recs = recs[:room]
			}
			out.records = append(out.records, recs...)
		}

		if (start/window+1)%10 == 0 {
			log.Info("crawl: progress", zap.Int("areas_done", end), zap.Int("areas_planned", len(plan)),
				zap.Int("businesses", len(out.records)))
		}
	}

	if skipped != nil {
		log.Warn("crawl: skipped areas",
			zap.Int("count", len(multierr.Errors(skipped))),
			zap.Error(skipped),
		)
	}
	return out, nil
}

type areaResult struct {
	records []model.BusinessRecord
	err     error
}

// runWindow crawls a window of areas, concurrently when it holds more than
// one, and returns results in plan order.
func (p *Planner) runWindow(ctx context.Context, window AreaPlan, share int) []areaResult {
	results := make([]areaResult, len(window))
	if len(window) == 1 {
		results[0].records, results[0].err = p.crawlArea(ctx, window[0], share)
		return results
	}

	var g errgroup.Group
	g.SetLimit(len(window))
	for i, area := range window {
		i, area := i, area
		g.Go(func() error {
			results[i].records, results[i].err = p.crawlArea(ctx, area, share)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// crawlArea pages through one area until limit records are collected, the
// provider runs out of pages, or MaxPagesPerArea is reached.
func (p *Planner) crawlArea(ctx context.Context, area Area, limit int) ([]model.BusinessRecord, error) {
	var (
		out       []model.BusinessRecord
		pageToken string
	)
	pageSize := min(limit, places.MaxPageSize)

	for page := 0; page < p.cfg.MaxPagesPerArea && len(out) < limit; page++ {
		if page > 0 {
			if err := p.sleep(ctx, p.cfg.PageTokenDelay); err != nil {
				return out, eris.Wrap(err, "crawl: page token delay")
			}
		}
		if err := ctx.Err(); err != nil {
			return out, eris.Wrap(err, "crawl: before page")
		}

		pg, err := p.fetchPage(ctx, area, pageSize, pageToken)
		if err != nil {
			return out, err
		}

		for _, pl := range pg.Places {
			if len(out) >= limit {
				break
			}
			if rec, ok := p.toRecord(ctx, pl, area); ok {
				out = append(out, rec)
			}
		}

		if pg.NextPageToken == "" {
			break
		}
		pageToken = pg.NextPageToken
	}
	return out, nil
}

func (p *Planner) fetchPage(ctx context.Context, area Area, pageSize int, token string) (*places.Page, error) {
	if area.Center != nil {
		return p.places.SearchNearby(ctx, places.NearbyRequest{
			Keyword:      area.Query,
			Center:       *area.Center,
			RadiusMeters: area.RadiusMeters,
			PageSize:     pageSize,
			PageToken:    token,
		})
	}
	return p.places.SearchText(ctx, places.TextRequest{
		Query:     area.Query,
		PageSize:  pageSize,
		PageToken: token,
	})
}

// toRecord turns a provider place into a Live record, fetching details when
// the search result lacks a website or an address. It reports false for
// places without a name.
func (p *Planner) toRecord(ctx context.Context, pl places.Place, area Area) (model.BusinessRecord, bool) {
	if (pl.Website == "" || pl.Address == "") && pl.ID != "" && ctx.Err() == nil {
		d, err := p.places.Details(ctx, pl.ID)
		if err != nil {
			zap.L().Debug("crawl: details lookup failed", zap.String("place_id", pl.ID), zap.Error(err))
		} else {
			if pl.Website == "" {
				pl.Website = d.Website
			}
			if pl.Address == "" {
				pl.Address = d.Address
			}
			if pl.Name == "" {
				pl.Name = d.Name
			}
			if pl.Location == nil {
				pl.Location = d.Location
			}
		}
	}

	name := strings.TrimSpace(pl.Name)
	if name == "" {
		return model.BusinessRecord{}, false
	}

	rec := model.BusinessRecord{
		PlaceID:    pl.ID,
		Name:       name,
		Website:    strings.TrimSpace(pl.Website),
		Location:   strings.TrimSpace(pl.Address),
		CareerLink: normalize.CareerLink(pl.Website),
		Source:     model.SourceLive,
	}
	switch {
	case area.Center == nil:
		rec.DistanceLabel = area.Label
	case pl.Location != nil:
		rec.DistanceLabel = fmt.Sprintf("%.1f mi", places.DistanceMiles(*area.Center, *pl.Location))
	}
	return rec, true
}

func (p *Planner) phase(ph Phase) {
	if p.onPhase != nil {
		p.onPhase(ph)
	}
}

// firstN returns a copy of at most n leading records, never nil.
func firstN(recs []model.BusinessRecord, n int) []model.BusinessRecord {
	if len(recs) > n {
		recs = recs[:n]
	}
	out := model.CloneRecords(recs)
	if out == nil {
		out = []model.BusinessRecord{}
	}
	return out
}

func providerUnavailable(area string, err error) error {
	return eris.Wrapf(model.ErrProviderUnavailable, "crawl: %s: %v", area, err)
}

func cancelled(ctx context.Context) error {
	return eris.Wrap(ctx.Err(), "crawl: search cancelled")
}
