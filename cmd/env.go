package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/areas"
	"github.com/sells-group/leadscout/internal/crawl"
	"github.com/sells-group/leadscout/internal/leads"
	"github.com/sells-group/leadscout/internal/resilience"
	"github.com/sells-group/leadscout/internal/searchcache"
	"github.com/sells-group/leadscout/internal/store"
	"github.com/sells-group/leadscout/pkg/places"
)

// cachePurger is implemented by caches that hold expired entries until purged.
type cachePurger interface {
	Purge(ctx context.Context) (int, error)
}

// leadsEnv holds the initialized store, cache, provider client and service
// needed by the search and serve commands.
type leadsEnv struct {
	Store   store.Store
	Cache   searchcache.Cache
	Places  *places.CachingClient
	Service *leads.Service

	closers []func() error
}

// Close releases resources held by the environment.
func (e *leadsEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close resource", zap.Error(err))
		}
	}
}

// initStore opens and migrates the configured corpus store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadscout.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initCache builds the configured search cache. The returned close func is
// never nil.
func initCache(ctx context.Context, st store.Store) (searchcache.Cache, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Cache.Driver {
	case "", "memory":
		return searchcache.NewMemory(), noop, nil
	case "sqlite":
		sq, ok := st.(*store.SQLiteStore)
		if !ok {
			return nil, noop, eris.New("cache driver sqlite requires the sqlite store")
		}
		return sq.SearchCache(), noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, eris.Wrap(err, "ping redis")
		}
		return searchcache.NewRedis(client, nil), client.Close, nil
	default:
		return nil, noop, eris.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}

// initPlaces builds the rate-limited, circuit-protected places client with
// geocode and details memoization.
func initPlaces() *places.CachingClient {
	breakerCfg := resilience.FromCircuitConfig(cfg.Places.CircuitThreshold, cfg.Places.CircuitResetSecs)
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("places circuit state changed",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}

	timeout := time.Duration(cfg.Places.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts := []places.Option{
		places.WithHTTPClient(&http.Client{Timeout: timeout}),
		places.WithRateLimit(cfg.Places.RateLimit),
		places.WithCircuitBreaker(resilience.NewCircuitBreaker(breakerCfg)),
	}
	if cfg.Places.BaseURL != "" {
		opts = append(opts, places.WithBaseURL(cfg.Places.BaseURL))
	}
	if cfg.Places.GeocodeURL != "" {
		opts = append(opts, places.WithGeocodeURL(cfg.Places.GeocodeURL))
	}

	memoTTL := time.Duration(cfg.Places.MemoTTLHours) * time.Hour
	if memoTTL <= 0 {
		memoTTL = places.DefaultMemoTTL
	}
	return places.NewCachingClient(places.NewClient(cfg.Places.Key, opts...), memoTTL)
}

func crawlConfig() crawl.Config {
	return crawl.Config{
		PageTokenDelay:      cfg.Crawl.PageTokenDelay(),
		MaxPagesPerArea:     cfg.Crawl.MaxPagesPerArea,
		PaceEvery:           cfg.Crawl.PaceEvery,
		PaceDelay:           cfg.Crawl.PaceDelay(),
		AreaConcurrency:     cfg.Crawl.AreaConcurrency,
		DefaultRadiusMeters: cfg.Crawl.DefaultRadiusMeters,
	}
}

// initLeads sets up the store, cache, places client and planner for the
// given config mode. Callers should defer env.Close().
func initLeads(ctx context.Context, mode string) (*leadsEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &leadsEnv{Store: st, closers: []func() error{st.Close}}

	cache, closeCache, err := initCache(ctx, st)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Cache = cache
	env.closers = append(env.closers, closeCache)

	catalog, err := areas.Default()
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "load area catalog")
	}

	env.Places = initPlaces()
	planner := crawl.NewPlanner(env.Places, catalog, cache,
		crawl.WithConfig(crawlConfig()),
		crawl.WithPhaseHook(func(ph crawl.Phase) {
			zap.L().Debug("search phase", zap.String("phase", string(ph)))
		}),
	)
	env.Service = leads.NewService(st, planner)

	zap.L().Info("leadscout initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("cache", cfg.Cache.Driver),
		zap.Int("area_concurrency", cfg.Crawl.AreaConcurrency),
	)
	return env, nil
}
