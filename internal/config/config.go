package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Places PlacesConfig `yaml:"places" mapstructure:"places"`
	Crawl  CrawlConfig  `yaml:"crawl" mapstructure:"crawl"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the corpus store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CacheConfig configures the search result cache.
type CacheConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
}

// PlacesConfig holds places provider settings.
type PlacesConfig struct {
	Key              string  `yaml:"key" mapstructure:"key"`
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	GeocodeURL       string  `yaml:"geocode_url" mapstructure:"geocode_url"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MemoTTLHours     int     `yaml:"memo_ttl_hours" mapstructure:"memo_ttl_hours"`
	CircuitThreshold int     `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// CrawlConfig configures the crawl planner.
type CrawlConfig struct {
	PageTokenDelayMs    int `yaml:"page_token_delay_ms" mapstructure:"page_token_delay_ms"`
	MaxPagesPerArea     int `yaml:"max_pages_per_area" mapstructure:"max_pages_per_area"`
	PaceEvery           int `yaml:"pace_every" mapstructure:"pace_every"`
	PaceDelayMs         int `yaml:"pace_delay_ms" mapstructure:"pace_delay_ms"`
	AreaConcurrency     int `yaml:"area_concurrency" mapstructure:"area_concurrency"`
	DefaultRadiusMeters int `yaml:"default_radius_meters" mapstructure:"default_radius_meters"`
}

// PageTokenDelay returns the wait before following a page token.
func (c CrawlConfig) PageTokenDelay() time.Duration {
	return time.Duration(c.PageTokenDelayMs) * time.Millisecond
}

// PaceDelay returns the pause inserted every PaceEvery areas.
func (c CrawlConfig) PaceDelay() time.Duration {
	return time.Duration(c.PaceDelayMs) * time.Millisecond
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadscout.db")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("places.key", "")
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.geocode_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("places.rate_limit", 10.0)
	v.SetDefault("places.timeout_secs", 15)
	v.SetDefault("places.memo_ttl_hours", 24)
	v.SetDefault("places.circuit_threshold", 5)
	v.SetDefault("places.circuit_reset_secs", 30)
	v.SetDefault("crawl.page_token_delay_ms", 2000)
	v.SetDefault("crawl.max_pages_per_area", 3)
	v.SetDefault("crawl.pace_every", 5)
	v.SetDefault("crawl.pace_delay_ms", 1000)
	v.SetDefault("crawl.area_concurrency", 1)
	v.SetDefault("crawl.default_radius_meters", 5000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_secs", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command mode needs are present.
// Modes: search, import, duplicates, cache, serve.
func (c *Config) Validate(mode string) error {
	var errs []string

	needStore := func() {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	}
	needCache := func() {
		switch c.Cache.Driver {
		case "memory", "sqlite":
		case "redis":
			if c.Cache.RedisAddr == "" {
				errs = append(errs, "cache.redis_addr is required when cache.driver is redis")
			}
		default:
			errs = append(errs, fmt.Sprintf("cache.driver must be memory, sqlite or redis, got %q", c.Cache.Driver))
		}
		if c.Cache.Driver == "sqlite" && c.Store.Driver != "sqlite" {
			errs = append(errs, "cache.driver sqlite requires store.driver sqlite")
		}
	}
	needPlaces := func() {
		if c.Places.Key == "" {
			errs = append(errs, "places.key is required")
		}
		if c.Places.RateLimit <= 0 {
			errs = append(errs, "places.rate_limit must be > 0")
		}
		if c.Crawl.AreaConcurrency < 1 || c.Crawl.AreaConcurrency > 10 {
			errs = append(errs, "crawl.area_concurrency must be between 1 and 10")
		}
		if c.Crawl.MaxPagesPerArea < 1 {
			errs = append(errs, "crawl.max_pages_per_area must be > 0")
		}
	}

	switch mode {
	case "search":
		needStore()
		needCache()
		needPlaces()
	case "import", "duplicates":
		needStore()
	case "cache":
		needStore()
		needCache()
	case "serve":
		needStore()
		needCache()
		needPlaces()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
