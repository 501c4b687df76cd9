// Package config loads server configuration from defaults, an optional TOML
// file and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables
const (
	EnvConfigPath     = "REPAIRSEARCH_CONFIG"
	EnvDBPath         = "REPAIRSEARCH_DB_PATH"
	EnvOnlineProvider = "REPAIRSEARCH_ONLINE_PROVIDER"
	EnvCacheBackend   = "REPAIRSEARCH_CACHE_BACKEND"
	EnvDebug          = "REPAIRSEARCH_DEBUG"
	EnvIFixitAPIKey   = "IFIXIT_API_KEY"
	EnvIFixitBaseURL  = "IFIXIT_BASE_URL"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
)

// DefaultDBPath is the default database location. A leading ~ expands to
// the user's home directory.
const DefaultDBPath = "~/.repairsearch/repairsearch.db"

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds the server configuration
type Config struct {
	Search   SearchConfig   `toml:"search"`
	Resolver ResolverConfig `toml:"resolver"`
	Cache    CacheConfig    `toml:"cache"`
	Online   OnlineConfig   `toml:"online"`
	Ranker   RankerConfig   `toml:"ranker"`
	Data     DataConfig     `toml:"data"`
	Debug    bool           `toml:"debug"`
}

// SearchConfig configures request handling
type SearchConfig struct {
	MaxQueryLength  int      `toml:"max_query_length"`
	DefaultLanguage string   `toml:"default_language"`
	OnlineTimeout   Duration `toml:"online_timeout"`
}

// ResolverConfig configures device resolution
type ResolverConfig struct {
	Threshold float64 `toml:"threshold"`
	MaxNgram  int     `toml:"max_ngram"`
}

// CacheConfig configures the result cache
type CacheConfig struct {
	Backend       string   `toml:"backend"` // "memory" or "sqlite"
	TTL           Duration `toml:"ttl"`
	Size          int      `toml:"size"`           // memory backend capacity
	SweepInterval Duration `toml:"sweep_interval"` // sqlite backend expiry sweep
}

// OnlineConfig configures the online guide source
type OnlineConfig struct {
	Provider         string   `toml:"provider"` // "ifixit", "fake" or "none"
	BaseURL          string   `toml:"base_url"`
	APIKey           string   `toml:"api_key"` // supports ${ENV_VAR} expansion
	RatePerHour      int      `toml:"rate_per_hour"`
	MaxRetries       int      `toml:"max_retries"`
	Limit            int      `toml:"limit"`
	BreakerThreshold int      `toml:"breaker_threshold"`
	BreakerCooldown  Duration `toml:"breaker_cooldown"`
}

// RankerConfig holds the ranking weights
type RankerConfig struct {
	DeviceWeight  float64 `toml:"device_weight"`
	QualityWeight float64 `toml:"quality_weight"`
	KeywordWeight float64 `toml:"keyword_weight"`
}

// DataConfig configures storage and seed data
type DataConfig struct {
	DBPath      string `toml:"db_path"`
	AliasesFile string `toml:"aliases_file"` // optional, replaces the embedded aliases when seeding
	GuidesFile  string `toml:"guides_file"`  // optional, replaces the embedded guides when seeding
}

// Duration is a time.Duration that decodes from strings such as "3s"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			MaxQueryLength:  500,
			DefaultLanguage: "en",
			OnlineTimeout:   Duration{3 * time.Second},
		},
		Resolver: ResolverConfig{
			Threshold: 0.6,
			MaxNgram:  4,
		},
		Cache: CacheConfig{
			Backend:       CacheMemory,
			TTL:           Duration{time.Hour},
			Size:          1000,
			SweepInterval: Duration{10 * time.Minute},
		},
		Online: OnlineConfig{
			Provider:         "ifixit",
			BaseURL:          "https://www.ifixit.com/api/2.0",
			RatePerHour:      100,
			MaxRetries:       3,
			Limit:            20,
			BreakerThreshold: 5,
			BreakerCooldown:  Duration{30 * time.Second},
		},
		Ranker: RankerConfig{
			DeviceWeight:  0.5,
			QualityWeight: 0.2,
			KeywordWeight: 0.3,
		},
		Data: DataConfig{
			DBPath: DefaultDBPath,
		},
	}
}

// Load builds the configuration. An empty path skips the file.
// Environment variables referenced as ${VAR_NAME} in api_key are expanded.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Online.APIKey = expandEnvVars(cfg.Online.APIKey)

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by REPAIRSEARCH_CONFIG, if set
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}

// applyEnv overrides file values with environment variables
func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Data.DBPath = v
	}
	if v := os.Getenv(EnvOnlineProvider); v != "" {
		c.Online.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(EnvCacheBackend); v != "" {
		c.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv(EnvIFixitAPIKey); v != "" {
		c.Online.APIKey = v
	}
	if v := os.Getenv(EnvIFixitBaseURL); v != "" {
		c.Online.BaseURL = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, EnvDebug, v)
		}
		c.Debug = debug
	}
	return nil
}

// Validate rejects out-of-range values
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Search.MaxQueryLength > 0, "search.max_query_length must be positive")
	check(c.Search.OnlineTimeout.Duration > 0, "search.online_timeout must be positive")
	check(c.Resolver.Threshold > 0 && c.Resolver.Threshold <= 1, "resolver.threshold must be in (0, 1]")
	check(c.Resolver.MaxNgram >= 1 && c.Resolver.MaxNgram <= 8, "resolver.max_ngram must be between 1 and 8")

	check(c.Cache.Backend == CacheMemory || c.Cache.Backend == CacheSQLite,
		"cache.backend must be %q or %q, got %q", CacheMemory, CacheSQLite, c.Cache.Backend)
	check(c.Cache.TTL.Duration > 0, "cache.ttl must be positive")
	check(c.Cache.Size > 0, "cache.size must be positive")

	switch c.Online.Provider {
	case "ifixit", "fake", "none":
	default:
		errs = append(errs, fmt.Errorf("online.provider must be ifixit, fake or none, got %q", c.Online.Provider))
	}
	check(c.Online.RatePerHour > 0, "online.rate_per_hour must be positive")
	check(c.Online.MaxRetries >= 1, "online.max_retries must be at least 1")

	w := c.Ranker
	check(w.DeviceWeight >= 0 && w.QualityWeight >= 0 && w.KeywordWeight >= 0,
		"ranker weights must be non-negative")
	check(w.DeviceWeight+w.QualityWeight+w.KeywordWeight > 0, "ranker weights must not all be zero")

	check(c.Data.DBPath != "", "data.db_path must be set")

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ResolveDBPath expands a leading ~ in Data.DBPath and creates the parent
// directory. ":memory:" is returned unchanged.
func (c *Config) ResolveDBPath() (string, error) {
	path := c.Data.DBPath
	if path == ":memory:" {
		return path, nil
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns in s with the corresponding environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}
