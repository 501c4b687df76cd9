package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dshills/repairsearch-mcp/internal/cache"
	"github.com/dshills/repairsearch-mcp/internal/catalog"
	"github.com/dshills/repairsearch-mcp/internal/config"
	"github.com/dshills/repairsearch-mcp/internal/guidesource"
	"github.com/dshills/repairsearch-mcp/internal/storage"
	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// seedCatalog fills an empty database from the data files named in cfg,
// falling back to the embedded catalog
func seedCatalog(ctx context.Context, cfg config.DataConfig, store storage.Storage) (*storage.SeedResult, error) {
	var (
		aliases []types.DeviceAlias
		guides  []types.RepairGuide
		err     error
	)

	if cfg.AliasesFile != "" {
		aliases, err = catalog.LoadAliasesFile(cfg.AliasesFile)
	} else {
		aliases, err = catalog.Aliases()
	}
	if err != nil {
		return nil, err
	}

	if cfg.GuidesFile != "" {
		guides, err = catalog.LoadGuidesFile(cfg.GuidesFile)
	} else {
		guides, err = catalog.Guides()
	}
	if err != nil {
		return nil, err
	}

	return storage.Seed(ctx, store, aliases, guides)
}

// newCacheStore selects the cache backend
func newCacheStore(cfg config.CacheConfig, store storage.Storage) (cache.Store, error) {
	switch cfg.Backend {
	case config.CacheSQLite:
		return cache.NewSQLiteStore(store), nil
	case config.CacheMemory, "":
		return cache.NewMemoryStore(cfg.Size)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// newOnlineSource selects the online provider. The returned breaker is nil
// for providers without one; a nil source disables online search.
func newOnlineSource(cfg config.OnlineConfig, logger *slog.Logger) (guidesource.Online, *guidesource.Breaker, error) {
	switch cfg.Provider {
	case guidesource.ProviderIFixit:
		retry := guidesource.DefaultRetryConfig()
		retry.MaxRetries = cfg.MaxRetries

		src, err := guidesource.NewIFixitSource(guidesource.IFixitConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			RatePerHour: cfg.RatePerHour,
			Limit:       cfg.Limit,
			Retry:       retry,
			Breaker: &guidesource.BreakerConfig{
				FailureThreshold: cfg.BreakerThreshold,
				Cooldown:         cfg.BreakerCooldown.Duration,
			},
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return src, src.Breaker(), nil

	case guidesource.ProviderFake:
		// The fake answers from the embedded catalog as if it were online
		guides, err := catalog.Guides()
		if err != nil {
			return nil, nil, err
		}
		return guidesource.NewFake(guides), nil, nil

	case guidesource.ProviderNone, "":
		return nil, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown online provider %q", cfg.Provider)
	}
}
