package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/repairsearch-mcp/internal/cache"
	"github.com/dshills/repairsearch-mcp/internal/config"
	"github.com/dshills/repairsearch-mcp/internal/guidesource"
	"github.com/dshills/repairsearch-mcp/internal/logging"
	"github.com/dshills/repairsearch-mcp/internal/ranker"
	"github.com/dshills/repairsearch-mcp/internal/resolver"
	"github.com/dshills/repairsearch-mcp/internal/sanitizer"
	"github.com/dshills/repairsearch-mcp/internal/searcher"
	"github.com/dshills/repairsearch-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "repairsearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	cfg     *config.Config
	storage storage.Storage
	cache   *cache.Manager
	engine  *searcher.SearchEngine
	breaker *guidesource.Breaker // nil unless the iFixit provider is active
	logger  *slog.Logger

	closeOnce sync.Once
}

// NewServer opens storage, seeds it on first start and builds the search
// engine described by cfg
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	s, err := newServer(ctx, cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return s, nil
}

func newServer(ctx context.Context, cfg *config.Config, store storage.Storage, logger *slog.Logger) (*Server, error) {
	seeded, err := seedCatalog(ctx, cfg.Data, store)
	if err != nil {
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}
	if seeded.Aliases > 0 || seeded.Guides > 0 {
		logger.Info("catalog seeded", "aliases", seeded.Aliases, "guides", seeded.Guides)
	}

	// The stored alias rows are the source of truth for the table and for
	// later reloads
	res := resolver.New(nil,
		resolver.WithThreshold(cfg.Resolver.Threshold),
		resolver.WithMaxNgram(cfg.Resolver.MaxNgram),
		resolver.WithLogger(logging.Component(logger, "resolver")),
	)
	if _, err := res.Reload(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to load alias table: %w", err)
	}

	guides, err := storage.LoadGuides(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("failed to load offline guides: %w", err)
	}
	offline := guidesource.NewDataset(guides)

	cacheStore, err := newCacheStore(cfg.Cache, store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	manager := cache.NewManager(cacheStore,
		cache.WithTTL(cfg.Cache.TTL.Duration),
		cache.WithLogger(logging.Component(logger, "cache")),
	)

	online, breaker, err := newOnlineSource(cfg.Online, logging.Component(logger, "guidesource"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize online source: %w", err)
	}

	engine, err := searcher.New(res, manager, online, offline,
		searcher.WithSanitizer(sanitizer.New(cfg.Search.MaxQueryLength)),
		searcher.WithRanker(ranker.New(ranker.Weights{
			Device:  cfg.Ranker.DeviceWeight,
			Quality: cfg.Ranker.QualityWeight,
			Keyword: cfg.Ranker.KeywordWeight,
		})),
		searcher.WithOnlineTimeout(cfg.Search.OnlineTimeout.Duration),
		searcher.WithDefaultLanguage(cfg.Search.DefaultLanguage),
		searcher.WithLogger(logging.Component(logger, "searcher")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search engine: %w", err)
	}

	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		cfg:     cfg,
		storage: store,
		cache:   manager,
		engine:  engine,
		breaker: breaker,
		logger:  logging.Component(logger, "mcp"),
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Describe summarizes the server for the startup log
func (s *Server) Describe(ctx context.Context) logging.StartupInfo {
	status := s.engine.Status()
	info := logging.StartupInfo{
		Version:        ServerVersion,
		BuildMode:      storage.BuildMode,
		DatabasePath:   s.cfg.Data.DBPath,
		CacheBackend:   status.Cache.Backend,
		OnlineProvider: status.OnlineProvider,
		Aliases:        status.AliasKeys,
	}
	if db, err := s.storage.GetStatus(ctx); err == nil {
		info.SchemaVersion = db.SchemaVersion
		info.Guides = db.Guides
	}
	return info
}

// Serve starts the MCP server on stdio and blocks until shutdown.
// Expired cache rows are swept in the background while it runs.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.sweepLoop(sweepCtx, s.cfg.Cache.SweepInterval.Duration)

	return server.ServeStdio(s.mcp)
}

// Close releases the database
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.storage.Close()
	})
	return err
}

// sweepLoop periodically drops expired entries from stores that support it
func (s *Server) sweepLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.cache.Sweep(ctx)
			if err != nil {
				s.logger.Warn("cache sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("cache sweep", "expired", n)
			}
		}
	}
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(searchGuidesTool(), s.handleSearchGuides)
	s.mcp.AddTool(resolveDeviceTool(), s.handleResolveDevice)
	s.mcp.AddTool(invalidateCacheTool(), s.handleInvalidateCache)
	s.mcp.AddTool(reloadAliasesTool(), s.handleReloadAliases)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	return nil
}
