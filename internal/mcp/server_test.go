package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/repairsearch-mcp/internal/cache"
	"github.com/dshills/repairsearch-mcp/internal/config"
	"github.com/dshills/repairsearch-mcp/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestServer builds a server over an in-memory database
func setupTestServer(t *testing.T, provider string) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Data.DBPath = ":memory:"
	cfg.Online.Provider = provider

	store, err := storage.NewSQLiteStorage(cfg.Data.DBPath)
	require.NoError(t, err)

	s, err := newServer(context.Background(), cfg, store, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (map[string]interface{}, error) {
	t.Helper()

	var req mcp.CallToolRequest
	if args != nil {
		req.Params.Arguments = args
	}

	result, err := handler(context.Background(), req)
	if err != nil {
		return nil, err
	}
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, nil
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

func TestNewServer(t *testing.T) {
	cfg := config.Default()
	cfg.Data.DBPath = filepath.Join(t.TempDir(), "nested", "repairsearch.db")
	cfg.Online.Provider = "none"

	s, err := NewServer(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer s.Close()

	assert.NotNil(t, s.mcp, "MCP server should be initialized")
	assert.NotNil(t, s.storage, "Storage should be initialized")
	assert.NotNil(t, s.engine, "Engine should be initialized")
	assert.Nil(t, s.breaker)

	status, err := s.storage.GetStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Health.CatalogSeeded)
	assert.Greater(t, s.engine.Status().AliasKeys, 0)

	// Closing twice is harmless
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestNewServerReopensSeededDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Data.DBPath = filepath.Join(t.TempDir(), "repairsearch.db")
	cfg.Online.Provider = "none"
	ctx := context.Background()

	first, err := NewServer(ctx, cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, first.storage.UpsertAlias(ctx, &storage.Alias{Alias: "gamebox", Canonical: "Nintendo Switch"}))
	before := first.engine.Status().AliasKeys
	require.NoError(t, first.Close())

	second, err := NewServer(ctx, cfg, testLogger())
	require.NoError(t, err)
	defer second.Close()

	// Operator edits survive restarts
	assert.Equal(t, before+1, second.engine.Status().AliasKeys)
}

func TestHandleSearchGuides(t *testing.T) {
	s := setupTestServer(t, "none")

	out, err := callTool(t, s.handleSearchGuides, map[string]interface{}{
		"query":    "Switch screen repair",
		"language": "en",
		"limit":    float64(3),
	})
	require.NoError(t, err)

	device := out["device"].(map[string]interface{})
	assert.Equal(t, "Nintendo Switch", device["canonical"])
	assert.Equal(t, "exact", device["match_type"])
	assert.True(t, strings.HasPrefix(out["fingerprint"].(string), "v1:"))
	assert.Equal(t, false, out["cache_hit"])
	assert.Equal(t, false, out["degraded"])
	assert.NotContains(t, out, "reason")

	guides := out["guides"].([]interface{})
	require.NotEmpty(t, guides)
	assert.LessOrEqual(t, len(guides), 3)
	top := guides[0].(map[string]interface{})
	assert.Equal(t, "switch_screen_replacement", top["id"])
	assert.EqualValues(t, 1, top["rank"])
	assert.Equal(t, "offline", top["source"])
	assert.NotEmpty(t, top["steps"])

	// Same request again is served from the cache
	out, err = callTool(t, s.handleSearchGuides, map[string]interface{}{
		"query":    "Switch screen repair",
		"language": "en",
	})
	require.NoError(t, err)
	assert.Equal(t, true, out["cache_hit"])
}

func TestHandleSearchGuidesNoResults(t *testing.T) {
	s := setupTestServer(t, "none")

	out, err := callTool(t, s.handleSearchGuides, map[string]interface{}{"query": "banana bread recipe"})
	require.NoError(t, err)
	assert.Equal(t, "no_results", out["reason"])
	assert.Empty(t, out["guides"])
	assert.Equal(t, []interface{}{}, out["guides"])
}

func TestHandleSearchGuidesErrors(t *testing.T) {
	s := setupTestServer(t, "none")

	tests := []struct {
		name  string
		args  map[string]interface{}
		code  int
		param string
	}{
		{"no arguments", nil, ErrorCodeInvalidParams, ""},
		{"missing query", map[string]interface{}{"limit": float64(5)}, ErrorCodeInvalidParams, "query"},
		{"markup injection", map[string]interface{}{"query": "<script>alert(1)</script>"}, ErrorCodeValidation, "query"},
		{"bad language", map[string]interface{}{"query": "iphone battery", "language": "not a tag!"}, ErrorCodeValidation, "language"},
		{"limit too large", map[string]interface{}{"query": "iphone battery", "limit": float64(500)}, ErrorCodeValidation, "limit"},
		{"oversized hint", map[string]interface{}{"query": "battery", "device_hint": strings.Repeat("a", 600)}, ErrorCodeValidation, "device_hint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callTool(t, s.handleSearchGuides, tt.args)
			mcpErr := requireMCPError(t, err, tt.code)
			if tt.param != "" {
				data := mcpErr.Data.(map[string]interface{})
				assert.Equal(t, tt.param, data["param"])
			}
		})
	}
}

func TestHandleResolveDevice(t *testing.T) {
	s := setupTestServer(t, "none")

	out, err := callTool(t, s.handleResolveDevice, map[string]interface{}{"query": "nintendo swtich"})
	require.NoError(t, err)

	device := out["device"].(map[string]interface{})
	assert.Equal(t, "Nintendo Switch", device["canonical"])
	assert.Equal(t, "fuzzy", device["match_type"])
	assert.Less(t, device["confidence"].(float64), 1.0)
	assert.NotEmpty(t, out["suggestions"])
	assert.NotEmpty(t, out["variations"])

	out, err = callTool(t, s.handleResolveDevice, map[string]interface{}{"query": "スイッチ"})
	require.NoError(t, err)
	device = out["device"].(map[string]interface{})
	assert.Equal(t, "exact", device["match_type"])
	assert.Equal(t, []interface{}{"Katakana"}, out["scripts"])

	_, err = callTool(t, s.handleResolveDevice, map[string]interface{}{})
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleInvalidateCache(t *testing.T) {
	s := setupTestServer(t, "none")
	ctx := context.Background()

	out, err := callTool(t, s.handleSearchGuides, map[string]interface{}{"query": "iphone battery"})
	require.NoError(t, err)
	fp := out["fingerprint"].(string)
	assert.Equal(t, cache.StatePopulated, s.cache.State(ctx, fp))

	// By query, with the same effective language
	out, err = callTool(t, s.handleInvalidateCache, map[string]interface{}{"query": "iphone battery", "language": "en"})
	require.NoError(t, err)
	assert.Equal(t, fp, out["fingerprint"])
	assert.Equal(t, cache.StateAbsent, s.cache.State(ctx, fp))

	// By fingerprint
	_, err = callTool(t, s.handleSearchGuides, map[string]interface{}{"query": "iphone battery"})
	require.NoError(t, err)
	_, err = callTool(t, s.handleInvalidateCache, map[string]interface{}{"fingerprint": fp})
	require.NoError(t, err)
	assert.Equal(t, cache.StateAbsent, s.cache.State(ctx, fp))

	_, err = callTool(t, s.handleInvalidateCache, nil)
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = callTool(t, s.handleInvalidateCache, map[string]interface{}{"query": "javascript:alert(1)"})
	requireMCPError(t, err, ErrorCodeValidation)
}

func TestHandleReloadAliases(t *testing.T) {
	s := setupTestServer(t, "none")
	ctx := context.Background()

	require.NoError(t, s.storage.UpsertAlias(ctx, &storage.Alias{Alias: "gamebox", Canonical: "Nintendo Switch", Priority: 5}))

	before := s.engine.Status().AliasKeys
	out, err := callTool(t, s.handleReloadAliases, nil)
	require.NoError(t, err)
	assert.Equal(t, true, out["reloaded"])
	assert.EqualValues(t, before+1, out["alias_keys"])

	out, err = callTool(t, s.handleResolveDevice, map[string]interface{}{"query": "gamebox"})
	require.NoError(t, err)
	device := out["device"].(map[string]interface{})
	assert.Equal(t, "Nintendo Switch", device["canonical"])
	assert.Equal(t, "exact", device["match_type"])
}

func TestHandleGetStatus(t *testing.T) {
	tests := []struct {
		provider    string
		wantBreaker bool
	}{
		{"none", false},
		{"fake", false},
		{"ifixit", true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			s := setupTestServer(t, tt.provider)

			out, err := callTool(t, s.handleGetStatus, nil)
			require.NoError(t, err)

			online := out["online"].(map[string]interface{})
			assert.Equal(t, tt.provider, online["provider"])
			if tt.wantBreaker {
				breaker := online["breaker"].(map[string]interface{})
				assert.Equal(t, "closed", breaker["state"])
			} else {
				assert.NotContains(t, online, "breaker")
			}

			catalog := out["catalog"].(map[string]interface{})
			assert.EqualValues(t, 10, catalog["guides"])
			assert.Greater(t, catalog["aliases"].(float64), 0.0)

			res := out["resolver"].(map[string]interface{})
			assert.Greater(t, res["devices"].(float64), 0.0)

			c := out["cache"].(map[string]interface{})
			assert.Equal(t, "memory", c["backend"])

			db := out["database"].(map[string]interface{})
			assert.Equal(t, true, db["catalog_seeded"])
			assert.Equal(t, storage.BuildMode, db["build_mode"])
		})
	}
}

func TestSQLiteCacheBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Data.DBPath = ":memory:"
	cfg.Online.Provider = "none"
	cfg.Cache.Backend = config.CacheSQLite

	store, err := storage.NewSQLiteStorage(cfg.Data.DBPath)
	require.NoError(t, err)
	s, err := newServer(context.Background(), cfg, store, testLogger())
	require.NoError(t, err)
	defer s.Close()

	_, err = callTool(t, s.handleSearchGuides, map[string]interface{}{"query": "xbox controller drift"})
	require.NoError(t, err)

	n, err := store.CountCacheEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out, err := callTool(t, s.handleSearchGuides, map[string]interface{}{"query": "xbox controller drift"})
	require.NoError(t, err)
	assert.Equal(t, true, out["cache_hit"])

	status, err := callTool(t, s.handleGetStatus, nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status["cache"].(map[string]interface{})["backend"])
}

func TestNewOnlineSourceUnknown(t *testing.T) {
	_, _, err := newOnlineSource(config.OnlineConfig{Provider: "google"}, testLogger())
	assert.Error(t, err)

	_, err = newCacheStore(config.CacheConfig{Backend: "redis"}, nil)
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	s := setupTestServer(t, "fake")

	info := s.Describe(context.Background())
	assert.Equal(t, ServerVersion, info.Version)
	assert.Equal(t, "fake", info.OnlineProvider)
	assert.Equal(t, "memory", info.CacheBackend)
	assert.Equal(t, 10, info.Guides)
	assert.Greater(t, info.Aliases, 0)
	assert.NotEmpty(t, info.SchemaVersion)
}
