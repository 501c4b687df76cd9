package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/repairsearch-mcp/internal/resolver"
	"github.com/dshills/repairsearch-mcp/internal/searcher"
	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeValidation       = -32010 // Input rejected by the sanitizer
	ErrorCodeReloadInProgress = -32011 // Another alias reload is already running
)

// handleSearchGuides handles the search_guides tool invocation
func (s *Server) handleSearchGuides(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}

	req := searcher.SearchRequest{
		Query:      query,
		DeviceHint: getStringDefault(args, "device_hint", ""),
		Language:   getStringDefault(args, "language", ""),
		Limit:      getIntDefault(args, "limit", 0),
	}

	results, err := s.engine.Search(ctx, req)
	if err != nil {
		return nil, toMCPError(err)
	}

	guides := make([]map[string]interface{}, len(results.Guides))
	for i := range results.Guides {
		guides[i] = formatGuide(i+1, &results.Guides[i])
	}

	response := map[string]interface{}{
		"fingerprint": results.Fingerprint,
		"device":      formatDevice(results.Device),
		"keywords":    nonNil(results.Keywords),
		"count":       len(guides),
		"guides":      guides,
		"cache_hit":   results.CacheHit,
		"degraded":    results.Degraded,
		"partial":     results.Partial,
		"duration_ms": results.Duration.Milliseconds(),
	}
	if results.Reason != types.ReasonNone {
		response["reason"] = string(results.Reason)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleResolveDevice handles the resolve_device tool invocation
func (s *Server) handleResolveDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	res, err := s.engine.ResolveDevice(query)
	if err != nil {
		return nil, toMCPError(err)
	}

	suggestions := make([]map[string]interface{}, len(res.Suggestions))
	for i, sg := range res.Suggestions {
		suggestions[i] = map[string]interface{}{
			"canonical": sg.Canonical,
			"alias":     sg.Alias,
			"score":     roundScore(sg.Score),
		}
	}

	response := map[string]interface{}{
		"normalized":  res.Normalized.NormalizedText,
		"tokens":      nonNil(res.Normalized.Tokens),
		"scripts":     nonNil(res.Normalized.Scripts),
		"device":      formatDevice(res.Device),
		"suggestions": suggestions,
	}
	if res.Device.Resolved() {
		response["variations"] = s.engine.Variations(res.Device.Canonical)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleInvalidateCache handles the invalidate_cache tool invocation
func (s *Server) handleInvalidateCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		// An empty argument object may arrive as nil
		args = map[string]interface{}{}
	}

	fp := getStringDefault(args, "fingerprint", "")
	query := getStringDefault(args, "query", "")

	switch {
	case fp != "":
		if err := s.engine.InvalidateFingerprint(ctx, fp); err != nil {
			return nil, toMCPError(err)
		}
	case query != "":
		var err error
		fp, err = s.engine.Invalidate(ctx, searcher.SearchRequest{
			Query:      query,
			DeviceHint: getStringDefault(args, "device_hint", ""),
			Language:   getStringDefault(args, "language", ""),
		})
		if err != nil {
			return nil, toMCPError(err)
		}
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "fingerprint or query parameter is required", map[string]interface{}{
			"param":  "fingerprint",
			"reason": "missing or empty",
		})
	}

	response := map[string]interface{}{
		"invalidated": true,
		"fingerprint": fp,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleReloadAliases handles the reload_aliases tool invocation
func (s *Server) handleReloadAliases(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keys, err := s.engine.ReloadAliases(ctx, s.storage)
	if errors.Is(err, resolver.ErrReloadInProgress) {
		return nil, newMCPError(ErrorCodeReloadInProgress, "alias reload already in progress", nil)
	}
	if err != nil {
		return nil, toMCPError(err)
	}

	response := map[string]interface{}{
		"reloaded":   true,
		"alias_keys": keys,
		"devices":    len(s.engine.SupportedDevices()),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	engineStatus := s.engine.Status()

	dbStatus, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	cs := engineStatus.Cache
	online := map[string]interface{}{
		"provider": engineStatus.OnlineProvider,
	}
	if s.breaker != nil {
		bs := s.breaker.Stats()
		online["breaker"] = map[string]interface{}{
			"state":          bs.State.String(),
			"failures":       bs.Failures,
			"total_rejected": bs.TotalRejected,
			"total_trips":    bs.TotalTrips,
		}
	}

	response := map[string]interface{}{
		"resolver": map[string]interface{}{
			"alias_keys": engineStatus.AliasKeys,
			"devices":    engineStatus.Devices,
		},
		"catalog": map[string]interface{}{
			"guides":  dbStatus.Guides,
			"aliases": dbStatus.Aliases,
		},
		"cache": map[string]interface{}{
			"backend":  cs.Backend,
			"entries":  cs.Entries,
			"hits":     cs.Hits,
			"misses":   cs.Misses,
			"computes": cs.Computes,
			"joins":    cs.Joins,
			"failures": cs.Failures,
			"expired":  cs.Expired,
			"hit_rate": fmt.Sprintf("%.2f", cs.HitRate()),
		},
		"online": online,
		"database": map[string]interface{}{
			"schema_version":      dbStatus.SchemaVersion,
			"build_mode":          dbStatus.BuildMode,
			"size_mb":             fmt.Sprintf("%.2f", dbStatus.DatabaseSizeMB),
			"database_accessible": dbStatus.Health.DatabaseAccessible,
			"catalog_seeded":      dbStatus.Health.CatalogSeeded,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// toMCPError maps engine errors onto MCP error codes
func toMCPError(err error) error {
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		return newMCPError(ErrorCodeValidation, ve.Error(), map[string]interface{}{
			"param":  ve.Field,
			"reason": ve.Reason,
		})
	}
	return newMCPError(ErrorCodeInternalError, "internal error", map[string]interface{}{
		"error": err.Error(),
	})
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func formatGuide(rank int, g *types.RepairGuide) map[string]interface{} {
	out := map[string]interface{}{
		"rank":         rank,
		"id":           g.ID,
		"title":        g.Title,
		"source":       string(g.Source),
		"device":       g.DeviceID,
		"category":     g.Category,
		"url":          g.URL,
		"difficulty":   g.Difficulty,
		"success_rate": g.SuccessRate,
		"score":        roundScore(g.Score),
	}
	if g.TimeEstimate != "" {
		out["time_estimate"] = g.TimeEstimate
	}
	if g.CostEstimate != "" {
		out["cost_estimate"] = g.CostEstimate
	}
	if len(g.Tools) > 0 {
		out["tools"] = g.Tools
	}
	if len(g.Parts) > 0 {
		out["parts"] = g.Parts
	}
	if len(g.Steps) > 0 {
		steps := make([]map[string]interface{}, len(g.Steps))
		for i, st := range g.Steps {
			steps[i] = map[string]interface{}{
				"number":      st.Number,
				"title":       st.Title,
				"description": st.Description,
			}
		}
		out["steps"] = steps
	}
	if len(g.Warnings) > 0 {
		out["warnings"] = g.Warnings
	}
	if len(g.Tips) > 0 {
		out["tips"] = g.Tips
	}
	return out
}

func formatDevice(d types.ResolvedDevice) map[string]interface{} {
	out := map[string]interface{}{
		"canonical":  d.Canonical,
		"confidence": roundScore(d.Confidence),
		"match_type": string(d.MatchType),
	}
	if d.MatchedAlias != "" {
		out["matched_alias"] = d.MatchedAlias
	}
	return out
}

func roundScore(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}

// nonNil keeps empty lists as [] rather than null in responses
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
