package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/repairsearch-mcp/internal/ranker"
)

// searchGuidesTool returns the tool definition for search_guides
func searchGuidesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_guides",
		Description: "Search repair guides with a free-text query in any language (e.g. \"スイッチ 画面 割れた\" or \"iphone battery drains fast\")",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Free-text description of the device and problem",
				},
				"device_hint": map[string]interface{}{
					"type":        "string",
					"description": "Optional device name; when it resolves it takes precedence over the device named in the query",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "BCP 47 language tag for online results (default from server config)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of guides to return",
					"default":     ranker.DefaultLimit,
					"minimum":     0,
					"maximum":     ranker.MaxLimit,
				},
			},
			Required: []string{"query"},
		},
	}
}

// resolveDeviceTool returns the tool definition for resolve_device
func resolveDeviceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "resolve_device",
		Description: "Resolve a device name to its canonical id and list candidate devices",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Device name or query text",
				},
			},
			Required: []string{"query"},
		},
	}
}

// invalidateCacheTool returns the tool definition for invalidate_cache
func invalidateCacheTool() mcp.Tool {
	return mcp.Tool{
		Name:        "invalidate_cache",
		Description: "Drop cached results for a query or a fingerprint",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"fingerprint": map[string]interface{}{
					"type":        "string",
					"description": "Fingerprint reported by search_guides",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Query whose results should be dropped (used when fingerprint is absent)",
				},
				"device_hint": map[string]interface{}{
					"type":        "string",
					"description": "Device hint of the original search",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Language of the original search",
				},
			},
		},
	}
}

// reloadAliasesTool returns the tool definition for reload_aliases
func reloadAliasesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reload_aliases",
		Description: "Rebuild the device alias table from the database",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report alias table, catalog, cache and online source status",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
