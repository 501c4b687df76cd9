// Package mcp implements the Model Context Protocol (MCP) server for repair-guide search.
//
// The MCP server exposes five tools to a chat or UI layer:
//   - search_guides: Search repair guides with a free-text, multi-script query
//   - resolve_device: Resolve a device name and list candidate devices
//   - invalidate_cache: Drop cached results for a query or fingerprint
//   - reload_aliases: Rebuild the device alias table from the database
//   - get_status: Report alias table, catalog, cache and online source status
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Logs go to stderr because stdout carries the protocol.
//
// # Tool: search_guides
//
//	Request:
//	{
//	  "name": "search_guides",
//	  "arguments": {
//	    "query": "スイッチ 画面 割れた",
//	    "language": "ja",
//	    "limit": 5
//	  }
//	}
//
//	Response:
//	{
//	  "fingerprint": "v1:3f1c...",
//	  "device": {"canonical": "Nintendo Switch", "confidence": 1, "match_type": "exact"},
//	  "keywords": ["画面", "割れた"],
//	  "count": 1,
//	  "guides": [
//	    {
//	      "rank": 1,
//	      "id": "switch_screen_replacement",
//	      "title": "Nintendo Switch Screen Repair",
//	      "source": "offline",
//	      "difficulty": "Moderate",
//	      "success_rate": 0.8,
//	      "score": 0.81
//	    }
//	  ],
//	  "cache_hit": false,
//	  "degraded": false,
//	  "partial": false
//	}
//
// An empty guide list carries a "reason" of no_results, sources_unavailable
// or deadline_exceeded. A failing online source never fails the call; the
// response is marked degraded and holds offline guides only.
//
// # Tool: resolve_device
//
//	Request:  {"name": "resolve_device", "arguments": {"query": "nintendo swtich"}}
//	Response: {"device": {"canonical": "Nintendo Switch", "match_type": "fuzzy", ...}, "suggestions": [...]}
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing or mistyped arguments)
//   - -32603: Internal error (database failures)
//   - -32010: Validation failed (oversized input, control characters, injection signatures, bad language or limit)
//   - -32011: Alias reload already in progress
//
// Validation errors carry the rejected parameter and reason:
//
//	{"code": -32010, "data": {"param": "query", "reason": "injection_signature"}}
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "repairsearch": {
//	      "command": "/usr/local/bin/repairsearch",
//	      "env": {
//	        "IFIXIT_API_KEY": "your-api-key",
//	        "REPAIRSEARCH_CONFIG": "/etc/repairsearch/config.toml"
//	      }
//	    }
//	  }
//	}
package mcp
