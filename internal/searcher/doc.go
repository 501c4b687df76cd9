// Package searcher implements the repair guide search engine.
//
// A SearchEngine owns every collaborator of a search: the sanitizer, the
// device resolver, the result cache, the online and offline guide sources
// and the ranker. Nothing is global, so tests build an engine from fakes.
//
// # Basic Usage
//
//	engine, err := searcher.New(res, cacheManager, online, offline,
//	    searcher.WithOnlineTimeout(3*time.Second),
//	    searcher.WithLogger(logger),
//	)
//
//	results, err := engine.Search(ctx, searcher.SearchRequest{
//	    Query:    "Switch screen repair",
//	    Language: "en",
//	})
//
// # Flow
//
// Search sanitizes the query, normalizes it, resolves the device (an explicit
// DeviceHint first), extracts issue keywords and computes a fingerprint. The
// fingerprint keys a single-flight cache lookup; on a miss both guide sources
// are queried concurrently and their results merged by CanonicalKey, online
// variants winning, before ranking.
//
// # Degradation
//
// The only error Search returns is a *types.ValidationError:
//
//   - Online failure or timeout: offline results, Degraded set, nothing cached
//   - Caller deadline while waiting: offline results, Partial set
//   - No guides: empty Guides with a Reason code
//
// Results computed while the online source is failing are never cached, so
// the next identical search tries the online source again.
package searcher
