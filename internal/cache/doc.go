// Package cache provides the fingerprinted search result cache.
//
// A Manager wraps a Store (MemoryStore for an in-process LRU, SQLiteStore
// for a persistent table) and adds TTL expiry, statistics and single-flight
// computation: concurrent GetOrCompute calls for one fingerprint share a
// single run of the compute function.
//
// Failed computations are never stored. A compute function that has usable
// results which must not be cached, such as offline-only results produced
// while the online source is down, returns them in a *TransientError:
//
//	res, err := m.GetOrCompute(ctx, fp, fetch)
//	if te, ok := cache.AsTransient(err); ok {
//	    res = te.Results // serve, but nothing was cached
//	}
package cache
