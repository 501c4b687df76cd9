// Package guidesource provides the repair guide sources consumed by the
// search engine.
//
// Two capabilities exist. Online is an external, rate-limited service that
// may fail at any time; IFixitSource talks to the iFixit API behind a token
// bucket, retries with exponential backoff and a circuit breaker. Offline is
// the curated in-process Dataset, which never fails. Fake is a scripted
// Online source selected by configuration for tests and development.
//
// Sources are chosen once at construction. Nothing in this package inspects
// a source's concrete type at runtime.
package guidesource
