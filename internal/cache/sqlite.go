package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/repairsearch-mcp/internal/storage"
	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// SQLiteStore persists entries in the search_cache table so results survive
// restarts
type SQLiteStore struct {
	storage storage.Storage
}

var (
	_ Store   = (*SQLiteStore)(nil)
	_ Sweeper = (*SQLiteStore)(nil)
)

// NewSQLiteStore creates a Store over s
func NewSQLiteStore(s storage.Storage) *SQLiteStore {
	return &SQLiteStore{storage: s}
}

// Load implements Store
func (s *SQLiteStore) Load(ctx context.Context, fp string) (*Entry, bool, error) {
	row, err := s.storage.LoadCacheEntry(ctx, fp)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var results types.RankedResults
	if err := json.Unmarshal(row.Payload, &results); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry %s: %w", fp, err)
	}

	return &Entry{
		Fingerprint: row.Fingerprint,
		Results:     &results,
		InsertedAt:  row.InsertedAt,
		TTL:         row.ExpiresAt.Sub(row.InsertedAt),
		Hits:        row.HitCount,
	}, true, nil
}

// Save implements Store
func (s *SQLiteStore) Save(ctx context.Context, e *Entry) error {
	payload, err := json.Marshal(e.Results)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", e.Fingerprint, err)
	}
	return s.storage.SaveCacheEntry(ctx, &storage.CacheEntry{
		Fingerprint: e.Fingerprint,
		Payload:     payload,
		InsertedAt:  e.InsertedAt,
		ExpiresAt:   e.ExpiresAt(),
	})
}

// Delete implements Store
func (s *SQLiteStore) Delete(ctx context.Context, fp string) error {
	return s.storage.DeleteCacheEntry(ctx, fp)
}

// Len implements Store
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	return s.storage.CountCacheEntries(ctx)
}

// Name implements Store
func (s *SQLiteStore) Name() string {
	return "sqlite"
}

// PurgeExpired implements Sweeper
func (s *SQLiteStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return s.storage.PurgeExpiredCache(ctx, now)
}
