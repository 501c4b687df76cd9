package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize is the default number of entries kept in memory
const DefaultMemorySize = 1000

// MemoryStore is an in-process LRU Store
type MemoryStore struct {
	entries *lru.Cache[string, *Entry]
}

// NewMemoryStore creates a MemoryStore holding at most size entries.
// The least recently used entry is evicted when full.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	entries, err := lru.New[string, *Entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &MemoryStore{entries: entries}, nil
}

// Load implements Store
func (s *MemoryStore) Load(ctx context.Context, fp string) (*Entry, bool, error) {
	e, ok := s.entries.Get(fp)
	if !ok {
		return nil, false, nil
	}
	return e, true, nil
}

// Save implements Store. The entry is owned by the store after Save.
func (s *MemoryStore) Save(ctx context.Context, e *Entry) error {
	s.entries.Add(e.Fingerprint, e)
	return nil
}

// Delete implements Store
func (s *MemoryStore) Delete(ctx context.Context, fp string) error {
	s.entries.Remove(fp)
	return nil
}

// Len implements Store
func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	return s.entries.Len(), nil
}

// Name implements Store
func (s *MemoryStore) Name() string {
	return "memory"
}

// Purge drops every entry
func (s *MemoryStore) Purge() {
	s.entries.Purge()
}
