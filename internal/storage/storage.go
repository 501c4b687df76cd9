package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// Storage defines the interface for persisting the guide catalog, the alias
// table and cached search results
type Storage interface {
	// Guide operations
	UpsertGuide(ctx context.Context, guide *Guide) error
	GetGuide(ctx context.Context, id string) (*Guide, error)
	ListGuides(ctx context.Context) ([]*Guide, error)
	CountGuides(ctx context.Context) (int, error)
	DeleteGuide(ctx context.Context, id string) error

	// Alias operations
	UpsertAlias(ctx context.Context, alias *Alias) error
	ListAliases(ctx context.Context) ([]types.DeviceAlias, error)
	CountAliases(ctx context.Context) (int, error)
	DeleteAlias(ctx context.Context, alias string) error

	// Search cache operations
	LoadCacheEntry(ctx context.Context, fingerprint string) (*CacheEntry, error)
	SaveCacheEntry(ctx context.Context, entry *CacheEntry) error
	DeleteCacheEntry(ctx context.Context, fingerprint string) error
	CountCacheEntries(ctx context.Context) (int, error)
	PurgeExpiredCache(ctx context.Context, now time.Time) (int, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Guide is a stored offline repair guide
type Guide struct {
	ID           string
	Title        string
	DeviceID     string
	Category     string
	URL          string
	Difficulty   string
	SuccessRate  float64
	TimeEstimate string
	CostEstimate string
	Details      string // JSON encoded guideDetails
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// guideDetails holds the list fields of a guide
type guideDetails struct {
	Tools    []string          `json:"tools,omitempty"`
	Parts    []string          `json:"parts,omitempty"`
	Steps    []types.GuideStep `json:"steps,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Tips     []string          `json:"tips,omitempty"`
}

// Alias is a stored device alias
type Alias struct {
	ID        int64
	Alias     string
	Canonical string
	Priority  int
	CreatedAt time.Time
}

// CacheEntry is a persisted search result set
type CacheEntry struct {
	Fingerprint string
	Payload     []byte // JSON encoded types.RankedResults
	InsertedAt  time.Time
	ExpiresAt   time.Time
	HitCount    int64
}

// Status contains statistics about the database
type Status struct {
	Guides         int
	Aliases        int
	CacheEntries   int
	SchemaVersion  string
	DatabaseSizeMB float64
	BuildMode      string
	Health         HealthStatus
}

// HealthStatus represents the health of the database
type HealthStatus struct {
	DatabaseAccessible bool
	CatalogSeeded      bool
}

// ToTypesGuide converts a stored Guide to types.RepairGuide
func (g *Guide) ToTypesGuide() (types.RepairGuide, error) {
	var details guideDetails
	if g.Details != "" {
		if err := json.Unmarshal([]byte(g.Details), &details); err != nil {
			return types.RepairGuide{}, fmt.Errorf("failed to decode guide %s details: %w", g.ID, err)
		}
	}

	return types.RepairGuide{
		ID:           g.ID,
		Title:        g.Title,
		Source:       types.SourceOffline,
		DeviceID:     g.DeviceID,
		Category:     g.Category,
		URL:          g.URL,
		Difficulty:   g.Difficulty,
		SuccessRate:  g.SuccessRate,
		TimeEstimate: g.TimeEstimate,
		CostEstimate: g.CostEstimate,
		Tools:        details.Tools,
		Parts:        details.Parts,
		Steps:        details.Steps,
		Warnings:     details.Warnings,
		Tips:         details.Tips,
	}, nil
}

// FromTypesGuide converts types.RepairGuide to a stored Guide
func FromTypesGuide(g types.RepairGuide) (*Guide, error) {
	details, err := json.Marshal(guideDetails{
		Tools:    g.Tools,
		Parts:    g.Parts,
		Steps:    g.Steps,
		Warnings: g.Warnings,
		Tips:     g.Tips,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode guide %s details: %w", g.ID, err)
	}

	return &Guide{
		ID:           g.ID,
		Title:        g.Title,
		DeviceID:     g.DeviceID,
		Category:     g.Category,
		URL:          g.URL,
		Difficulty:   g.Difficulty,
		SuccessRate:  g.SuccessRate,
		TimeEstimate: g.TimeEstimate,
		CostEstimate: g.CostEstimate,
		Details:      string(details),
	}, nil
}

// ToTypesAlias converts a stored Alias to types.DeviceAlias
func (a *Alias) ToTypesAlias() types.DeviceAlias {
	return types.DeviceAlias{
		Alias:     a.Alias,
		Canonical: a.Canonical,
		Priority:  a.Priority,
	}
}
