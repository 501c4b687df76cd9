package storage

import (
	"context"
	"fmt"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

// SeedResult reports what Seed inserted
type SeedResult struct {
	Aliases int
	Guides  int
}

// Seed loads aliases and guides into an empty database. Tables that already
// hold rows are left untouched so operator edits survive restarts.
func Seed(ctx context.Context, s Storage, aliases []types.DeviceAlias, guides []types.RepairGuide) (*SeedResult, error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result := &SeedResult{}

	n, err := tx.CountAliases(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		for _, a := range aliases {
			row := &Alias{Alias: a.Alias, Canonical: a.Canonical, Priority: a.Priority}
			if err := tx.UpsertAlias(ctx, row); err != nil {
				return nil, err
			}
			result.Aliases++
		}
	}

	n, err = tx.CountGuides(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		for _, g := range guides {
			row, err := FromTypesGuide(g)
			if err != nil {
				return nil, err
			}
			if err := tx.UpsertGuide(ctx, row); err != nil {
				return nil, err
			}
			result.Guides++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit seed: %w", err)
	}
	return result, nil
}

// LoadGuides returns every stored guide as a types.RepairGuide
func LoadGuides(ctx context.Context, s Storage) ([]types.RepairGuide, error) {
	rows, err := s.ListGuides(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list guides: %w", err)
	}

	guides := make([]types.RepairGuide, 0, len(rows))
	for _, row := range rows {
		g, err := row.ToTypesGuide()
		if err != nil {
			return nil, err
		}
		guides = append(guides, g)
	}
	return guides, nil
}
