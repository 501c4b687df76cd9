// Package catalog embeds the curated device aliases and offline repair guides
// that seed a fresh database.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dshills/repairsearch-mcp/pkg/types"
)

//go:embed aliases.yaml
var aliasesYAML []byte

//go:embed guides.yaml
var guidesYAML []byte

type aliasFile struct {
	Devices []struct {
		Canonical string   `yaml:"canonical"`
		Priority  int      `yaml:"priority"`
		Aliases   []string `yaml:"aliases"`
	} `yaml:"devices"`
}

type guideFile struct {
	Guides []struct {
		ID           string   `yaml:"id"`
		Title        string   `yaml:"title"`
		Device       string   `yaml:"device"`
		Category     string   `yaml:"category"`
		URL          string   `yaml:"url"`
		Difficulty   string   `yaml:"difficulty"`
		SuccessRate  float64  `yaml:"success_rate"`
		TimeEstimate string   `yaml:"time_estimate"`
		CostEstimate string   `yaml:"cost_estimate"`
		Tools        []string `yaml:"tools"`
		Parts        []string `yaml:"parts"`
		Steps        []struct {
			Title       string `yaml:"title"`
			Description string `yaml:"description"`
		} `yaml:"steps"`
		Warnings []string `yaml:"warnings"`
		Tips     []string `yaml:"tips"`
	} `yaml:"guides"`
}

// Aliases returns the embedded alias table
func Aliases() ([]types.DeviceAlias, error) {
	return ParseAliases(aliasesYAML)
}

// Guides returns the embedded offline guides
func Guides() ([]types.RepairGuide, error) {
	return ParseGuides(guidesYAML)
}

// LoadAliasesFile reads an alias table in the embedded format from disk
func LoadAliasesFile(path string) ([]types.DeviceAlias, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file: %w", err)
	}
	return ParseAliases(data)
}

// LoadGuidesFile reads offline guides in the embedded format from disk
func LoadGuidesFile(path string) ([]types.RepairGuide, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read guide file: %w", err)
	}
	return ParseGuides(data)
}

// ParseAliases decodes an alias document.
// Each device contributes one DeviceAlias per listed alias.
func ParseAliases(data []byte) ([]types.DeviceAlias, error) {
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse aliases: %w", err)
	}

	var out []types.DeviceAlias
	for _, d := range f.Devices {
		for _, a := range d.Aliases {
			alias := types.DeviceAlias{Alias: a, Canonical: d.Canonical, Priority: d.Priority}
			if err := alias.Validate(); err != nil {
				return nil, fmt.Errorf("device %q: %w", d.Canonical, err)
			}
			out = append(out, alias)
		}
	}
	return out, nil
}

// ParseGuides decodes a guide document into offline RepairGuides
func ParseGuides(data []byte) ([]types.RepairGuide, error) {
	var f guideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse guides: %w", err)
	}

	out := make([]types.RepairGuide, 0, len(f.Guides))
	for _, g := range f.Guides {
		guide := types.RepairGuide{
			ID:           g.ID,
			Title:        g.Title,
			Source:       types.SourceOffline,
			DeviceID:     g.Device,
			Category:     g.Category,
			URL:          g.URL,
			Difficulty:   g.Difficulty,
			SuccessRate:  g.SuccessRate,
			TimeEstimate: g.TimeEstimate,
			CostEstimate: g.CostEstimate,
			Tools:        g.Tools,
			Parts:        g.Parts,
			Warnings:     g.Warnings,
			Tips:         g.Tips,
		}
		for i, s := range g.Steps {
			guide.Steps = append(guide.Steps, types.GuideStep{
				Number:      i + 1,
				Title:       s.Title,
				Description: s.Description,
			})
		}
		if err := guide.Validate(); err != nil {
			return nil, fmt.Errorf("guide %q: %w", g.ID, err)
		}
		out = append(out, guide)
	}
	return out, nil
}
