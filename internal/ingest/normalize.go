package ingest

import (
	"fmt"
	"strings"

	"github.com/djvirus9/secops-dashboard/internal/models"
	"github.com/djvirus9/secops-dashboard/internal/parsers"
)

// baseSeverityMap translates the vocabulary scanners actually emit onto
// the canonical 5-level enum. Unmapped values clamp to info.
var baseSeverityMap = map[string]models.Severity{
	"critical":      models.SeverityCritical,
	"crit":          models.SeverityCritical,
	"5":             models.SeverityCritical,
	"high":          models.SeverityHigh,
	"4":             models.SeverityHigh,
	"error":         models.SeverityHigh,
	"medium":        models.SeverityMedium,
	"med":           models.SeverityMedium,
	"moderate":      models.SeverityMedium,
	"3":             models.SeverityMedium,
	"warning":       models.SeverityMedium,
	"low":           models.SeverityLow,
	"2":             models.SeverityLow,
	"info":          models.SeverityInfo,
	"informational": models.SeverityInfo,
	"note":          models.SeverityInfo,
	"1":             models.SeverityInfo,
	"0":             models.SeverityInfo,
	"none":          models.SeverityInfo,
	"unknown":       models.SeverityInfo,
}

// UnknownAssetKey is the synthetic key used when a record names no
// asset and the import supplies no default.
const UnknownAssetKey = "unknown"

// Normalizer converts raw parser records into canonical drafts. It is a
// pure transform: asset resolution happens later in the engine.
type Normalizer struct {
	// overrides maps tool name -> raw severity -> canonical severity,
	// consulted before the base table.
	overrides map[string]map[string]models.Severity
}

// NewNormalizer creates a normalizer with optional per-tool severity
// overrides (tool -> raw value -> canonical level).
func NewNormalizer(overrides map[string]map[string]models.Severity) *Normalizer {
	return &Normalizer{overrides: overrides}
}

// MapSeverity resolves a tool-reported severity string to the canonical
// enum, preferring per-tool overrides and clamping unknowns to info.
func (n *Normalizer) MapSeverity(tool, raw string) models.Severity {
	key := strings.ToLower(strings.TrimSpace(raw))
	if n != nil && n.overrides != nil {
		if table, ok := n.overrides[strings.ToLower(tool)]; ok {
			if sev, ok := table[key]; ok {
				return sev
			}
		}
	}
	if sev, ok := baseSeverityMap[key]; ok {
		return sev
	}
	return models.SeverityInfo
}

// Normalize converts one raw record into a finding draft, applying
// policy defaults for every missing optional field. It never fails.
func (n *Normalizer) Normalize(rec parsers.RawRecord, tool, defaultAssetKey string) models.FindingDraft {
	if rec.Tool != "" {
		tool = rec.Tool
	}
	tool = strings.ToLower(strings.TrimSpace(tool))
	if tool == "" {
		tool = "unknown"
	}

	title := strings.TrimSpace(rec.Title)
	if title == "" {
		if rec.RuleID != "" {
			title = fmt.Sprintf("Finding %s", rec.RuleID)
		} else {
			title = "Untitled finding"
		}
	}

	assetKey := models.NormalizeAssetKey(rec.Asset)
	if assetKey == "" {
		assetKey = models.NormalizeAssetKey(defaultAssetKey)
	}
	if assetKey == "" {
		assetKey = UnknownAssetKey
	}

	return models.FindingDraft{
		Tool:        tool,
		Title:       title,
		Severity:    n.MapSeverity(tool, rec.Severity),
		AssetKey:    assetKey,
		RuleID:      strings.TrimSpace(rec.RuleID),
		Description: rec.Description,
		Exposure:    models.ExposureInternal,
		Criticality: models.CriticalityMedium,
	}
}
