package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/djvirus9/secops-dashboard/internal/models"
	"github.com/djvirus9/secops-dashboard/internal/parsers"
)

func TestMapSeverityBaseTable(t *testing.T) {
	n := NewNormalizer(nil)
	cases := map[string]models.Severity{
		"critical":      models.SeverityCritical,
		"CRIT":          models.SeverityCritical,
		"5":             models.SeverityCritical,
		"High":          models.SeverityHigh,
		"error":         models.SeverityHigh,
		"moderate":      models.SeverityMedium,
		"warning":       models.SeverityMedium,
		"  low  ":       models.SeverityLow,
		"informational": models.SeverityInfo,
		"note":          models.SeverityInfo,
		"none":          models.SeverityInfo,
		"":              models.SeverityInfo,
		"gibberish":     models.SeverityInfo,
	}
	for raw, want := range cases {
		assert.Equal(t, want, n.MapSeverity("any", raw), "raw severity %q", raw)
	}
}

func TestMapSeverityOverridesWin(t *testing.T) {
	n := NewNormalizer(map[string]map[string]models.Severity{
		"nuclei": {"unknown": models.SeverityLow},
	})
	assert.Equal(t, models.SeverityLow, n.MapSeverity("nuclei", "unknown"))
	// Other tools still use the base table.
	assert.Equal(t, models.SeverityInfo, n.MapSeverity("zap", "unknown"))
}

func TestNormalizeDefaults(t *testing.T) {
	n := NewNormalizer(nil)

	d := n.Normalize(parsers.RawRecord{}, "semgrep", "")
	assert.Equal(t, "semgrep", d.Tool)
	assert.Equal(t, "Untitled finding", d.Title)
	assert.Equal(t, models.SeverityInfo, d.Severity)
	assert.Equal(t, UnknownAssetKey, d.AssetKey)
	assert.Equal(t, models.ExposureInternal, d.Exposure)
	assert.Equal(t, models.CriticalityMedium, d.Criticality)
}

func TestNormalizeTitleFallsBackToRuleID(t *testing.T) {
	n := NewNormalizer(nil)
	d := n.Normalize(parsers.RawRecord{RuleID: "CKV_AWS_20"}, "checkov", "")
	assert.Equal(t, "Finding CKV_AWS_20", d.Title)
}

func TestNormalizeAssetResolution(t *testing.T) {
	n := NewNormalizer(nil)

	d := n.Normalize(parsers.RawRecord{Title: "x", Asset: "  API-Gateway "}, "zap", "fallback")
	assert.Equal(t, "api-gateway", d.AssetKey)

	d = n.Normalize(parsers.RawRecord{Title: "x"}, "zap", "Fallback-Svc")
	assert.Equal(t, "fallback-svc", d.AssetKey)
}

func TestNormalizeRecordToolWins(t *testing.T) {
	n := NewNormalizer(nil)
	d := n.Normalize(parsers.RawRecord{Title: "x", Tool: "Trivy"}, "generic-json", "")
	assert.Equal(t, "trivy", d.Tool)
}
