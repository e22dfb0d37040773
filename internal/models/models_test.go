package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRankOrdering(t *testing.T) {
	assert.Less(t, SeverityInfo.Rank(), SeverityLow.Rank())
	assert.Less(t, SeverityLow.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityCritical.Rank())
}

func TestSeverityValid(t *testing.T) {
	assert.True(t, SeverityCritical.Valid())
	assert.False(t, Severity("extreme").Valid())
	assert.False(t, Severity("").Valid())
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusInvestigating, StatusResolved, StatusClosed} {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("archived").Valid())
}

func TestNormalizeAssetKey(t *testing.T) {
	assert.Equal(t, "api-gateway", NormalizeAssetKey("  API-Gateway "))
	assert.Equal(t, "", NormalizeAssetKey("   "))
}
