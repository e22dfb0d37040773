package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/djvirus9/secops-dashboard/internal/models"
)

func TestScoreBaseValues(t *testing.T) {
	assert.Equal(t, 5, Score(models.SeverityInfo, models.ExposureInternal, models.CriticalityLow, 1))
	assert.Equal(t, 20, Score(models.SeverityLow, models.ExposureInternal, models.CriticalityLow, 1))
	assert.Equal(t, 40, Score(models.SeverityMedium, models.ExposureInternal, models.CriticalityLow, 1))
	assert.Equal(t, 60, Score(models.SeverityHigh, models.ExposureInternal, models.CriticalityLow, 1))
	assert.Equal(t, 80, Score(models.SeverityCritical, models.ExposureInternal, models.CriticalityLow, 1))
}

func TestScoreBonuses(t *testing.T) {
	// Internet exposure adds 8, high criticality adds 8.
	assert.Equal(t, 76, Score(models.SeverityHigh, models.ExposureInternet, models.CriticalityHigh, 1))
	// Default criticality adds 4.
	assert.Equal(t, 64, Score(models.SeverityHigh, models.ExposureInternal, models.CriticalityMedium, 1))
}

func TestScoreOccurrenceBonusIsLogarithmic(t *testing.T) {
	base := Score(models.SeverityMedium, models.ExposureInternal, models.CriticalityLow, 1)
	assert.Equal(t, base+4, Score(models.SeverityMedium, models.ExposureInternal, models.CriticalityLow, 2))
	assert.Equal(t, base+8, Score(models.SeverityMedium, models.ExposureInternal, models.CriticalityLow, 4))
	assert.Equal(t, base+12, Score(models.SeverityMedium, models.ExposureInternal, models.CriticalityLow, 8))
	// Capped: volume alone cannot outrank severity.
	assert.Equal(t, base+12, Score(models.SeverityMedium, models.ExposureInternal, models.CriticalityLow, 10000))
}

func TestScoreClampsAt100(t *testing.T) {
	assert.Equal(t, 100, Score(models.SeverityCritical, models.ExposureInternet, models.CriticalityHigh, 100))
}

func TestScoreMonotonicInSeverity(t *testing.T) {
	order := []models.Severity{
		models.SeverityInfo, models.SeverityLow, models.SeverityMedium,
		models.SeverityHigh, models.SeverityCritical,
	}
	prev := -1
	for _, sev := range order {
		score := Score(sev, models.ExposureInternet, models.CriticalityHigh, 3)
		assert.Greater(t, score, prev, "severity %s must outrank the previous level", sev)
		prev = score
	}
}

func TestScoreUnknownSeverityTreatedAsInfo(t *testing.T) {
	assert.Equal(t, 5, Score(models.Severity("bogus"), models.ExposureInternal, models.CriticalityLow, 1))
}
