package ingest

import (
	"math/bits"

	"github.com/djvirus9/secops-dashboard/internal/models"
)

var severityBase = map[models.Severity]int{
	models.SeverityInfo:     5,
	models.SeverityLow:      20,
	models.SeverityMedium:   40,
	models.SeverityHigh:     60,
	models.SeverityCritical: 80,
}

var criticalityBonus = map[models.Criticality]int{
	models.CriticalityLow:    0,
	models.CriticalityMedium: 4,
	models.CriticalityHigh:   8,
}

const (
	internetBonus        = 8
	occurrenceBonusStep  = 4
	occurrenceBonusLimit = 12
)

// Score maps a finding's attributes to a 0-100 risk score. It is
// non-decreasing in severity, exposure, criticality, and occurrence
// count; repeated detections add a logarithmic bonus so volume alone
// cannot outrank severity.
func Score(severity models.Severity, exposure models.Exposure, criticality models.Criticality, occurrences int) int {
	score := severityBase[severity]
	if score == 0 {
		score = severityBase[models.SeverityInfo]
	}

	if exposure == models.ExposureInternet {
		score += internetBonus
	}
	score += criticalityBonus[criticality]

	if occurrences > 1 {
		bonus := occurrenceBonusStep * (bits.Len(uint(occurrences)) - 1)
		if bonus > occurrenceBonusLimit {
			bonus = occurrenceBonusLimit
		}
		score += bonus
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
