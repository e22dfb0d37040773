package store

import (
	"context"
	"fmt"

	"github.com/djvirus9/secops-dashboard/internal/models"
)

// RiskSummary aggregates the open risk posture across all findings.
type RiskSummary struct {
	TotalFindings int                     `json:"total_findings"`
	OpenFindings  int                     `json:"open_findings"`
	BySeverity    map[models.Severity]int `json:"by_severity"`
	ByStatus      map[models.Status]int   `json:"by_status"`
	AverageRisk   float64                 `json:"average_risk"`
	MaxRisk       int                     `json:"max_risk"`
}

// AssetRisk is the per-asset rollup reported by the risk endpoints.
type AssetRisk struct {
	AssetKey     string             `json:"asset"`
	Name         string             `json:"name"`
	Exposure     models.Exposure    `json:"exposure"`
	Criticality  models.Criticality `json:"criticality"`
	OpenFindings int                `json:"open_findings"`
	TotalRisk    int                `json:"total_risk"`
	MaxRisk      int                `json:"max_risk"`
}

// GetRiskSummary computes the overall posture. Resolved and closed
// findings count in totals but not in the open severity breakdown.
func (s *Store) GetRiskSummary(ctx context.Context) (RiskSummary, error) {
	summary := RiskSummary{
		BySeverity: map[models.Severity]int{},
		ByStatus:   map[models.Status]int{},
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM findings GROUP BY status`)
	if err != nil {
		return summary, fmt.Errorf("risk summary by status: %w", err)
	}
	for rows.Next() {
		var status models.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return summary, err
		}
		summary.ByStatus[status] = count
		summary.TotalFindings += count
		if status == models.StatusOpen || status == models.StatusInvestigating {
			summary.OpenFindings += count
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return summary, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT severity, COUNT(*) FROM findings
		WHERE status IN ('open', 'investigating') GROUP BY severity`)
	if err != nil {
		return summary, fmt.Errorf("risk summary by severity: %w", err)
	}
	for rows.Next() {
		var sev models.Severity
		var count int
		if err := rows.Scan(&sev, &count); err != nil {
			rows.Close()
			return summary, err
		}
		summary.BySeverity[sev] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return summary, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(risk_score), 0), COALESCE(MAX(risk_score), 0)
		FROM findings WHERE status IN ('open', 'investigating')`)
	if err := row.Scan(&summary.AverageRisk, &summary.MaxRisk); err != nil {
		return summary, fmt.Errorf("risk summary aggregates: %w", err)
	}
	return summary, nil
}

// GetAssetRisks rolls open findings up per asset, riskiest first.
func (s *Store) GetAssetRisks(ctx context.Context) ([]AssetRisk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.asset_key, COALESCE(a.name, f.asset_key), COALESCE(a.exposure, 'internal'),
			COALESCE(a.criticality, 'medium'),
			COUNT(*), SUM(f.risk_score), MAX(f.risk_score)
		FROM findings f
		LEFT JOIN assets a ON a.key = f.asset_key
		WHERE f.status IN ('open', 'investigating')
		GROUP BY f.asset_key
		ORDER BY SUM(f.risk_score) DESC`)
	if err != nil {
		return nil, fmt.Errorf("asset risks: %w", err)
	}
	defer rows.Close()

	risks := []AssetRisk{}
	for rows.Next() {
		var r AssetRisk
		if err := rows.Scan(&r.AssetKey, &r.Name, &r.Exposure, &r.Criticality,
			&r.OpenFindings, &r.TotalRisk, &r.MaxRisk); err != nil {
			return nil, fmt.Errorf("scan asset risk: %w", err)
		}
		risks = append(risks, r)
	}
	return risks, rows.Err()
}
