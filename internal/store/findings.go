package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	ingesterrors "github.com/djvirus9/secops-dashboard/internal/errors"
	"github.com/djvirus9/secops-dashboard/internal/models"
)

const findingColumns = `id, fingerprint, tool, title, severity, asset_key, asset_id,
	exposure, criticality, status, assignee, risk_score, occurrences, first_seen, last_seen, signal_id`

// CreateFinding inserts a new finding. A fingerprint collision with a
// concurrent writer surfaces as a conflict error so the caller can
// re-read and fold instead.
func (s *Store) CreateFinding(ctx context.Context, f models.Finding) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO findings (`+findingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Fingerprint, f.Tool, f.Title, f.Severity, f.AssetKey, f.AssetID,
		f.Exposure, f.Criticality, f.Status, f.Assignee, f.RiskScore, f.Occurrences,
		f.FirstSeen, f.LastSeen, f.SignalID)
	if isUniqueViolation(err) {
		return ingesterrors.Newf(ingesterrors.ErrorTypeConflict, "store.finding", "fingerprint %s already exists", f.Fingerprint)
	}
	if err != nil {
		return fmt.Errorf("create finding: %w", err)
	}
	return nil
}

// UpdateFinding rewrites the mutable ingestion-side columns of an
// existing finding.
func (s *Store) UpdateFinding(ctx context.Context, f models.Finding) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE findings SET title = ?, severity = ?, asset_key = ?, asset_id = ?,
			exposure = ?, criticality = ?, risk_score = ?, occurrences = ?,
			last_seen = ?, signal_id = ?
		WHERE id = ?`,
		f.Title, f.Severity, f.AssetKey, f.AssetID,
		f.Exposure, f.Criticality, f.RiskScore, f.Occurrences,
		f.LastSeen, f.SignalID, f.ID)
	if err != nil {
		return fmt.Errorf("update finding %s: %w", f.ID, err)
	}
	return nil
}

// UpdateFindingTriage sets the triage-owned columns only.
func (s *Store) UpdateFindingTriage(ctx context.Context, id string, status models.Status, assignee string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE findings SET status = ?, assignee = ? WHERE id = ?`,
		status, assignee, id)
	if err != nil {
		return fmt.Errorf("update triage for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finding %s not found", id)
	}
	return nil
}

// FindingByFingerprint returns the finding with the given fingerprint,
// or nil when none exists.
func (s *Store) FindingByFingerprint(ctx context.Context, fingerprint string) (*models.Finding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+findingColumns+` FROM findings WHERE fingerprint = ?`, fingerprint)
	return scanOptionalFinding(row)
}

// GetFinding returns the finding by id, or nil when it does not exist.
func (s *Store) GetFinding(ctx context.Context, id string) (*models.Finding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+findingColumns+` FROM findings WHERE id = ?`, id)
	return scanOptionalFinding(row)
}

// FindingFilter narrows ListFindings. Zero values mean "no filter".
type FindingFilter struct {
	Status   models.Status
	Severity models.Severity
	AssetKey string
	Tool     string
	MinRisk  int
	Limit    int
}

// ListFindings returns findings sorted by risk score, then recency.
func (s *Store) ListFindings(ctx context.Context, filter FindingFilter) ([]models.Finding, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.AssetKey != "" {
		where = append(where, "asset_key = ?")
		args = append(args, models.NormalizeAssetKey(filter.AssetKey))
	}
	if filter.Tool != "" {
		where = append(where, "tool = ?")
		args = append(args, filter.Tool)
	}
	if filter.MinRisk > 0 {
		where = append(where, "risk_score >= ?")
		args = append(args, filter.MinRisk)
	}

	query := "SELECT " + findingColumns + " FROM findings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY risk_score DESC, last_seen DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	defer rows.Close()

	findings := []models.Finding{}
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

func scanFinding(row rowScanner) (models.Finding, error) {
	var f models.Finding
	err := row.Scan(&f.ID, &f.Fingerprint, &f.Tool, &f.Title, &f.Severity, &f.AssetKey, &f.AssetID,
		&f.Exposure, &f.Criticality, &f.Status, &f.Assignee, &f.RiskScore, &f.Occurrences,
		&f.FirstSeen, &f.LastSeen, &f.SignalID)
	if err != nil {
		return models.Finding{}, fmt.Errorf("scan finding: %w", err)
	}
	return f, nil
}

func scanOptionalFinding(row *sql.Row) (*models.Finding, error) {
	f, err := scanFinding(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}
