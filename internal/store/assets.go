package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/djvirus9/secops-dashboard/internal/models"
)

// EnsureAsset returns the asset for key, creating a stub record if one
// does not exist. INSERT OR IGNORE plus re-select makes concurrent
// callers converge on a single row.
func (s *Store) EnsureAsset(ctx context.Context, key string, exposure models.Exposure, criticality models.Criticality) (models.Asset, error) {
	key = models.NormalizeAssetKey(key)
	if key == "" {
		key = "unknown"
	}
	if exposure == "" {
		exposure = models.ExposureInternal
	}
	if criticality == "" {
		criticality = models.CriticalityMedium
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO assets (id, key, name, environment, owner, criticality, exposure, created_at, updated_at)
		VALUES (?, ?, ?, 'unknown', '', ?, ?, ?, ?)`,
		uuid.NewString(), key, key, criticality, exposure, now, now)
	if err != nil {
		return models.Asset{}, fmt.Errorf("ensure asset %q: %w", key, err)
	}
	return s.GetAssetByKey(ctx, key)
}

// GetAssetByKey loads one asset by its normalized key.
func (s *Store) GetAssetByKey(ctx context.Context, key string) (models.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, name, environment, owner, criticality, exposure, created_at, updated_at
		FROM assets WHERE key = ?`, models.NormalizeAssetKey(key))
	return scanAsset(row)
}

// UpsertAsset creates or updates the directory entry for a key. The
// supplied attributes win over whatever ingestion stubbed in.
func (s *Store) UpsertAsset(ctx context.Context, a models.Asset) (models.Asset, error) {
	key := models.NormalizeAssetKey(a.Key)
	if a.Name == "" {
		a.Name = key
	}
	if a.Environment == "" {
		a.Environment = models.EnvironmentUnknown
	}
	if a.Criticality == "" {
		a.Criticality = models.CriticalityMedium
	}
	if a.Exposure == "" {
		a.Exposure = models.ExposureInternal
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (id, key, name, environment, owner, criticality, exposure, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			environment = excluded.environment,
			owner = excluded.owner,
			criticality = excluded.criticality,
			exposure = excluded.exposure,
			updated_at = excluded.updated_at`,
		uuid.NewString(), key, a.Name, a.Environment, a.Owner, a.Criticality, a.Exposure, now, now)
	if err != nil {
		return models.Asset{}, fmt.Errorf("upsert asset %q: %w", key, err)
	}

	return s.GetAssetByKey(ctx, key)
}

// ListAssets returns the directory ordered by key.
func (s *Store) ListAssets(ctx context.Context) ([]models.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, name, environment, owner, criticality, exposure, created_at, updated_at
		FROM assets ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (models.Asset, error) {
	var a models.Asset
	err := row.Scan(&a.ID, &a.Key, &a.Name, &a.Environment, &a.Owner, &a.Criticality, &a.Exposure, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Asset{}, fmt.Errorf("asset not found")
	}
	if err != nil {
		return models.Asset{}, fmt.Errorf("scan asset: %w", err)
	}
	return a, nil
}
