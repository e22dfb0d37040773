package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	ingesterrors "github.com/djvirus9/secops-dashboard/internal/errors"
	"github.com/djvirus9/secops-dashboard/internal/models"
)

// Store is the persistence surface the correlation engine needs.
// The sqlite store satisfies it; tests substitute an in-memory one.
type Store interface {
	EnsureAsset(ctx context.Context, key string, exposure models.Exposure, criticality models.Criticality) (models.Asset, error)
	FindingByFingerprint(ctx context.Context, fingerprint string) (*models.Finding, error)
	CreateFinding(ctx context.Context, f models.Finding) error
	UpdateFinding(ctx context.Context, f models.Finding) error
}

// UpsertResult reports what the engine did with one normalized record.
type UpsertResult struct {
	Finding          models.Finding
	IsNew            bool
	PreviousSeverity models.Severity
}

// Engine correlates normalized findings by fingerprint. A per-key
// mutex arena serializes concurrent upserts for the same fingerprint;
// the store's unique indexes back that up across processes, and a
// bounded retry absorbs the resulting constraint races.
type Engine struct {
	store Store
	locks keyedMutex

	now   func() time.Time
	newID func() string
}

func NewEngine(store Store) *Engine {
	return &Engine{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

const upsertRetries = 3

// Upsert creates a finding for a never-seen fingerprint or folds the
// record into the existing one: occurrences increment, last_seen and
// the descriptive fields refresh, and the risk score is recomputed
// from the latest evidence. Triage state (status, assignee) is never
// touched on a repeat.
func (e *Engine) Upsert(ctx context.Context, draft models.FindingDraft, signalID string) (UpsertResult, error) {
	fp := Fingerprint(draft)

	asset, err := e.store.EnsureAsset(ctx, models.NormalizeAssetKey(draft.AssetKey), draft.Exposure, draft.Criticality)
	if err != nil {
		return UpsertResult{}, ingesterrors.New(ingesterrors.ErrorTypeInternal, "ingest.upsert", err)
	}

	mu := e.locks.lock(fp)
	defer mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < upsertRetries; attempt++ {
		res, err := e.upsertOnce(ctx, draft, fp, asset, signalID)
		if err == nil {
			return res, nil
		}
		if ingesterrors.TypeOf(err) != ingesterrors.ErrorTypeConflict {
			return UpsertResult{}, err
		}
		// Another writer created the row between our lookup and
		// insert. Re-read and fold into it.
		lastErr = err
		log.Debug().Str("fingerprint", fp).Int("attempt", attempt+1).Msg("Upsert lost insert race, retrying")
	}
	return UpsertResult{}, lastErr
}

func (e *Engine) upsertOnce(ctx context.Context, draft models.FindingDraft, fp string, asset models.Asset, signalID string) (UpsertResult, error) {
	existing, err := e.store.FindingByFingerprint(ctx, fp)
	if err != nil {
		return UpsertResult{}, ingesterrors.New(ingesterrors.ErrorTypeInternal, "ingest.upsert", err)
	}
	now := e.now().UTC()

	if existing == nil {
		f := models.Finding{
			ID:          e.newID(),
			Fingerprint: fp,
			Tool:        draft.Tool,
			Title:       draft.Title,
			Severity:    draft.Severity,
			AssetKey:    asset.Key,
			AssetID:     asset.ID,
			Exposure:    draft.Exposure,
			Criticality: draft.Criticality,
			Status:      models.StatusOpen,
			Occurrences: 1,
			FirstSeen:   now,
			LastSeen:    now,
			SignalID:    signalID,
		}
		f.RiskScore = Score(f.Severity, f.Exposure, f.Criticality, f.Occurrences)
		if err := e.store.CreateFinding(ctx, f); err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{Finding: f, IsNew: true}, nil
	}

	prev := existing.Severity
	f := *existing
	f.Title = draft.Title
	f.Severity = draft.Severity
	f.Exposure = draft.Exposure
	f.Criticality = draft.Criticality
	f.Occurrences++
	f.LastSeen = now
	f.SignalID = signalID
	// Not ratcheted: a downgraded severity lowers the score.
	f.RiskScore = Score(f.Severity, f.Exposure, f.Criticality, f.Occurrences)
	if err := e.store.UpdateFinding(ctx, f); err != nil {
		return UpsertResult{}, ingesterrors.New(ingesterrors.ErrorTypeInternal, "ingest.upsert", err)
	}
	return UpsertResult{Finding: f, IsNew: false, PreviousSeverity: prev}, nil
}
