package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/djvirus9/secops-dashboard/internal/ingest"
	"github.com/djvirus9/secops-dashboard/internal/models"
	"github.com/djvirus9/secops-dashboard/internal/store"
)

// AssetHandlers serves the asset directory endpoints.
type AssetHandlers struct {
	store *store.Store
}

func NewAssetHandlers(s *store.Store) *AssetHandlers {
	return &AssetHandlers{store: s}
}

// HandleAssets lists the asset directory.
func (h *AssetHandlers) HandleAssets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}
	assets, err := h.store.ListAssets(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

type upsertAssetRequest struct {
	Key         string             `json:"key"`
	Name        string             `json:"name"`
	Environment models.Environment `json:"environment"`
	Owner       string             `json:"owner"`
	Criticality models.Criticality `json:"criticality"`
	Exposure    models.Exposure    `json:"exposure"`
}

// HandleUpsert creates or updates a directory entry. Existing findings
// for the asset pick up the new exposure and criticality, and their
// risk scores are recomputed.
func (h *AssetHandlers) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}

	var req upsertAssetRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}
	if models.NormalizeAssetKey(req.Key) == "" {
		writeErrorResponse(w, http.StatusBadRequest, "validation", "key is required", nil)
		return
	}

	asset, err := h.store.UpsertAsset(r.Context(), models.Asset{
		Key:         req.Key,
		Name:        req.Name,
		Environment: req.Environment,
		Owner:       req.Owner,
		Criticality: req.Criticality,
		Exposure:    req.Exposure,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.rescoreFindings(r, asset); err != nil {
		// The directory update already committed; rescoring mishaps
		// only leave scores stale until the next occurrence.
		log.Error().Err(err).Str("asset", asset.Key).Msg("Failed to rescore findings after asset upsert")
	}

	writeJSON(w, http.StatusOK, asset)
}

func (h *AssetHandlers) rescoreFindings(r *http.Request, asset models.Asset) error {
	findings, err := h.store.ListFindings(r.Context(), store.FindingFilter{AssetKey: asset.Key})
	if err != nil {
		return err
	}
	for _, f := range findings {
		f.Exposure = asset.Exposure
		f.Criticality = asset.Criticality
		f.RiskScore = ingest.Score(f.Severity, f.Exposure, f.Criticality, f.Occurrences)
		if err := h.store.UpdateFinding(r.Context(), f); err != nil {
			return err
		}
	}
	return nil
}
