package api

import (
	"net/http"

	"github.com/djvirus9/secops-dashboard/internal/store"
)

// RiskHandlers serves the risk rollup endpoints.
type RiskHandlers struct {
	store *store.Store
}

func NewRiskHandlers(s *store.Store) *RiskHandlers {
	return &RiskHandlers{store: s}
}

// HandleSummary returns the overall posture rollup.
func (h *RiskHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}
	summary, err := h.store.GetRiskSummary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleAssets returns the per-asset rollup, riskiest first.
func (h *RiskHandlers) HandleAssets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}
	risks, err := h.store.GetAssetRisks(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, risks)
}
