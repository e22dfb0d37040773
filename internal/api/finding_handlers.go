package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/djvirus9/secops-dashboard/internal/models"
	"github.com/djvirus9/secops-dashboard/internal/store"
	"github.com/djvirus9/secops-dashboard/internal/triage"
)

// FindingHandlers serves the finding list, detail, triage and comment
// endpoints.
type FindingHandlers struct {
	store  *store.Store
	triage *triage.Service
}

func NewFindingHandlers(s *store.Store, t *triage.Service) *FindingHandlers {
	return &FindingHandlers{store: s, triage: t}
}

// HandleFindings lists findings with optional filters.
func (h *FindingHandlers) HandleFindings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}

	q := r.URL.Query()
	filter := store.FindingFilter{
		Status:   models.Status(q.Get("status")),
		Severity: models.Severity(q.Get("severity")),
		AssetKey: q.Get("asset"),
		Tool:     q.Get("tool"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeErrorResponse(w, http.StatusBadRequest, "validation", "Unknown status filter", nil)
		return
	}
	if filter.Severity != "" && !filter.Severity.Valid() {
		writeErrorResponse(w, http.StatusBadRequest, "validation", "Unknown severity filter", nil)
		return
	}
	if v := q.Get("min_risk"); v != "" {
		minRisk, err := strconv.Atoi(v)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "validation", "min_risk must be an integer", nil)
			return
		}
		filter.MinRisk = minRisk
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "validation", "limit must be an integer", nil)
			return
		}
		filter.Limit = limit
	}

	findings, err := h.store.ListFindings(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, findings)
}

// HandleFinding routes /api/findings/{id} and /api/findings/{id}/comments.
func (h *FindingHandlers) HandleFinding(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/findings/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		h.handleOne(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "comments":
		h.handleComments(w, r, parts[0])
	default:
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Not found", nil)
	}
}

func (h *FindingHandlers) handleOne(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		f, err := h.store.GetFinding(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if f == nil {
			writeErrorResponse(w, http.StatusNotFound, "not_found", "Finding not found", nil)
			return
		}
		writeJSON(w, http.StatusOK, f)

	case http.MethodPatch, http.MethodPut:
		var req triage.UpdateRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
			return
		}
		f, err := h.triage.Update(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, f)

	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	}
}

type commentRequest struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

func (h *FindingHandlers) handleComments(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		comments, err := h.triage.Comments(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comments)

	case http.MethodPost:
		var req commentRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
			return
		}
		comment, err := h.triage.AddComment(r.Context(), id, req.Author, req.Content)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, comment)

	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	}
}
