package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/djvirus9/secops-dashboard/internal/ingest"
	"github.com/djvirus9/secops-dashboard/internal/parsers"
)

// maxImportSize caps an import body at 32MB; scanner reports beyond
// that are almost always a mistake.
const maxImportSize = 32 << 20

// IngestHandlers serves the ingestion endpoints.
type IngestHandlers struct {
	service  *ingest.Service
	registry *parsers.Registry
}

func NewIngestHandlers(service *ingest.Service, registry *parsers.Registry) *IngestHandlers {
	return &IngestHandlers{service: service, registry: registry}
}

// HandleSignal accepts one manually submitted finding.
func (h *IngestHandlers) HandleSignal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}

	var req ingest.SignalRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}

	finding, err := h.service.IngestOne(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, finding)
}

// importRequest is the JSON envelope form of an import: the report as
// a string plus optional parser and default asset overrides.
type importRequest struct {
	Content      string `json:"content"`
	Parser       string `json:"parser"`
	DefaultAsset string `json:"default_asset"`
}

// HandleImport runs a scanner report through the parser registry.
// Clients either post the raw report as the body (with optional
// parser and asset query parameters) or post an importRequest
// envelope. The envelope form is detected by a successful decode with
// a non-empty content field.
func (h *IngestHandlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}

	content, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Failed to read request body", nil)
		return
	}
	if len(content) == 0 {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Empty request body", nil)
		return
	}

	parserName := r.URL.Query().Get("parser")
	assetKey := r.URL.Query().Get("asset")

	var envelope importRequest
	if err := json.Unmarshal(content, &envelope); err == nil && envelope.Content != "" {
		content = []byte(envelope.Content)
		if envelope.Parser != "" {
			parserName = envelope.Parser
		}
		if envelope.DefaultAsset != "" {
			assetKey = envelope.DefaultAsset
		}
	}

	result, err := h.service.ImportBatch(r.Context(), parserName, assetKey, content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleParsers lists the registered parsers.
func (h *IngestHandlers) HandleParsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.registry.List())
}
