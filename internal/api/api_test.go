package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djvirus9/secops-dashboard/internal/ingest"
	"github.com/djvirus9/secops-dashboard/internal/models"
	"github.com/djvirus9/secops-dashboard/internal/parsers"
	"github.com/djvirus9/secops-dashboard/internal/store"
	"github.com/djvirus9/secops-dashboard/internal/triage"
)

func setupServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := parsers.Default()
	svc := ingest.NewService(st, registry, ingest.NewNormalizer(nil))

	router := NewRouter(Deps{
		Store:    st,
		Registry: registry,
		Ingest:   svc,
		Triage:   triage.NewService(st),
		Version:  "test",
	})

	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func postSignal(t *testing.T, srv *httptest.Server, title, severity string) models.Finding {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/signal", ingest.SignalRequest{
		Tool:     "manual",
		Title:    title,
		Severity: severity,
		Asset:    "api-gateway",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[models.Finding](t, resp)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	health := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "test", health["version"])
}

func TestSignalEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	f := postSignal(t, srv, "SQL injection in login", "high")
	assert.Equal(t, models.SeverityHigh, f.Severity)
	assert.Equal(t, "api-gateway", f.AssetKey)
	assert.Equal(t, 1, f.Occurrences)

	// Same signal again deduplicates.
	again := postSignal(t, srv, "SQL injection in login", "high")
	assert.Equal(t, f.ID, again.ID)
	assert.Equal(t, 2, again.Occurrences)
}

func TestSignalValidationError(t *testing.T) {
	srv, _ := setupServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/signal", map[string]string{"title": "no tool"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	apiErr := decode[APIError](t, resp)
	assert.Equal(t, "validation", apiErr.Code)
	assert.Contains(t, apiErr.ErrorMessage, "tool is required")
}

func TestSignalInvalidJSON(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Post(srv.URL+"/api/signal", "application/json", bytes.NewBufferString("{broken"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImportEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	report := `{"template-id":"exposed-panel","info":{"name":"Admin Panel Exposed","severity":"high"},"host":"https://ops.example.com"}` + "\n"
	resp, err := http.Post(srv.URL+"/api/import", "application/json", bytes.NewBufferString(report))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[ingest.ImportResult](t, resp)
	assert.Equal(t, "nuclei", result.Parser)
	assert.Equal(t, 1, result.NewFindings)
}

func TestImportEnvelopeForm(t *testing.T) {
	srv, _ := setupServer(t)

	report := `{"template-id":"exposed-panel","info":{"name":"Admin Panel Exposed","severity":"high"},"host":"https://ops.example.com"}` + "\n"
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/import", map[string]string{
		"content":       report,
		"parser":        "nuclei",
		"default_asset": "Edge-Proxy",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[ingest.ImportResult](t, resp)
	assert.Equal(t, "nuclei", result.Parser)
	assert.Equal(t, 1, result.NewFindings)
}

func TestImportUnknownFormat(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Post(srv.URL+"/api/import", "text/plain", bytes.NewBufferString("no scanner wrote this"))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	apiErr := decode[APIError](t, resp)
	assert.Equal(t, "unknown_format", apiErr.Code)
}

func TestImportEmptyBody(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Post(srv.URL+"/api/import", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFindingsListAndFilters(t *testing.T) {
	srv, _ := setupServer(t)

	postSignal(t, srv, "Critical RCE", "critical")
	postSignal(t, srv, "Low severity note", "low")

	resp, err := http.Get(srv.URL + "/api/findings")
	require.NoError(t, err)
	all := decode[[]models.Finding](t, resp)
	require.Len(t, all, 2)
	assert.Equal(t, models.SeverityCritical, all[0].Severity, "riskiest first")

	resp, err = http.Get(srv.URL + "/api/findings?severity=low")
	require.NoError(t, err)
	filtered := decode[[]models.Finding](t, resp)
	assert.Len(t, filtered, 1)

	resp, err = http.Get(srv.URL + "/api/findings?severity=bogus")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFindingDetailAndNotFound(t *testing.T) {
	srv, _ := setupServer(t)
	f := postSignal(t, srv, "Open redirect", "medium")

	resp, err := http.Get(srv.URL + "/api/findings/" + f.ID)
	require.NoError(t, err)
	got := decode[models.Finding](t, resp)
	assert.Equal(t, f.Fingerprint, got.Fingerprint)

	resp, err = http.Get(srv.URL + "/api/findings/no-such-id")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriageUpdateAndComments(t *testing.T) {
	srv, _ := setupServer(t)
	f := postSignal(t, srv, "Weak cipher suite", "high")

	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/findings/"+f.ID, map[string]any{
		"status":   "investigating",
		"assignee": "alice",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[models.Finding](t, resp)
	assert.Equal(t, models.StatusInvestigating, updated.Status)
	assert.Equal(t, "alice", updated.Assignee)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/findings/"+f.ID+"/comments", map[string]string{
		"author":  "alice",
		"content": "Reproduced against staging",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/findings/" + f.ID + "/comments")
	require.NoError(t, err)
	comments := decode[[]models.Comment](t, resp)
	require.Len(t, comments, 3, "two audit entries plus one user comment")
	assert.Equal(t, triage.SystemAuthor, comments[0].Author)
	assert.Equal(t, "Reproduced against staging", comments[2].Content)
}

func TestCommentValidationError(t *testing.T) {
	srv, _ := setupServer(t)
	f := postSignal(t, srv, "Anything", "high")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/findings/"+f.ID+"/comments", map[string]string{
		"author": "alice",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParsersEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/parsers")
	require.NoError(t, err)
	infos := decode[[]parsers.Info](t, resp)
	assert.Len(t, infos, 18)
}

func TestAssetUpsertRescoresFindings(t *testing.T) {
	srv, _ := setupServer(t)
	f := postSignal(t, srv, "Exposed debug endpoint", "high")
	originalScore := f.RiskScore

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/assets/upsert", map[string]string{
		"key":         "api-gateway",
		"name":        "API Gateway",
		"environment": "prod",
		"criticality": "high",
		"exposure":    "internet",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	asset := decode[models.Asset](t, resp)
	assert.Equal(t, models.ExposureInternet, asset.Exposure)

	resp, err := http.Get(srv.URL + "/api/findings/" + f.ID)
	require.NoError(t, err)
	rescored := decode[models.Finding](t, resp)
	assert.Greater(t, rescored.RiskScore, originalScore)
	assert.Equal(t, models.ExposureInternet, rescored.Exposure)
}

func TestAssetUpsertRequiresKey(t *testing.T) {
	srv, _ := setupServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/assets/upsert", map[string]string{"name": "x"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRiskEndpoints(t *testing.T) {
	srv, _ := setupServer(t)
	postSignal(t, srv, "Critical RCE", "critical")
	postSignal(t, srv, "Medium misconfig", "medium")

	resp, err := http.Get(srv.URL + "/api/risks")
	require.NoError(t, err)
	summary := decode[store.RiskSummary](t, resp)
	assert.Equal(t, 2, summary.TotalFindings)
	assert.Equal(t, 2, summary.OpenFindings)
	assert.Equal(t, 1, summary.BySeverity[models.SeverityCritical])

	resp, err = http.Get(srv.URL + "/api/risks/assets")
	require.NoError(t, err)
	risks := decode[[]store.AssetRisk](t, resp)
	require.Len(t, risks, 1)
	assert.Equal(t, "api-gateway", risks[0].AssetKey)
	assert.Equal(t, 2, risks[0].OpenFindings)
}

func TestIntegrationsStatusUnconfigured(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/integrations")
	require.NoError(t, err)
	status := decode[map[string]bool](t, resp)
	assert.False(t, status["slack_configured"])
	assert.False(t, status["jira_configured"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/signal")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsEndpointExposed(t *testing.T) {
	srv, _ := setupServer(t)

	// Generate a request so counters exist.
	_, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNormalizeRoute(t *testing.T) {
	assert.Equal(t, "/api/findings/:id", normalizeRoute("/api/findings/abc-123"))
	assert.Equal(t, "/api/findings/:id/comments", normalizeRoute(fmt.Sprintf("/api/findings/%s/comments", "abc")))
	assert.Equal(t, "/api/health", normalizeRoute("/api/health"))
}
