package ingest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ingesterrors "github.com/djvirus9/secops-dashboard/internal/errors"
	"github.com/djvirus9/secops-dashboard/internal/models"
	"github.com/djvirus9/secops-dashboard/internal/parsers"
	"github.com/djvirus9/secops-dashboard/internal/store"
)

type dispatchCall struct {
	finding models.Finding
	isNew   bool
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (d *recordingDispatcher) Dispatch(_ context.Context, f models.Finding, isNew bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{finding: f, isNew: isNew})
}

func newTestService(t *testing.T) (*Service, *store.Store, *recordingDispatcher) {
	t.Helper()
	st, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := NewService(st, parsers.Default(), NewNormalizer(nil))
	svc.syncDispatch = true
	disp := &recordingDispatcher{}
	svc.SetDispatcher(disp)
	return svc, st, disp
}

func signalReq(title string) SignalRequest {
	return SignalRequest{
		Tool:     "manual",
		Title:    title,
		Severity: "high",
		Asset:    "api-gateway",
		RuleID:   "rule-1",
	}
}

func TestIngestOneValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.IngestOne(ctx, SignalRequest{Title: "x"})
	require.Error(t, err)
	assert.Equal(t, ingesterrors.ErrorTypeValidation, ingesterrors.TypeOf(err))

	_, err = svc.IngestOne(ctx, SignalRequest{Tool: "manual", Title: "   "})
	require.Error(t, err)
	assert.Equal(t, ingesterrors.ErrorTypeValidation, ingesterrors.TypeOf(err))
}

func TestIngestOneCreatesFinding(t *testing.T) {
	svc, st, disp := newTestService(t)
	ctx := context.Background()

	f, err := svc.IngestOne(ctx, signalReq("SQL injection in login"))
	require.NoError(t, err)

	assert.NotEmpty(t, f.ID)
	assert.NotEmpty(t, f.Fingerprint)
	assert.Equal(t, "manual", f.Tool)
	assert.Equal(t, models.SeverityHigh, f.Severity)
	assert.Equal(t, "api-gateway", f.AssetKey)
	assert.Equal(t, models.StatusOpen, f.Status)
	assert.Equal(t, 1, f.Occurrences)
	assert.Equal(t, Score(models.SeverityHigh, models.ExposureInternal, models.CriticalityMedium, 1), f.RiskScore)
	assert.NotEmpty(t, f.SignalID)

	// The asset was created as a side effect.
	asset, err := st.GetAssetByKey(ctx, "api-gateway")
	require.NoError(t, err)
	assert.Equal(t, asset.ID, f.AssetID)

	require.Len(t, disp.calls, 1)
	assert.True(t, disp.calls[0].isNew)
}

func TestRepeatIngestDeduplicates(t *testing.T) {
	svc, st, disp := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.IngestOne(ctx, signalReq("Hardcoded AWS key"))
		require.NoError(t, err)
	}

	findings, err := st.ListFindings(ctx, store.FindingFilter{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, 5, findings[0].Occurrences)
	assert.False(t, findings[0].LastSeen.Before(findings[0].FirstSeen))

	require.Len(t, disp.calls, 5)
	assert.True(t, disp.calls[0].isNew)
	for _, call := range disp.calls[1:] {
		assert.False(t, call.isNew)
	}
}

func TestRepeatIngestPreservesTriage(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	f, err := svc.IngestOne(ctx, signalReq("Open redirect"))
	require.NoError(t, err)
	require.NoError(t, st.UpdateFindingTriage(ctx, f.ID, models.StatusInvestigating, "alice"))

	_, err = svc.IngestOne(ctx, signalReq("Open redirect"))
	require.NoError(t, err)

	got, err := st.GetFinding(ctx, f.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusInvestigating, got.Status)
	assert.Equal(t, "alice", got.Assignee)
	assert.Equal(t, 2, got.Occurrences)
}

func TestSeverityDowngradeLowersRisk(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	req := signalReq("TLS certificate issue")
	req.Severity = "critical"
	first, err := svc.IngestOne(ctx, req)
	require.NoError(t, err)

	req.Severity = "low"
	second, err := svc.IngestOne(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, models.SeverityLow, second.Severity)
	assert.Less(t, second.RiskScore, first.RiskScore)

	got, err := st.GetFinding(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, second.RiskScore, got.RiskScore)
}

func TestConcurrentIngestSameFinding(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.IngestOne(ctx, signalReq("Race-prone finding"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	findings, err := st.ListFindings(ctx, store.FindingFilter{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, workers, findings[0].Occurrences)
}

const nucleiReport = `{"template-id":"ssl-dns-names","info":{"name":"SSL DNS Names","severity":"info"},"host":"https://shop.example.com"}
{"template-id":"exposed-panel-grafana","info":{"name":"Grafana Panel Exposed","severity":"high"},"host":"https://grafana.example.com"}
`

func TestImportBatchNucleiAutoDetect(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.ImportBatch(ctx, "", "", []byte(nucleiReport))
	require.NoError(t, err)
	assert.Equal(t, "nuclei", result.Parser)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.NewFindings)
	assert.Equal(t, 0, result.Deduplicated)

	// Re-importing the same report changes nothing but counters.
	result, err = svc.ImportBatch(ctx, "", "", []byte(nucleiReport))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.NewFindings)
	assert.Equal(t, 2, result.Deduplicated)

	findings, err := st.ListFindings(ctx, store.FindingFilter{})
	require.NoError(t, err)
	assert.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, 2, f.Occurrences)
	}
}

func TestImportBatchUnknownFormat(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ImportBatch(context.Background(), "", "", []byte("plain text, no scanner wrote this"))
	require.Error(t, err)
	assert.Equal(t, ingesterrors.ErrorTypeUnknownFormat, ingesterrors.TypeOf(err))
}

func TestImportBatchUnknownParserName(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ImportBatch(context.Background(), "no-such-parser", "", []byte("{}"))
	require.Error(t, err)
	assert.Equal(t, ingesterrors.ErrorTypeParserNotFound, ingesterrors.TypeOf(err))
}

func TestImportBatchExplicitParserAndDefaultAsset(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	content := []byte(`{"findings":[{"title":"Weak password policy","severity":"medium"}]}`)
	result, err := svc.ImportBatch(ctx, "generic-json", "Identity-Service", content)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewFindings)

	findings, err := st.ListFindings(ctx, store.FindingFilter{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "identity-service", findings[0].AssetKey)
}
