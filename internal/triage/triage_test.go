package triage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ingesterrors "github.com/djvirus9/secops-dashboard/internal/errors"
	"github.com/djvirus9/secops-dashboard/internal/models"
	"github.com/djvirus9/secops-dashboard/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store, models.Finding) {
	t.Helper()
	st, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	asset, err := st.EnsureAsset(ctx, "api-gateway", "", "")
	require.NoError(t, err)

	now := time.Now().UTC()
	f := models.Finding{
		ID:          uuid.NewString(),
		Fingerprint: "fp-1",
		Tool:        "semgrep",
		Title:       "SQL injection",
		Severity:    models.SeverityHigh,
		AssetKey:    asset.Key,
		AssetID:     asset.ID,
		Exposure:    models.ExposureInternal,
		Criticality: models.CriticalityMedium,
		Status:      models.StatusOpen,
		RiskScore:   64,
		Occurrences: 1,
		FirstSeen:   now,
		LastSeen:    now,
	}
	require.NoError(t, st.CreateFinding(ctx, f))

	return NewService(st), st, f
}

func statusPtr(s models.Status) *models.Status { return &s }
func strPtr(s string) *string                  { return &s }

func TestUpdateStatusAddsSystemComment(t *testing.T) {
	svc, st, f := newTestService(t)
	ctx := context.Background()

	updated, err := svc.Update(ctx, f.ID, UpdateRequest{Status: statusPtr(models.StatusResolved)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, updated.Status)

	comments, err := st.ListComments(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, SystemAuthor, comments[0].Author)
	assert.Equal(t, "update", comments[0].ActionType)
	assert.Equal(t, "Status changed from 'open' to 'resolved'", comments[0].Content)
}

func TestUpdateAssigneeComment(t *testing.T) {
	svc, st, f := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, f.ID, UpdateRequest{Assignee: strPtr("alice")})
	require.NoError(t, err)

	comments, err := st.ListComments(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Assignee changed from 'unassigned' to 'alice'", comments[0].Content)

	// Clearing the assignee reads as unassigned again.
	_, err = svc.Update(ctx, f.ID, UpdateRequest{Assignee: strPtr("")})
	require.NoError(t, err)

	comments, err = st.ListComments(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "Assignee changed from 'alice' to 'unassigned'", comments[1].Content)
}

func TestUpdateBothFieldsWritesTwoComments(t *testing.T) {
	svc, st, f := newTestService(t)
	ctx := context.Background()

	updated, err := svc.Update(ctx, f.ID, UpdateRequest{
		Status:   statusPtr(models.StatusInvestigating),
		Assignee: strPtr("bob"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInvestigating, updated.Status)
	assert.Equal(t, "bob", updated.Assignee)

	comments, err := st.ListComments(ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
}

func TestUpdateNoOpLeavesNoTrace(t *testing.T) {
	svc, st, f := newTestService(t)
	ctx := context.Background()

	// Same status, nil assignee: nothing changes.
	updated, err := svc.Update(ctx, f.ID, UpdateRequest{Status: statusPtr(models.StatusOpen)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, updated.Status)

	comments, err := st.ListComments(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	// Fully empty request is also a no-op.
	_, err = svc.Update(ctx, f.ID, UpdateRequest{})
	require.NoError(t, err)
	comments, err = st.ListComments(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestUpdateReopenAllowed(t *testing.T) {
	svc, _, f := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, f.ID, UpdateRequest{Status: statusPtr(models.StatusClosed)})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, f.ID, UpdateRequest{Status: statusPtr(models.StatusOpen)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, updated.Status)
}

func TestUpdateValidation(t *testing.T) {
	svc, _, f := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, f.ID, UpdateRequest{Status: statusPtr(models.Status("bogus"))})
	require.Error(t, err)
	assert.Equal(t, ingesterrors.ErrorTypeValidation, ingesterrors.TypeOf(err))

	_, err = svc.Update(ctx, "no-such-id", UpdateRequest{Status: statusPtr(models.StatusClosed)})
	require.Error(t, err)
	assert.Equal(t, ingesterrors.ErrorTypeNotFound, ingesterrors.TypeOf(err))
}

func TestAddComment(t *testing.T) {
	svc, _, f := newTestService(t)
	ctx := context.Background()

	c, err := svc.AddComment(ctx, f.ID, "alice", "Confirmed exploitable in staging")
	require.NoError(t, err)
	assert.Equal(t, "alice", c.Author)
	assert.Empty(t, c.ActionType, "user comments carry no action type")

	comments, err := svc.Comments(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Confirmed exploitable in staging", comments[0].Content)
}

func TestAddCommentValidation(t *testing.T) {
	svc, _, f := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, f.ID, "  ", "content")
	require.Error(t, err)
	assert.Equal(t, ingesterrors.ErrorTypeValidation, ingesterrors.TypeOf(err))

	_, err = svc.AddComment(ctx, f.ID, "alice", "")
	require.Error(t, err)
	assert.Equal(t, ingesterrors.ErrorTypeValidation, ingesterrors.TypeOf(err))

	_, err = svc.AddComment(ctx, "no-such-id", "alice", "content")
	require.Error(t, err)
	assert.Equal(t, ingesterrors.ErrorTypeNotFound, ingesterrors.TypeOf(err))
}

func TestAuditTrailInterleavesWithUserComments(t *testing.T) {
	svc, _, f := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, f.ID, "alice", "Looking into this")
	require.NoError(t, err)
	_, err = svc.Update(ctx, f.ID, UpdateRequest{Status: statusPtr(models.StatusInvestigating)})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, f.ID, "alice", "False positive, closing")
	require.NoError(t, err)
	_, err = svc.Update(ctx, f.ID, UpdateRequest{Status: statusPtr(models.StatusClosed)})
	require.NoError(t, err)

	comments, err := svc.Comments(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, comments, 4)
	assert.Equal(t, "Looking into this", comments[0].Content)
	assert.Equal(t, "Status changed from 'open' to 'investigating'", comments[1].Content)
	assert.Equal(t, "False positive, closing", comments[2].Content)
	assert.Equal(t, "Status changed from 'investigating' to 'closed'", comments[3].Content)
}
