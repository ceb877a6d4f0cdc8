// internal/services/audit_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/models"
)

func TestAuditAppendIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()
	asset := createDraftAsset(t, env, admin, "Audit Probe")

	performedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	entry := func() *models.ApprovalHistoryEntry {
		return &models.ApprovalHistoryEntry{
			AssetID:       asset.ID,
			Action:        models.TransitionSubmit,
			PreviousState: models.StateDraft,
			NewState:      models.StateSubmitted,
			PerformedBy:   admin.ID,
			PerformedAt:   performedAt,
		}
	}

	require.NoError(t, env.audit.Append(ctx, entry()))

	// Replaying the identical write is a conflict, not a duplicate row
	err := env.audit.Append(ctx, entry())
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	entries, err := env.audit.History(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// A different action at the same instant is a distinct entry
	other := entry()
	other.Action = models.TransitionApprove
	other.PreviousState = models.StateSubmitted
	other.NewState = models.StateApproved
	require.NoError(t, env.audit.Append(ctx, other))

	entries, err = env.audit.History(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAuditHistoryIsOrderedAndComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()
	asset := createDraftAsset(t, env, admin, "Ordering Probe")

	base := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	// Insert out of chronological order
	writes := []struct {
		action models.TransitionKind
		at     time.Time
	}{
		{models.TransitionApprove, base.Add(2 * time.Minute)},
		{models.TransitionSubmit, base},
		{models.TransitionReject, base.Add(time.Minute)},
	}
	for _, w := range writes {
		require.NoError(t, env.audit.Append(ctx, &models.ApprovalHistoryEntry{
			AssetID:     asset.ID,
			Action:      w.action,
			PerformedBy: admin.ID,
			PerformedAt: w.at,
		}))
	}

	entries, err := env.audit.History(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.TransitionSubmit, entries[0].Action)
	assert.Equal(t, models.TransitionReject, entries[1].Action)
	assert.Equal(t, models.TransitionApprove, entries[2].Action)
	assert.True(t, entries[0].PerformedAt.Before(entries[1].PerformedAt))
	assert.True(t, entries[1].PerformedAt.Before(entries[2].PerformedAt))
}

func TestReplayHistory(t *testing.T) {
	entries := []models.ApprovalHistoryEntry{
		{Action: models.TransitionSubmit},
		{Action: models.TransitionReject},
		{Action: models.TransitionRevise},
		{Action: models.TransitionSubmit},
		{Action: models.TransitionApprove},
	}
	assert.Equal(t, models.StateApproved, models.ReplayHistory(entries))

	entries = append(entries, models.ApprovalHistoryEntry{Action: models.TransitionArchive})
	assert.Equal(t, models.StateArchived, models.ReplayHistory(entries))

	assert.Equal(t, models.StateDraft, models.ReplayHistory(nil))
}
