// internal/services/lineage_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/models"
)

func approvedAsset(t *testing.T, env *testEnv, admin models.Actor, title string) *models.Asset {
	t.Helper()
	asset := createDraftAsset(t, env, admin, title)
	return approveAsset(t, env, admin, asset.ID)
}

func link(t *testing.T, env *testEnv, actor models.Actor, from, to uuid.UUID) *models.AssetRelationship {
	t.Helper()
	rel, err := env.lineage.AddRelationship(context.Background(), actor, &AddRelationshipRequest{
		SourceAssetID: from,
		TargetAssetID: &to,
		Kind:          models.RelationFeeds,
	})
	require.NoError(t, err)
	return rel
}

func assetIDs(assets []models.Asset) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestAddRelationshipRequiresApprovedSource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	draft := createDraftAsset(t, env, admin, "Draft Source")
	target := approvedAsset(t, env, admin, "Target")

	_, err := env.lineage.AddRelationship(ctx, admin, &AddRelationshipRequest{
		SourceAssetID: draft.ID,
		TargetAssetID: &target.ID,
		Kind:          models.RelationFeeds,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	// The failed attempt must not leave a partial edge
	var count int64
	env.db.Model(&models.AssetRelationship{}).Count(&count)
	assert.Zero(t, count)
}

func TestAddRelationshipValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	source := approvedAsset(t, env, admin, "Source")

	// Self loop
	_, err := env.lineage.AddRelationship(ctx, admin, &AddRelationshipRequest{
		SourceAssetID: source.ID,
		TargetAssetID: &source.ID,
		Kind:          models.RelationFeeds,
	})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	// No target at all
	_, err = env.lineage.AddRelationship(ctx, admin, &AddRelationshipRequest{
		SourceAssetID: source.ID,
		Kind:          models.RelationFeeds,
	})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	// Unknown kind
	other := approvedAsset(t, env, admin, "Other")
	_, err = env.lineage.AddRelationship(ctx, admin, &AddRelationshipRequest{
		SourceAssetID: source.ID,
		TargetAssetID: &other.ID,
		Kind:          "causes",
	})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	// Missing internal target
	ghost := uuid.New()
	_, err = env.lineage.AddRelationship(ctx, admin, &AddRelationshipRequest{
		SourceAssetID: source.ID,
		TargetAssetID: &ghost,
		Kind:          models.RelationFeeds,
	})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestCyclicGraphTraversalTerminates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	a := approvedAsset(t, env, admin, "A")
	b := approvedAsset(t, env, admin, "B")
	c := approvedAsset(t, env, admin, "C")

	link(t, env, admin, a.ID, b.ID)
	link(t, env, admin, b.ID, c.ID)
	link(t, env, admin, c.ID, a.ID)

	downstream, err := env.lineage.Downstream(ctx, a.ID, 10, false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, c.ID}, assetIDs(downstream))

	upstream, err := env.lineage.Upstream(ctx, a.ID, 10, false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID, b.ID}, assetIDs(upstream))
}

func TestTraversalHonorsMaxDepth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	a := approvedAsset(t, env, admin, "A")
	b := approvedAsset(t, env, admin, "B")
	c := approvedAsset(t, env, admin, "C")
	d := approvedAsset(t, env, admin, "D")

	link(t, env, admin, a.ID, b.ID)
	link(t, env, admin, b.ID, c.ID)
	link(t, env, admin, c.ID, d.ID)

	near, err := env.lineage.Downstream(ctx, a.ID, 1, false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, assetIDs(near))

	all, err := env.lineage.Downstream(ctx, a.ID, 0, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTraversalOnMissingAsset(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.lineage.Downstream(context.Background(), uuid.New(), 0, false)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestArchiveHidesEdgesUnlessRequested(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	a := approvedAsset(t, env, admin, "A")
	b := approvedAsset(t, env, admin, "B")
	link(t, env, admin, a.ID, b.ID)

	_, err := env.workflow.Archive(ctx, admin, a.ID)
	require.NoError(t, err)

	downstream, err := env.lineage.Downstream(ctx, a.ID, 0, false)
	require.NoError(t, err)
	assert.Empty(t, downstream)

	// The audit view still shows the suspended edge
	audit, err := env.lineage.Downstream(ctx, a.ID, 0, true)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, assetIDs(audit))
}

func TestRemovedEdgesStayRemoved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	a := approvedAsset(t, env, admin, "A")
	b := approvedAsset(t, env, admin, "B")
	rel := link(t, env, admin, a.ID, b.ID)

	require.NoError(t, env.lineage.RemoveRelationship(ctx, admin, rel.ID))

	// Removed edges are invisible even to the audit view
	downstream, err := env.lineage.Downstream(ctx, a.ID, 0, true)
	require.NoError(t, err)
	assert.Empty(t, downstream)

	// The row itself survives as a soft-deleted record
	var stored models.AssetRelationship
	require.NoError(t, env.db.First(&stored, "id = ?", rel.ID).Error)
	assert.Equal(t, models.RelationshipInactive, stored.Status)
	assert.NotNil(t, stored.DeactivatedAt)

	// Removing again is a no-op
	require.NoError(t, env.lineage.RemoveRelationship(ctx, admin, rel.ID))
}

func TestExternalTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	source := approvedAsset(t, env, admin, "Warehouse Table")

	rel, err := env.lineage.AddRelationship(ctx, admin, &AddRelationshipRequest{
		SourceAssetID:  source.ID,
		ExternalSystem: "PowerBI",
		ExternalName:   "Exec Dashboard",
		Kind:           models.RelationFeeds,
	})
	require.NoError(t, err)
	assert.True(t, rel.IsExternal())

	// External sinks do not appear in asset traversal
	downstream, err := env.lineage.Downstream(ctx, source.ID, 0, false)
	require.NoError(t, err)
	assert.Empty(t, downstream)

	// But the graph payload includes them as nodes
	graph, err := env.lineage.Graph(ctx, source.ID, 0, true, false)
	require.NoError(t, err)
	assert.Equal(t, 2, graph.Stats.NodeCount)
	assert.Equal(t, 1, graph.Stats.ExternalCount)
	assert.Equal(t, 1, graph.Stats.EdgeCount)

	foundExternal := false
	for _, node := range graph.Nodes {
		if node.Type == "external" {
			foundExternal = true
			assert.Equal(t, "PowerBI", node.ExternalSystem)
			assert.Equal(t, "Exec Dashboard", node.Title)
		}
	}
	assert.True(t, foundExternal)
}

func TestLineagePermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()
	stranger := seedUser(t, env.db, models.RoleContributor).Actor()

	source := approvedAsset(t, env, admin, "Guarded")
	target := approvedAsset(t, env, admin, "Target")

	_, err := env.lineage.AddRelationship(ctx, stranger, &AddRelationshipRequest{
		SourceAssetID: source.ID,
		TargetAssetID: &target.ID,
		Kind:          models.RelationFeeds,
	})
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestReapprovalRestoresSuspendedEdges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	a := approvedAsset(t, env, admin, "A")
	b := approvedAsset(t, env, admin, "B")
	rel := link(t, env, admin, a.ID, b.ID)

	_, err := env.workflow.Archive(ctx, admin, a.ID)
	require.NoError(t, err)

	var suspended models.AssetRelationship
	require.NoError(t, env.db.First(&suspended, "id = ?", rel.ID).Error)
	assert.Equal(t, models.RelationshipSuspended, suspended.Status)

	// Archived is terminal in the workflow; the activation hook itself is
	// what re-approval would call.
	require.NoError(t, env.lineage.ActivateForSource(ctx, a.ID))

	var restored models.AssetRelationship
	require.NoError(t, env.db.First(&restored, "id = ?", rel.ID).Error)
	assert.Equal(t, models.RelationshipActive, restored.Status)
	assert.Nil(t, restored.DeactivatedAt)
}
