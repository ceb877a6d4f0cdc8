// internal/services/asset_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/models"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

func TestCreateAssetDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := seedUser(t, env.db, models.RoleDataOwner).Actor()

	asset, err := env.assets.Create(ctx, owner, &CreateAssetRequest{
		Title: "Customer Churn Model",
		Tags:  []string{"ml", "churn"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StateDraft, asset.LifecycleState)
	assert.Equal(t, int64(1), asset.Version)
	assert.Equal(t, models.AccessInternal, asset.AccessLevel)
	require.NotNil(t, asset.OwnerID)
	assert.Equal(t, owner.ID, *asset.OwnerID)
	assert.Equal(t, owner.ID, asset.CreatedBy)
	assert.True(t, asset.Tags.Contains("churn"))
}

func TestCreateAssetValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	_, err := env.assets.Create(ctx, admin, &CreateAssetRequest{Title: "ab"})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	ghost := uuid.New()
	_, err = env.assets.Create(ctx, admin, &CreateAssetRequest{
		Title:      "Orphaned Asset",
		CategoryID: &ghost,
	})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestUpdateBumpsVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()
	asset := createDraftAsset(t, env, admin, "Original Title")

	updated, err := env.assets.Update(ctx, admin, asset.ID, &UpdateAssetRequest{
		Title:       strPtr("Renamed Title"),
		Description: strPtr("now with a description"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed Title", updated.Title)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, models.StateDraft, updated.LifecycleState)

	// An empty patch is a no-op, not a version bump
	same, err := env.assets.Update(ctx, admin, asset.ID, &UpdateAssetRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), same.Version)
}

func TestUpdateApprovedAssetIsBlocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	asset := createDraftAsset(t, env, admin, "Locked Down")
	approveAsset(t, env, admin, asset.ID)

	_, err := env.assets.Update(ctx, admin, asset.ID, &UpdateAssetRequest{Title: strPtr("Sneaky Edit")})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	current, err := env.assets.Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "Locked Down", current.Title)
}

func TestUpdateRejectedAssetRevises(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	asset := createDraftAsset(t, env, admin, "Needs Work")
	_, err := env.workflow.Submit(ctx, admin, asset.ID)
	require.NoError(t, err)
	_, err = env.workflow.Reject(ctx, admin, asset.ID, "missing owner")
	require.NoError(t, err)

	revised, err := env.assets.Update(ctx, admin, asset.ID, &UpdateAssetRequest{
		Description: strPtr("owner documented"),
	})
	require.NoError(t, err)

	// The edit and the transition back to draft commit together
	assert.Equal(t, models.StateDraft, revised.LifecycleState)
	assert.Empty(t, revised.RejectionReason)
	assert.Equal(t, "owner documented", revised.Description)

	entries, err := env.audit.History(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.TransitionRevise, entries[2].Action)
}

func TestUpdateRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := seedUser(t, env.db, models.RoleDataOwner).Actor()
	stranger := seedUser(t, env.db, models.RoleContributor).Actor()

	asset := createDraftAsset(t, env, owner, "Private Draft")

	_, err := env.assets.Update(ctx, stranger, asset.ID, &UpdateAssetRequest{Title: strPtr("Hijacked")})
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestListOrdersByStatePriority(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	draft := createDraftAsset(t, env, admin, "Draft Asset")

	submitted := createDraftAsset(t, env, admin, "Submitted Asset")
	_, err := env.workflow.Submit(ctx, admin, submitted.ID)
	require.NoError(t, err)

	rejected := createDraftAsset(t, env, admin, "Rejected Asset")
	_, err = env.workflow.Submit(ctx, admin, rejected.ID)
	require.NoError(t, err)
	_, err = env.workflow.Reject(ctx, admin, rejected.ID, "not ready")
	require.NoError(t, err)

	approved := createDraftAsset(t, env, admin, "Approved Asset")
	approveAsset(t, env, admin, approved.ID)

	archived := createDraftAsset(t, env, admin, "Archived Asset")
	approveAsset(t, env, admin, archived.ID)
	_, err = env.workflow.Archive(ctx, admin, archived.ID)
	require.NoError(t, err)

	assets, pagination, err := env.assets.List(ctx, &AssetFilter{})
	require.NoError(t, err)
	require.Len(t, assets, 5)
	assert.Equal(t, int64(5), pagination.Total)

	assert.Equal(t, submitted.ID, assets[0].ID)
	assert.Equal(t, draft.ID, assets[1].ID)
	assert.Equal(t, rejected.ID, assets[2].ID)
	assert.Equal(t, approved.ID, assets[3].ID)
	assert.Equal(t, archived.ID, assets[4].ID)
}

func TestListFiltersAndPaginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()
	owner := seedUser(t, env.db, models.RoleDataOwner).Actor()

	for i := 0; i < 3; i++ {
		createDraftAsset(t, env, admin, "Admin Asset")
	}
	mine := createDraftAsset(t, env, owner, "Owner Asset")
	approveAsset(t, env, admin, mine.ID)

	byOwner, _, err := env.assets.List(ctx, &AssetFilter{OwnerID: &owner.ID})
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	assert.Equal(t, mine.ID, byOwner[0].ID)

	byState, _, err := env.assets.List(ctx, &AssetFilter{
		States: []models.LifecycleState{models.StateDraft},
	})
	require.NoError(t, err)
	assert.Len(t, byState, 3)

	paged, pagination, err := env.assets.List(ctx, &AssetFilter{
		PaginationParams: utils.PaginationParams{Page: 2, Limit: 3},
	})
	require.NoError(t, err)
	assert.Len(t, paged, 1)
	assert.Equal(t, int64(4), pagination.Total)
	assert.Equal(t, 2, pagination.TotalPages)
}

func TestDeleteRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	approved := createDraftAsset(t, env, admin, "Keeper")
	approveAsset(t, env, admin, approved.ID)

	err := env.assets.Delete(ctx, admin, approved.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	draft := createDraftAsset(t, env, admin, "Discard Me")
	require.NoError(t, env.assets.Delete(ctx, admin, draft.ID))

	_, err = env.assets.Get(ctx, draft.ID)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
