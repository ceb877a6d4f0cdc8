// internal/services/search_service_test.go
package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataatlas/catalog-backend/internal/models"
)

func TestIndexFollowsWorkflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	asset := createDraftAsset(t, env, admin, "Weekly Revenue")
	env.drainSearch(t)

	result, err := env.search.Search(ctx, &SearchQuery{Text: "weekly revenue"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, string(models.StateDraft), result.Documents[0].LifecycleState)

	approveAsset(t, env, admin, asset.ID)
	env.drainSearch(t)

	result, err = env.search.Search(ctx, &SearchQuery{
		Facets: map[string][]string{
			models.FacetLifecycleState: {string(models.StateApproved)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, asset.ID, result.Documents[0].AssetID)
}

func TestSearchRanking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	createDraftAsset(t, env, admin, "Revenue")
	createDraftAsset(t, env, admin, "Revenue Forecast")
	createDraftAsset(t, env, admin, "Net Revenue Summary")
	env.drainSearch(t)

	result, err := env.search.Search(ctx, &SearchQuery{Text: "revenue"})
	require.NoError(t, err)
	require.Equal(t, 3, result.Total)

	// Exact title first, then prefix, then substring
	assert.Equal(t, "Revenue", result.Documents[0].Title)
	assert.Equal(t, "Revenue Forecast", result.Documents[1].Title)
	assert.Equal(t, "Net Revenue Summary", result.Documents[2].Title)
}

func TestFacetFiltering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	sales, err := env.references.CreateCategory(ctx, admin, &CreateCategoryRequest{Name: "Sales Data"})
	require.NoError(t, err)
	finance, err := env.references.CreateCategory(ctx, admin, &CreateCategoryRequest{Name: "Finance Data"})
	require.NoError(t, err)

	mk := func(title string, categoryID *uuid.UUID, level models.AccessLevel) {
		_, err := env.assets.Create(ctx, admin, &CreateAssetRequest{
			Title:       title,
			CategoryID:  categoryID,
			AccessLevel: level,
		})
		require.NoError(t, err)
	}
	mk("Pipeline Report", &sales.ID, models.AccessInternal)
	mk("Bookings Report", &sales.ID, models.AccessRestricted)
	mk("Ledger Report", &finance.ID, models.AccessInternal)
	env.drainSearch(t)

	// OR within one facet
	result, err := env.search.Search(ctx, &SearchQuery{
		Facets: map[string][]string{
			models.FacetCategory: {"Sales Data", "Finance Data"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)

	// AND across facets
	result, err = env.search.Search(ctx, &SearchQuery{
		Facets: map[string][]string{
			models.FacetCategory:    {"Sales Data"},
			models.FacetAccessLevel: {string(models.AccessInternal)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "Pipeline Report", result.Documents[0].Title)

	// Counts reflect the filtered result set
	result, err = env.search.Search(ctx, &SearchQuery{
		Facets: map[string][]string{
			models.FacetCategory: {"Sales Data"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.FacetCounts[models.FacetCategory]["Sales Data"])
	assert.Equal(t, 1, result.FacetCounts[models.FacetAccessLevel][string(models.AccessInternal)])
	assert.Equal(t, 1, result.FacetCounts[models.FacetAccessLevel][string(models.AccessRestricted)])
	assert.Zero(t, result.FacetCounts[models.FacetCategory]["Finance Data"])
}

func TestLineageFacet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	a := approvedAsset(t, env, admin, "Feeder")
	b := approvedAsset(t, env, admin, "Consumer")
	link(t, env, admin, a.ID, b.ID)
	env.drainSearch(t)

	result, err := env.search.Search(ctx, &SearchQuery{
		Facets: map[string][]string{
			models.FacetLineage: {models.LineageHasDownstream},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, a.ID, result.Documents[0].AssetID)

	result, err = env.search.Search(ctx, &SearchQuery{
		Facets: map[string][]string{
			models.FacetLineage: {models.LineageHasUpstream},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, b.ID, result.Documents[0].AssetID)
}

func TestRebuildIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	createDraftAsset(t, env, admin, "Alpha")
	createDraftAsset(t, env, admin, "Beta")

	require.NoError(t, env.search.Rebuild(ctx))
	first := snapshotDocs(env.search)

	require.NoError(t, env.search.Rebuild(ctx))
	second := snapshotDocs(env.search)

	assert.Equal(t, first, second)

	docs, _ := env.search.Stats()
	assert.Equal(t, 2, docs)
}

func snapshotDocs(s *SearchService) map[string]models.SearchDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.SearchDocument, len(s.docs))
	for id, doc := range s.docs {
		out[id.String()] = *doc
	}
	return out
}

func TestStaleEventsAreDropped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	asset := createDraftAsset(t, env, admin, "Alpha")
	env.drainSearch(t)

	// Two committed retitles; their events arrive out of order
	_, err := env.assets.Update(ctx, admin, asset.ID, &UpdateAssetRequest{Title: strPtr("Beta")})
	require.NoError(t, err)
	_, err = env.assets.Update(ctx, admin, asset.ID, &UpdateAssetRequest{Title: strPtr("Gamma")})
	require.NoError(t, err)

	require.NoError(t, env.search.applyChange(ctx, changeEvent{assetID: asset.ID, version: 3}))
	require.NoError(t, env.search.applyChange(ctx, changeEvent{assetID: asset.ID, version: 2}))

	env.search.mu.RLock()
	doc := env.search.docs[asset.ID]
	env.search.mu.RUnlock()
	require.NotNil(t, doc)
	assert.Equal(t, "Gamma", doc.Title)
	assert.Equal(t, int64(3), doc.Version)
}

func TestDeletedAssetLeavesTheIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	asset := createDraftAsset(t, env, admin, "Ephemeral")
	env.drainSearch(t)

	docs, _ := env.search.Stats()
	require.Equal(t, 1, docs)

	require.NoError(t, env.assets.Delete(ctx, admin, asset.ID))
	env.drainSearch(t)

	docs, _ = env.search.Stats()
	assert.Zero(t, docs)
}

func TestQueueOverflowSchedulesRebuild(t *testing.T) {
	env := newTestEnv(t)
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()
	asset := createDraftAsset(t, env, admin, "Flood")
	env.drainSearch(t)

	// Fill the queue past capacity
	for i := 0; i < 100; i++ {
		env.search.AssetChanged(asset.ID, int64(i))
	}
	assert.True(t, env.search.rebuildPending.Load())
}

func TestSuggestions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	createDraftAsset(t, env, admin, "Revenue Forecast")
	createDraftAsset(t, env, admin, "Revenue Summary")
	createDraftAsset(t, env, admin, "Churn Model")
	env.drainSearch(t)

	suggestions, err := env.search.Suggest(ctx, "rev", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Revenue Forecast", "Revenue Summary"}, suggestions)

	none, err := env.search.Suggest(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSuggestionLimitIsClamped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	for i := 0; i < 12; i++ {
		createDraftAsset(t, env, admin, fmt.Sprintf("Metric %02d", i))
	}
	env.drainSearch(t)

	// An oversized limit is capped, not reset below smaller requests
	suggestions, err := env.search.Suggest(ctx, "metric", 30)
	require.NoError(t, err)
	assert.Len(t, suggestions, 12)

	suggestions, err = env.search.Suggest(ctx, "metric", 5)
	require.NoError(t, err)
	assert.Len(t, suggestions, 5)

	suggestions, err = env.search.Suggest(ctx, "metric", 0)
	require.NoError(t, err)
	assert.Len(t, suggestions, 10)
}

func TestSearchPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env.db, models.RoleAdmin).Actor()

	for _, title := range []string{"Doc One", "Doc Two", "Doc Three", "Doc Four", "Doc Five"} {
		createDraftAsset(t, env, admin, title)
	}
	env.drainSearch(t)

	page1, err := env.search.Search(ctx, &SearchQuery{Text: "doc", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page1.Total)
	assert.Len(t, page1.Documents, 2)

	page3, err := env.search.Search(ctx, &SearchQuery{Text: "doc", Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page3.Documents, 1)

	beyond, err := env.search.Search(ctx, &SearchQuery{Text: "doc", Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond.Documents)
}
