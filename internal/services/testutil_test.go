// internal/services/testutil_test.go
package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dataatlas/catalog-backend/internal/config"
	"github.com/dataatlas/catalog-backend/internal/database"
	"github.com/dataatlas/catalog-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive and shared
	// across transactions.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(database.AllModels()...))
	return db
}

type testEnv struct {
	db            *gorm.DB
	authz         *AuthorizationService
	audit         *AuditService
	lineage       *LineageService
	search        *SearchService
	notifications *NotificationService
	workflow      *WorkflowService
	assets        *AssetService
	references    *ReferenceService
	teams         *TeamService
	users         *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithPolicy(t, config.WorkflowConfig{})
}

func newTestEnvWithPolicy(t *testing.T, workflowCfg config.WorkflowConfig) *testEnv {
	t.Helper()

	db := newTestDB(t)
	authz := NewAuthorizationService(workflowCfg)
	audit := NewAuditService(db)
	notifications := NewNotificationService(db)
	lineage := NewLineageService(db, authz, config.LineageConfig{DefaultMaxDepth: 10, MaxNodes: 500})

	search, err := NewSearchService(db, lineage, config.SearchConfig{QueueSize: 64, CacheSize: 16})
	require.NoError(t, err)
	lineage.SetNotifier(search)

	workflow := NewWorkflowService(db, audit, authz, lineage, notifications, search)
	assets := NewAssetService(db, workflow, authz, search)

	return &testEnv{
		db:            db,
		authz:         authz,
		audit:         audit,
		lineage:       lineage,
		search:        search,
		notifications: notifications,
		workflow:      workflow,
		assets:        assets,
		references:    NewReferenceService(db, authz),
		teams:         NewTeamService(db),
		users:         NewUserService(db, authz, config.JWTConfig{AccessTTLHours: 1, RefreshTTLHours: 1}),
	}
}

// drainSearch applies all queued change events synchronously, standing in
// for the consumer goroutine so tests stay deterministic.
func (e *testEnv) drainSearch(t *testing.T) {
	t.Helper()
	for {
		select {
		case ev := <-e.search.events:
			require.NoError(t, e.search.applyChange(context.Background(), ev))
		default:
			return
		}
	}
}

var userSeq int

func seedUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	userSeq++

	user := &models.User{
		Username:    fmt.Sprintf("user%d", userSeq),
		Email:       fmt.Sprintf("user%d@example.com", userSeq),
		DisplayName: fmt.Sprintf("User %d", userSeq),
		Role:        role,
		IsActive:    true,
	}
	require.NoError(t, user.SetPassword("Password1"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createDraftAsset(t *testing.T, env *testEnv, actor models.Actor, title string) *models.Asset {
	t.Helper()

	asset, err := env.assets.Create(context.Background(), actor, &CreateAssetRequest{
		Title:       title,
		Description: "test asset",
	})
	require.NoError(t, err)
	return asset
}

// approveAsset walks a draft through submit and approve using an admin.
func approveAsset(t *testing.T, env *testEnv, admin models.Actor, assetID uuid.UUID) *models.Asset {
	t.Helper()

	_, err := env.workflow.Submit(context.Background(), admin, assetID)
	require.NoError(t, err)
	asset, err := env.workflow.Approve(context.Background(), admin, assetID, "")
	require.NoError(t, err)
	return asset
}
