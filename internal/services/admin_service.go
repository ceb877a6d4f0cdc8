// internal/services/admin_service.go
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/models"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

// AdminService aggregates governance statistics for the admin surface.
type AdminService struct {
	db     *gorm.DB
	search *SearchService
}

func NewAdminService(db *gorm.DB, search *SearchService) *AdminService {
	return &AdminService{db: db, search: search}
}

type DashboardStats struct {
	TotalAssets           int64                         `json:"total_assets"`
	AssetsByState         map[string]int64              `json:"assets_by_state"`
	PendingApprovals      int64                         `json:"pending_approvals"`
	ApprovedThisMonth     int64                         `json:"approved_this_month"`
	TotalRelationships    int64                         `json:"total_relationships"`
	ExternalRelationships int64                         `json:"external_relationships"`
	ActiveTeams           int64                         `json:"active_teams"`
	TotalUsers            int64                         `json:"total_users"`
	IndexedDocuments      int                           `json:"indexed_documents"`
	IndexGeneration       uint64                        `json:"index_generation"`
	RecentActivity        []models.ApprovalHistoryEntry `json:"recent_activity"`
}

func (s *AdminService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{AssetsByState: map[string]int64{}}
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Asset{}).Count(&stats.TotalAssets).Error; err != nil {
		return nil, apperrors.FromDB(err, "asset")
	}

	type stateCount struct {
		LifecycleState string
		Count          int64
	}
	var byState []stateCount
	err := db.Model(&models.Asset{}).
		Select("lifecycle_state, count(*) as count").
		Group("lifecycle_state").
		Scan(&byState).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "asset")
	}
	for _, row := range byState {
		stats.AssetsByState[row.LifecycleState] = row.Count
	}
	stats.PendingApprovals = stats.AssetsByState[string(models.StateSubmitted)]

	monthStart := time.Now().UTC().AddDate(0, -1, 0)
	err = db.Model(&models.ApprovalHistoryEntry{}).
		Where("action = ? AND performed_at >= ?", models.TransitionApprove, monthStart).
		Count(&stats.ApprovedThisMonth).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "approval history")
	}

	err = db.Model(&models.AssetRelationship{}).
		Where("status = ?", models.RelationshipActive).
		Count(&stats.TotalRelationships).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "relationship")
	}
	err = db.Model(&models.AssetRelationship{}).
		Where("status = ? AND target_asset_id IS NULL", models.RelationshipActive).
		Count(&stats.ExternalRelationships).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "relationship")
	}

	if err := db.Model(&models.Team{}).Where("is_active = ?", true).Count(&stats.ActiveTeams).Error; err != nil {
		return nil, apperrors.FromDB(err, "team")
	}
	if err := db.Model(&models.User{}).Where("is_active = ?", true).Count(&stats.TotalUsers).Error; err != nil {
		return nil, apperrors.FromDB(err, "user")
	}

	err = db.Model(&models.ApprovalHistoryEntry{}).
		Order("performed_at DESC").
		Limit(10).
		Find(&stats.RecentActivity).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "approval history")
	}

	if s.search != nil {
		stats.IndexedDocuments, stats.IndexGeneration = s.search.Stats()
	}
	return stats, nil
}

// PendingAssets lists the review queue, oldest submissions first.
func (s *AdminService) PendingAssets(ctx context.Context, params utils.PaginationParams) ([]models.Asset, *utils.PaginationResult, error) {
	params.Normalize()

	query := s.db.WithContext(ctx).Model(&models.Asset{}).
		Where("lifecycle_state = ?", models.StateSubmitted)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, apperrors.FromDB(err, "asset")
	}

	var assets []models.Asset
	err := utils.ApplyPagination(query.Order("submitted_at ASC"), params).
		Preload("Category").Preload("ReportType").Preload("Owner").
		Find(&assets).Error
	if err != nil {
		return nil, nil, apperrors.FromDB(err, "asset")
	}

	pagination := utils.CreatePaginationResult(params, total)
	return assets, &pagination, nil
}
