// internal/services/asset_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/models"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

// AssetService is the authoritative store for catalog assets. Content
// changes are allowed only in draft and rejected states; lifecycle changes
// go through the workflow engine.
type AssetService struct {
	db       *gorm.DB
	workflow *WorkflowService
	authz    *AuthorizationService
	notifier StateChangeNotifier
}

func NewAssetService(db *gorm.DB, workflow *WorkflowService, authz *AuthorizationService, notifier StateChangeNotifier) *AssetService {
	return &AssetService{db: db, workflow: workflow, authz: authz, notifier: notifier}
}

type CreateAssetRequest struct {
	Title          string                 `json:"title" validate:"required,min=3,max=255"`
	Description    string                 `json:"description" validate:"max=5000"`
	SourceSystem   string                 `json:"source_system" validate:"max=255"`
	SourceLocation string                 `json:"source_location"`
	SchemaInfo     map[string]interface{} `json:"schema_info"`
	Metadata       map[string]interface{} `json:"metadata"`
	Tags           []string               `json:"tags" validate:"max=20,dive,min=1,max=50"`
	FileURLs       []string               `json:"file_urls" validate:"max=20"`
	CategoryID     *uuid.UUID             `json:"category_id"`
	ReportTypeID   *uuid.UUID             `json:"report_type_id"`
	OwnerID        *uuid.UUID             `json:"owner_id"`
	TeamID         *uuid.UUID             `json:"team_id"`
	AccessLevel    models.AccessLevel     `json:"access_level" validate:"omitempty,oneof=public internal restricted confidential"`
}

type UpdateAssetRequest struct {
	Title          *string                `json:"title" validate:"omitempty,min=3,max=255"`
	Description    *string                `json:"description" validate:"omitempty,max=5000"`
	SourceSystem   *string                `json:"source_system" validate:"omitempty,max=255"`
	SourceLocation *string                `json:"source_location"`
	SchemaInfo     map[string]interface{} `json:"schema_info"`
	Metadata       map[string]interface{} `json:"metadata"`
	Tags           []string               `json:"tags" validate:"omitempty,max=20,dive,min=1,max=50"`
	FileURLs       []string               `json:"file_urls" validate:"omitempty,max=20"`
	CategoryID     *uuid.UUID             `json:"category_id"`
	ReportTypeID   *uuid.UUID             `json:"report_type_id"`
	TeamID         *uuid.UUID             `json:"team_id"`
	AccessLevel    *models.AccessLevel    `json:"access_level" validate:"omitempty,oneof=public internal restricted confidential"`
}

type AssetFilter struct {
	utils.PaginationParams
	States       []models.LifecycleState
	CategoryID   *uuid.UUID
	ReportTypeID *uuid.UUID
	OwnerID      *uuid.UUID
	TeamID       *uuid.UUID
	AccessLevels []models.AccessLevel
	CreatedBy    *uuid.UUID
}

func (s *AssetService) Create(ctx context.Context, actor models.Actor, req *CreateAssetRequest) (*models.Asset, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid asset")
	}
	if err := s.authz.Authorize(actor, CapabilityCreateAsset, nil); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req.CategoryID, req.ReportTypeID, req.TeamID); err != nil {
		return nil, err
	}

	ownerID := req.OwnerID
	if ownerID == nil {
		id := actor.ID
		ownerID = &id
	}
	accessLevel := req.AccessLevel
	if accessLevel == "" {
		accessLevel = models.AccessInternal
	}

	asset := &models.Asset{
		Title:          req.Title,
		Description:    req.Description,
		SourceSystem:   req.SourceSystem,
		SourceLocation: req.SourceLocation,
		SchemaInfo:     models.JSONB(req.SchemaInfo),
		Metadata:       models.JSONB(req.Metadata),
		Tags:           models.StringList(req.Tags),
		FileURLs:       models.StringList(req.FileURLs),
		CategoryID:     req.CategoryID,
		ReportTypeID:   req.ReportTypeID,
		OwnerID:        ownerID,
		TeamID:         req.TeamID,
		AccessLevel:    accessLevel,
		LifecycleState: models.StateDraft,
		Version:        1,
		CreatedBy:      actor.ID,
		UpdatedBy:      actor.ID,
	}

	if err := s.db.WithContext(ctx).Create(asset).Error; err != nil {
		return nil, apperrors.FromDB(err, "asset")
	}

	if s.notifier != nil {
		s.notifier.AssetChanged(asset.ID, asset.Version)
	}
	return s.Get(ctx, asset.ID)
}

func (s *AssetService) Get(ctx context.Context, assetID uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.WithContext(ctx).
		Preload("Category").Preload("ReportType").Preload("Owner").Preload("Team").
		First(&asset, "id = ?", assetID).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "asset")
	}
	return &asset, nil
}

// stateOrderExpr keeps mixed-state listings stable: review queue first,
// then working copies, then the archive tail.
const stateOrderExpr = `CASE lifecycle_state
	WHEN 'submitted' THEN 0
	WHEN 'draft' THEN 1
	WHEN 'rejected' THEN 2
	WHEN 'approved' THEN 3
	WHEN 'archived' THEN 4
	ELSE 5 END, updated_at DESC`

var assetSortFields = map[string]bool{
	"title":      true,
	"created_at": true,
	"updated_at": true,
}

func (s *AssetService) List(ctx context.Context, filter *AssetFilter) ([]models.Asset, *utils.PaginationResult, error) {
	filter.Normalize()

	query := s.db.WithContext(ctx).Model(&models.Asset{})
	if len(filter.States) > 0 {
		query = query.Where("lifecycle_state IN ?", filter.States)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ReportTypeID != nil {
		query = query.Where("report_type_id = ?", *filter.ReportTypeID)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.TeamID != nil {
		query = query.Where("team_id = ?", *filter.TeamID)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if len(filter.AccessLevels) > 0 {
		query = query.Where("access_level IN ?", filter.AccessLevels)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, apperrors.FromDB(err, "asset")
	}

	var assets []models.Asset
	query = utils.ApplySort(query, filter.PaginationParams, assetSortFields, stateOrderExpr)
	query = utils.ApplyPagination(query, filter.PaginationParams)
	err := query.Preload("Category").Preload("ReportType").Preload("Owner").Find(&assets).Error
	if err != nil {
		return nil, nil, apperrors.FromDB(err, "asset")
	}

	pagination := utils.CreatePaginationResult(filter.PaginationParams, total)
	return assets, &pagination, nil
}

// Update patches asset content. Approved and archived assets are immutable;
// updating a rejected asset also moves it back to draft in the same commit.
func (s *AssetService) Update(ctx context.Context, actor models.Actor, assetID uuid.UUID, req *UpdateAssetRequest) (*models.Asset, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid asset")
	}

	asset, err := s.Get(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !asset.Editable() {
		return nil, apperrors.Conflict("assets in state %s cannot be edited", asset.LifecycleState)
	}
	if err := s.authz.Authorize(actor, CapabilityEditAsset, asset); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, req.CategoryID, req.ReportTypeID, req.TeamID); err != nil {
		return nil, err
	}

	updates := buildAssetPatch(req)
	if len(updates) == 0 {
		return asset, nil
	}

	if asset.LifecycleState == models.StateRejected {
		return s.workflow.Revise(ctx, actor, asset, updates)
	}

	updates["version"] = asset.Version + 1
	updates["updated_by"] = actor.ID
	updates["updated_at"] = time.Now().UTC()

	result := s.db.WithContext(ctx).Model(&models.Asset{}).
		Where("id = ? AND version = ?", asset.ID, asset.Version).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.FromDB(result.Error, "asset")
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("asset was modified concurrently, reload and retry")
	}

	if s.notifier != nil {
		s.notifier.AssetChanged(asset.ID, asset.Version+1)
	}
	return s.Get(ctx, assetID)
}

// Delete soft-deletes an asset and drops it from the search projection.
func (s *AssetService) Delete(ctx context.Context, actor models.Actor, assetID uuid.UUID) error {
	asset, err := s.Get(ctx, assetID)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(actor, CapabilityDeleteAsset, asset); err != nil {
		return err
	}
	if asset.LifecycleState == models.StateApproved {
		return apperrors.Conflict("approved assets must be archived before deletion")
	}

	if err := s.db.WithContext(ctx).Delete(asset).Error; err != nil {
		return apperrors.FromDB(err, "asset")
	}
	if s.notifier != nil {
		s.notifier.AssetChanged(asset.ID, asset.Version+1)
	}
	return nil
}

func buildAssetPatch(req *UpdateAssetRequest) map[string]interface{} {
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.SourceSystem != nil {
		updates["source_system"] = *req.SourceSystem
	}
	if req.SourceLocation != nil {
		updates["source_location"] = *req.SourceLocation
	}
	if req.SchemaInfo != nil {
		updates["schema_info"] = models.JSONB(req.SchemaInfo)
	}
	if req.Metadata != nil {
		updates["metadata"] = models.JSONB(req.Metadata)
	}
	if req.Tags != nil {
		updates["tags"] = models.StringList(req.Tags)
	}
	if req.FileURLs != nil {
		updates["file_urls"] = models.StringList(req.FileURLs)
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.ReportTypeID != nil {
		updates["report_type_id"] = *req.ReportTypeID
	}
	if req.TeamID != nil {
		updates["team_id"] = *req.TeamID
	}
	if req.AccessLevel != nil {
		updates["access_level"] = *req.AccessLevel
	}
	return updates
}

func (s *AssetService) checkReferences(ctx context.Context, categoryID, reportTypeID, teamID *uuid.UUID) error {
	if categoryID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", *categoryID).Count(&count).Error; err != nil {
			return apperrors.FromDB(err, "category")
		}
		if count == 0 {
			return apperrors.Validation("category %s does not exist", *categoryID)
		}
	}
	if reportTypeID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.ReportType{}).Where("id = ?", *reportTypeID).Count(&count).Error; err != nil {
			return apperrors.FromDB(err, "report type")
		}
		if count == 0 {
			return apperrors.Validation("report type %s does not exist", *reportTypeID)
		}
	}
	if teamID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Team{}).Where("id = ?", *teamID).Count(&count).Error; err != nil {
			return apperrors.FromDB(err, "team")
		}
		if count == 0 {
			return apperrors.Validation("team %s does not exist", *teamID)
		}
	}
	return nil
}
