// internal/services/reference_service.go
package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/models"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

// ReferenceService manages categories and report types.
type ReferenceService struct {
	db    *gorm.DB
	authz *AuthorizationService
}

func NewReferenceService(db *gorm.DB, authz *AuthorizationService) *ReferenceService {
	return &ReferenceService{db: db, authz: authz}
}

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=2000"`
	ColorCode   string `json:"color_code" validate:"omitempty,len=7"`
	Icon        string `json:"icon" validate:"max=50"`
}

type CreateReportTypeRequest struct {
	Name           string                 `json:"name" validate:"required,min=2,max=100"`
	Description    string                 `json:"description" validate:"max=2000"`
	TemplateSchema map[string]interface{} `json:"template_schema"`
	RequiredFields []string               `json:"required_fields" validate:"max=50,dive,min=1,max=100"`
	ColorCode      string                 `json:"color_code" validate:"omitempty,len=7"`
	Icon           string                 `json:"icon" validate:"max=50"`
}

func (s *ReferenceService) ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	query := s.db.WithContext(ctx).Order("name ASC")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var categories []models.Category
	if err := query.Find(&categories).Error; err != nil {
		return nil, apperrors.FromDB(err, "category")
	}
	return categories, nil
}

func (s *ReferenceService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, apperrors.FromDB(err, "category")
	}
	return &category, nil
}

func (s *ReferenceService) CreateCategory(ctx context.Context, actor models.Actor, req *CreateCategoryRequest) (*models.Category, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid category")
	}
	if err := s.authz.Authorize(actor, CapabilityManageRefs, nil); err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:        req.Name,
		Description: req.Description,
		ColorCode:   req.ColorCode,
		Icon:        req.Icon,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, apperrors.FromDB(err, "category")
	}
	return category, nil
}

func (s *ReferenceService) ListReportTypes(ctx context.Context, includeInactive bool) ([]models.ReportType, error) {
	query := s.db.WithContext(ctx).Order("name ASC")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	var reportTypes []models.ReportType
	if err := query.Find(&reportTypes).Error; err != nil {
		return nil, apperrors.FromDB(err, "report type")
	}
	return reportTypes, nil
}

func (s *ReferenceService) GetReportType(ctx context.Context, id uuid.UUID) (*models.ReportType, error) {
	var reportType models.ReportType
	if err := s.db.WithContext(ctx).First(&reportType, "id = ?", id).Error; err != nil {
		return nil, apperrors.FromDB(err, "report type")
	}
	return &reportType, nil
}

func (s *ReferenceService) CreateReportType(ctx context.Context, actor models.Actor, req *CreateReportTypeRequest) (*models.ReportType, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid report type")
	}
	if err := s.authz.Authorize(actor, CapabilityManageRefs, nil); err != nil {
		return nil, err
	}

	reportType := &models.ReportType{
		Name:           req.Name,
		Description:    req.Description,
		TemplateSchema: models.JSONB(req.TemplateSchema),
		RequiredFields: models.StringList(req.RequiredFields),
		ColorCode:      req.ColorCode,
		Icon:           req.Icon,
		IsActive:       true,
	}
	if err := s.db.WithContext(ctx).Create(reportType).Error; err != nil {
		return nil, apperrors.FromDB(err, "report type")
	}
	return reportType, nil
}
