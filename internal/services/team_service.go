// internal/services/team_service.go
package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/models"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

// TeamService manages teams, membership and per-user favorites.
type TeamService struct {
	db *gorm.DB
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{db: db}
}

type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

type AddMemberRequest struct {
	UserID uuid.UUID             `json:"user_id" validate:"required"`
	Role   models.TeamMemberRole `json:"role" validate:"omitempty,oneof=lead member"`
}

type AddFavoriteRequest struct {
	AssetID uuid.UUID `json:"asset_id" validate:"required"`
	Notes   string    `json:"notes" validate:"max=2000"`
}

func (s *TeamService) CreateTeam(ctx context.Context, actor models.Actor, req *CreateTeamRequest) (*models.Team, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid team")
	}

	team := &models.Team{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   actor.ID,
		IsActive:    true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return apperrors.FromDB(err, "team")
		}
		member := &models.TeamMember{TeamID: team.ID, UserID: actor.ID, Role: models.TeamRoleLead}
		if err := tx.Create(member).Error; err != nil {
			return apperrors.FromDB(err, "team member")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTeam(ctx, team.ID)
}

func (s *TeamService) GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	var team models.Team
	err := s.db.WithContext(ctx).Preload("Members").Preload("Members.User").First(&team, "id = ?", teamID).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "team")
	}
	return &team, nil
}

func (s *TeamService) ListTeams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&teams).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "team")
	}
	return teams, nil
}

// AddMember adds a user to a team. Only a team lead or an admin may manage
// membership.
func (s *TeamService) AddMember(ctx context.Context, actor models.Actor, teamID uuid.UUID, req *AddMemberRequest) (*models.TeamMember, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid member")
	}
	if err := s.requireTeamManager(ctx, actor, teamID); err != nil {
		return nil, err
	}

	var userCount int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", req.UserID).Count(&userCount).Error; err != nil {
		return nil, apperrors.FromDB(err, "user")
	}
	if userCount == 0 {
		return nil, apperrors.NotFound("user %s not found", req.UserID)
	}

	role := req.Role
	if role == "" {
		role = models.TeamRoleMember
	}
	member := &models.TeamMember{TeamID: teamID, UserID: req.UserID, Role: role}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, apperrors.FromDB(err, "team member")
	}
	return member, nil
}

func (s *TeamService) RemoveMember(ctx context.Context, actor models.Actor, teamID, userID uuid.UUID) error {
	if err := s.requireTeamManager(ctx, actor, teamID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMember{})
	if result.Error != nil {
		return apperrors.FromDB(result.Error, "team member")
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("membership not found")
	}
	return nil
}

func (s *TeamService) requireTeamManager(ctx context.Context, actor models.Actor, teamID uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ? AND role = ?", teamID, actor.ID, models.TeamRoleLead).
		Count(&count).Error
	if err != nil {
		return apperrors.FromDB(err, "team member")
	}
	if count == 0 {
		return apperrors.Forbidden("only a team lead or an administrator may manage membership")
	}
	return nil
}

func (s *TeamService) AddFavorite(ctx context.Context, actor models.Actor, req *AddFavoriteRequest) (*models.UserFavorite, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid favorite")
	}

	var assetCount int64
	if err := s.db.WithContext(ctx).Model(&models.Asset{}).Where("id = ?", req.AssetID).Count(&assetCount).Error; err != nil {
		return nil, apperrors.FromDB(err, "asset")
	}
	if assetCount == 0 {
		return nil, apperrors.NotFound("asset %s not found", req.AssetID)
	}

	favorite := &models.UserFavorite{UserID: actor.ID, AssetID: req.AssetID, Notes: req.Notes}
	if err := s.db.WithContext(ctx).Create(favorite).Error; err != nil {
		return nil, apperrors.FromDB(err, "favorite")
	}
	return favorite, nil
}

func (s *TeamService) RemoveFavorite(ctx context.Context, actor models.Actor, assetID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND asset_id = ?", actor.ID, assetID).
		Delete(&models.UserFavorite{})
	if result.Error != nil {
		return apperrors.FromDB(result.Error, "favorite")
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("favorite not found")
	}
	return nil
}

func (s *TeamService) ListFavorites(ctx context.Context, actor models.Actor) ([]models.UserFavorite, error) {
	var favorites []models.UserFavorite
	err := s.db.WithContext(ctx).
		Where("user_id = ?", actor.ID).
		Preload("Asset").Preload("Asset.Category").
		Order("created_at DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "favorite")
	}
	return favorites, nil
}
