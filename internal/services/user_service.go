// internal/services/user_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/config"
	"github.com/dataatlas/catalog-backend/internal/models"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

// UserService handles accounts and token issuance.
type UserService struct {
	db    *gorm.DB
	authz *AuthorizationService
	jwt   config.JWTConfig
}

func NewUserService(db *gorm.DB, authz *AuthorizationService, jwtCfg config.JWTConfig) *UserService {
	return &UserService{db: db, authz: authz, jwt: jwtCfg}
}

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,username"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,strong_password"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
}

// Register creates a contributor account. Role elevation is a separate
// admin operation.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid registration")
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "user")
	}
	if count > 0 {
		return nil, apperrors.Conflict("username or email already registered")
	}

	user := &models.User{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        models.RoleContributor,
		IsActive:    true,
	}
	if user.DisplayName == "" {
		user.DisplayName = req.Username
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to hash password")
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperrors.FromDB(err, "user")
	}

	return s.issueTokens(user)
}

func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid login")
	}

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", req.Email).Error
	if err != nil {
		// Do not reveal whether the account exists
		return nil, apperrors.Forbidden("invalid credentials")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}
	if !user.CheckPassword(req.Password) {
		return nil, apperrors.Forbidden("invalid credentials")
	}

	now := time.Now().UTC()
	s.db.WithContext(ctx).Model(&user).Update("last_login_at", now)
	user.LastLoginAt = &now

	return s.issueTokens(&user)
}

func (s *UserService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Username, string(user.Role), s.jwt.AccessTTLHours)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to sign token")
	}
	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.jwt.RefreshTTLHours)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to sign refresh token")
	}
	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.jwt.AccessTTLHours * 3600,
	}, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	subject, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Forbidden("invalid refresh token")
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, apperrors.Forbidden("invalid refresh token")
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}
	return s.issueTokens(user)
}

func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "user")
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context, actor models.Actor, params utils.PaginationParams) ([]models.User, *utils.PaginationResult, error) {
	if err := s.authz.Authorize(actor, CapabilityManageUsers, nil); err != nil {
		return nil, nil, err
	}
	params.Normalize()

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, nil, apperrors.FromDB(err, "user")
	}

	var users []models.User
	query := s.db.WithContext(ctx).Model(&models.User{}).Order("created_at DESC")
	if err := utils.ApplyPagination(query, params).Find(&users).Error; err != nil {
		return nil, nil, apperrors.FromDB(err, "user")
	}

	pagination := utils.CreatePaginationResult(params, total)
	return users, &pagination, nil
}

// UpdateRole changes a user's role. Admin only; admins cannot demote
// themselves to avoid locking the catalog.
func (s *UserService) UpdateRole(ctx context.Context, actor models.Actor, userID uuid.UUID, role models.Role) (*models.User, error) {
	if err := s.authz.Authorize(actor, CapabilityManageUsers, nil); err != nil {
		return nil, err
	}
	switch role {
	case models.RoleAdmin, models.RoleDataOwner, models.RoleContributor:
	default:
		return nil, apperrors.Validation("unknown role %q", role)
	}
	if actor.ID == userID && role != models.RoleAdmin {
		return nil, apperrors.Validation("administrators cannot demote themselves")
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, apperrors.FromDB(err, "user")
	}
	user.Role = role
	return user, nil
}

func (s *UserService) Deactivate(ctx context.Context, actor models.Actor, userID uuid.UUID) error {
	if err := s.authz.Authorize(actor, CapabilityManageUsers, nil); err != nil {
		return err
	}
	if actor.ID == userID {
		return apperrors.Validation("administrators cannot deactivate themselves")
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_active", false)
	if result.Error != nil {
		return apperrors.FromDB(result.Error, "user")
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}
