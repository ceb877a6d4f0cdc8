// internal/services/notification_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/models"
)

// NotificationService records in-app messages about workflow activity.
// Submissions notify admins; decisions notify the asset owner.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) NotifyTransition(ctx context.Context, asset *models.Asset,
	kind models.TransitionKind, actor models.Actor, reason string) error {

	var notification *models.Notification
	switch kind {
	case models.TransitionSubmit:
		notification = &models.Notification{
			Type:    models.NotificationAssetSubmitted,
			Title:   "Asset submitted for review",
			Message: fmt.Sprintf("%q is waiting for approval", asset.Title),
			AssetID: &asset.ID,
		}
	case models.TransitionApprove:
		notification = &models.Notification{
			RecipientID: asset.OwnerID,
			Type:        models.NotificationAssetApproved,
			Title:       "Asset approved",
			Message:     fmt.Sprintf("%q was approved and is now published", asset.Title),
			AssetID:     &asset.ID,
		}
	case models.TransitionReject:
		notification = &models.Notification{
			RecipientID: asset.OwnerID,
			Type:        models.NotificationAssetRejected,
			Title:       "Asset rejected",
			Message:     fmt.Sprintf("%q was rejected: %s", asset.Title, reason),
			AssetID:     &asset.ID,
		}
	case models.TransitionArchive:
		notification = &models.Notification{
			RecipientID: asset.OwnerID,
			Type:        models.NotificationAssetArchived,
			Title:       "Asset archived",
			Message:     fmt.Sprintf("%q was archived", asset.Title),
			AssetID:     &asset.ID,
		}
	default:
		return nil
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return apperrors.FromDB(err, "notification")
	}
	return nil
}

// List returns the actor's notifications plus admin broadcasts when the
// actor is an admin.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, unreadOnly bool) ([]models.Notification, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC").Limit(100)
	if actor.IsAdmin() {
		query = query.Where("recipient_id = ? OR recipient_id IS NULL", actor.ID)
	} else {
		query = query.Where("recipient_id = ?", actor.ID)
	}
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, apperrors.FromDB(err, "notification")
	}
	return notifications, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, notificationID uuid.UUID) error {
	var notification models.Notification
	err := s.db.WithContext(ctx).First(&notification, "id = ?", notificationID).Error
	if err != nil {
		return apperrors.FromDB(err, "notification")
	}

	if notification.RecipientID != nil && *notification.RecipientID != actor.ID {
		return apperrors.Forbidden("not your notification")
	}
	if notification.RecipientID == nil && !actor.IsAdmin() {
		return apperrors.Forbidden("not your notification")
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Model(&notification).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": now,
	}).Error
	return apperrors.FromDB(err, "notification")
}
