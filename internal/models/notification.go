// internal/models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationAssetSubmitted NotificationType = "asset_submitted"
	NotificationAssetApproved  NotificationType = "asset_approved"
	NotificationAssetRejected  NotificationType = "asset_rejected"
	NotificationAssetArchived  NotificationType = "asset_archived"
)

// Notification is an in-app message about workflow activity. RecipientID nil
// means the notification targets all admins.
type Notification struct {
	BaseModel
	RecipientID *uuid.UUID       `json:"recipient_id,omitempty" gorm:"type:uuid;index"`
	Type        NotificationType `json:"type" gorm:"type:varchar(30);not null;index"`
	Title       string           `json:"title" gorm:"size:255;not null"`
	Message     string           `json:"message" gorm:"type:text"`
	AssetID     *uuid.UUID       `json:"asset_id,omitempty" gorm:"type:uuid;index"`
	IsRead      bool             `json:"is_read" gorm:"default:false;index"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
}
