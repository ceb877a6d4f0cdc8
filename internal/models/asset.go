// internal/models/asset.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Asset is a catalog entry describing a dataset, report or table.
// Version is bumped on every committed change and doubles as the per-asset
// commit sequence for optimistic locking and index notifications.
type Asset struct {
	BaseModel
	Title          string     `json:"title" gorm:"size:255;not null;index"`
	Description    string     `json:"description" gorm:"type:text"`
	SourceSystem   string     `json:"source_system" gorm:"size:255"`
	SourceLocation string     `json:"source_location" gorm:"type:text"`
	SchemaInfo     JSONB      `json:"schema_info,omitempty" gorm:"type:jsonb"`
	Metadata       JSONB      `json:"metadata,omitempty" gorm:"type:jsonb"`
	Tags           StringList `json:"tags,omitempty" gorm:"type:jsonb"`
	FileURLs       StringList `json:"file_urls,omitempty" gorm:"type:jsonb"`

	CategoryID   *uuid.UUID `json:"category_id,omitempty" gorm:"type:uuid;index"`
	ReportTypeID *uuid.UUID `json:"report_type_id,omitempty" gorm:"type:uuid;index"`
	OwnerID      *uuid.UUID `json:"owner_id,omitempty" gorm:"type:uuid;index"`
	TeamID       *uuid.UUID `json:"team_id,omitempty" gorm:"type:uuid;index"`

	AccessLevel     AccessLevel    `json:"access_level" gorm:"type:varchar(20);default:'internal';index"`
	LifecycleState  LifecycleState `json:"lifecycle_state" gorm:"type:varchar(20);default:'draft';index"`
	RejectionReason string         `json:"rejection_reason,omitempty" gorm:"type:text"`
	Version         int64          `json:"version" gorm:"not null;default:1"`

	CreatedBy   uuid.UUID  `json:"created_by" gorm:"type:uuid;not null;index"`
	UpdatedBy   uuid.UUID  `json:"updated_by" gorm:"type:uuid"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  *uuid.UUID `json:"approved_by,omitempty" gorm:"type:uuid"`

	Category   *Category   `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	ReportType *ReportType `json:"report_type,omitempty" gorm:"foreignKey:ReportTypeID"`
	Owner      *User       `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Team       *Team       `json:"team,omitempty" gorm:"foreignKey:TeamID"`
}

// Editable reports whether content changes are allowed in the current state.
// Approved assets are immutable snapshots and archived assets are terminal.
func (a *Asset) Editable() bool {
	return a.LifecycleState == StateDraft || a.LifecycleState == StateRejected
}

// OwnedBy reports whether the given user is the asset owner or its creator.
func (a *Asset) OwnedBy(userID uuid.UUID) bool {
	if a.OwnerID != nil && *a.OwnerID == userID {
		return true
	}
	return a.CreatedBy == userID
}
