// internal/models/relationship.go
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RelationshipKind labels a lineage edge
type RelationshipKind string

const (
	RelationDerivesFrom RelationshipKind = "derives-from"
	RelationFeeds       RelationshipKind = "feeds"
	RelationDuplicates  RelationshipKind = "duplicates"
	RelationSupersedes  RelationshipKind = "supersedes"
)

func (k RelationshipKind) Valid() bool {
	switch k {
	case RelationDerivesFrom, RelationFeeds, RelationDuplicates, RelationSupersedes:
		return true
	}
	return false
}

// RelationshipStatus tracks edge visibility.
// Inactive edges were removed explicitly and never come back. Suspended
// edges belong to an archived source and reappear only in audit views,
// or become active again if the source is re-approved.
type RelationshipStatus string

const (
	RelationshipActive    RelationshipStatus = "active"
	RelationshipInactive  RelationshipStatus = "inactive"
	RelationshipSuspended RelationshipStatus = "suspended"
)

// AssetRelationship is a directed lineage edge. The target is either an
// internal asset or an external system descriptor; parallel edges between
// the same pair are allowed when their kinds differ.
type AssetRelationship struct {
	BaseModel
	SourceAssetID uuid.UUID  `json:"source_asset_id" gorm:"type:uuid;not null;index"`
	TargetAssetID *uuid.UUID `json:"target_asset_id,omitempty" gorm:"type:uuid;index"`

	ExternalSystem    string `json:"external_system,omitempty" gorm:"size:100"`
	ExternalName      string `json:"external_name,omitempty" gorm:"size:255"`
	ExternalReference string `json:"external_reference,omitempty" gorm:"type:text"`

	Kind        RelationshipKind   `json:"kind" gorm:"type:varchar(20);not null"`
	Description string             `json:"description,omitempty" gorm:"type:text"`
	Status      RelationshipStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`

	CreatedBy     uuid.UUID  `json:"created_by" gorm:"type:uuid;not null"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	DeactivatedBy *uuid.UUID `json:"deactivated_by,omitempty" gorm:"type:uuid"`

	SourceAsset *Asset `json:"source_asset,omitempty" gorm:"foreignKey:SourceAssetID"`
	TargetAsset *Asset `json:"target_asset,omitempty" gorm:"foreignKey:TargetAssetID"`
}

func (r *AssetRelationship) IsExternal() bool {
	return r.TargetAssetID == nil
}

// TargetKey identifies the edge's target as a graph node id.
func (r *AssetRelationship) TargetKey() string {
	if r.TargetAssetID != nil {
		return r.TargetAssetID.String()
	}
	return fmt.Sprintf("external:%s:%s", r.ExternalSystem, r.ExternalName)
}
