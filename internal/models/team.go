// internal/models/team.go
package models

import (
	"github.com/google/uuid"
)

// Team owns assets collectively
type Team struct {
	BaseModel
	Name        string       `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Description string       `json:"description,omitempty" gorm:"type:text"`
	CreatedBy   uuid.UUID    `json:"created_by" gorm:"type:uuid;not null"`
	IsActive    bool         `json:"is_active" gorm:"default:true"`
	Members     []TeamMember `json:"members,omitempty" gorm:"foreignKey:TeamID"`
}

type TeamMemberRole string

const (
	TeamRoleLead   TeamMemberRole = "lead"
	TeamRoleMember TeamMemberRole = "member"
)

type TeamMember struct {
	BaseModel
	TeamID uuid.UUID      `json:"team_id" gorm:"type:uuid;not null;uniqueIndex:idx_team_member,priority:1"`
	UserID uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_team_member,priority:2"`
	Role   TeamMemberRole `json:"role" gorm:"type:varchar(20);default:'member'"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// UserFavorite bookmarks an asset for a user
type UserFavorite struct {
	BaseModel
	UserID  uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_favorite,priority:1"`
	AssetID uuid.UUID `json:"asset_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_favorite,priority:2"`
	Notes   string    `json:"notes,omitempty" gorm:"type:text"`

	Asset *Asset `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
}
