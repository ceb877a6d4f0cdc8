// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns the primary key in the application so the same
// models work on drivers without a server-side uuid generator.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Role determines what a user may do in the catalog
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDataOwner   Role = "data_owner"
	RoleContributor Role = "contributor"
)

// LifecycleState is the governance state of an asset
type LifecycleState string

const (
	StateDraft     LifecycleState = "draft"
	StateSubmitted LifecycleState = "submitted"
	StateApproved  LifecycleState = "approved"
	StateRejected  LifecycleState = "rejected"
	StateArchived  LifecycleState = "archived"
)

// TransitionKind names a workflow transition as recorded in history
type TransitionKind string

const (
	TransitionSubmit  TransitionKind = "submit"
	TransitionApprove TransitionKind = "approve"
	TransitionReject  TransitionKind = "reject"
	TransitionRevise  TransitionKind = "revise"
	TransitionArchive TransitionKind = "archive"
)

// AccessLevel classifies how widely an asset may be shared
type AccessLevel string

const (
	AccessPublic       AccessLevel = "public"
	AccessInternal     AccessLevel = "internal"
	AccessRestricted   AccessLevel = "restricted"
	AccessConfidential AccessLevel = "confidential"
)

// Actor is the authenticated principal performing an operation
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// JSONB handles JSON object columns. Scan accepts both []byte and string so
// the type works across the postgres and sqlite drivers.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONB", value)
	}
}

// StringList is a JSON-encoded string slice column
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

func (l StringList) Contains(s string) bool {
	for _, item := range l {
		if item == s {
			return true
		}
	}
	return false
}
