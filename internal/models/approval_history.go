// internal/models/approval_history.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalHistoryEntry is one append-only record of a workflow transition.
// The (asset, performed_at, action) triple is the idempotency key: retried
// writes of the same transition collapse into a single entry.
//
// There is intentionally no UpdatedAt or DeletedAt; entries are never
// modified after commit.
type ApprovalHistoryEntry struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	AssetID       uuid.UUID      `json:"asset_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_history_dedup,priority:1"`
	Action        TransitionKind `json:"action" gorm:"type:varchar(20);not null;uniqueIndex:idx_history_dedup,priority:3"`
	PreviousState LifecycleState `json:"previous_state" gorm:"type:varchar(20);not null"`
	NewState      LifecycleState `json:"new_state" gorm:"type:varchar(20);not null"`
	Reason        string         `json:"reason,omitempty" gorm:"type:text"`
	Changes       JSONB          `json:"changes,omitempty" gorm:"type:jsonb"`
	PerformedBy   uuid.UUID      `json:"performed_by" gorm:"type:uuid;not null"`
	PerformedAt   time.Time      `json:"performed_at" gorm:"not null;index;uniqueIndex:idx_history_dedup,priority:2"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (e *ApprovalHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// transitionTargets maps each recorded action to the state it produces.
var transitionTargets = map[TransitionKind]LifecycleState{
	TransitionSubmit:  StateSubmitted,
	TransitionApprove: StateApproved,
	TransitionReject:  StateRejected,
	TransitionRevise:  StateDraft,
	TransitionArchive: StateArchived,
}

// ReplayHistory folds an ascending history back into a lifecycle state.
// Replaying an asset's complete history must yield its stored state.
func ReplayHistory(entries []ApprovalHistoryEntry) LifecycleState {
	state := StateDraft
	for _, entry := range entries {
		if to, ok := transitionTargets[entry.Action]; ok {
			state = to
		}
	}
	return state
}
