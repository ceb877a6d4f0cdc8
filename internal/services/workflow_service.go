// internal/services/workflow_service.go
package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/models"
)

// StateChangeNotifier receives committed asset changes for projection
// updates. Version is the asset's commit sequence after the change.
type StateChangeNotifier interface {
	AssetChanged(assetID uuid.UUID, version int64)
}

type transitionRule struct {
	from       []models.LifecycleState
	to         models.LifecycleState
	capability Capability
}

// workflowTransitions is the complete state machine. Archived is terminal;
// nothing transitions out of it.
var workflowTransitions = map[models.TransitionKind]transitionRule{
	models.TransitionSubmit: {
		from:       []models.LifecycleState{models.StateDraft, models.StateRejected},
		to:         models.StateSubmitted,
		capability: CapabilitySubmitAsset,
	},
	models.TransitionApprove: {
		from:       []models.LifecycleState{models.StateSubmitted},
		to:         models.StateApproved,
		capability: CapabilityApproveAsset,
	},
	models.TransitionReject: {
		from:       []models.LifecycleState{models.StateSubmitted},
		to:         models.StateRejected,
		capability: CapabilityRejectAsset,
	},
	models.TransitionRevise: {
		from:       []models.LifecycleState{models.StateRejected},
		to:         models.StateDraft,
		capability: CapabilityEditAsset,
	},
	models.TransitionArchive: {
		from:       []models.LifecycleState{models.StateApproved},
		to:         models.StateArchived,
		capability: CapabilityArchiveAsset,
	},
}

// WorkflowService drives asset lifecycle transitions. Every transition
// commits the state change and its history entry in one transaction;
// projections and lineage hooks run only after the commit.
type WorkflowService struct {
	db            *gorm.DB
	audit         *AuditService
	authz         *AuthorizationService
	lineage       *LineageService
	notifications *NotificationService
	notifier      StateChangeNotifier
	log           *logrus.Entry
}

func NewWorkflowService(db *gorm.DB, audit *AuditService, authz *AuthorizationService,
	lineage *LineageService, notifications *NotificationService, notifier StateChangeNotifier) *WorkflowService {
	return &WorkflowService{
		db:            db,
		audit:         audit,
		authz:         authz,
		lineage:       lineage,
		notifications: notifications,
		notifier:      notifier,
		log:           logrus.WithField("component", "workflow"),
	}
}

func (s *WorkflowService) Submit(ctx context.Context, actor models.Actor, assetID uuid.UUID) (*models.Asset, error) {
	asset, err := s.loadAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return s.transitionFrom(ctx, actor, asset, models.TransitionSubmit, "", nil)
}

func (s *WorkflowService) Approve(ctx context.Context, actor models.Actor, assetID uuid.UUID, comment string) (*models.Asset, error) {
	asset, err := s.loadAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return s.transitionFrom(ctx, actor, asset, models.TransitionApprove, comment, nil)
}

func (s *WorkflowService) Reject(ctx context.Context, actor models.Actor, assetID uuid.UUID, reason string) (*models.Asset, error) {
	asset, err := s.loadAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return s.transitionFrom(ctx, actor, asset, models.TransitionReject, reason, nil)
}

func (s *WorkflowService) Archive(ctx context.Context, actor models.Actor, assetID uuid.UUID) (*models.Asset, error) {
	asset, err := s.loadAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return s.transitionFrom(ctx, actor, asset, models.TransitionArchive, "", nil)
}

// Revise moves a rejected asset back to draft together with the caller's
// content patch, so the edit and the transition commit atomically.
func (s *WorkflowService) Revise(ctx context.Context, actor models.Actor, snapshot *models.Asset, patch map[string]interface{}) (*models.Asset, error) {
	return s.transitionFrom(ctx, actor, snapshot, models.TransitionRevise, "", patch)
}

func (s *WorkflowService) loadAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.WithContext(ctx).Preload("ReportType").First(&asset, "id = ?", assetID).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "asset")
	}
	return &asset, nil
}

// transitionFrom applies one transition against the given snapshot. The
// snapshot's version is the optimistic lock: if another writer committed
// first, the compare-and-swap misses and the caller gets Conflict.
func (s *WorkflowService) transitionFrom(ctx context.Context, actor models.Actor, snapshot *models.Asset,
	kind models.TransitionKind, reason string, extra map[string]interface{}) (*models.Asset, error) {

	rule, ok := workflowTransitions[kind]
	if !ok {
		return nil, apperrors.InvalidTransition("unknown transition %s", kind)
	}

	if !stateIn(snapshot.LifecycleState, rule.from) {
		return nil, apperrors.InvalidTransition("cannot %s an asset in state %s", kind, snapshot.LifecycleState)
	}

	if err := s.authz.Authorize(actor, rule.capability, snapshot); err != nil {
		return nil, err
	}

	if kind == models.TransitionReject && strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validation("a rejection reason is required")
	}

	if kind == models.TransitionSubmit {
		if err := s.checkRequiredFields(snapshot); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	newVersion := snapshot.Version + 1

	updates := map[string]interface{}{
		"lifecycle_state": rule.to,
		"version":         newVersion,
		"updated_by":      actor.ID,
		"updated_at":      now,
	}
	for column, value := range extra {
		updates[column] = value
	}

	switch kind {
	case models.TransitionSubmit:
		updates["submitted_at"] = now
		// Resubmitting a rejected asset starts a fresh review
		updates["rejection_reason"] = ""
	case models.TransitionApprove:
		updates["approved_at"] = now
		updates["approved_by"] = actor.ID
	case models.TransitionReject:
		updates["rejection_reason"] = reason
	case models.TransitionRevise:
		updates["rejection_reason"] = ""
	}

	entry := &models.ApprovalHistoryEntry{
		AssetID:       snapshot.ID,
		Action:        kind,
		PreviousState: snapshot.LifecycleState,
		NewState:      rule.to,
		Reason:        reason,
		Changes: models.JSONB{
			"lifecycle_state": map[string]interface{}{
				"old": string(snapshot.LifecycleState),
				"new": string(rule.to),
			},
		},
		PerformedBy: actor.ID,
		PerformedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Asset{}).
			Where("id = ? AND version = ?", snapshot.ID, snapshot.Version).
			Updates(updates)
		if result.Error != nil {
			return apperrors.FromDB(result.Error, "asset")
		}
		if result.RowsAffected == 0 {
			return apperrors.Conflict("asset was modified concurrently, reload and retry")
		}
		return s.audit.appendTx(tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, actor, snapshot, kind, reason, newVersion)

	return s.loadResult(ctx, snapshot.ID)
}

// afterCommit runs projection and side-effect hooks. All of them observe a
// state that is already durable; failures here are logged, never rolled
// back.
func (s *WorkflowService) afterCommit(ctx context.Context, actor models.Actor, snapshot *models.Asset,
	kind models.TransitionKind, reason string, version int64) {

	switch kind {
	case models.TransitionApprove:
		if err := s.lineage.ActivateForSource(ctx, snapshot.ID); err != nil {
			s.log.WithError(err).WithField("asset_id", snapshot.ID).Warn("failed to activate lineage edges")
		}
	case models.TransitionArchive:
		if err := s.lineage.SuspendForSource(ctx, snapshot.ID, actor.ID); err != nil {
			s.log.WithError(err).WithField("asset_id", snapshot.ID).Warn("failed to suspend lineage edges")
		}
	}

	if s.notifier != nil {
		s.notifier.AssetChanged(snapshot.ID, version)
	}

	if s.notifications != nil {
		if err := s.notifications.NotifyTransition(ctx, snapshot, kind, actor, reason); err != nil {
			s.log.WithError(err).Warn("failed to record workflow notification")
		}
	}
}

func (s *WorkflowService) checkRequiredFields(asset *models.Asset) error {
	if asset.ReportType == nil {
		return nil
	}
	missing := asset.ReportType.MissingFields(asset.Metadata)
	if len(missing) > 0 {
		return apperrors.Validation("metadata is missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (s *WorkflowService) loadResult(ctx context.Context, assetID uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.WithContext(ctx).
		Preload("Category").Preload("ReportType").Preload("Owner").
		First(&asset, "id = ?", assetID).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "asset")
	}
	return &asset, nil
}

func stateIn(state models.LifecycleState, states []models.LifecycleState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}
