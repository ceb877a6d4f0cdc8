// internal/services/audit_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/models"
)

// AuditService owns the append-only approval history. Entries are never
// updated or deleted; correcting a mistake means appending a new transition.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Append records a single history entry outside a workflow transaction.
// Workflow transitions use appendTx so the entry commits with the state
// change.
func (s *AuditService) Append(ctx context.Context, entry *models.ApprovalHistoryEntry) error {
	return s.appendTx(s.db.WithContext(ctx), entry)
}

// appendTx writes an entry within the caller's transaction. The
// (asset, performed_at, action) idempotency key is checked first so a
// retried write returns Conflict instead of a second entry; the unique
// index backs the check under concurrency.
func (s *AuditService) appendTx(tx *gorm.DB, entry *models.ApprovalHistoryEntry) error {
	var count int64
	err := tx.Model(&models.ApprovalHistoryEntry{}).
		Where("asset_id = ? AND performed_at = ? AND action = ?",
			entry.AssetID, entry.PerformedAt, entry.Action).
		Count(&count).Error
	if err != nil {
		return apperrors.FromDB(err, "approval history")
	}
	if count > 0 {
		return apperrors.Conflict("history entry already recorded for %s at %s",
			entry.Action, entry.PerformedAt.Format("2006-01-02T15:04:05.000Z07:00"))
	}

	if err := tx.Create(entry).Error; err != nil {
		return apperrors.FromDB(err, "approval history")
	}
	return nil
}

// History returns the complete transition log for an asset, oldest first.
// History reads are never paginated; audits need the full record.
func (s *AuditService) History(ctx context.Context, assetID uuid.UUID) ([]models.ApprovalHistoryEntry, error) {
	var entries []models.ApprovalHistoryEntry
	err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("performed_at ASC, created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "approval history")
	}
	return entries, nil
}

// VerifyReplay recomputes the lifecycle state from history and compares it
// with the stored state. Used by the admin surface as a consistency probe.
func (s *AuditService) VerifyReplay(ctx context.Context, asset *models.Asset) error {
	entries, err := s.History(ctx, asset.ID)
	if err != nil {
		return err
	}
	replayed := models.ReplayHistory(entries)
	if replayed != asset.LifecycleState {
		return fmt.Errorf("history replay yields %s but asset is %s", replayed, asset.LifecycleState)
	}
	return nil
}
