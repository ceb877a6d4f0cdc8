// internal/services/authorization_service.go
package services

import (
	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/config"
	"github.com/dataatlas/catalog-backend/internal/models"
)

// Capability names an action an actor may be granted on the catalog.
type Capability string

const (
	CapabilityCreateAsset   Capability = "asset:create"
	CapabilityEditAsset     Capability = "asset:edit"
	CapabilityDeleteAsset   Capability = "asset:delete"
	CapabilitySubmitAsset   Capability = "asset:submit"
	CapabilityApproveAsset  Capability = "asset:approve"
	CapabilityRejectAsset   Capability = "asset:reject"
	CapabilityArchiveAsset  Capability = "asset:archive"
	CapabilityManageLineage Capability = "lineage:manage"
	CapabilityManageRefs    Capability = "references:manage"
	CapabilityRebuildIndex  Capability = "search:rebuild"
	CapabilityManageUsers   Capability = "users:manage"
)

// AuthorizationService decides role checks in one place. Every guarded
// operation calls Authorize at its top; there is no ambient permission
// state on the request path.
type AuthorizationService struct {
	allowOwnerApproval bool
}

func NewAuthorizationService(cfg config.WorkflowConfig) *AuthorizationService {
	return &AuthorizationService{allowOwnerApproval: cfg.AllowOwnerApproval}
}

// Authorize returns a Forbidden error when the actor may not exercise the
// capability. asset may be nil for capabilities not scoped to one.
func (s *AuthorizationService) Authorize(actor models.Actor, capability Capability, asset *models.Asset) error {
	if actor.IsAdmin() {
		return nil
	}

	switch capability {
	case CapabilityCreateAsset:
		return nil

	case CapabilityEditAsset, CapabilitySubmitAsset, CapabilityDeleteAsset, CapabilityManageLineage:
		if asset != nil && asset.OwnedBy(actor.ID) {
			return nil
		}
		return apperrors.Forbidden("only the asset owner may %s", verbFor(capability))

	case CapabilityApproveAsset, CapabilityRejectAsset:
		if s.allowOwnerApproval && actor.Role == models.RoleDataOwner && asset != nil && asset.OwnedBy(actor.ID) {
			return nil
		}
		return apperrors.Forbidden("approval decisions require an administrator")

	case CapabilityArchiveAsset:
		if actor.Role == models.RoleDataOwner && asset != nil && asset.OwnedBy(actor.ID) {
			return nil
		}
		return apperrors.Forbidden("only an administrator or the owning data owner may archive")

	case CapabilityManageRefs, CapabilityRebuildIndex, CapabilityManageUsers:
		return apperrors.Forbidden("administrator access required")
	}

	return apperrors.Forbidden("not authorized")
}

func verbFor(capability Capability) string {
	switch capability {
	case CapabilityEditAsset:
		return "edit this asset"
	case CapabilitySubmitAsset:
		return "submit this asset"
	case CapabilityDeleteAsset:
		return "delete this asset"
	case CapabilityManageLineage:
		return "manage lineage for this asset"
	}
	return string(capability)
}
