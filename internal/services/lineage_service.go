// internal/services/lineage_service.go
package services

import (
	"context"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/config"
	"github.com/dataatlas/catalog-backend/internal/models"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

// LineageService manages the directed lineage multigraph. Edges hang off
// approved source assets; targets may be internal assets or external system
// descriptors. Cycles are legal, traversal handles them.
type LineageService struct {
	db       *gorm.DB
	authz    *AuthorizationService
	notifier StateChangeNotifier
	maxDepth int
	maxNodes int
}

func NewLineageService(db *gorm.DB, authz *AuthorizationService, cfg config.LineageConfig) *LineageService {
	return &LineageService{
		db:       db,
		authz:    authz,
		maxDepth: cfg.DefaultMaxDepth,
		maxNodes: cfg.MaxNodes,
	}
}

// SetNotifier attaches the projection notifier. Lineage and search are
// constructed in that order because the index consumes lineage flags.
func (s *LineageService) SetNotifier(notifier StateChangeNotifier) {
	s.notifier = notifier
}

type AddRelationshipRequest struct {
	SourceAssetID     uuid.UUID               `json:"source_asset_id" validate:"required"`
	TargetAssetID     *uuid.UUID              `json:"target_asset_id"`
	ExternalSystem    string                  `json:"external_system" validate:"max=100"`
	ExternalName      string                  `json:"external_name" validate:"max=255"`
	ExternalReference string                  `json:"external_reference"`
	Kind              models.RelationshipKind `json:"kind" validate:"required"`
	Description       string                  `json:"description" validate:"max=2000"`
}

func (s *LineageService) AddRelationship(ctx context.Context, actor models.Actor, req *AddRelationshipRequest) (*models.AssetRelationship, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid relationship")
	}
	if !req.Kind.Valid() {
		return nil, apperrors.Validation("unknown relationship kind %q", req.Kind)
	}
	if req.TargetAssetID == nil && req.ExternalName == "" {
		return nil, apperrors.Validation("relationship needs an internal target or an external name")
	}
	if req.TargetAssetID != nil && req.ExternalName != "" {
		return nil, apperrors.Validation("relationship cannot have both an internal and an external target")
	}
	if req.TargetAssetID != nil && *req.TargetAssetID == req.SourceAssetID {
		return nil, apperrors.Validation("an asset cannot relate to itself")
	}

	var source models.Asset
	err := s.db.WithContext(ctx).First(&source, "id = ?", req.SourceAssetID).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "source asset")
	}
	if source.LifecycleState != models.StateApproved {
		return nil, apperrors.InvalidState("lineage requires an approved source, asset is %s", source.LifecycleState)
	}
	if err := s.authz.Authorize(actor, CapabilityManageLineage, &source); err != nil {
		return nil, err
	}

	if req.TargetAssetID != nil {
		var count int64
		err := s.db.WithContext(ctx).Model(&models.Asset{}).Where("id = ?", *req.TargetAssetID).Count(&count).Error
		if err != nil {
			return nil, apperrors.FromDB(err, "target asset")
		}
		if count == 0 {
			return nil, apperrors.NotFound("target asset %s not found", *req.TargetAssetID)
		}
	}

	rel := &models.AssetRelationship{
		SourceAssetID:     req.SourceAssetID,
		TargetAssetID:     req.TargetAssetID,
		ExternalSystem:    req.ExternalSystem,
		ExternalName:      req.ExternalName,
		ExternalReference: req.ExternalReference,
		Kind:              req.Kind,
		Description:       req.Description,
		Status:            models.RelationshipActive,
		CreatedBy:         actor.ID,
	}
	if err := s.db.WithContext(ctx).Create(rel).Error; err != nil {
		return nil, apperrors.FromDB(err, "relationship")
	}

	s.notifyEndpoints(ctx, rel)
	return rel, nil
}

// RemoveRelationship soft-deletes an edge. The row stays for audit and is
// never resurrected by re-approval.
func (s *LineageService) RemoveRelationship(ctx context.Context, actor models.Actor, relID uuid.UUID) error {
	var rel models.AssetRelationship
	err := s.db.WithContext(ctx).First(&rel, "id = ?", relID).Error
	if err != nil {
		return apperrors.FromDB(err, "relationship")
	}

	var source models.Asset
	if err := s.db.WithContext(ctx).First(&source, "id = ?", rel.SourceAssetID).Error; err != nil {
		return apperrors.FromDB(err, "source asset")
	}
	if err := s.authz.Authorize(actor, CapabilityManageLineage, &source); err != nil {
		return err
	}

	if rel.Status == models.RelationshipInactive {
		return nil
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Model(&rel).Updates(map[string]interface{}{
		"status":         models.RelationshipInactive,
		"deactivated_at": now,
		"deactivated_by": actor.ID,
	}).Error
	if err != nil {
		return apperrors.FromDB(err, "relationship")
	}

	s.notifyEndpoints(ctx, &rel)
	return nil
}

// ActivateForSource restores suspended edges when a source is approved
// again. Explicitly removed edges stay removed.
func (s *LineageService) ActivateForSource(ctx context.Context, sourceID uuid.UUID) error {
	err := s.db.WithContext(ctx).Model(&models.AssetRelationship{}).
		Where("source_asset_id = ? AND status = ?", sourceID, models.RelationshipSuspended).
		Updates(map[string]interface{}{
			"status":         models.RelationshipActive,
			"deactivated_at": nil,
			"deactivated_by": nil,
		}).Error
	return apperrors.FromDB(err, "relationship")
}

// SuspendForSource hides the outgoing edges of an archived source from
// default traversal while keeping them for audit views.
func (s *LineageService) SuspendForSource(ctx context.Context, sourceID uuid.UUID, actorID uuid.UUID) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&models.AssetRelationship{}).
		Where("source_asset_id = ? AND status = ?", sourceID, models.RelationshipActive).
		Updates(map[string]interface{}{
			"status":         models.RelationshipSuspended,
			"deactivated_at": now,
			"deactivated_by": actorID,
		}).Error
	return apperrors.FromDB(err, "relationship")
}

// ListForAsset returns the asset's direct edges in both directions,
// including suspended ones so owners can see what archiving hid.
func (s *LineageService) ListForAsset(ctx context.Context, assetID uuid.UUID) (upstream, downstream []models.AssetRelationship, err error) {
	visible := []models.RelationshipStatus{models.RelationshipActive, models.RelationshipSuspended}

	err = s.db.WithContext(ctx).
		Where("target_asset_id = ? AND status IN ?", assetID, visible).
		Preload("SourceAsset").
		Order("created_at ASC").
		Find(&upstream).Error
	if err != nil {
		return nil, nil, apperrors.FromDB(err, "relationship")
	}

	err = s.db.WithContext(ctx).
		Where("source_asset_id = ? AND status IN ?", assetID, visible).
		Preload("TargetAsset").
		Order("created_at ASC").
		Find(&downstream).Error
	if err != nil {
		return nil, nil, apperrors.FromDB(err, "relationship")
	}
	return upstream, downstream, nil
}

// HasLineage reports whether the asset has active internal or external
// edges in either direction. Feeds the lineage search facet.
func (s *LineageService) HasLineage(ctx context.Context, assetID uuid.UUID) (hasUpstream, hasDownstream bool, err error) {
	var upCount, downCount int64
	err = s.db.WithContext(ctx).Model(&models.AssetRelationship{}).
		Where("target_asset_id = ? AND status = ?", assetID, models.RelationshipActive).
		Count(&upCount).Error
	if err != nil {
		return false, false, apperrors.FromDB(err, "relationship")
	}
	err = s.db.WithContext(ctx).Model(&models.AssetRelationship{}).
		Where("source_asset_id = ? AND status = ?", assetID, models.RelationshipActive).
		Count(&downCount).Error
	if err != nil {
		return false, false, apperrors.FromDB(err, "relationship")
	}
	return upCount > 0, downCount > 0, nil
}

type traversalDirection int

const (
	traverseUpstream traversalDirection = iota
	traverseDownstream
)

// Upstream returns the internal assets reachable against edge direction,
// breadth-first in discovery order, each at most once. maxDepth <= 0 uses
// the configured default.
func (s *LineageService) Upstream(ctx context.Context, assetID uuid.UUID, maxDepth int, includeArchived bool) ([]models.Asset, error) {
	return s.traverse(ctx, assetID, traverseUpstream, maxDepth, includeArchived)
}

// Downstream returns the internal assets reachable along edge direction.
func (s *LineageService) Downstream(ctx context.Context, assetID uuid.UUID, maxDepth int, includeArchived bool) ([]models.Asset, error) {
	return s.traverse(ctx, assetID, traverseDownstream, maxDepth, includeArchived)
}

func (s *LineageService) traverse(ctx context.Context, rootID uuid.UUID, direction traversalDirection, maxDepth int, includeArchived bool) ([]models.Asset, error) {
	if maxDepth <= 0 {
		maxDepth = s.maxDepth
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Asset{}).Where("id = ?", rootID).Count(&count).Error; err != nil {
		return nil, apperrors.FromDB(err, "asset")
	}
	if count == 0 {
		return nil, apperrors.NotFound("asset %s not found", rootID)
	}

	// The visited set keeps cyclic graphs from looping; the root is visited
	// up front and never returned.
	visited := mapset.NewThreadUnsafeSet[uuid.UUID]()
	visited.Add(rootID)

	type frontierItem struct {
		id    uuid.UUID
		depth int
	}
	frontier := []frontierItem{{id: rootID, depth: 0}}
	var order []uuid.UUID

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.KindUnavailable, err, "lineage traversal cancelled")
		}

		item := frontier[0]
		frontier = frontier[1:]
		if item.depth >= maxDepth {
			continue
		}

		neighbors, err := s.neighborIDs(ctx, item.id, direction, includeArchived)
		if err != nil {
			return nil, err
		}
		for _, next := range neighbors {
			if visited.Contains(next) {
				continue
			}
			visited.Add(next)
			order = append(order, next)
			frontier = append(frontier, frontierItem{id: next, depth: item.depth + 1})
			if len(order) >= s.maxNodes {
				frontier = nil
				break
			}
		}
	}

	return s.assetsInOrder(ctx, order)
}

func (s *LineageService) neighborIDs(ctx context.Context, assetID uuid.UUID, direction traversalDirection, includeArchived bool) ([]uuid.UUID, error) {
	statuses := []models.RelationshipStatus{models.RelationshipActive}
	if includeArchived {
		statuses = append(statuses, models.RelationshipSuspended)
	}

	var rels []models.AssetRelationship
	query := s.db.WithContext(ctx).Where("status IN ?", statuses).Order("created_at ASC")
	if direction == traverseDownstream {
		query = query.Where("source_asset_id = ? AND target_asset_id IS NOT NULL", assetID)
	} else {
		query = query.Where("target_asset_id = ?", assetID)
	}
	if err := query.Find(&rels).Error; err != nil {
		return nil, apperrors.FromDB(err, "relationship")
	}

	ids := make([]uuid.UUID, 0, len(rels))
	for _, rel := range rels {
		if direction == traverseDownstream {
			ids = append(ids, *rel.TargetAssetID)
		} else {
			ids = append(ids, rel.SourceAssetID)
		}
	}
	return ids, nil
}

func (s *LineageService) assetsInOrder(ctx context.Context, ids []uuid.UUID) ([]models.Asset, error) {
	if len(ids) == 0 {
		return []models.Asset{}, nil
	}

	var assets []models.Asset
	err := s.db.WithContext(ctx).
		Preload("Category").Preload("Owner").
		Where("id IN ?", ids).
		Find(&assets).Error
	if err != nil {
		return nil, apperrors.FromDB(err, "asset")
	}

	byID := make(map[uuid.UUID]models.Asset, len(assets))
	for _, asset := range assets {
		byID[asset.ID] = asset
	}
	ordered := make([]models.Asset, 0, len(ids))
	for _, id := range ids {
		if asset, ok := byID[id]; ok {
			ordered = append(ordered, asset)
		}
	}
	return ordered, nil
}

type LineageNode struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Type           string `json:"type"` // asset or external
	LifecycleState string `json:"lifecycle_state,omitempty"`
	ExternalSystem string `json:"external_system,omitempty"`
	Depth          int    `json:"depth"`
}

type LineageEdge struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
}

type LineageGraph struct {
	RootID string        `json:"root_id"`
	Nodes  []LineageNode `json:"nodes"`
	Edges  []LineageEdge `json:"edges"`
	Stats  LineageStats  `json:"stats"`
}

type LineageStats struct {
	NodeCount     int `json:"node_count"`
	EdgeCount     int `json:"edge_count"`
	ExternalCount int `json:"external_count"`
	MaxDepth      int `json:"max_depth"`
}

// Graph builds the full neighborhood payload around one asset, walking both
// directions and including external sink nodes. Consumers render it; this
// service only assembles it.
func (s *LineageService) Graph(ctx context.Context, rootID uuid.UUID, maxDepth int, includeExternal, includeArchived bool) (*LineageGraph, error) {
	if maxDepth <= 0 {
		maxDepth = s.maxDepth
	}

	var root models.Asset
	if err := s.db.WithContext(ctx).First(&root, "id = ?", rootID).Error; err != nil {
		return nil, apperrors.FromDB(err, "asset")
	}

	graph := &LineageGraph{RootID: rootID.String()}
	nodes := map[string]*LineageNode{}
	addAssetNode := func(asset *models.Asset, depth int) {
		key := asset.ID.String()
		if existing, ok := nodes[key]; ok {
			if depth < existing.Depth {
				existing.Depth = depth
			}
			return
		}
		nodes[key] = &LineageNode{
			ID:             key,
			Title:          asset.Title,
			Type:           "asset",
			LifecycleState: string(asset.LifecycleState),
			Depth:          depth,
		}
	}
	addAssetNode(&root, 0)

	statuses := []models.RelationshipStatus{models.RelationshipActive}
	if includeArchived {
		statuses = append(statuses, models.RelationshipSuspended)
	}

	visited := mapset.NewThreadUnsafeSet[uuid.UUID]()
	visited.Add(rootID)
	edgeSeen := mapset.NewThreadUnsafeSet[uuid.UUID]()

	type frontierItem struct {
		id    uuid.UUID
		depth int
	}
	frontier := []frontierItem{{id: rootID, depth: 0}}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.KindUnavailable, err, "lineage traversal cancelled")
		}
		item := frontier[0]
		frontier = frontier[1:]
		if item.depth >= maxDepth || len(nodes) >= s.maxNodes {
			continue
		}

		var rels []models.AssetRelationship
		err := s.db.WithContext(ctx).
			Where("(source_asset_id = ? OR target_asset_id = ?) AND status IN ?", item.id, item.id, statuses).
			Order("created_at ASC").
			Find(&rels).Error
		if err != nil {
			return nil, apperrors.FromDB(err, "relationship")
		}

		for _, rel := range rels {
			if rel.IsExternal() {
				if !includeExternal {
					continue
				}
				key := rel.TargetKey()
				if _, ok := nodes[key]; !ok {
					nodes[key] = &LineageNode{
						ID:             key,
						Title:          rel.ExternalName,
						Type:           "external",
						ExternalSystem: rel.ExternalSystem,
						Depth:          item.depth + 1,
					}
				}
			}

			if !edgeSeen.Contains(rel.ID) {
				edgeSeen.Add(rel.ID)
				graph.Edges = append(graph.Edges, LineageEdge{
					ID:       rel.ID.String(),
					SourceID: rel.SourceAssetID.String(),
					TargetID: rel.TargetKey(),
					Kind:     string(rel.Kind),
					Status:   string(rel.Status),
				})
			}

			for _, nextID := range internalEndpoints(&rel, item.id) {
				if visited.Contains(nextID) {
					continue
				}
				visited.Add(nextID)
				var neighbor models.Asset
				if err := s.db.WithContext(ctx).First(&neighbor, "id = ?", nextID).Error; err != nil {
					continue
				}
				addAssetNode(&neighbor, item.depth+1)
				frontier = append(frontier, frontierItem{id: nextID, depth: item.depth + 1})
			}
		}
	}

	for _, node := range nodes {
		graph.Nodes = append(graph.Nodes, *node)
		if node.Type == "external" {
			graph.Stats.ExternalCount++
		}
		if node.Depth > graph.Stats.MaxDepth {
			graph.Stats.MaxDepth = node.Depth
		}
	}
	sortNodes(graph.Nodes)
	graph.Stats.NodeCount = len(graph.Nodes)
	graph.Stats.EdgeCount = len(graph.Edges)
	return graph, nil
}

func internalEndpoints(rel *models.AssetRelationship, from uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	if rel.SourceAssetID != from {
		out = append(out, rel.SourceAssetID)
	}
	if rel.TargetAssetID != nil && *rel.TargetAssetID != from {
		out = append(out, *rel.TargetAssetID)
	}
	return out
}

func sortNodes(nodes []LineageNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Depth != nodes[j].Depth {
			return nodes[i].Depth < nodes[j].Depth
		}
		return nodes[i].ID < nodes[j].ID
	})
}

func (s *LineageService) notifyEndpoints(ctx context.Context, rel *models.AssetRelationship) {
	if s.notifier == nil {
		return
	}
	s.notifyAsset(ctx, rel.SourceAssetID)
	if rel.TargetAssetID != nil {
		s.notifyAsset(ctx, *rel.TargetAssetID)
	}
}

// notifyAsset re-reads the current version so the index event carries the
// commit sequence of the state it should reflect.
func (s *LineageService) notifyAsset(ctx context.Context, assetID uuid.UUID) {
	var asset models.Asset
	if err := s.db.WithContext(ctx).Select("id", "version").First(&asset, "id = ?", assetID).Error; err != nil {
		return
	}
	s.notifier.AssetChanged(asset.ID, asset.Version)
}
