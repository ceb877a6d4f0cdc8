// internal/handlers/lineage.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dataatlas/catalog-backend/internal/middleware"
	"github.com/dataatlas/catalog-backend/internal/services"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

type LineageHandler struct {
	lineage *services.LineageService
}

func NewLineageHandler(lineage *services.LineageService) *LineageHandler {
	return &LineageHandler{lineage: lineage}
}

func (h *LineageHandler) AddRelationship(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid asset id")
		return
	}

	var req services.AddRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	req.SourceAssetID = assetID

	rel, err := h.lineage.AddRelationship(c.Request.Context(), actor, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedResponse(c, rel)
}

func (h *LineageHandler) RemoveRelationship(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	relID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid relationship id")
		return
	}

	if err := h.lineage.RemoveRelationship(c.Request.Context(), actor, relID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"removed": true})
}

func (h *LineageHandler) ListRelationships(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid asset id")
		return
	}

	upstream, downstream, err := h.lineage.ListForAsset(c.Request.Context(), assetID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"upstream": upstream, "downstream": downstream})
}

func (h *LineageHandler) Upstream(c *gin.Context) {
	assetID, maxDepth, includeArchived, ok := traversalParams(c)
	if !ok {
		return
	}

	assets, err := h.lineage.Upstream(c.Request.Context(), assetID, maxDepth, includeArchived)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, assets)
}

func (h *LineageHandler) Downstream(c *gin.Context) {
	assetID, maxDepth, includeArchived, ok := traversalParams(c)
	if !ok {
		return
	}

	assets, err := h.lineage.Downstream(c.Request.Context(), assetID, maxDepth, includeArchived)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, assets)
}

func traversalParams(c *gin.Context) (assetID uuid.UUID, maxDepth int, includeArchived bool, ok bool) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid asset id")
		return uuid.Nil, 0, false, false
	}
	maxDepth, _ = strconv.Atoi(c.DefaultQuery("max_depth", "0"))
	includeArchived = c.Query("include_archived") == "true"
	return assetID, maxDepth, includeArchived, true
}

func (h *LineageHandler) Graph(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid asset id")
		return
	}

	maxDepth, _ := strconv.Atoi(c.DefaultQuery("max_depth", "0"))
	includeExternal := c.DefaultQuery("include_external", "true") == "true"
	includeArchived := c.Query("include_archived") == "true"

	graph, err := h.lineage.Graph(c.Request.Context(), assetID, maxDepth, includeExternal, includeArchived)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, graph)
}
