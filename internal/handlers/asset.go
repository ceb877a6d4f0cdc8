// internal/handlers/asset.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dataatlas/catalog-backend/internal/middleware"
	"github.com/dataatlas/catalog-backend/internal/models"
	"github.com/dataatlas/catalog-backend/internal/services"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

type AssetHandler struct {
	assets   *services.AssetService
	workflow *services.WorkflowService
	audit    *services.AuditService
	storage  *services.StorageService
}

func NewAssetHandler(assets *services.AssetService, workflow *services.WorkflowService,
	audit *services.AuditService, storage *services.StorageService) *AssetHandler {
	return &AssetHandler{assets: assets, workflow: workflow, audit: audit, storage: storage}
}

func (h *AssetHandler) Create(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req services.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	asset, err := h.assets.Create(c.Request.Context(), actor, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedResponse(c, asset)
}

func (h *AssetHandler) Get(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid asset id")
		return
	}

	asset, err := h.assets.Get(c.Request.Context(), assetID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, asset)
}

func (h *AssetHandler) List(c *gin.Context) {
	filter := services.AssetFilter{PaginationParams: utils.GetPaginationParams(c)}

	for _, state := range c.QueryArray("state") {
		filter.States = append(filter.States, models.LifecycleState(state))
	}
	for _, level := range c.QueryArray("access_level") {
		filter.AccessLevels = append(filter.AccessLevels, models.AccessLevel(level))
	}
	if id, err := uuid.Parse(c.Query("category_id")); err == nil {
		filter.CategoryID = &id
	}
	if id, err := uuid.Parse(c.Query("report_type_id")); err == nil {
		filter.ReportTypeID = &id
	}
	if id, err := uuid.Parse(c.Query("owner_id")); err == nil {
		filter.OwnerID = &id
	}
	if id, err := uuid.Parse(c.Query("team_id")); err == nil {
		filter.TeamID = &id
	}

	assets, pagination, err := h.assets.List(c.Request.Context(), &filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, assets, pagination)
}

func (h *AssetHandler) Update(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid asset id")
		return
	}

	var req services.UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	asset, err := h.assets.Update(c.Request.Context(), actor, assetID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, asset)
}

func (h *AssetHandler) Delete(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid asset id")
		return
	}

	if err := h.assets.Delete(c.Request.Context(), actor, assetID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"deleted": true})
}

func (h *AssetHandler) Submit(c *gin.Context) {
	h.transition(c, func(actor models.Actor, assetID uuid.UUID, _ string) (*models.Asset, error) {
		return h.workflow.Submit(c.Request.Context(), actor, assetID)
	})
}

func (h *AssetHandler) Approve(c *gin.Context) {
	h.transition(c, func(actor models.Actor, assetID uuid.UUID, comment string) (*models.Asset, error) {
		return h.workflow.Approve(c.Request.Context(), actor, assetID, comment)
	})
}

func (h *AssetHandler) Reject(c *gin.Context) {
	h.transition(c, func(actor models.Actor, assetID uuid.UUID, reason string) (*models.Asset, error) {
		return h.workflow.Reject(c.Request.Context(), actor, assetID, reason)
	})
}

func (h *AssetHandler) Archive(c *gin.Context) {
	h.transition(c, func(actor models.Actor, assetID uuid.UUID, _ string) (*models.Asset, error) {
		return h.workflow.Archive(c.Request.Context(), actor, assetID)
	})
}

func (h *AssetHandler) transition(c *gin.Context, apply func(models.Actor, uuid.UUID, string) (*models.Asset, error)) {
	actor, _ := middleware.CurrentActor(c)
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid asset id")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	asset, err := apply(actor, assetID, body.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, asset)
}

func (h *AssetHandler) History(c *gin.Context) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid asset id")
		return
	}

	// History of a missing asset is NotFound, not an empty list
	if _, err := h.assets.Get(c.Request.Context(), assetID); err != nil {
		utils.RespondError(c, err)
		return
	}

	entries, err := h.audit.History(c.Request.Context(), assetID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, entries)
}

func (h *AssetHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "file is required")
		return
	}
	defer file.Close()

	result, err := h.storage.UploadFile(file, header, services.AssetUploadOptions())
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "UPLOAD_FAILED", err.Error())
		return
	}
	utils.CreatedResponse(c, result)
}

func (h *AssetHandler) PresignedURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "key is required")
		return
	}
	minutes, _ := strconv.Atoi(c.DefaultQuery("expires_minutes", "15"))
	if minutes < 1 || minutes > 1440 {
		minutes = 15
	}

	url, err := h.storage.GeneratePresignedURL(key, time.Duration(minutes)*time.Minute)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "PRESIGN_FAILED", err.Error())
		return
	}
	utils.SuccessResponse(c, gin.H{"url": url})
}
