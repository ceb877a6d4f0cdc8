// internal/handlers/reference.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dataatlas/catalog-backend/internal/middleware"
	"github.com/dataatlas/catalog-backend/internal/services"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

type ReferenceHandler struct {
	references *services.ReferenceService
}

func NewReferenceHandler(references *services.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{references: references}
}

func (h *ReferenceHandler) ListCategories(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"
	categories, err := h.references.ListCategories(c.Request.Context(), includeInactive)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, categories)
}

func (h *ReferenceHandler) CreateCategory(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req services.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	category, err := h.references.CreateCategory(c.Request.Context(), actor, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedResponse(c, category)
}

func (h *ReferenceHandler) ListReportTypes(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"
	reportTypes, err := h.references.ListReportTypes(c.Request.Context(), includeInactive)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, reportTypes)
}

func (h *ReferenceHandler) CreateReportType(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req services.CreateReportTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	reportType, err := h.references.CreateReportType(c.Request.Context(), actor, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedResponse(c, reportType)
}
