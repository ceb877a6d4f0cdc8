// internal/handlers/search.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dataatlas/catalog-backend/internal/models"
	"github.com/dataatlas/catalog-backend/internal/services"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

type SearchHandler struct {
	search *services.SearchService
}

func NewSearchHandler(search *services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// facetParams maps query parameter names to facet names.
var facetParams = map[string]string{
	"category":        models.FacetCategory,
	"report_type":     models.FacetReportType,
	"access_level":    models.FacetAccessLevel,
	"lifecycle_state": models.FacetLifecycleState,
	"team":            models.FacetTeam,
	"lineage":         models.FacetLineage,
}

func (h *SearchHandler) Search(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	query := &services.SearchQuery{
		Text:   c.Query("q"),
		Facets: map[string][]string{},
		Page:   page,
		Limit:  limit,
	}
	for param, facet := range facetParams {
		if values := c.QueryArray(param); len(values) > 0 {
			query.Facets[facet] = values
		}
	}

	result, err := h.search.Search(c.Request.Context(), query)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, result)
}

func (h *SearchHandler) Suggestions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	suggestions, err := h.search.Suggest(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"suggestions": suggestions})
}
