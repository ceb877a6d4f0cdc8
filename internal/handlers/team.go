// internal/handlers/team.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dataatlas/catalog-backend/internal/middleware"
	"github.com/dataatlas/catalog-backend/internal/services"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

type TeamHandler struct {
	teams *services.TeamService
}

func NewTeamHandler(teams *services.TeamService) *TeamHandler {
	return &TeamHandler{teams: teams}
}

func (h *TeamHandler) Create(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req services.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	team, err := h.teams.CreateTeam(c.Request.Context(), actor, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedResponse(c, team)
}

func (h *TeamHandler) Get(c *gin.Context) {
	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid team id")
		return
	}

	team, err := h.teams.GetTeam(c.Request.Context(), teamID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, team)
}

func (h *TeamHandler) List(c *gin.Context) {
	teams, err := h.teams.ListTeams(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, teams)
}

func (h *TeamHandler) AddMember(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid team id")
		return
	}

	var req services.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	member, err := h.teams.AddMember(c.Request.Context(), actor, teamID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedResponse(c, member)
}

func (h *TeamHandler) RemoveMember(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid team id")
		return
	}
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid user id")
		return
	}

	if err := h.teams.RemoveMember(c.Request.Context(), actor, teamID, userID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"removed": true})
}

func (h *TeamHandler) AddFavorite(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req services.AddFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	favorite, err := h.teams.AddFavorite(c.Request.Context(), actor, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedResponse(c, favorite)
}

func (h *TeamHandler) RemoveFavorite(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	assetID, err := uuid.Parse(c.Param("asset_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid asset id")
		return
	}

	if err := h.teams.RemoveFavorite(c.Request.Context(), actor, assetID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"removed": true})
}

func (h *TeamHandler) ListFavorites(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	favorites, err := h.teams.ListFavorites(c.Request.Context(), actor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, favorites)
}
