// internal/handlers/auth.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dataatlas/catalog-backend/internal/middleware"
	"github.com/dataatlas/catalog-backend/internal/services"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	resp, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedResponse(c, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	resp, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, resp)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "refresh_token is required")
		return
	}

	resp, err := h.users.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, resp)
}

func (h *AuthHandler) Me(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	user, err := h.users.Get(c.Request.Context(), actor.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, user)
}
