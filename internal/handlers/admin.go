// internal/handlers/admin.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dataatlas/catalog-backend/internal/middleware"
	"github.com/dataatlas/catalog-backend/internal/models"
	"github.com/dataatlas/catalog-backend/internal/services"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

type AdminHandler struct {
	admin         *services.AdminService
	users         *services.UserService
	search        *services.SearchService
	notifications *services.NotificationService
}

func NewAdminHandler(admin *services.AdminService, users *services.UserService,
	search *services.SearchService, notifications *services.NotificationService) *AdminHandler {
	return &AdminHandler{admin: admin, users: users, search: search, notifications: notifications}
}

func (h *AdminHandler) DashboardStats(c *gin.Context) {
	stats, err := h.admin.GetDashboardStats(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, stats)
}

func (h *AdminHandler) PendingAssets(c *gin.Context) {
	assets, pagination, err := h.admin.PendingAssets(c.Request.Context(), utils.GetPaginationParams(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, assets, pagination)
}

// RebuildIndex kicks off a full index rebuild off the request path and
// returns immediately.
func (h *AdminHandler) RebuildIndex(c *gin.Context) {
	go func() {
		if err := h.search.Rebuild(context.Background()); err != nil {
			logrus.WithError(err).Error("manual index rebuild failed")
		}
	}()
	c.JSON(http.StatusAccepted, utils.APIResponse{Success: true, Data: gin.H{"rebuild": "started"}})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	users, pagination, err := h.users.List(c.Request.Context(), actor, utils.GetPaginationParams(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponseWithMeta(c, users, pagination)
}

func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid user id")
		return
	}

	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_BODY", "role is required")
		return
	}

	user, err := h.users.UpdateRole(c.Request.Context(), actor, userID, req.Role)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, user)
}

func (h *AdminHandler) DeactivateUser(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid user id")
		return
	}

	if err := h.users.Deactivate(c.Request.Context(), actor, userID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"deactivated": true})
}

func (h *AdminHandler) ListNotifications(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.notifications.List(c.Request.Context(), actor, unreadOnly)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, notifications)
}

func (h *AdminHandler) MarkNotificationRead(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid notification id")
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), actor, notificationID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"read": true})
}
