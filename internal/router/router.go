// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dataatlas/catalog-backend/internal/config"
	"github.com/dataatlas/catalog-backend/internal/handlers"
	"github.com/dataatlas/catalog-backend/internal/middleware"
	"github.com/dataatlas/catalog-backend/internal/services"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

// Initialize wires services, handlers and routes. The search service is
// returned so the caller owns its consumer lifecycle.
func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, *services.SearchService, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Services
	authzService := services.NewAuthorizationService(cfg.Workflow)
	auditService := services.NewAuditService(db)
	notificationService := services.NewNotificationService(db)

	lineageService := services.NewLineageService(db, authzService, cfg.Lineage)
	searchService, err := services.NewSearchService(db, lineageService, cfg.Search)
	if err != nil {
		return nil, nil, err
	}
	lineageService.SetNotifier(searchService)

	workflowService := services.NewWorkflowService(db, auditService, authzService,
		lineageService, notificationService, searchService)
	assetService := services.NewAssetService(db, workflowService, authzService, searchService)
	referenceService := services.NewReferenceService(db, authzService)
	teamService := services.NewTeamService(db)
	userService := services.NewUserService(db, authzService, cfg.JWT)
	adminService := services.NewAdminService(db, searchService)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, nil, err
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	assetHandler := handlers.NewAssetHandler(assetService, workflowService, auditService, storageService)
	lineageHandler := handlers.NewLineageHandler(lineageService)
	searchHandler := handlers.NewSearchHandler(searchService)
	referenceHandler := handlers.NewReferenceHandler(referenceService)
	teamHandler := handlers.NewTeamHandler(teamService)
	adminHandler := handlers.NewAdminHandler(adminService, userService, searchService, notificationService)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.CORS(cfg.CORS))
	engine.Use(middleware.RateLimit(cfg.RateLimit))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
		}

		assets := v1.Group("/assets")
		assets.Use(middleware.AuthRequired())
		{
			assets.POST("", assetHandler.Create)
			assets.GET("", assetHandler.List)
			assets.POST("/upload", assetHandler.Upload)
			assets.GET("/download-url", assetHandler.PresignedURL)
			assets.GET("/:id", assetHandler.Get)
			assets.PUT("/:id", assetHandler.Update)
			assets.DELETE("/:id", assetHandler.Delete)

			assets.POST("/:id/submit", assetHandler.Submit)
			assets.POST("/:id/approve", assetHandler.Approve)
			assets.POST("/:id/reject", assetHandler.Reject)
			assets.POST("/:id/archive", assetHandler.Archive)
			assets.GET("/:id/history", assetHandler.History)

			assets.GET("/:id/lineage", lineageHandler.Graph)
			assets.GET("/:id/relationships", lineageHandler.ListRelationships)
			assets.POST("/:id/relationships", lineageHandler.AddRelationship)
			assets.GET("/:id/upstream", lineageHandler.Upstream)
			assets.GET("/:id/downstream", lineageHandler.Downstream)
		}

		v1.DELETE("/relationships/:id", middleware.AuthRequired(), lineageHandler.RemoveRelationship)

		search := v1.Group("/search")
		search.Use(middleware.OptionalAuth())
		{
			search.GET("", searchHandler.Search)
			search.GET("/suggestions", searchHandler.Suggestions)
		}

		references := v1.Group("")
		references.Use(middleware.AuthRequired())
		{
			references.GET("/categories", referenceHandler.ListCategories)
			references.POST("/categories", referenceHandler.CreateCategory)
			references.GET("/report-types", referenceHandler.ListReportTypes)
			references.POST("/report-types", referenceHandler.CreateReportType)
		}

		teams := v1.Group("/teams")
		teams.Use(middleware.AuthRequired())
		{
			teams.POST("", teamHandler.Create)
			teams.GET("", teamHandler.List)
			teams.GET("/:id", teamHandler.Get)
			teams.POST("/:id/members", teamHandler.AddMember)
			teams.DELETE("/:id/members/:user_id", teamHandler.RemoveMember)
		}

		favorites := v1.Group("/users/favorites")
		favorites.Use(middleware.AuthRequired())
		{
			favorites.GET("", teamHandler.ListFavorites)
			favorites.POST("", teamHandler.AddFavorite)
			favorites.DELETE("/:asset_id", teamHandler.RemoveFavorite)
		}

		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", adminHandler.ListNotifications)
			notifications.PUT("/:id/read", adminHandler.MarkNotificationRead)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard/stats", adminHandler.DashboardStats)
			admin.GET("/assets/pending", adminHandler.PendingAssets)
			admin.POST("/search/rebuild", adminHandler.RebuildIndex)
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/role", adminHandler.UpdateUserRole)
			admin.POST("/users/:id/deactivate", adminHandler.DeactivateUser)
		}
	}

	return engine, searchService, nil
}
