package main

import (
	"github.com/gin-gonic/gin"
	"github.com/indyforge/groupindustry/internal/handlers"
	"github.com/indyforge/groupindustry/internal/middleware"
	"github.com/indyforge/groupindustry/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.RequestMetrics())
	r.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(svc.db, svc.taskQueue)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics(svc.db, svc.taskQueue))

	syncLimiter := middleware.NewRateLimiter(5, 20)

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	{
		// Users
		userHandler := handlers.NewUserHandler(svc.db)
		api.GET("/users/me", userHandler.Me)
		api.GET("/users", userHandler.List)
		api.POST("/users", middleware.AdminRequired(), userHandler.Create)

		// Projects
		projectHandler := handlers.NewProjectHandler(svc.projects, svc.priceRefresh)
		memberHandler := handlers.NewMemberHandler(svc.members)
		contributionHandler := handlers.NewContributionHandler(svc.ledger)
		saleHandler := handlers.NewSaleHandler(svc.sales)
		distributionHandler := handlers.NewDistributionHandler(svc.distribution, svc.exports)

		api.GET("/projects", projectHandler.List)
		api.POST("/projects", projectHandler.Create)

		project := api.Group("/projects/:id", handlers.ProjectAccess(svc.members))
		owner := handlers.OwnerOnly()
		{
			project.GET("", projectHandler.GetByID)
			project.PUT("/status", owner, projectHandler.UpdateStatus)
			project.GET("/bom", projectHandler.GetBOM)
			project.GET("/bom/export", distributionHandler.ExportBOM)
			project.POST("/prices/refresh", owner, projectHandler.RefreshPrices)

			project.GET("/members", memberHandler.List)
			project.POST("/members", owner, memberHandler.Invite)
			project.POST("/members/respond", memberHandler.Respond)

			project.GET("/contributions", contributionHandler.List)
			project.POST("/contributions", contributionHandler.Submit)
			project.POST("/contributions/:cid/approve", owner, contributionHandler.Approve)
			project.POST("/contributions/:cid/reject", owner, contributionHandler.Reject)

			project.GET("/sales", saleHandler.List)
			project.POST("/sales", saleHandler.Record)

			project.GET("/distribution", distributionHandler.Get)
			project.GET("/distribution/export", distributionHandler.Export)
		}

		// Synchronization feed
		syncHandler := handlers.NewSyncHandler(svc.taskQueue)
		api.POST("/sync/contributions", middleware.AdminRequired(), syncLimiter.Middleware(), syncHandler.SyncContributions)
	}
}
