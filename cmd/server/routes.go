package main

import (
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/handlers"
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/middleware"
	"github.com/BarreraSlzr/automate-workloads-sub003/internal/models"
	"github.com/BarreraSlzr/automate-workloads-sub003/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for call execution routes
	callLimiter := middleware.NewRateLimiter(10, 20)

	// Health check and Prometheus metrics (public)
	healthHandler := handlers.NewHealthHandler(svc.orchestrator, svc.fossils, svc.events)
	r.GET("/health", healthHandler.CheckHealth)

	metricsHandler := handlers.NewMetricsHandler(svc.tracker, svc.fossils, svc.events)
	r.GET("/metrics", metricsHandler.Metrics)

	// API routes
	api := r.Group("/api/v1")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.POST("/token", svc.authHandler.Token)
		}

		// SSE call events (public route with internal token validation)
		sseHandler := handlers.NewSSEHandler(svc.events, svc.cfg.Auth.Enabled)
		api.GET("/events/calls", sseHandler.StreamCallEvents)

		// Service routes: open when auth is disabled, otherwise accept
		// either the service API key or a Bearer JWT.
		service := api.Group("")
		if svc.cfg.Auth.Enabled {
			service.Use(middleware.ServiceAuth(svc.cfg.Auth.APIKey))
		}
		{
			// Call execution (rate limited)
			callHandler := handlers.NewCallHandler(svc.orchestrator, svc.taskQueue)
			calls := service.Group("", callLimiter.Middleware())
			{
				calls.POST("/calls", callHandler.Execute)
				calls.POST("/calls/async", callHandler.ExecuteAsync)
				calls.POST("/calls/analyze", callHandler.Analyze)
			}

			// Provider registry status
			providerHandler := handlers.NewProviderHandler(svc.registry)
			service.GET("/providers", providerHandler.List)

			// Usage analytics
			usageHandler := handlers.NewUsageHandler(svc.tracker)
			service.GET("/usage/analytics", usageHandler.GetAnalytics)
			service.GET("/usage/metrics", usageHandler.GetMetrics)
			service.GET("/usage/stats", usageHandler.GetStats)

			// Fossil audit trail
			fossilHandler := handlers.NewFossilHandler(svc.fossils)
			service.GET("/fossils", fossilHandler.List)
			service.GET("/fossils/hash/:hash", fossilHandler.FindByHash)
			service.GET("/fossils/:id", fossilHandler.Get)

			// Snapshots
			snapshotHandler := handlers.NewSnapshotHandler(svc.exporter, svc.scheduler, svc.holidays)
			service.POST("/snapshots", snapshotHandler.Create)
			service.GET("/snapshots", snapshotHandler.List)
			service.GET("/snapshots/countries", snapshotHandler.Countries)

			// Dashboard
			dashboardHandler := handlers.NewDashboardHandler(svc.orchestrator, svc.tracker, svc.fossils, svc.events)
			service.GET("/dashboard/overview", dashboardHandler.GetOverview)
		}

		// Protected routes (always require a user JWT)
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			// Snapshot schedule
			snapshotHandler := handlers.NewSnapshotHandler(svc.exporter, svc.scheduler, svc.holidays)
			admin.PUT("/snapshots/schedule", snapshotHandler.Reschedule)

			// Users
			userHandler := handlers.NewUserHandler(models.GetDB())
			admin.GET("/users", userHandler.List)
			admin.POST("/users", userHandler.Create)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)
		}
	}
}
