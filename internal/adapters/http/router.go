package http

import (
	"github.com/gin-gonic/gin"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/hsdfat8/assettrack/internal/logger"
	"golang.org/x/time/rate"
)

// RouterDeps holds what the router needs to serve the API
type RouterDeps struct {
	Services *ports.Services
	Health   HealthChecker

	// RateLimit is the sustained requests per second allowed per client IP. Zero disables limiting.
	RateLimit float64
	RateBurst int

	EnableMetrics bool
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(deps RouterDeps) *gin.Engine {
	// Set Gin to release mode to disable debug logging
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Recovery must be first
	router.Use(ginRecovery())
	router.Use(ginLogger())

	if deps.RateLimit > 0 {
		burst := deps.RateBurst
		if burst <= 0 {
			burst = int(deps.RateLimit)
		}
		if burst <= 0 {
			burst = 1
		}
		router.Use(rateLimiter(NewIPRateLimiter(rate.Limit(deps.RateLimit), burst)))
	}

	handler := NewHandler(deps.Services, deps.Health)

	api := router.Group("/api/v1", requireCaller())
	{
		api.POST("/login", handler.Login)
		api.GET("/me", handler.Me)

		api.GET("/transformers", handler.ListTransformers)
		api.POST("/transformers", handler.RegisterTransformer)
		api.GET("/transformers/:id", handler.GetTransformer)
		api.PUT("/transformers/:id", handler.UpdateTransformer)
		api.DELETE("/transformers/:id", handler.ArchiveTransformer)
		api.POST("/transformers/:id/telemetry", handler.ReportTelemetry)
		api.GET("/transformers/:id/reconciliation", handler.TransformerReconciliation)

		api.GET("/plans", handler.ListPlans)
		api.POST("/plans", handler.CreatePlan)
		api.GET("/plans/overdue", handler.ListOverdue)
		api.GET("/plans/:id", handler.GetPlan)
		api.DELETE("/plans/:id", handler.ArchivePlan)
		api.POST("/plans/:id/assign", handler.AssignPlan)
		api.POST("/plans/:id/start", handler.StartExecution)

		api.POST("/records", handler.SubmitRecord)
		api.GET("/records", handler.ListHistory)
		api.GET("/records/export", handler.ExportHistory)
		api.GET("/records/:id", handler.GetRecord)
		api.PATCH("/records/:id", handler.UpdateDraft)
		api.POST("/records/:id/finalize", handler.FinalizeDraft)

		api.POST("/reconciliation/lookup", handler.Lookup)
		api.POST("/reconciliation/confirm", handler.Confirm)
		api.GET("/reconciliation/events", handler.ListEvents)
		api.GET("/reconciliation/summary", handler.ReconciliationSummary)

		api.GET("/users", handler.ListUsers)
		api.POST("/users", handler.CreateUser)
		api.GET("/users/:id", handler.GetUser)
		api.PUT("/users/:id", handler.UpdateUser)
		api.POST("/users/:id/deactivate", handler.DeactivateUser)
		api.POST("/users/:id/activate", handler.ActivateUser)

		api.GET("/dashboard", handler.Dashboard)
		api.GET("/alerts", handler.Alerts)
		api.GET("/changes", handler.ListChanges)
	}

	router.GET("/health", handler.HealthCheck)

	if deps.EnableMetrics {
		logger.InitMetrics()
		router.GET("/metrics", gin.WrapH(logger.MetricsHandler()))
	}

	return router
}
