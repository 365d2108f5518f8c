package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rail-service/usdc-bridge/internal/api/handlers"
	"github.com/rail-service/usdc-bridge/internal/api/middleware"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/di"
	"github.com/rail-service/usdc-bridge/pkg/idempotency"
	"github.com/rail-service/usdc-bridge/pkg/tracing"
)

const version = "1.0.0"

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	router := gin.New()

	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(container.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(container.Config.Server.RateLimit))
	router.Use(middleware.SecurityHeaders())

	healthHandler := handlers.NewHealthHandler(container.ReadinessChecks(), container.Logger, version)
	bridgeHandlers := handlers.NewBridgeHandlers(container.Chains, container.Selector, container.Estimator)
	transferHandlers := handlers.NewTransferHandlers(container.TransferService, container.Chains)

	router.GET("/health", healthHandler.Liveness)
	router.GET("/ready", healthHandler.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/chains", bridgeHandlers.ListChains)
		v1.GET("/chains/:chainId", bridgeHandlers.GetChain)
		v1.GET("/routes", bridgeHandlers.GetRoute)
		v1.POST("/quotes", bridgeHandlers.CreateQuote)

		transfers := v1.Group("/transfers")
		{
			transfers.POST("", idempotency.Middleware(container.Idempotency, container.Logger.Zap()), transferHandlers.CreateTransfer)
			transfers.GET("/:id", transferHandlers.GetTransfer)
			transfers.POST("/:id/poll", transferHandlers.PollTransfer)
			transfers.POST("/:id/complete", transferHandlers.CompleteTransfer)
			transfers.POST("/:id/fail", transferHandlers.FailTransfer)
		}
	}

	return router
}
