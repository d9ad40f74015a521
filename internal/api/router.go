package api

import (
	"github.com/gin-gonic/gin"

	"github.com/songsmith/songsmith-api/internal/api/handlers"
	apimiddleware "github.com/songsmith/songsmith-api/internal/api/middleware"
	"github.com/songsmith/songsmith-api/internal/config"
	"github.com/songsmith/songsmith-api/internal/services"
)

func SetupRouter(cfg *config.Config, composer *services.ComposerService, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking())

	// CORS middleware
	router.Use(apimiddleware.CORS())

	// Health check
	healthHandler := handlers.NewHealthHandler(cfg)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	metricsHandler := handlers.NewMetricsHandler(version)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	// Song composition endpoints
	songsHandler := handlers.NewSongsHandler(composer)
	v1 := router.Group("/api/v1")
	{
		v1.POST("/songs", songsHandler.Compose)
		v1.GET("/songs", songsHandler.List)
		v1.GET("/songs/:id", songsHandler.Get)
		v1.GET("/songs/:id/midi", songsHandler.GetMIDI)
		v1.GET("/songs/:id/notation", songsHandler.GetNotation)
		v1.DELETE("/songs/:id", songsHandler.Delete)
	}

	return router
}
