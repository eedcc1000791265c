package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"asset-tracker/internal/config"
	"asset-tracker/internal/delivery/http/handler"
	"asset-tracker/internal/infrastructure/database/postgres"
	"asset-tracker/internal/ingest"
	"asset-tracker/internal/logger"
	"asset-tracker/internal/middleware"
	"asset-tracker/internal/query"
)

func SetupRoutes(cfg *config.Config, db *postgres.DB, pipeline *ingest.Pipeline) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler.RegisterValidations()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst))

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "Database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
		})
	})

	queryRepository := postgres.NewQueryRepository(db)
	queryService := query.NewService(queryRepository)
	queryHandler := handler.NewQueryHandler(queryService)

	ingestHandler := handler.NewIngestHandler(pipeline)

	v1 := router.Group("/api/v1")
	{
		events := v1.Group("")
		events.Use(middleware.IngestTokenMiddleware(cfg.Auth.IngestToken))
		{
			ingestHandler.RegisterRoutes(events)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			queryHandler.RegisterRoutes(protected)
		}
	}

	logger.Info("All routes initialized")
	return router
}
