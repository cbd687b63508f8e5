package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/miyahealth/miya-backend/internal/handlers"
)

type RouterConfig struct {
	MetricHandler *handlers.MetricHandler
	AlertHandler  *handlers.AlertHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/users/:id/metrics", cfg.MetricHandler.PostDailyMetrics)
		api.POST("/users/:id/exercise", cfg.MetricHandler.PostExerciseSessions)
		api.GET("/users/:id/episodes", cfg.AlertHandler.ListEpisodes)
	}

	internal := router.Group("/internal")
	{
		internal.POST("/evaluate", cfg.AlertHandler.PostEvaluate)
		internal.POST("/sweep", cfg.AlertHandler.PostSweep)
	}

	return router
}
