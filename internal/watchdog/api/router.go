package api

import (
	"github.com/gin-gonic/gin"

	"github.com/threadwarden/threadwarden/internal/common/logger"
	"github.com/threadwarden/threadwarden/internal/watchdog"
)

// SetupRoutes configures the watchdog admin API routes
func SetupRoutes(router *gin.RouterGroup, svc *watchdog.Service, log *logger.Logger) {
	handler := NewHandler(svc, log)

	router.GET("/health", handler.Health)

	exclusions := router.Group("/exclusions")
	{
		exclusions.GET("", handler.ListExclusions)
		exclusions.POST("", handler.AddExclusion)
		exclusions.DELETE("/:id", handler.RemoveExclusion)
	}

	router.GET("/closures", handler.ListPendingClosures)
	router.POST("/sweep", handler.TriggerSweep)
}
