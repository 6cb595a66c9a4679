package routes

import (
	"net/http"
	"strconv"
	"time"

	"qa-agent/models"
	"qa-agent/services"

	"github.com/gin-gonic/gin"
)

const (
	appName    = "QA Agent API"
	appVersion = "1.0.0"
)

func SetupHealthRoutes(router *gin.Engine, knowledge *services.KnowledgeService) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.StatusResponse{
			Success: true,
			Message: appName + " v" + appVersion + " is running",
		})
	})

	router.GET("/health", func(c *gin.Context) {
		stats := knowledge.Stats()

		c.JSON(http.StatusOK, models.HealthCheckResponse{
			Status:    "healthy",
			AppName:   appName,
			Version:   appVersion,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Services: map[string]string{
				"vector_store":      "healthy",
				"documents_indexed": strconv.Itoa(stats.NumChunks),
			},
		})
	})
}
