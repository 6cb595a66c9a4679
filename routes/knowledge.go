package routes

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"qa-agent/internal/config"
	"qa-agent/internal/logger"
	"qa-agent/internal/queue"
	"qa-agent/models"
	"qa-agent/services"
	"qa-agent/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// SetupKnowledgeRoutes wires document upload and knowledge base
// lifecycle endpoints. asynqClient may be nil, in which case async
// builds are rejected.
func SetupKnowledgeRoutes(router *gin.Engine, cfg *config.Config, knowledge *services.KnowledgeService, asynqClient *asynq.Client) {
	api := router.Group("/api")

	api.POST("/documents", func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid multipart form", gin.H{"error": err.Error()})
			return
		}

		files := form.File["files"]
		if len(files) == 0 {
			utils.RespondWithBadRequest(c, "No files provided", nil)
			return
		}

		if err := os.MkdirAll(cfg.FileStorageDir, 0o755); err != nil {
			utils.RespondWithInternalError(c, "Failed to create storage directory", nil)
			return
		}

		var names, paths []string
		for _, file := range files {
			name := filepath.Base(file.Filename)
			ext := strings.ToLower(filepath.Ext(name))

			if !extensionAllowed(ext, cfg.AllowedExtensions) {
				utils.RespondWithBadRequest(c,
					fmt.Sprintf("Unsupported file type: %s", ext),
					gin.H{"allowed": cfg.AllowedExtensions})
				return
			}
			if file.Size > cfg.MaxFileSize {
				utils.RespondWithError(c, http.StatusRequestEntityTooLarge,
					"file_too_large",
					fmt.Sprintf("File %s exceeds maximum size", name),
					gin.H{"max_size": cfg.MaxFileSize})
				return
			}

			dst := filepath.Join(cfg.FileStorageDir, name)
			if err := c.SaveUploadedFile(file, dst); err != nil {
				utils.RespondWithInternalError(c, "Failed to save file", gin.H{"file": name})
				return
			}

			names = append(names, name)
			paths = append(paths, dst)
			logger.Info("Document uploaded", "file", name, "bytes", file.Size)
		}

		c.JSON(http.StatusOK, models.UploadResponse{
			Success:   true,
			Message:   fmt.Sprintf("Uploaded %d files successfully", len(names)),
			Files:     names,
			FilePaths: paths,
		})
	})

	api.POST("/knowledge-base/build", func(c *gin.Context) {
		var req models.BuildKnowledgeBaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if req.Async {
			if asynqClient == nil {
				utils.RespondWithError(c, http.StatusServiceUnavailable,
					"queue_unavailable", "Async builds are not available", nil)
				return
			}

			buildID := uuid.NewString()
			task, err := queue.NewBuildKnowledgeBaseTask(buildID, req.FilePaths, req.ClearExisting)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to create build task", nil)
				return
			}
			if _, err := asynqClient.EnqueueContext(c.Request.Context(), task); err != nil {
				utils.RespondWithError(c, http.StatusServiceUnavailable,
					"queue_unavailable", "Failed to enqueue build task", nil)
				return
			}

			c.JSON(http.StatusAccepted, models.AsyncBuildResponse{
				Success: true,
				Message: "Knowledge base build enqueued",
				BuildID: buildID,
			})
			return
		}

		ctx, cancel := buildContext(c, cfg)
		defer cancel()

		result, err := knowledge.BuildKnowledgeBase(ctx, req.FilePaths, req.ClearExisting)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	})

	api.GET("/knowledge-base/stats", func(c *gin.Context) {
		stats := knowledge.Stats()

		c.JSON(http.StatusOK, models.KnowledgeBaseStatsResponse{
			Success: true,
			Message: "Knowledge base statistics retrieved",
			Stats:   stats,
		})
	})

	api.DELETE("/knowledge-base", func(c *gin.Context) {
		if err := knowledge.Clear(c.Request.Context()); err != nil {
			utils.RespondWithInternalError(c, err.Error(), nil)
			return
		}

		c.JSON(http.StatusOK, models.StatusResponse{
			Success: true,
			Message: "Knowledge base cleared",
		})
	})
}

func extensionAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), ext) {
			return true
		}
	}
	return false
}

func buildContext(c *gin.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}
