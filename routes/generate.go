package routes

import (
	"fmt"
	"net/http"

	"qa-agent/internal/config"
	"qa-agent/models"
	"qa-agent/services"
	"qa-agent/utils"

	"github.com/gin-gonic/gin"
)

// SetupGenerateRoutes wires test case and script generation endpoints.
func SetupGenerateRoutes(
	router *gin.Engine,
	cfg *config.Config,
	testCases *services.TestCaseService,
	scripts *services.ScriptService,
	export *services.ExportService,
) {
	api := router.Group("/api")

	api.POST("/test-cases/generate", func(c *gin.Context) {
		var req models.GenerateTestCasesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := buildContext(c, cfg)
		defer cancel()

		resp, err := testCases.GenerateTestCases(ctx, &req)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	})

	api.POST("/test-cases/generate-all", func(c *gin.Context) {
		ctx, cancel := buildContext(c, cfg)
		defer cancel()

		resp, err := testCases.GenerateAll(ctx)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	})

	api.POST("/test-cases/export", func(c *gin.Context) {
		var req models.ExportTestCasesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		result, err := export.ExportTestCases(req.TestCases, req.Format)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", result.Filename))
		c.Data(http.StatusOK, result.ContentType, result.Data)
	})

	api.POST("/scripts/generate", func(c *gin.Context) {
		var req models.GenerateScriptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := buildContext(c, cfg)
		defer cancel()

		resp, err := scripts.GenerateScript(ctx, &req)
		if err != nil {
			utils.RespondWithPipelineError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	})
}
