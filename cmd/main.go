package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qa-agent/internal/ai"
	"qa-agent/internal/config"
	"qa-agent/internal/logger"
	"qa-agent/internal/queue"
	"qa-agent/internal/rag"
	"qa-agent/internal/telemetry"
	"qa-agent/middleware"
	"qa-agent/routes"
	"qa-agent/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Tracing and metrics are best effort: the pipeline runs without a
	// collector
	shutdownTracer, err := telemetry.InitTracer("qa-agent", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
		shutdownTracer = func() {}
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	// Gemini serves both embeddings and generation
	geminiClient, err := ai.NewGeminiClient(cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	// Snapshot store needs Mongo; without it the index is memory-only
	var snapshots services.SnapshotPersister
	if cfg.SnapshotEnable {
		mongoClient, err := config.ConnectMongoDB(cfg)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB:", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			mongoClient.Disconnect(ctx)
		}()
		snapshots = services.NewSnapshotStore(mongoClient.Database(cfg.DBName))
	}

	// Core pipeline
	index := rag.NewIndex()
	retriever := rag.NewRetriever(index, geminiClient)
	generator := rag.NewGenerator(geminiClient)
	parser := services.NewDocumentParser(cfg.ChunkSize, cfg.ChunkOverlap)

	knowledge := services.NewKnowledgeService(index, geminiClient, parser, snapshots, metrics, cfg.FileStorageDir)
	testCases := services.NewTestCaseService(retriever, generator, metrics, cfg.TopK)
	scripts := services.NewScriptService(retriever, generator, metrics, cfg.TopK, cfg.ScriptOutputDir)
	export := services.NewExportService()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := knowledge.LoadSnapshot(startupCtx); err != nil {
		logger.Error("Failed to restore snapshot, starting with empty index", "error", err)
	}
	cancelStartup()

	if cfg.SnapshotEnable {
		scheduler := services.NewSnapshotScheduler(knowledge)
		if err := scheduler.Start(cfg.SnapshotCron); err != nil {
			logger.Error("Failed to start snapshot scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}
	}

	// Redis backs rate limiting and the build queue; both degrade
	// gracefully when it is down
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, rate limiting and async builds disabled", "error", err)
	}

	// Async builds run in the worker process and reach this one through
	// the snapshot store, so they need both Redis and Mongo
	var asynqClient *asynq.Client
	if rdb != nil && snapshots != nil {
		connOpt, err := queue.RedisConnOpt(cfg)
		if err != nil {
			logger.Warn("Invalid Redis URL for queue", "error", err)
		} else {
			asynqClient = asynq.NewClient(connOpt)
			defer asynqClient.Close()
		}
	} else if rdb != nil {
		logger.Warn("Async builds disabled, snapshot store not configured")
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	if metrics != nil {
		router.Use(middleware.MetricsMiddleware(metrics))
	}
	if rdb != nil {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	}
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize))

	// Setup routes
	routes.SetupHealthRoutes(router, knowledge)
	routes.SetupKnowledgeRoutes(router, cfg, knowledge, asynqClient)
	routes.SetupGenerateRoutes(router, cfg, testCases, scripts, export)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Persist the index before exit so a restart can restore it. Sync
	// rather than save: a newer snapshot from the worker must not be
	// overwritten with this process's older index
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := knowledge.SyncSnapshot(shutdownCtx); err != nil {
		logger.Error("Failed to sync snapshot on shutdown", "error", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
