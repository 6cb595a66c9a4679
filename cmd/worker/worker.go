package main

import (
	"context"
	"log"

	"qa-agent/internal/ai"
	"qa-agent/internal/config"
	"qa-agent/internal/logger"
	"qa-agent/internal/queue"
	"qa-agent/internal/rag"
	"qa-agent/internal/telemetry"
	"qa-agent/services"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	// Initialize Gemini client
	geminiClient, err := ai.NewGeminiClient(cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	// Worker builds persist through Mongo so the API process can
	// restore them; without the snapshot store an async build would be
	// invisible to the API
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	snapshots := services.NewSnapshotStore(mongoClient.Database(cfg.DBName))

	index := rag.NewIndex()
	parser := services.NewDocumentParser(cfg.ChunkSize, cfg.ChunkOverlap)
	knowledge := services.NewKnowledgeService(index, geminiClient, parser, snapshots, metrics, cfg.FileStorageDir)

	startupCtx, cancelStartup := context.WithCancel(context.Background())
	if err := knowledge.LoadSnapshot(startupCtx); err != nil {
		logger.Error("Failed to restore snapshot", "error", err)
	}
	cancelStartup()

	connOpt, err := queue.RedisConnOpt(cfg)
	if err != nil {
		log.Fatal("Invalid Redis URL:", err)
	}

	// Create Asynq server; one build at a time keeps embedding rate
	// limits predictable
	server := asynq.NewServer(
		connOpt,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				"builds": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// Create task processor
	processor := queue.NewTaskProcessor(knowledge)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskBuildKnowledgeBase, processor.ProcessBuildKnowledgeBase)

	logger.Info("Starting Asynq worker", "redis", cfg.RedisURL, "queue", "builds")

	// Start the server
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
