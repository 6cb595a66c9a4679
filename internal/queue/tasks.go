package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"qa-agent/internal/config"
	"qa-agent/internal/logger"
	"qa-agent/models"
)

// RedisConnOpt builds the asynq Redis connection from the same parsed
// options the go-redis client uses.
func RedisConnOpt(cfg *config.Config) (asynq.RedisConnOpt, error) {
	opt, err := cfg.RedisOptions()
	if err != nil {
		return nil, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

const (
	TaskBuildKnowledgeBase = "knowledge_base:build"
)

type BuildKnowledgeBasePayload struct {
	BuildID       string   `json:"build_id"`
	FilePaths     []string `json:"file_paths,omitempty"`
	ClearExisting bool     `json:"clear_existing"`
}

// NewBuildKnowledgeBaseTask creates the asynq task for an async build.
// Builds are not retried: a failed build leaves the index untouched and
// the client decides whether to resubmit.
func NewBuildKnowledgeBaseTask(buildID string, filePaths []string, clearExisting bool) (*asynq.Task, error) {
	payload, err := json.Marshal(BuildKnowledgeBasePayload{
		BuildID:       buildID,
		FilePaths:     filePaths,
		ClearExisting: clearExisting,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskBuildKnowledgeBase,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("builds"),
	), nil
}

// KnowledgeBuilder is the part of the knowledge service the worker needs.
type KnowledgeBuilder interface {
	BuildKnowledgeBase(ctx context.Context, filePaths []string, clearExisting bool) (*models.BuildKnowledgeBaseResponse, error)
}

// TaskProcessor handles queued tasks in the worker process.
type TaskProcessor struct {
	builder KnowledgeBuilder
}

func NewTaskProcessor(builder KnowledgeBuilder) *TaskProcessor {
	return &TaskProcessor{builder: builder}
}

func (p *TaskProcessor) ProcessBuildKnowledgeBase(ctx context.Context, t *asynq.Task) error {
	var payload BuildKnowledgeBasePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing knowledge base build", "build_id", payload.BuildID, "files", len(payload.FilePaths))

	result, err := p.builder.BuildKnowledgeBase(ctx, payload.FilePaths, payload.ClearExisting)
	if err != nil {
		logger.Error("Knowledge base build failed", "build_id", payload.BuildID, "error", err)
		return err
	}

	logger.Info("Knowledge base build completed",
		"build_id", payload.BuildID,
		"files_processed", result.FilesProcessed,
		"chunks_created", result.ChunksCreated)
	return nil
}
