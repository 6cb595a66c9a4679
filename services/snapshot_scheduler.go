package services

import (
	"context"
	"time"

	"qa-agent/internal/logger"

	"github.com/go-co-op/gocron"
)

// SnapshotScheduler periodically reconciles the index with the
// persisted snapshot: builds done in this process are persisted, builds
// done in the queue worker are picked up. A crash loses at most one
// interval of builds.
type SnapshotScheduler struct {
	scheduler *gocron.Scheduler
	knowledge *KnowledgeService
}

func NewSnapshotScheduler(knowledge *KnowledgeService) *SnapshotScheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &SnapshotScheduler{
		scheduler: s,
		knowledge: knowledge,
	}
}

// Start schedules the snapshot job with the given cron expression and
// runs the scheduler in the background.
func (s *SnapshotScheduler) Start(cronExpr string) error {
	_, err := s.scheduler.Cron(cronExpr).Tag("kb-snapshot").Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := s.knowledge.SyncSnapshot(ctx); err != nil {
			logger.Error("Scheduled snapshot sync failed", "error", err)
			return
		}
		logger.Debug("Scheduled snapshot sync done")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	logger.Info("Snapshot scheduler started", "cron", cronExpr)
	return nil
}

// Stop stops the scheduler.
func (s *SnapshotScheduler) Stop() {
	s.scheduler.Stop()
}
