package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/kevinpb-93/employee-tracking-system/internal/services"
)

const TaskRetentionSweep = "cleanup:retention_sweep"

// Scheduler runs the daily retention sweep through Redis-backed queues, so a
// restart mid-sweep retries the task instead of losing the day's run.
type Scheduler struct {
	scheduler *asynq.Scheduler
	server    *asynq.Server
	cleanup   *services.CleanupService
}

func New(redisURL string, cleanup *services.CleanupService) (*Scheduler, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &Scheduler{
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC}),
		server: asynq.NewServer(opt, asynq.Config{
			Concurrency: 1,
		}),
		cleanup: cleanup,
	}, nil
}

func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Register("@daily", asynq.NewTask(TaskRetentionSweep, nil)); err != nil {
		return fmt.Errorf("register retention sweep: %w", err)
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRetentionSweep, s.handleRetentionSweep)

	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := s.server.Start(mux); err != nil {
		s.scheduler.Shutdown()
		return fmt.Errorf("start worker: %w", err)
	}
	return nil
}

func (s *Scheduler) handleRetentionSweep(ctx context.Context, _ *asynq.Task) error {
	report, err := s.cleanup.RunRetentionSweep(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	log.Printf(
		"retention sweep: %d messages, %d time records, %d completions, %d blobs deleted, %d orphans",
		report.DeletedMessages,
		report.DeletedTimeRecords,
		report.DeletedTaskCompletions,
		report.DeletedBlobs,
		len(report.OrphanedBlobPaths),
	)
	return nil
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
	s.server.Shutdown()
}
