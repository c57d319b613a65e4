package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kevinpb-93/employee-tracking-system/internal/models"
)

type cleanupMessageStore interface {
	ListMediaURLsBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type cleanupTimeRecordStore interface {
	DeleteTimeRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type cleanupCompletionStore interface {
	DeleteCompletionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type blobCleaner interface {
	DeleteFiles(ctx context.Context, paths []string) []string
	PathFromURL(fileURL string) (string, error)
}

// CleanupService is the retention reaper: a daily sweep that ages out chat
// messages (blobs first, then rows) and operational attendance records.
type CleanupService struct {
	messageRepo    cleanupMessageStore
	attendanceRepo cleanupTimeRecordStore
	taskRepo       cleanupCompletionStore
	storage        blobCleaner

	chatRetentionDays   int
	recordRetentionDays int
}

type SweepReport struct {
	DeletedMessages        int64    `json:"deleted_messages"`
	DeletedTimeRecords     int64    `json:"deleted_time_records"`
	DeletedTaskCompletions int64    `json:"deleted_task_completions"`
	DeletedBlobs           int      `json:"deleted_blobs"`
	OrphanedBlobPaths      []string `json:"orphaned_blob_paths"`
}

func NewCleanupService(
	messageRepo cleanupMessageStore,
	attendanceRepo cleanupTimeRecordStore,
	taskRepo cleanupCompletionStore,
	storage blobCleaner,
	chatRetentionDays int,
	recordRetentionDays int,
) *CleanupService {
	return &CleanupService{
		messageRepo:         messageRepo,
		attendanceRepo:      attendanceRepo,
		taskRepo:            taskRepo,
		storage:             storage,
		chatRetentionDays:   chatRetentionDays,
		recordRetentionDays: recordRetentionDays,
	}
}

// RunRetentionSweep deletes operational records and chat history older than
// the configured windows. Chat media blobs are deleted before message rows;
// blob failures are reported as orphans but never block row deletion, so a
// re-run after a partial failure converges instead of erroring.
func (s *CleanupService) RunRetentionSweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	report := &SweepReport{OrphanedBlobPaths: make([]string, 0)}

	recordCutoff := now.AddDate(0, 0, -s.recordRetentionDays)

	deletedTimeRecords, err := s.attendanceRepo.DeleteTimeRecordsBefore(ctx, recordCutoff)
	if err != nil {
		return nil, fmt.Errorf("delete time records: %w", err)
	}
	report.DeletedTimeRecords = deletedTimeRecords

	deletedCompletions, err := s.taskRepo.DeleteCompletionsBefore(ctx, recordCutoff)
	if err != nil {
		return nil, fmt.Errorf("delete task completions: %w", err)
	}
	report.DeletedTaskCompletions = deletedCompletions

	chatCutoff := now.AddDate(0, 0, -s.chatRetentionDays)

	mediaURLs, err := s.messageRepo.ListMediaURLsBefore(ctx, chatCutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired media: %w", err)
	}

	if s.storage == nil && len(mediaURLs) > 0 {
		log.Printf("retention sweep: storage not configured, %d media blobs left as orphans", len(mediaURLs))
		report.OrphanedBlobPaths = append(report.OrphanedBlobPaths, mediaURLs...)
		mediaURLs = nil
	}

	paths := make([]string, 0, len(mediaURLs))
	for _, mediaURL := range mediaURLs {
		objectPath, err := s.storage.PathFromURL(mediaURL)
		if err != nil {
			log.Printf("retention sweep: cannot derive blob path from %q: %v", mediaURL, err)
			report.OrphanedBlobPaths = append(report.OrphanedBlobPaths, mediaURL)
			continue
		}
		paths = append(paths, objectPath)
	}

	if len(paths) > 0 {
		failed := s.storage.DeleteFiles(ctx, paths)
		report.DeletedBlobs = len(paths) - len(failed)
		if len(failed) > 0 {
			log.Printf("retention sweep: %d blobs left for manual reconciliation: %v", len(failed), failed)
			report.OrphanedBlobPaths = append(report.OrphanedBlobPaths, failed...)
		}
	}

	deletedMessages, err := s.messageRepo.DeleteBefore(ctx, chatCutoff)
	if err != nil {
		return nil, fmt.Errorf("delete messages: %w", err)
	}
	report.DeletedMessages = deletedMessages

	return report, nil
}

// RunManualCleanup is the admin-triggered variant. It uses the caller's
// operational window when given, falling back to the configured defaults.
func (s *CleanupService) RunManualCleanup(
	ctx context.Context,
	role string,
	daysToKeep int,
	now time.Time,
) (*SweepReport, error) {
	if role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if daysToKeep < 0 {
		return nil, ErrInvalidInput
	}

	sweep := *s
	if daysToKeep > 0 {
		sweep.recordRetentionDays = daysToKeep
	}
	return sweep.RunRetentionSweep(ctx, now)
}
