package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kevinpb-93/employee-tracking-system/internal/models"
)

type stubCleanupMessages struct {
	mediaURLs     []string
	mediaErr      error
	deleted       int64
	deleteErr     error
	lastChatCut   time.Time
	deleteCalled  bool
	mediaListedAt time.Time
}

func (s *stubCleanupMessages) ListMediaURLsBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mediaListedAt = cutoff
	return s.mediaURLs, s.mediaErr
}

func (s *stubCleanupMessages) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.deleteCalled = true
	s.lastChatCut = cutoff
	return s.deleted, s.deleteErr
}

type stubCleanupTimeRecords struct {
	deleted    int64
	err        error
	lastCutoff time.Time
}

func (s *stubCleanupTimeRecords) DeleteTimeRecordsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.lastCutoff = cutoff
	return s.deleted, s.err
}

type stubCleanupCompletions struct {
	deleted int64
	err     error
}

func (s *stubCleanupCompletions) DeleteCompletionsBefore(_ context.Context, _ time.Time) (int64, error) {
	return s.deleted, s.err
}

type stubBlobCleaner struct {
	failedPaths  []string
	pathErrFor   string
	deletedPaths []string
}

func (s *stubBlobCleaner) DeleteFiles(_ context.Context, paths []string) []string {
	s.deletedPaths = append(s.deletedPaths, paths...)
	return s.failedPaths
}

func (s *stubBlobCleaner) PathFromURL(fileURL string) (string, error) {
	if s.pathErrFor != "" && fileURL == s.pathErrFor {
		return "", fmt.Errorf("no object path in %q", fileURL)
	}
	return strings.TrimPrefix(fileURL, "https://storage/"), nil
}

var sweepNow = time.Date(2026, 5, 10, 3, 0, 0, 0, time.UTC)

func TestRunRetentionSweepDeletesBlobsBeforeRows(t *testing.T) {
	messages := &stubCleanupMessages{
		mediaURLs: []string{"https://storage/chat-media/7/pic.jpg"},
		deleted:   4,
	}
	records := &stubCleanupTimeRecords{deleted: 2}
	completions := &stubCleanupCompletions{deleted: 3}
	storage := &stubBlobCleaner{}

	service := NewCleanupService(messages, records, completions, storage, 2, 7)

	report, err := service.RunRetentionSweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("RunRetentionSweep: %v", err)
	}

	if report.DeletedMessages != 4 || report.DeletedTimeRecords != 2 || report.DeletedTaskCompletions != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.DeletedBlobs != 1 || len(report.OrphanedBlobPaths) != 0 {
		t.Fatalf("expected one blob deleted cleanly, got %+v", report)
	}
	if len(storage.deletedPaths) != 1 || storage.deletedPaths[0] != "chat-media/7/pic.jpg" {
		t.Fatalf("unexpected blob paths: %v", storage.deletedPaths)
	}

	wantChat := sweepNow.AddDate(0, 0, -2)
	if !messages.lastChatCut.Equal(wantChat) {
		t.Fatalf("expected chat cutoff %v, got %v", wantChat, messages.lastChatCut)
	}
	wantRecords := sweepNow.AddDate(0, 0, -7)
	if !records.lastCutoff.Equal(wantRecords) {
		t.Fatalf("expected record cutoff %v, got %v", wantRecords, records.lastCutoff)
	}
}

func TestRunRetentionSweepReportsOrphansWithoutBlocking(t *testing.T) {
	messages := &stubCleanupMessages{
		mediaURLs: []string{
			"https://storage/chat-media/7/a.jpg",
			"https://elsewhere/weird",
		},
		deleted: 2,
	}
	storage := &stubBlobCleaner{
		pathErrFor:  "https://elsewhere/weird",
		failedPaths: []string{"chat-media/7/a.jpg"},
	}

	service := NewCleanupService(messages, &stubCleanupTimeRecords{}, &stubCleanupCompletions{}, storage, 2, 7)

	report, err := service.RunRetentionSweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("RunRetentionSweep: %v", err)
	}

	if !messages.deleteCalled {
		t.Fatalf("expected row deletion despite blob failures")
	}
	if report.DeletedBlobs != 0 {
		t.Fatalf("expected no blob deletions counted, got %d", report.DeletedBlobs)
	}
	if len(report.OrphanedBlobPaths) != 2 {
		t.Fatalf("expected both failures reported as orphans, got %v", report.OrphanedBlobPaths)
	}
}

func TestRunRetentionSweepSecondRunIsIdempotent(t *testing.T) {
	messages := &stubCleanupMessages{}
	service := NewCleanupService(messages, &stubCleanupTimeRecords{}, &stubCleanupCompletions{}, &stubBlobCleaner{}, 2, 7)

	report, err := service.RunRetentionSweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("RunRetentionSweep: %v", err)
	}
	if report.DeletedMessages != 0 || report.DeletedBlobs != 0 || len(report.OrphanedBlobPaths) != 0 {
		t.Fatalf("expected empty sweep, got %+v", report)
	}
}

func TestRunRetentionSweepStopsOnRowErrors(t *testing.T) {
	records := &stubCleanupTimeRecords{err: errors.New("db down")}
	service := NewCleanupService(&stubCleanupMessages{}, records, &stubCleanupCompletions{}, &stubBlobCleaner{}, 2, 7)

	if _, err := service.RunRetentionSweep(context.Background(), sweepNow); err == nil {
		t.Fatalf("expected error from record deletion")
	}
}

func TestRunManualCleanupOverridesRecordWindow(t *testing.T) {
	records := &stubCleanupTimeRecords{}
	service := NewCleanupService(&stubCleanupMessages{}, records, &stubCleanupCompletions{}, &stubBlobCleaner{}, 2, 7)

	if _, err := service.RunManualCleanup(context.Background(), models.RoleEmployee, 30, sweepNow); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for employees, got %v", err)
	}

	if _, err := service.RunManualCleanup(context.Background(), models.RoleAdmin, 30, sweepNow); err != nil {
		t.Fatalf("RunManualCleanup: %v", err)
	}
	want := sweepNow.AddDate(0, 0, -30)
	if !records.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, records.lastCutoff)
	}

	if _, err := service.RunManualCleanup(context.Background(), models.RoleAdmin, 0, sweepNow); err != nil {
		t.Fatalf("RunManualCleanup default: %v", err)
	}
	want = sweepNow.AddDate(0, 0, -7)
	if !records.lastCutoff.Equal(want) {
		t.Fatalf("expected default cutoff %v, got %v", want, records.lastCutoff)
	}
}
