package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okanvural/pickflow-backend/pkg/logger"
)

func TestAuditRetentionJobUsesConfiguredWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeAuditRetentionRepo{}
	job := newAuditRetentionJob(t, repo, 90*24*time.Hour)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.UTC().Add(-90 * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestAuditRetentionJobDefaultsWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeAuditRetentionRepo{}
	job := newAuditRetentionJob(t, repo, 0)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.UTC().Add(-auditRetentionWindow)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
}

func TestAuditRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeAuditRetentionRepo{err: errors.New("boom")}
	job := newAuditRetentionJob(t, repo, 0)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newAuditRetentionJob(t *testing.T, repo *fakeAuditRetentionRepo, window time.Duration) *auditRetentionJob {
	t.Helper()
	jobIface, err := NewAuditRetentionJob(AuditRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
		Window:     window,
	})
	if err != nil {
		t.Fatalf("NewAuditRetentionJob: %v", err)
	}
	job, ok := jobIface.(*auditRetentionJob)
	if !ok {
		t.Fatalf("expected auditRetentionJob, got %T", jobIface)
	}
	return job
}

type fakeAuditRetentionRepo struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeAuditRetentionRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 12, nil
}
