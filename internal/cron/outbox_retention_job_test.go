package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eventhub/eventhub-backend/pkg/logger"
)

func TestOutboxRetentionJobDeletesPublishedRows(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{rows: 4}
	job := newOutboxRetentionJob(t, repo, 0)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := time.Date(2026, 9, 16, 0, 0, 0, 0, time.UTC)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestOutboxRetentionJobHonoursConfiguredWindow(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo, 7)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.AddDate(0, 0, -7); !repo.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.lastCutoff)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{err: errors.New("boom")}
	job := newOutboxRetentionJob(t, repo, 0)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewOutboxRetentionJobRequiresRepository(t *testing.T) {
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected missing repository error")
	}
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo, retention int) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: repo,
		Retention:  retention,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

type fakeOutboxRetentionRepo struct {
	lastCutoff time.Time
	called     int
	rows       int64
	err        error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.rows, nil
}
