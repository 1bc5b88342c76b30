package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Job{}))
	return db
}

func TestEnqueueDequeue(t *testing.T) {
	queue := NewQueue(setupDB(t))
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, "analyze_document", map[string]int{"document_id": 1}, DefaultEnqueueOptions())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, 3, job.MaxRetries)

	got, err := queue.Dequeue(ctx, "default")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.StartedAt)

	// Queue is now empty
	got, err = queue.Dequeue(ctx, "default")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDequeueRespectsPriority(t *testing.T) {
	queue := NewQueue(setupDB(t))
	ctx := context.Background()

	low, err := queue.Enqueue(ctx, "analyze_document", nil, EnqueueOptions{Priority: PriorityLow})
	require.NoError(t, err)
	high, err := queue.Enqueue(ctx, "analyze_document", nil, EnqueueOptions{Priority: PriorityHigh})
	require.NoError(t, err)

	first, err := queue.Dequeue(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, high.ID, first.ID)

	second, err := queue.Dequeue(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, low.ID, second.ID)
}

func TestDequeueSkipsScheduledJobs(t *testing.T) {
	queue := NewQueue(setupDB(t))
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	_, err := queue.Enqueue(ctx, "analyze_document", nil, EnqueueOptions{ScheduleAt: &future})
	require.NoError(t, err)

	got, err := queue.Dequeue(ctx, "default")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEnqueueDedupReturnsInFlightJob(t *testing.T) {
	queue := NewQueue(setupDB(t))
	ctx := context.Background()

	opts := EnqueueOptions{DedupKey: "analyze:42"}

	first, err := queue.Enqueue(ctx, "analyze_document", nil, opts)
	require.NoError(t, err)

	second, err := queue.Enqueue(ctx, "analyze_document", nil, opts)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "in-flight job should be reused")

	// A processing job still suppresses duplicates
	_, err = queue.Dequeue(ctx, "default")
	require.NoError(t, err)
	third, err := queue.Enqueue(ctx, "analyze_document", nil, opts)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)

	// Once the job completes, a new one can be enqueued
	require.NoError(t, queue.MarkCompleted(ctx, first.ID, nil))
	fourth, err := queue.Enqueue(ctx, "analyze_document", nil, opts)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fourth.ID)
}

func TestMarkFailedReschedulesRetryableJob(t *testing.T) {
	queue := NewQueue(setupDB(t))
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, "analyze_document", nil, DefaultEnqueueOptions())
	require.NoError(t, err)

	_, err = queue.Dequeue(ctx, "default")
	require.NoError(t, err)

	require.NoError(t, queue.MarkFailed(ctx, job.ID, assert.AnError, true))

	got, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRetrying, got.Status)
	require.NotNil(t, got.ScheduledAt)
	assert.True(t, got.ScheduledAt.After(time.Now()), "retry must be scheduled with backoff")
	assert.NotEmpty(t, got.Error)
}

func TestMarkFailedExhaustsAfterMaxRetries(t *testing.T) {
	db := setupDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, "analyze_document", nil, EnqueueOptions{MaxRetries: 3})
	require.NoError(t, err)

	attempts := 0
	for {
		// Collapse the backoff so the retrying job is immediately due
		require.NoError(t, db.Model(&Job{}).Where("id = ?", job.ID).
			Update("scheduled_at", time.Now().Add(-time.Minute)).Error)

		got, err := queue.Dequeue(ctx, "default")
		require.NoError(t, err)
		if got == nil {
			break
		}
		attempts++
		require.NoError(t, queue.MarkFailed(ctx, got.ID, assert.AnError, true))
	}

	assert.Equal(t, 3, attempts, "job must stop after exactly max_retries attempts")

	got, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
}

func TestMarkFailedTerminalSkipsRetry(t *testing.T) {
	queue := NewQueue(setupDB(t))
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, "analyze_document", nil, DefaultEnqueueOptions())
	require.NoError(t, err)

	_, err = queue.Dequeue(ctx, "default")
	require.NoError(t, err)

	require.NoError(t, queue.MarkFailed(ctx, job.ID, assert.AnError, false))

	got, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status, "terminal failures are not rescheduled")
}

func TestCancelPendingJob(t *testing.T) {
	queue := NewQueue(setupDB(t))
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, "analyze_document", nil, DefaultEnqueueOptions())
	require.NoError(t, err)

	require.NoError(t, queue.Cancel(ctx, job.ID))

	got, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	// An already-processing job cannot be cancelled
	other, err := queue.Enqueue(ctx, "analyze_document", nil, DefaultEnqueueOptions())
	require.NoError(t, err)
	_, err = queue.Dequeue(ctx, "default")
	require.NoError(t, err)
	assert.Error(t, queue.Cancel(ctx, other.ID))
}

func TestDeleteOldJobs(t *testing.T) {
	db := setupDB(t)
	queue := NewQueue(db)
	ctx := context.Background()

	job, err := queue.Enqueue(ctx, "analyze_document", nil, DefaultEnqueueOptions())
	require.NoError(t, err)
	require.NoError(t, queue.MarkCompleted(ctx, job.ID, nil))

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&Job{}).Where("id = ?", job.ID).
		Update("completed_at", old).Error)

	n, err := queue.DeleteOldJobs(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 2, calculateBackoff(1))
	assert.Equal(t, 4, calculateBackoff(2))
	assert.Equal(t, 8, calculateBackoff(3))
	assert.Equal(t, 3600, calculateBackoff(20), "backoff is capped at one hour")
}
