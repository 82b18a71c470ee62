package redaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candor/internal/adapters/memory"
	"candor/internal/domain"
	"candor/internal/services/reconcile"
)

func enqueue(t *testing.T, store *memory.ReportStore, reportID string, handles []string) {
	t.Helper()
	require.NoError(t, store.Enqueue(context.Background(), domain.ReportJob{
		ReportID:          reportID,
		ContentHash:       "hash-" + reportID,
		AttachmentHandles: handles,
		SubmittedAt:       time.Now().UTC(),
	}))
}

func TestRunProcessesQueuedJobs(t *testing.T) {
	store := memory.NewReportStore()
	reconciler := reconcile.New(store, nil)
	enqueue(t, store, "r1", []string{"r1/0-a", "r1/1-b"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Run(ctx, store, reconciler, StubProcessor{}, 2, 10*time.Millisecond, nil)

	require.Eventually(t, func() bool {
		rec, err := store.GetStatus(context.Background(), "r1")
		return err == nil && rec.Status == domain.StatusCompleted
	}, 3*time.Second, 20*time.Millisecond)

	rec, err := store.GetStatus(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, rec.RedactionSummary)
	assert.Equal(t, 2, rec.RedactionSummary.FilesProcessed)
}

type failingProcessor struct{}

func (failingProcessor) Process(ctx context.Context, job domain.ReportJob) (Result, error) {
	return Result{}, errors.New("model crashed")
}

func TestRunReconcilesFailure(t *testing.T) {
	store := memory.NewReportStore()
	reconciler := reconcile.New(store, nil)
	enqueue(t, store, "r1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Run(ctx, store, reconciler, failingProcessor{}, 1, 10*time.Millisecond, nil)

	require.Eventually(t, func() bool {
		rec, err := store.GetStatus(context.Background(), "r1")
		return err == nil && rec.Status == domain.StatusFailed
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRunZeroConcurrencyIsNoop(t *testing.T) {
	store := memory.NewReportStore()
	reconciler := reconcile.New(store, nil)
	enqueue(t, store, "r1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Run(ctx, store, reconciler, StubProcessor{}, 0, 10*time.Millisecond, nil)

	time.Sleep(100 * time.Millisecond)
	rec, err := store.GetStatus(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, rec.Status)
}
