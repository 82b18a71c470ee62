package redaction

import (
	"context"
	"log/slog"
	"time"

	"candor/internal/domain"
	"candor/internal/ports"
)

// Result is what a processor returns for a finished job.
type Result struct {
	Summary domain.RedactionSummary
}

// Processor is the opaque redaction boundary. It receives the
// encrypted job and returns a redaction summary; the pipeline never
// inspects plaintext. Implementations decrypt only in memory and must
// not persist plaintext.
type Processor interface {
	Process(ctx context.Context, job domain.ReportJob) (Result, error)
}

// StubProcessor settles jobs without real redaction work: it counts
// the attachments and reports zero redactions. Used for local runs
// when no GPU worker is attached.
type StubProcessor struct{}

func (StubProcessor) Process(ctx context.Context, job domain.ReportJob) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	return Result{Summary: domain.RedactionSummary{FilesProcessed: len(job.AttachmentHandles)}}, nil
}

// Run starts worker goroutines that claim jobs and process them.
// Completion flows through the reconciler — never straight to the
// store — so the state machine keeps a single terminal writer. The
// queue is at-least-once; a redelivered job that was already settled
// is absorbed by reconciler idempotence.
func Run(ctx context.Context, queue ports.JobQueue, reconciler ports.Reconciler, processor Processor, concurrency int, pollInterval time.Duration, log *slog.Logger) {
	if concurrency < 1 {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	type claimed struct {
		job   domain.ReportJob
		jobID string
	}
	jobsCh := make(chan claimed, concurrency)

	// claim loop
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(jobsCh)
				return
			case <-ticker.C:
				for {
					job, jobID, found, err := queue.ClaimNext(ctx)
					if err != nil {
						log.Error("job claim failed", "error", err)
						break
					}
					if !found {
						break
					}
					jobsCh <- claimed{job: job, jobID: jobID}
				}
			}
		}
	}()

	// workers
	for i := 0; i < concurrency; i++ {
		go func(idx int) {
			for c := range jobsCh {
				process(ctx, queue, reconciler, processor, c.job, c.jobID, idx, log)
			}
		}(i)
	}
}

func process(ctx context.Context, queue ports.JobQueue, reconciler ports.Reconciler, processor Processor, job domain.ReportJob, jobID string, idx int, log *slog.Logger) {
	if err := reconciler.ApplyResult(ctx, job.ReportID, domain.StatusProcessing, nil); err != nil {
		log.Warn("marking processing failed", "worker", idx, "reportId", job.ReportID, "error", err)
	}

	result, err := processor.Process(ctx, job)
	if err != nil {
		if applyErr := reconciler.ApplyResult(ctx, job.ReportID, domain.StatusFailed, nil); applyErr != nil {
			log.Error("reconciling failure failed", "worker", idx, "reportId", job.ReportID, "error", applyErr)
		}
		if markErr := queue.MarkFailed(ctx, jobID, err.Error()); markErr != nil {
			log.Error("settling failed job failed", "worker", idx, "jobId", jobID, "error", markErr)
		}
		log.Warn("redaction failed", "worker", idx, "reportId", job.ReportID, "error", err)
		return
	}

	summary := result.Summary
	if err := reconciler.ApplyResult(ctx, job.ReportID, domain.StatusCompleted, &summary); err != nil {
		log.Error("reconciling completion failed", "worker", idx, "reportId", job.ReportID, "error", err)
		return
	}
	if err := queue.MarkDone(ctx, jobID); err != nil {
		log.Error("settling done job failed", "worker", idx, "jobId", jobID, "error", err)
	}
}
