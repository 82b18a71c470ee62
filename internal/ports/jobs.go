package ports

import (
	"context"

	"candor/internal/domain"
)

// JobQueue supports claiming and settling redaction jobs. Delivery is
// at-least-once: a claimed job that is never settled becomes claimable
// again, so consumers must be idempotent.
type JobQueue interface {
	// ClaimNext claims the oldest queued job, if any, and marks it
	// running.
	ClaimNext(ctx context.Context) (job domain.ReportJob, jobID string, found bool, err error)

	// MarkDone settles a claimed job.
	MarkDone(ctx context.Context, jobID string) error

	// MarkFailed settles a claimed job as failed with a reason.
	MarkFailed(ctx context.Context, jobID string, reason string) error
}
