package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"candor/internal/domain"
)

// ClaimNext selects the oldest queued job using SKIP LOCKED and marks
// it running. The join pulls the full job payload so the worker has
// everything it needs without a second read. The report's lifecycle
// status is untouched here — only the reconciler writes processing.
func (db *DB) ClaimNext(ctx context.Context) (job domain.ReportJob, jobID string, found bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, "", false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
        SELECT j.id, r.id, r.wrapped_key, r.content_hash, r.envelope_handle,
               r.attachment_handles, r.submitted_at, COALESCE(r.eth_tx_hash, '')
        FROM report_jobs j
        JOIN reports r ON r.id = j.report_id
        WHERE j.status = 'queued'
        ORDER BY j.queued_at
        FOR UPDATE OF j SKIP LOCKED
        LIMIT 1
    `).Scan(&jobID, &job.ReportID, &job.WrappedKey, &job.ContentHash, &job.EnvelopeHandle,
		&job.AttachmentHandles, &job.SubmittedAt, &job.EthTxHash)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return job, "", false, nil
	}
	if err != nil {
		return job, "", false, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE report_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1
    `, jobID)
	if err != nil {
		return job, "", false, err
	}
	return job, jobID, true, nil
}

func (db *DB) MarkDone(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := db.Pool.Exec(ctx, `UPDATE report_jobs SET status='done', finished_at=now() WHERE id=$1`, jobID)
	return err
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := db.Pool.Exec(ctx, `UPDATE report_jobs SET status='failed', finished_at=now(), reason=$2 WHERE id=$1`, jobID, reason)
	return err
}
