package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"candor/internal/domain"
)

// Enqueue inserts the job payload and its initial queued status record
// in one transaction: either both rows exist afterwards or neither
// does, so a half-applied enqueue can never be observed.
func (db *DB) Enqueue(ctx context.Context, job domain.ReportJob) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
        INSERT INTO reports (id, status, content_hash, wrapped_key, envelope_handle, attachment_handles, submitted_at, updated_at)
        VALUES ($1, 'queued', $2, $3, $4, $5, $6, $6)
    `, job.ReportID, job.ContentHash, job.WrappedKey, job.EnvelopeHandle, job.AttachmentHandles, job.SubmittedAt); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO report_jobs (report_id) VALUES ($1)`, job.ReportID)
	return err
}

// GetStatus reads the status record. Reads go straight through the
// pool with no locking; they never block writers.
func (db *DB) GetStatus(ctx context.Context, reportID string) (domain.StatusRecord, error) {
	var rec domain.StatusRecord
	var faces, pii, files *int
	err := db.Pool.QueryRow(ctx, `
        SELECT id, status, content_hash, COALESCE(eth_tx_hash, ''),
               faces_redacted, pii_redacted, files_processed, updated_at
        FROM reports WHERE id = $1
    `, reportID).Scan(&rec.ReportID, &rec.Status, &rec.ContentHash, &rec.EthTxHash, &faces, &pii, &files, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, domain.ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if faces != nil && pii != nil && files != nil {
		rec.RedactionSummary = &domain.RedactionSummary{FacesRedacted: *faces, PIIRedacted: *pii, FilesProcessed: *files}
	}
	return rec, nil
}

// Transition applies next under a row lock iff the state machine
// allows it. The FOR UPDATE lock serializes concurrent callbacks for
// the same report; different reports lock different rows and proceed
// in parallel. No network call happens while the lock is held.
func (db *DB) Transition(ctx context.Context, reportID string, next domain.Status, summary *domain.RedactionSummary) (rec domain.StatusRecord, applied bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return rec, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var faces, pii, files *int
	err = tx.QueryRow(ctx, `
        SELECT id, status, content_hash, COALESCE(eth_tx_hash, ''),
               faces_redacted, pii_redacted, files_processed, updated_at
        FROM reports WHERE id = $1
        FOR UPDATE
    `, reportID).Scan(&rec.ReportID, &rec.Status, &rec.ContentHash, &rec.EthTxHash, &faces, &pii, &files, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, false, domain.ErrNotFound
	}
	if err != nil {
		return rec, false, err
	}
	if faces != nil && pii != nil && files != nil {
		rec.RedactionSummary = &domain.RedactionSummary{FacesRedacted: *faces, PIIRedacted: *pii, FilesProcessed: *files}
	}

	if !rec.Status.CanTransition(next) {
		return rec, false, nil
	}

	if summary != nil {
		_, err = tx.Exec(ctx, `
            UPDATE reports SET status=$2, faces_redacted=$3, pii_redacted=$4, files_processed=$5, updated_at=now()
            WHERE id=$1
        `, reportID, next, summary.FacesRedacted, summary.PIIRedacted, summary.FilesProcessed)
	} else {
		_, err = tx.Exec(ctx, `UPDATE reports SET status=$2, updated_at=now() WHERE id=$1`, reportID, next)
	}
	if err != nil {
		return rec, false, err
	}
	rec.Status = next
	rec.RedactionSummary = summary
	return rec, true, nil
}

// SetTxHash backfills the ledger transaction hash after a successful
// anchor. Anchoring is independent of the queue path, so this is a
// plain update outside any transition.
func (db *DB) SetTxHash(ctx context.Context, reportID, txHash string) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE reports SET eth_tx_hash=$2, updated_at=now() WHERE id=$1`, reportID, txHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
