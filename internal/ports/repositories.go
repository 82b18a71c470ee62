package ports

import (
	"context"

	"candor/internal/domain"
)

// ReportRepository is the status store: the single source of truth for
// report lifecycle state, plus the durable enqueue that creates it.
type ReportRepository interface {
	// Enqueue persists the job and its initial StatusRecord (status
	// queued) as one atomic unit. Either both exist afterwards or
	// neither does.
	Enqueue(ctx context.Context, job domain.ReportJob) error

	// GetStatus returns the record for reportID, or
	// domain.ErrNotFound if the store has never seen it.
	GetStatus(ctx context.Context, reportID string) (domain.StatusRecord, error)

	// Transition applies next (and summary, for terminal states) to
	// the report's record iff the state machine allows it, under
	// per-report write serialization. It returns the record as of
	// the call and whether the change was applied. A disallowed
	// transition is not an error here; policy lives with the caller.
	Transition(ctx context.Context, reportID string, next domain.Status, summary *domain.RedactionSummary) (rec domain.StatusRecord, applied bool, err error)

	// SetTxHash backfills the ledger transaction hash onto the
	// record once anchoring succeeds.
	SetTxHash(ctx context.Context, reportID, txHash string) error
}

// BlobStore stores ciphertext by key and returns a handle. Keys are
// namespaced per report ID by callers to prevent cross-report
// collision.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) (handle string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Ledger is the integrity ledger's read/write contract. It operates
// independently of the queue path: anchoring failure never blocks or
// rolls back queueing.
type Ledger interface {
	// Anchor submits a one-time contentHash binding. A hash the
	// ledger already holds fails with domain.ErrDuplicateHash.
	// Never retry blindly after an ambiguous timeout — check
	// GetProof first, or a spurious ErrDuplicateHash will follow.
	Anchor(ctx context.Context, contentHash, status, reporter string) (txHash string, err error)

	// UpdateStatus changes the anchored record's status. Only the
	// original submitter or a designated authority may call it.
	UpdateStatus(ctx context.Context, contentHash, newStatus, caller string) error

	GetProof(ctx context.Context, contentHash string) (domain.IntegrityRecord, error)
	ReportExists(ctx context.Context, contentHash string) (bool, error)
	ReportsByAddress(ctx context.Context, addr string) ([]string, error)
}
