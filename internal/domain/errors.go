package domain

import "errors"

// Error taxonomy for the pipeline. All of these are returned as typed
// results to callers; none are swallowed. Adapters map store-specific
// failures onto these so services and handlers can branch with
// errors.Is.
var (
	// ErrInvalidEnvelope rejects a submission with missing or
	// malformed envelope fields. Never queued.
	ErrInvalidEnvelope = errors.New("invalid envelope")

	// ErrStorageUnavailable signals a blob upload failure. The whole
	// submission is rejected; nothing is queued.
	ErrStorageUnavailable = errors.New("blob storage unavailable")

	// ErrQueueUnavailable signals a failed enqueue. Retryable with
	// backoff; no partial state is committed.
	ErrQueueUnavailable = errors.New("job queue unavailable")

	// ErrNotFound distinguishes "does not exist" from "try again"
	// on status reads and ledger proof lookups.
	ErrNotFound = errors.New("not found")

	// ErrUnknownReport rejects a worker callback for a report ID the
	// status store has never seen.
	ErrUnknownReport = errors.New("unknown report")

	// ErrAlreadyFinalized rejects a terminal write that conflicts
	// with an existing terminal record. First terminal write wins.
	ErrAlreadyFinalized = errors.New("report already finalized")

	// ErrInvalidStatus rejects a callback status outside the worker's
	// allowed set.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrDuplicateHash rejects anchoring a content hash the ledger
	// already holds.
	ErrDuplicateHash = errors.New("content hash already anchored")

	// ErrUnauthorized rejects a ledger status update from anyone but
	// the original submitter or a designated authority.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotAnchored rejects a ledger status update for a hash that
	// was never anchored.
	ErrNotAnchored = errors.New("content hash not anchored")
)
