package domain

import "time"

// Core domain models used internally. Wire types live with the HTTP
// adapter; keep these decoupled where helpful.

// Status is the lifecycle state of a report.
type Status string

const (
	StatusReceived   Status = "received"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a final state. Terminal records never
// regress to a non-terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders states along the lifecycle. received and queued are the
// initial pair set together at enqueue time.
func (s Status) rank() int {
	switch s {
	case StatusReceived:
		return 0
	case StatusQueued:
		return 1
	case StatusProcessing:
		return 2
	case StatusCompleted, StatusFailed:
		return 3
	}
	return -1
}

// CanTransition reports whether a record in state s may move to next.
// Transitions are monotonic: equal or earlier states are rejected, and
// terminal states accept nothing.
func (s Status) CanTransition(next Status) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	return next.rank() > s.rank()
}

// RedactionSummary is the worker's account of what it removed. Field
// names match the worker callback wire format.
type RedactionSummary struct {
	FacesRedacted  int `json:"facesRedacted" cbor:"facesRedacted"`
	PIIRedacted    int `json:"piiRedacted" cbor:"piiRedacted"`
	FilesProcessed int `json:"filesProcessed" cbor:"filesProcessed"`
}

// StatusRecord is the authoritative lifecycle state of a report, one
// record per report ID. Created by the dispatcher at enqueue; terminal
// states are written only by the reconciler.
type StatusRecord struct {
	ReportID         string
	Status           Status
	ContentHash      string
	EthTxHash        string
	RedactionSummary *RedactionSummary
	UpdatedAt        time.Time
}

// ReportJob is the durable queue entry handed to the redaction worker.
// Immutable once enqueued; a resubmission creates a new job, never
// edits an old one.
type ReportJob struct {
	ReportID          string
	WrappedKey        string
	ContentHash       string
	EnvelopeHandle    string
	AttachmentHandles []string
	SubmittedAt       time.Time
	EthTxHash         string
}

// IntegrityRecord is the ledger-side binding of a content hash to its
// submitter. Immutable except for Status, which only the original
// submitter or a designated authority may change.
type IntegrityRecord struct {
	ContentHash string    `json:"contentHash"`
	Reporter    string    `json:"reporter"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
}
