package ports

import (
	"context"

	"candor/internal/crypto"
	"candor/internal/domain"
)

// Attachment is an encrypted attachment as received from the client.
// The bytes are already ciphertext under the report key; the blob
// store adds its own at-rest layer on top.
type Attachment struct {
	Name string
	Data []byte
}

// Intake validates envelopes, uploads blobs, and enqueues reports.
type Intake interface {
	Submit(ctx context.Context, env *crypto.Envelope, attachments []Attachment, reporter string) (reportID string, err error)
}

// StatusReader serves status polls.
type StatusReader interface {
	Get(ctx context.Context, reportID string) (domain.StatusRecord, error)
}

// Reconciler merges asynchronous worker results into the status store.
type Reconciler interface {
	ApplyResult(ctx context.Context, reportID string, status domain.Status, summary *domain.RedactionSummary) error
}
