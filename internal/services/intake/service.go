package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"candor/internal/crypto"
	"candor/internal/domain"
	"candor/internal/ports"
)

// Service is the job dispatcher: it validates envelopes, uploads the
// ciphertext and attachments to blob storage, and enqueues the
// redaction job together with the initial status record.
type Service struct {
	reports ports.ReportRepository
	blobs   ports.BlobStore
	ledger  ports.Ledger
	log     *slog.Logger

	// anchorTimeout bounds the fire-and-forget ledger call so an
	// unresponsive gateway cannot pin goroutines forever.
	anchorTimeout time.Duration
}

// New constructs the dispatcher. ledger may be nil when no ledger is
// configured; anchoring is then skipped entirely.
func New(reports ports.ReportRepository, blobs ports.BlobStore, ledger ports.Ledger, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{reports: reports, blobs: blobs, ledger: ledger, log: log, anchorTimeout: 30 * time.Second}
}

// Submit runs the submission pipeline. All uploads complete before the
// report ID is returned; an abandoned submission leaves no queued job
// because the queue write happens last. Ledger anchoring runs in
// parallel off the same content hash and never affects the outcome.
func (s *Service) Submit(ctx context.Context, env *crypto.Envelope, attachments []ports.Attachment, reporter string) (string, error) {
	if env == nil {
		return "", fmt.Errorf("%w: missing envelope", domain.ErrInvalidEnvelope)
	}
	if err := env.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidEnvelope, err)
	}
	if !env.VerifyContentHash() {
		return "", fmt.Errorf("%w: content hash does not match ciphertext", domain.ErrInvalidEnvelope)
	}

	reportID := uuid.NewString()

	// Blob keys are namespaced under the report ID so attachments of
	// unrelated reports can never collide.
	handles := make([]string, 0, len(attachments))
	for i, att := range attachments {
		key := fmt.Sprintf("%s/%d-%s", reportID, i, att.Name)
		handle, err := s.blobs.Put(ctx, key, att.Data)
		if err != nil {
			return "", fmt.Errorf("%w: uploading attachment %q: %v", domain.ErrStorageUnavailable, att.Name, err)
		}
		handles = append(handles, handle)
	}

	body, err := env.Marshal()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidEnvelope, err)
	}
	envelopeHandle, err := s.blobs.Put(ctx, reportID+"/envelope", body)
	if err != nil {
		return "", fmt.Errorf("%w: uploading envelope: %v", domain.ErrStorageUnavailable, err)
	}

	job := domain.ReportJob{
		ReportID:          reportID,
		WrappedKey:        env.WrappedKey,
		ContentHash:       env.ContentHash,
		EnvelopeHandle:    envelopeHandle,
		AttachmentHandles: handles,
		SubmittedAt:       time.Now().UTC(),
	}
	if err := s.reports.Enqueue(ctx, job); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}

	if s.ledger != nil && reporter != "" {
		go s.anchor(reportID, env.ContentHash, reporter)
	}

	return reportID, nil
}

// anchor binds the content hash on the ledger. Failures are logged and
// dropped: the ledger path must never block or roll back queueing. No
// blind retry either — an ambiguous timeout followed by a retry would
// surface as a spurious duplicate-hash error.
func (s *Service) anchor(reportID, contentHash, reporter string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.anchorTimeout)
	defer cancel()

	txHash, err := s.ledger.Anchor(ctx, contentHash, string(domain.StatusQueued), reporter)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateHash) {
			s.log.Warn("content hash already anchored", "reportId", reportID, "contentHash", contentHash)
			return
		}
		s.log.Warn("ledger anchor failed", "reportId", reportID, "contentHash", contentHash, "error", err)
		return
	}
	if err := s.reports.SetTxHash(ctx, reportID, txHash); err != nil {
		s.log.Warn("recording anchor tx hash failed", "reportId", reportID, "txHash", txHash, "error", err)
		return
	}
	s.log.Info("report anchored", "reportId", reportID, "txHash", txHash)
}
