package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"candor/internal/domain"
	"candor/internal/ports"
)

// Service merges asynchronous worker results into the status store.
// The queue delivers at least once, so everything here is idempotent:
// re-applying an identical result is a successful no-op, and stale or
// out-of-order callbacks are absorbed without touching the record.
type Service struct {
	reports ports.ReportRepository
	log     *slog.Logger
}

func New(reports ports.ReportRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{reports: reports, log: log}
}

// ApplyResult applies a worker callback. Accepted statuses are
// processing, completed, and failed; the initial pair is the
// dispatcher's to write. Policy on non-applied transitions:
//
//   - identical terminal re-delivery: absorbed, nil error
//   - conflicting terminal overwrite: ErrAlreadyFinalized, record kept
//   - late non-terminal after a terminal state: absorbed, logged
//   - unknown report: ErrUnknownReport, logged (queue/store drift)
func (s *Service) ApplyResult(ctx context.Context, reportID string, status domain.Status, summary *domain.RedactionSummary) error {
	switch status {
	case domain.StatusProcessing, domain.StatusCompleted, domain.StatusFailed:
	default:
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	rec, applied, err := s.reports.Transition(ctx, reportID, status, summary)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Error("callback for unknown report", "reportId", reportID, "status", status)
			return fmt.Errorf("%w: %s", domain.ErrUnknownReport, reportID)
		}
		return err
	}
	if applied {
		return nil
	}

	// Not applied: the record was already at or past the requested
	// state. Terminal records never change after the first terminal
	// write, so comparing against rec is race-free.
	if !rec.Status.Terminal() {
		// Duplicate or out-of-order non-terminal callback.
		s.log.Info("duplicate callback absorbed", "reportId", reportID, "status", status, "current", rec.Status)
		return nil
	}
	if status == rec.Status && summaryEqual(summary, rec.RedactionSummary) {
		return nil // identical re-delivery
	}
	if status.Terminal() {
		s.log.Warn("conflicting terminal callback rejected", "reportId", reportID, "status", status, "current", rec.Status)
		return fmt.Errorf("%w: %s is %s", domain.ErrAlreadyFinalized, reportID, rec.Status)
	}
	s.log.Info("stale callback ignored", "reportId", reportID, "status", status, "current", rec.Status)
	return nil
}

func summaryEqual(a, b *domain.RedactionSummary) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
