package status

import (
	"context"

	"candor/internal/domain"
	"candor/internal/ports"
)

// Service serves status polls. Reads never take the write path; any
// number of concurrent polls proceed in parallel.
type Service struct {
	reports ports.ReportRepository
}

func New(reports ports.ReportRepository) *Service { return &Service{reports: reports} }

// Get returns the record for reportID, or domain.ErrNotFound — never a
// default record for an unknown ID.
func (s *Service) Get(ctx context.Context, reportID string) (domain.StatusRecord, error) {
	return s.reports.GetStatus(ctx, reportID)
}
