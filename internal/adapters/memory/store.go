// Package memory holds in-memory implementations of the pipeline's
// store ports. They back the test suites and local runs without
// Postgres or a ledger gateway; the semantics mirror the postgres and
// ledger adapters exactly.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"candor/internal/domain"
)

type jobState struct {
	job    domain.ReportJob
	status string // queued|running|done|failed
	reason string
}

// ReportStore is an in-memory status store plus durable-queue stand-in.
// A single mutex serializes writes; per-report granularity is not worth
// it for a test fake.
type ReportStore struct {
	mu      sync.Mutex
	records map[string]*domain.StatusRecord
	jobs    map[string]*jobState
	order   []string // job IDs in enqueue order
	seq     int
}

func NewReportStore() *ReportStore {
	return &ReportStore{
		records: make(map[string]*domain.StatusRecord),
		jobs:    make(map[string]*jobState),
	}
}

func (s *ReportStore) Enqueue(ctx context.Context, job domain.ReportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[job.ReportID]; ok {
		return fmt.Errorf("report %s already enqueued", job.ReportID)
	}
	s.records[job.ReportID] = &domain.StatusRecord{
		ReportID:    job.ReportID,
		Status:      domain.StatusQueued,
		ContentHash: job.ContentHash,
		UpdatedAt:   time.Now().UTC(),
	}
	s.seq++
	jobID := fmt.Sprintf("job-%d", s.seq)
	s.jobs[jobID] = &jobState{job: job, status: "queued"}
	s.order = append(s.order, jobID)
	return nil
}

func (s *ReportStore) GetStatus(ctx context.Context, reportID string) (domain.StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[reportID]
	if !ok {
		return domain.StatusRecord{}, domain.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *ReportStore) Transition(ctx context.Context, reportID string, next domain.Status, summary *domain.RedactionSummary) (domain.StatusRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[reportID]
	if !ok {
		return domain.StatusRecord{}, false, domain.ErrNotFound
	}
	if !rec.Status.CanTransition(next) {
		return cloneRecord(rec), false, nil
	}
	rec.Status = next
	if summary != nil {
		cp := *summary
		rec.RedactionSummary = &cp
	}
	rec.UpdatedAt = time.Now().UTC()
	return cloneRecord(rec), true, nil
}

func (s *ReportStore) SetTxHash(ctx context.Context, reportID, txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[reportID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.EthTxHash = txHash
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *ReportStore) ClaimNext(ctx context.Context) (domain.ReportJob, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, jobID := range s.order {
		js := s.jobs[jobID]
		if js.status != "queued" {
			continue
		}
		js.status = "running"
		return js.job, jobID, true, nil
	}
	return domain.ReportJob{}, "", false, nil
}

func (s *ReportStore) MarkDone(ctx context.Context, jobID string) error {
	return s.settle(jobID, "done", "")
}

func (s *ReportStore) MarkFailed(ctx context.Context, jobID string, reason string) error {
	return s.settle(jobID, "failed", reason)
}

func (s *ReportStore) settle(jobID, status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	js, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	js.status = status
	js.reason = reason
	return nil
}

func cloneRecord(rec *domain.StatusRecord) domain.StatusRecord {
	out := *rec
	if rec.RedactionSummary != nil {
		cp := *rec.RedactionSummary
		out.RedactionSummary = &cp
	}
	return out
}
