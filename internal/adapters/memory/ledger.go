package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"candor/internal/domain"
)

// Ledger is an in-process integrity ledger with the same contract as
// the HTTP client: one immutable record per content hash, status
// updatable only by the original submitter or the configured
// authority.
type Ledger struct {
	mu        sync.Mutex
	records   map[string]*domain.IntegrityRecord
	byAddress map[string][]string
	authority string
}

// NewLedger creates a ledger. authority may be empty when no
// designated authority exists.
func NewLedger(authority string) *Ledger {
	return &Ledger{
		records:   make(map[string]*domain.IntegrityRecord),
		byAddress: make(map[string][]string),
		authority: authority,
	}
}

func (l *Ledger) Anchor(ctx context.Context, contentHash, status, reporter string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[contentHash]; ok {
		return "", domain.ErrDuplicateHash
	}
	now := time.Now().UTC()
	l.records[contentHash] = &domain.IntegrityRecord{
		ContentHash: contentHash,
		Reporter:    reporter,
		Timestamp:   now,
		Status:      status,
	}
	l.byAddress[reporter] = append(l.byAddress[reporter], contentHash)

	// Deterministic pseudo transaction hash for test assertions.
	sum := sha256.Sum256([]byte(contentHash + reporter + now.String()))
	return "0x" + hex.EncodeToString(sum[:]), nil
}

func (l *Ledger) UpdateStatus(ctx context.Context, contentHash, newStatus, caller string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[contentHash]
	if !ok {
		return domain.ErrNotAnchored
	}
	if caller != rec.Reporter && (l.authority == "" || caller != l.authority) {
		return domain.ErrUnauthorized
	}
	rec.Status = newStatus
	return nil
}

func (l *Ledger) GetProof(ctx context.Context, contentHash string) (domain.IntegrityRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[contentHash]
	if !ok {
		return domain.IntegrityRecord{}, domain.ErrNotFound
	}
	return *rec, nil
}

func (l *Ledger) ReportExists(ctx context.Context, contentHash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[contentHash]
	return ok, nil
}

func (l *Ledger) ReportsByAddress(ctx context.Context, addr string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	hashes := l.byAddress[addr]
	out := make([]string, len(hashes))
	copy(out, hashes)
	return out, nil
}
