package memory

import (
	"context"
	"sort"
	"sync"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/storage"
)

// SkipRecordStore is an in-memory implementation of storage.SkipRecordStore.
type SkipRecordStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.SkipRecord // keyed by run_id
}

// NewSkipRecordStore creates a new in-memory skip record store.
func NewSkipRecordStore() *SkipRecordStore {
	return &SkipRecordStore{
		data: make(map[string][]*domain.SkipRecord),
	}
}

// InsertBulk adds multiple skip diagnostics.
func (s *SkipRecordStore) InsertBulk(_ context.Context, records []*domain.SkipRecord) error {
	for _, r := range records {
		if r == nil || r.RunID == "" || r.StockCode == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		cp := *r
		s.data[r.RunID] = append(s.data[r.RunID], &cp)
	}
	return nil
}

// GetByRunID retrieves the diagnostics of one run, ordered by (stock_code, candidate_id) ASC.
func (s *SkipRecordStore) GetByRunID(_ context.Context, runID string) ([]*domain.SkipRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SkipRecord, 0, len(s.data[runID]))
	for _, r := range s.data[runID] {
		cp := *r
		result = append(result, &cp)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].StockCode != result[j].StockCode {
			return result[i].StockCode < result[j].StockCode
		}
		return result[i].CandidateID < result[j].CandidateID
	})
	return result, nil
}

var _ storage.SkipRecordStore = (*SkipRecordStore)(nil)
