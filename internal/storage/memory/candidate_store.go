package memory

import (
	"context"
	"sort"
	"sync"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/storage"
)

// CandidateStore is an in-memory implementation of storage.CandidateStore.
type CandidateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Candidate // keyed by candidate_id
}

// NewCandidateStore creates a new in-memory candidate store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{
		data: make(map[string]*domain.Candidate),
	}
}

// Insert adds a new candidate. Returns ErrDuplicateKey if candidate_id exists.
func (s *CandidateStore) Insert(_ context.Context, c *domain.Candidate) error {
	if c == nil || c.CandidateID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.CandidateID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[c.CandidateID] = copyCandidate(c)
	return nil
}

// InsertBulk adds multiple candidates atomically. Fails entire batch on any duplicate.
func (s *CandidateStore) InsertBulk(_ context.Context, candidates []*domain.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c == nil || c.CandidateID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[c.CandidateID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[c.CandidateID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[c.CandidateID] = struct{}{}
	}

	for _, c := range candidates {
		s.data[c.CandidateID] = copyCandidate(c)
	}
	return nil
}

// GetByID retrieves a candidate by its ID. Returns ErrNotFound if not exists.
func (s *CandidateStore) GetByID(_ context.Context, candidateID string) (*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[candidateID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyCandidate(c), nil
}

// GetByStockCode retrieves all candidates for a stock, ordered by breakthrough_date ASC.
func (s *CandidateStore) GetByStockCode(_ context.Context, stockCode string) ([]*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Candidate
	for _, c := range s.data {
		if c.StockCode == stockCode {
			result = append(result, copyCandidate(c))
		}
	}

	sortCandidates(result)
	return result, nil
}

// GetAll retrieves all candidates, ordered by (stock_code, breakthrough_date) ASC.
func (s *CandidateStore) GetAll(_ context.Context) ([]*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Candidate, 0, len(s.data))
	for _, c := range s.data {
		result = append(result, copyCandidate(c))
	}

	sortCandidates(result)
	return result, nil
}

func sortCandidates(cs []*domain.Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].StockCode != cs[j].StockCode {
			return cs[i].StockCode < cs[j].StockCode
		}
		if !cs[i].BreakthroughDate.Equal(cs[j].BreakthroughDate) {
			return cs[i].BreakthroughDate.Before(cs[j].BreakthroughDate)
		}
		return cs[i].CandidateID < cs[j].CandidateID
	})
}

// copyCandidate deep-copies the nullable support date as well.
func copyCandidate(c *domain.Candidate) *domain.Candidate {
	cp := *c
	if c.SupportDate != nil {
		d := *c.SupportDate
		cp.SupportDate = &d
	}
	return &cp
}

// Verify interface compliance at compile time.
var _ storage.CandidateStore = (*CandidateStore)(nil)
