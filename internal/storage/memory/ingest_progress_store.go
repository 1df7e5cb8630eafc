package memory

import (
	"context"
	"sort"
	"sync"

	"breakout-backtest/internal/storage"
)

// IngestProgressStore is an in-memory implementation of storage.IngestProgressStore.
type IngestProgressStore struct {
	mu    sync.RWMutex
	files map[string]storage.IngestedFile // keyed by digest
}

// NewIngestProgressStore creates a new in-memory ingest progress store.
func NewIngestProgressStore() *IngestProgressStore {
	return &IngestProgressStore{
		files: make(map[string]storage.IngestedFile),
	}
}

// IsFileSeen checks if a file digest has been ingested.
func (s *IngestProgressStore) IsFileSeen(_ context.Context, digest string) (bool, error) {
	if digest == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.files[digest]
	return ok, nil
}

// MarkFileSeen records an ingested file.
func (s *IngestProgressStore) MarkFileSeen(_ context.Context, f *storage.IngestedFile) error {
	if f == nil || f.Digest == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[f.Digest]; !ok {
		s.files[f.Digest] = *f
	}
	return nil
}

// LoadSeenFiles returns all ingested files ordered by path.
func (s *IngestProgressStore) LoadSeenFiles(_ context.Context) ([]*storage.IngestedFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*storage.IngestedFile, 0, len(s.files))
	for _, f := range s.files {
		cp := f
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})
	return result, nil
}

var _ storage.IngestProgressStore = (*IngestProgressStore)(nil)
