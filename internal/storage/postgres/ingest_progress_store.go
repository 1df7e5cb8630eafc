package postgres

import (
	"context"

	"breakout-backtest/internal/storage"
)

// IngestProgressStore is a PostgreSQL implementation of storage.IngestProgressStore.
// Uses the ingest_files table keyed by content digest.
type IngestProgressStore struct {
	pool *Pool
}

// NewIngestProgressStore creates a new PostgreSQL ingest progress store.
func NewIngestProgressStore(pool *Pool) *IngestProgressStore {
	return &IngestProgressStore{pool: pool}
}

var _ storage.IngestProgressStore = (*IngestProgressStore)(nil)

// IsFileSeen checks if a file digest has been ingested.
func (s *IngestProgressStore) IsFileSeen(ctx context.Context, digest string) (bool, error) {
	if digest == "" {
		return false, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM ingest_files WHERE digest = $1)
	`, digest)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// MarkFileSeen records an ingested file. The first record for a digest wins.
func (s *IngestProgressStore) MarkFileSeen(ctx context.Context, f *storage.IngestedFile) error {
	if f == nil || f.Digest == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_files (digest, path, kind, row_count, ingested_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (digest) DO NOTHING
	`, f.Digest, f.Path, f.Kind, f.Rows)

	return err
}

// LoadSeenFiles returns all ingested files ordered by path.
func (s *IngestProgressStore) LoadSeenFiles(ctx context.Context) ([]*storage.IngestedFile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT digest, path, kind, row_count FROM ingest_files ORDER BY path ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*storage.IngestedFile
	for rows.Next() {
		var f storage.IngestedFile
		if err := rows.Scan(&f.Digest, &f.Path, &f.Kind, &f.Rows); err != nil {
			return nil, err
		}
		files = append(files, &f)
	}

	return files, rows.Err()
}
