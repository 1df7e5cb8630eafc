package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/storage"
)

// SkipRecordStore implements storage.SkipRecordStore using PostgreSQL.
type SkipRecordStore struct {
	pool *Pool
}

// NewSkipRecordStore creates a new SkipRecordStore.
func NewSkipRecordStore(pool *Pool) *SkipRecordStore {
	return &SkipRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SkipRecordStore = (*SkipRecordStore)(nil)

// InsertBulk adds multiple skip diagnostics in one batch.
func (s *SkipRecordStore) InsertBulk(ctx context.Context, records []*domain.SkipRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		if r == nil || r.RunID == "" || r.StockCode == "" {
			return storage.ErrInvalidInput
		}
		batch.Queue(`
			INSERT INTO skip_records (run_id, candidate_id, stock_code, reason, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, r.RunID, r.CandidateID, r.StockCode, r.Reason, r.CreatedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert skip record: %w", err)
		}
	}

	return nil
}

// GetByRunID retrieves the diagnostics of one run, ordered by (stock_code, candidate_id) ASC.
func (s *SkipRecordStore) GetByRunID(ctx context.Context, runID string) ([]*domain.SkipRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, candidate_id, stock_code, reason, created_at
		FROM skip_records
		WHERE run_id = $1
		ORDER BY stock_code ASC, candidate_id ASC, id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get skip records by run id: %w", err)
	}
	defer rows.Close()

	var records []*domain.SkipRecord
	for rows.Next() {
		var r domain.SkipRecord
		if err := rows.Scan(&r.RunID, &r.CandidateID, &r.StockCode, &r.Reason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan skip record row: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skip record rows: %w", err)
	}

	return records, nil
}
