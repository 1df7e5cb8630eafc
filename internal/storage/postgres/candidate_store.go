package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/storage"
)

// CandidateStore implements storage.CandidateStore using PostgreSQL.
type CandidateStore struct {
	pool *Pool
}

// NewCandidateStore creates a new CandidateStore.
func NewCandidateStore(pool *Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

const insertCandidateQuery = `
	INSERT INTO candidates (
		candidate_id, stock_code, stock_name, breakthrough_date, support_price, support_date
	) VALUES ($1, $2, $3, $4, $5, $6)
`

const selectCandidateColumns = `
	SELECT candidate_id, stock_code, stock_name, breakthrough_date, support_price, support_date, created_at
	FROM candidates
`

// Insert adds a new candidate. Returns ErrDuplicateKey if candidate_id exists.
func (s *CandidateStore) Insert(ctx context.Context, c *domain.Candidate) error {
	if c == nil || c.CandidateID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertCandidateQuery,
		c.CandidateID,
		c.StockCode,
		c.StockName,
		c.BreakthroughDate,
		c.SupportPrice,
		c.SupportDate,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

// InsertBulk adds multiple candidates atomically. Fails entire batch on any duplicate.
func (s *CandidateStore) InsertBulk(ctx context.Context, candidates []*domain.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range candidates {
		if c == nil || c.CandidateID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertCandidateQuery,
			c.CandidateID,
			c.StockCode,
			c.StockName,
			c.BreakthroughDate,
			c.SupportPrice,
			c.SupportDate,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert candidate in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a candidate by its ID. Returns ErrNotFound if not exists.
func (s *CandidateStore) GetByID(ctx context.Context, candidateID string) (*domain.Candidate, error) {
	query := selectCandidateColumns + `WHERE candidate_id = $1`

	row := s.pool.QueryRow(ctx, query, candidateID)
	c, err := scanCandidate(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get candidate by id: %w", err)
	}
	return c, nil
}

// GetByStockCode retrieves all candidates for a stock, ordered by breakthrough_date ASC.
func (s *CandidateStore) GetByStockCode(ctx context.Context, stockCode string) ([]*domain.Candidate, error) {
	query := selectCandidateColumns + `
		WHERE stock_code = $1
		ORDER BY breakthrough_date ASC, candidate_id ASC
	`

	rows, err := s.pool.Query(ctx, query, stockCode)
	if err != nil {
		return nil, fmt.Errorf("get candidates by stock code: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// GetAll retrieves all candidates, ordered by (stock_code, breakthrough_date) ASC.
func (s *CandidateStore) GetAll(ctx context.Context) ([]*domain.Candidate, error) {
	query := selectCandidateColumns + `
		ORDER BY stock_code ASC, breakthrough_date ASC, candidate_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// scanCandidate scans a single row into a Candidate.
func scanCandidate(row pgx.Row) (*domain.Candidate, error) {
	var c domain.Candidate

	err := row.Scan(
		&c.CandidateID,
		&c.StockCode,
		&c.StockName,
		&c.BreakthroughDate,
		&c.SupportPrice,
		&c.SupportDate,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// scanCandidates scans multiple rows into a slice of Candidate.
func scanCandidates(rows pgx.Rows) ([]*domain.Candidate, error) {
	var candidates []*domain.Candidate

	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}

	return candidates, nil
}
