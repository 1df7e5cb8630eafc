package storage

import (
	"context"

	"breakout-backtest/internal/domain"
)

// CandidateStore provides access to candidates storage.
type CandidateStore interface {
	// Insert adds a new candidate. Returns ErrDuplicateKey if candidate_id exists.
	Insert(ctx context.Context, c *domain.Candidate) error

	// InsertBulk adds multiple candidates atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, candidates []*domain.Candidate) error

	// GetByID retrieves a candidate by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, candidateID string) (*domain.Candidate, error)

	// GetByStockCode retrieves all candidates for a stock, ordered by breakthrough_date ASC.
	GetByStockCode(ctx context.Context, stockCode string) ([]*domain.Candidate, error)

	// GetAll retrieves all candidates, ordered by (stock_code, breakthrough_date) ASC.
	GetAll(ctx context.Context) ([]*domain.Candidate, error)
}

// BarStore provides access to daily_bars storage.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (stock_code, trade_date).
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// GetByStockCode retrieves a stock's full history, ordered by trade_date ASC.
	GetByStockCode(ctx context.Context, stockCode string) ([]*domain.Bar, error)

	// ListStockCodes returns every stock code with at least one bar, sorted ASC.
	ListStockCodes(ctx context.Context) ([]string, error)
}

// TradeEventStore provides access to trade_events storage.
type TradeEventStore interface {
	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate event_id.
	InsertBulk(ctx context.Context, events []*domain.TradeEvent) error

	// GetByCandidateID retrieves an episode's events, ordered by seq ASC.
	GetByCandidateID(ctx context.Context, candidateID string) ([]*domain.TradeEvent, error)

	// GetByStockCode retrieves all events for a stock, ordered by (trade_date, candidate_id, seq) ASC.
	GetByStockCode(ctx context.Context, stockCode string) ([]*domain.TradeEvent, error)

	// GetAll retrieves all events, ordered by (stock_code, trade_date, candidate_id, seq) ASC.
	GetAll(ctx context.Context) ([]*domain.TradeEvent, error)
}

// SkipRecordStore provides access to skip_records storage.
type SkipRecordStore interface {
	// InsertBulk adds multiple skip diagnostics.
	InsertBulk(ctx context.Context, records []*domain.SkipRecord) error

	// GetByRunID retrieves the diagnostics of one run, ordered by (stock_code, candidate_id) ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.SkipRecord, error)
}
