package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/storage"
)

// TradeEventStore implements storage.TradeEventStore using PostgreSQL.
type TradeEventStore struct {
	pool *Pool
}

// NewTradeEventStore creates a new TradeEventStore.
func NewTradeEventStore(pool *Pool) *TradeEventStore {
	return &TradeEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeEventStore = (*TradeEventStore)(nil)

const selectTradeEventColumns = `
	SELECT
		event_id, candidate_id, stock_code, stock_name, seq, trade_type,
		trade_date, shares, price, resulting_close, holding_day_count, reason
	FROM trade_events
`

// InsertBulk adds multiple events atomically using COPY.
// Fails entire batch on any duplicate event_id or (candidate_id, seq).
func (s *TradeEventStore) InsertBulk(ctx context.Context, events []*domain.TradeEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(events))
	for _, e := range events {
		if e == nil || e.EventID == "" || e.CandidateID == "" {
			return storage.ErrInvalidInput
		}
		rows = append(rows, []any{
			e.EventID, e.CandidateID, e.StockCode, e.StockName, e.Seq, string(e.TradeType),
			e.TradeDate, e.Shares, e.Price, e.ResultingClose, e.HoldingDayCount, e.Reason,
		})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"trade_events"},
		[]string{
			"event_id", "candidate_id", "stock_code", "stock_name", "seq", "trade_type",
			"trade_date", "shares", "price", "resulting_close", "holding_day_count", "reason",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy trade events: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByCandidateID retrieves an episode's events, ordered by seq ASC.
func (s *TradeEventStore) GetByCandidateID(ctx context.Context, candidateID string) ([]*domain.TradeEvent, error) {
	query := selectTradeEventColumns + `
		WHERE candidate_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, candidateID)
	if err != nil {
		return nil, fmt.Errorf("get trade events by candidate id: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// GetByStockCode retrieves all events for a stock, ordered by (trade_date, candidate_id, seq) ASC.
func (s *TradeEventStore) GetByStockCode(ctx context.Context, stockCode string) ([]*domain.TradeEvent, error) {
	query := selectTradeEventColumns + `
		WHERE stock_code = $1
		ORDER BY trade_date ASC, candidate_id ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, stockCode)
	if err != nil {
		return nil, fmt.Errorf("get trade events by stock code: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// GetAll retrieves all events, ordered by (stock_code, trade_date, candidate_id, seq) ASC.
func (s *TradeEventStore) GetAll(ctx context.Context) ([]*domain.TradeEvent, error) {
	query := selectTradeEventColumns + `
		ORDER BY stock_code ASC, trade_date ASC, candidate_id ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all trade events: %w", err)
	}
	defer rows.Close()

	return scanTradeEvents(rows)
}

// scanTradeEvents scans multiple rows into a slice of TradeEvent.
func scanTradeEvents(rows pgx.Rows) ([]*domain.TradeEvent, error) {
	var events []*domain.TradeEvent

	for rows.Next() {
		var e domain.TradeEvent
		var tradeType string

		err := rows.Scan(
			&e.EventID,
			&e.CandidateID,
			&e.StockCode,
			&e.StockName,
			&e.Seq,
			&tradeType,
			&e.TradeDate,
			&e.Shares,
			&e.Price,
			&e.ResultingClose,
			&e.HoldingDayCount,
			&e.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade event row: %w", err)
		}

		e.TradeType = domain.TradeType(tradeType)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade event rows: %w", err)
	}

	return events, nil
}
