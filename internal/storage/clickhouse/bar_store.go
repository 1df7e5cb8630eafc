package clickhouse

import (
	"context"
	"fmt"
	"sort"
	"time"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate (stock_code, trade_date).
// MergeTree does not enforce uniqueness, so duplicates are checked before the insert.
func (s *BarStore) InsertBulk(ctx context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		stockCode string
		tradeDate string
	}

	// Check for intra-batch duplicates
	seen := make(map[key]struct{}, len(bars))
	codes := make(map[string]struct{})
	for _, b := range bars {
		if b == nil || b.StockCode == "" || b.TradeDate.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{b.StockCode, b.TradeDate.Format("2006-01-02")}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		codes[b.StockCode] = struct{}{}
	}

	// Check for duplicates against existing rows, one query per stock
	for code := range codes {
		dates, err := s.existingDates(ctx, code)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, d := range dates {
			if _, dup := seen[key{code, d}]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_bars (
			stock_code, stock_name, trade_date, open, high, low, close, prev_close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.StockCode, b.StockName, domain.DateOnly(b.TradeDate),
			b.Open, b.High, b.Low, b.Close, b.PrevClose, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByStockCode retrieves a stock's full history, ordered by trade_date ASC.
func (s *BarStore) GetByStockCode(ctx context.Context, stockCode string) ([]*domain.Bar, error) {
	query := `
		SELECT stock_code, stock_name, trade_date, open, high, low, close, prev_close, volume
		FROM daily_bars
		WHERE stock_code = ?
		ORDER BY trade_date ASC
	`

	rows, err := s.conn.Query(ctx, query, stockCode)
	if err != nil {
		return nil, fmt.Errorf("query by stock code: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// ListStockCodes returns every stock code with at least one bar, sorted ASC.
func (s *BarStore) ListStockCodes(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT stock_code FROM daily_bars`)
	if err != nil {
		return nil, fmt.Errorf("query stock codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan stock code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock codes: %w", err)
	}

	sort.Strings(codes)
	return codes, nil
}

// existingDates returns the stored trade dates of a stock as YYYY-MM-DD.
func (s *BarStore) existingDates(ctx context.Context, stockCode string) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT trade_date FROM daily_bars WHERE stock_code = ?`, stockCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, rows.Err()
}

// scanBars scans multiple rows.
func scanBars(rows chRows) ([]*domain.Bar, error) {
	var bars []*domain.Bar

	for rows.Next() {
		var b domain.Bar
		err := rows.Scan(
			&b.StockCode, &b.StockName, &b.TradeDate,
			&b.Open, &b.High, &b.Low, &b.Close, &b.PrevClose, &b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily bar row: %w", err)
		}

		b.TradeDate = domain.DateOnly(b.TradeDate)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily bar rows: %w", err)
	}

	return bars, nil
}
