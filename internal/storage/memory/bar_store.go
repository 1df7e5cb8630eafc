package memory

import (
	"context"
	"sort"
	"sync"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.Bar // keyed by stock_code, sorted by trade_date
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string][]*domain.Bar),
	}
}

func barKey(stockCode string, b *domain.Bar) string {
	return stockCode + "|" + b.TradeDate.Format("2006-01-02")
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate (stock_code, trade_date).
func (s *BarStore) InsertBulk(_ context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]struct{})
	for code, list := range s.data {
		for _, b := range list {
			existing[barKey(code, b)] = struct{}{}
		}
	}

	batchKeys := make(map[string]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.StockCode == "" || b.TradeDate.IsZero() {
			return storage.ErrInvalidInput
		}
		key := barKey(b.StockCode, b)
		if _, exists := existing[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	touched := make(map[string]struct{})
	for _, b := range bars {
		cp := *b
		s.data[b.StockCode] = append(s.data[b.StockCode], &cp)
		touched[b.StockCode] = struct{}{}
	}
	for code := range touched {
		list := s.data[code]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].TradeDate.Before(list[j].TradeDate)
		})
	}

	return nil
}

// GetByStockCode retrieves a stock's full history, ordered by trade_date ASC.
func (s *BarStore) GetByStockCode(_ context.Context, stockCode string) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.data[stockCode]
	result := make([]*domain.Bar, 0, len(list))
	for _, b := range list {
		cp := *b
		result = append(result, &cp)
	}
	return result, nil
}

// ListStockCodes returns every stock code with at least one bar, sorted ASC.
func (s *BarStore) ListStockCodes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]string, 0, len(s.data))
	for code := range s.data {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

var _ storage.BarStore = (*BarStore)(nil)
