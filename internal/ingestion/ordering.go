package ingestion

import (
	"sort"

	"breakout-backtest/internal/domain"
)

// SortBars orders bars by (stock_code ASC, trade_date ASC).
// Stores and the adjuster both assume this order within a stock.
func SortBars(bars []*domain.Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].StockCode != bars[j].StockCode {
			return bars[i].StockCode < bars[j].StockCode
		}
		return bars[i].TradeDate.Before(bars[j].TradeDate)
	})
}

// SortCandidates orders candidates by (stock_code ASC, breakthrough_date ASC).
func SortCandidates(candidates []*domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].StockCode != candidates[j].StockCode {
			return candidates[i].StockCode < candidates[j].StockCode
		}
		return candidates[i].BreakthroughDate.Before(candidates[j].BreakthroughDate)
	})
}
