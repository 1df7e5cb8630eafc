package simulation

import (
	"sort"
	"time"

	"breakout-backtest/internal/domain"
)

// windowFrom returns the bars dated on or after start.
// bars must be ascending by trade date. Returns nil if every bar is earlier.
func windowFrom(bars []domain.AdjustedBar, start time.Time) []domain.AdjustedBar {
	day := domain.DateOnly(start)
	i := sort.Search(len(bars), func(i int) bool {
		return !domain.DateOnly(bars[i].TradeDate).Before(day)
	})
	if i == len(bars) {
		return nil
	}
	return bars[i:]
}

// rawBars dereferences a store result into the value slice the adjuster takes.
func rawBars(bars []*domain.Bar) []domain.Bar {
	out := make([]domain.Bar, 0, len(bars))
	for _, b := range bars {
		if b != nil {
			out = append(out, *b)
		}
	}
	return out
}
