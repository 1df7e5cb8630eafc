// Package support derives a support level for breakout candidates that arrive without one.
package support

import (
	"time"

	"breakout-backtest/internal/domain"
)

// Level is a resolved support price and the day it was set.
type Level struct {
	Price float64
	Date  time.Time
}

// Resolve scans the lookback bars ending at the breakout day and returns the
// highest up-day (close > open) adjusted close strictly below the breakout close.
// bars must be one stock's adjusted series in ascending order.
// ok is false when the breakout day is missing or no bar qualifies.
func Resolve(bars []domain.AdjustedBar, breakoutDate time.Time, lookback int) (Level, bool) {
	if lookback <= 0 {
		return Level{}, false
	}

	end := -1
	for i, b := range bars {
		if domain.SameDay(b.TradeDate, breakoutDate) {
			end = i
			break
		}
	}
	if end < 0 {
		return Level{}, false
	}

	base := bars[end].AdjClose
	start := end - lookback + 1
	if start < 0 {
		start = 0
	}

	var best Level
	found := false
	for _, b := range bars[start : end+1] {
		if b.AdjClose <= b.AdjOpen || b.AdjClose >= base {
			continue
		}
		if !found || b.AdjClose > best.Price {
			best = Level{Price: b.AdjClose, Date: b.TradeDate}
			found = true
		}
	}

	return best, found
}

// Apply fills SupportPrice and SupportDate on c when it has none.
// Returns true when the candidate was changed.
func Apply(c *domain.Candidate, bars []domain.AdjustedBar, lookback int) bool {
	if c.HasSupport() {
		return false
	}

	level, ok := Resolve(bars, c.BreakthroughDate, lookback)
	if !ok {
		return false
	}

	c.SupportPrice = level.Price
	date := level.Date
	c.SupportDate = &date
	return true
}
