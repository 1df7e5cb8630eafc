package support

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-backtest/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func makeBar(n int, open, close float64) domain.AdjustedBar {
	return domain.AdjustedBar{
		Bar:      domain.Bar{StockCode: "600000", TradeDate: day(n), Open: open, Close: close},
		AdjOpen:  open,
		AdjClose: close,
	}
}

func TestResolve(t *testing.T) {
	bars := []domain.AdjustedBar{
		makeBar(0, 9.0, 10.8),  // up day, outside a 4-bar window
		makeBar(1, 9.5, 10.2),  // up day
		makeBar(2, 10.6, 10.4), // down day, ignored
		makeBar(3, 9.9, 10.5),  // up day, highest qualifying
		makeBar(4, 10.4, 11.0), // breakout
		makeBar(5, 11.0, 11.5), // after breakout, ignored
	}

	tests := []struct {
		name      string
		lookback  int
		breakout  time.Time
		wantOK    bool
		wantPrice float64
		wantDate  time.Time
	}{
		{name: "within window", lookback: 4, breakout: day(4), wantOK: true, wantPrice: 10.5, wantDate: day(3)},
		{name: "wide window", lookback: 10, breakout: day(4), wantOK: true, wantPrice: 10.8, wantDate: day(0)},
		{name: "breakout missing", lookback: 4, breakout: day(9), wantOK: false},
		{name: "zero lookback", lookback: 0, breakout: day(4), wantOK: false},
		{name: "nothing below breakout", lookback: 1, breakout: day(4), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, ok := Resolve(bars, tt.breakout, tt.lookback)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantPrice, level.Price)
			assert.Equal(t, tt.wantDate, level.Date)
		})
	}
}

func TestApply(t *testing.T) {
	bars := []domain.AdjustedBar{
		makeBar(0, 9.5, 10.2),
		makeBar(1, 10.1, 11.0),
	}

	t.Run("fills missing support", func(t *testing.T) {
		c := &domain.Candidate{StockCode: "600000", BreakthroughDate: day(1)}
		assert.True(t, Apply(c, bars, 40))
		assert.Equal(t, 10.2, c.SupportPrice)
		require.NotNil(t, c.SupportDate)
		assert.Equal(t, day(0), *c.SupportDate)
	})

	t.Run("keeps existing support", func(t *testing.T) {
		c := &domain.Candidate{StockCode: "600000", BreakthroughDate: day(1), SupportPrice: 9.9}
		assert.False(t, Apply(c, bars, 40))
		assert.Equal(t, 9.9, c.SupportPrice)
	})
}
