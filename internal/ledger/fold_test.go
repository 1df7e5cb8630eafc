package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-backtest/internal/domain"
)

const tolerance = 1e-6

func day(n int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func buy(candidateID string, seq, d int, shares int64, price, close float64) domain.TradeEvent {
	return domain.TradeEvent{
		CandidateID:     candidateID,
		StockCode:       "600000",
		StockName:       "SPDB",
		Seq:             seq,
		TradeType:       domain.TradeTypeBuy,
		TradeDate:       day(d),
		Shares:          shares,
		Price:           price,
		ResultingClose:  close,
		HoldingDayCount: 1,
		Reason:          domain.EntryReasonOpen,
	}
}

func sell(candidateID string, seq, d int, shares int64, price, close float64, holding int, reason string) domain.TradeEvent {
	e := buy(candidateID, seq, d, shares, price, close)
	e.TradeType = domain.TradeTypeSell
	e.HoldingDayCount = holding
	e.Reason = reason
	return e
}

func TestFoldStock_SingleEpisode(t *testing.T) {
	events := []domain.TradeEvent{
		buy("c1", 0, 1, 5000, 10.00, 10.00),
		buy("c1", 1, 1, 5000, 10.00, 10.00),
		sell("c1", 2, 4, 5000, 11.00, 11.50, 4, domain.ExitReasonTakeProfit),
		sell("c1", 3, 9, 5000, 12.00, 12.10, 9, domain.ExitReasonLadderStop),
	}

	row := FoldStock(events, 100000)

	assert.Equal(t, "600000", row.StockCode)
	assert.Equal(t, "SPDB", row.StockName)
	assert.Equal(t, 1, row.Episodes)
	assert.Equal(t, int64(10000), row.TotalShares)
	assert.Equal(t, int64(0), row.SharesHeld)
	assert.InDelta(t, 10.00, row.CostPrice, tolerance)
	assert.InDelta(t, 115000, row.CashRemaining, tolerance)
	assert.InDelta(t, 0, row.MarketValue, tolerance)
	assert.InDelta(t, 15000, row.Profit, tolerance)
	assert.InDelta(t, 0.15, row.ProfitPercent, tolerance)
	assert.Equal(t, day(1), row.BoughtDate)
	require.NotNil(t, row.TradeDate)
	assert.Equal(t, day(9), *row.TradeDate)
	assert.Equal(t, 9, row.HoldingDays)
}

func TestFoldStock_CapitalConservationAfterBuys(t *testing.T) {
	events := []domain.TradeEvent{
		buy("c1", 0, 1, 4900, 10.20, 10.45),
		buy("c1", 1, 1, 4700, 10.45, 10.45),
	}

	row := FoldStock(events, 100000)

	held := float64(row.SharesHeld)
	assert.InDelta(t, 100000, held*row.CostPrice+row.CashRemaining, tolerance)
	assert.Nil(t, row.TradeDate)
	// Open holding is marked at the last known close
	assert.InDelta(t, 9600*10.45, row.MarketValue, tolerance)
	assert.InDelta(t, row.MarketValue+row.CashRemaining-100000, row.Profit, tolerance)
}

func TestFoldStock_CostResetsBetweenEpisodes(t *testing.T) {
	events := []domain.TradeEvent{
		buy("c1", 0, 1, 1000, 10.00, 10.00),
		sell("c1", 1, 3, 1000, 9.50, 9.40, 3, domain.ExitReasonStopLoss),
		buy("c2", 0, 10, 1000, 20.00, 20.00),
	}

	row := FoldStock(events, 20000)

	assert.Equal(t, 2, row.Episodes)
	assert.Equal(t, int64(2000), row.TotalShares)
	assert.InDelta(t, 20.00, row.CostPrice, tolerance)
	// 20000 − 10000 + 9500 − 20000
	assert.InDelta(t, -500, row.CashRemaining, tolerance)
	assert.InDelta(t, 20000, row.MarketValue, tolerance)
	assert.InDelta(t, -500, row.Profit, tolerance)
}

func TestFold(t *testing.T) {
	episodes := []*domain.EpisodeResult{
		{
			CandidateID: "late",
			StockCode:   "600000",
			StockName:   "SPDB",
			InitCash:    100000,
			EntryDate:   day(20),
			Events: []domain.TradeEvent{
				buy("late", 0, 20, 10000, 10.00, 10.00),
				sell("late", 1, 22, 10000, 9.50, 9.30, 3, domain.ExitReasonStopLoss),
			},
		},
		{
			CandidateID: "early",
			StockCode:   "600000",
			StockName:   "SPDB",
			InitCash:    100000,
			EntryDate:   day(1),
			Events: []domain.TradeEvent{
				buy("early", 0, 1, 10000, 10.00, 10.00),
				sell("early", 1, 5, 10000, 11.00, 11.20, 5, domain.ExitReasonTakeProfit),
			},
		},
		{
			CandidateID: "other",
			StockCode:   "000001",
			InitCash:    50000,
			EntryDate:   day(2),
			Events: []domain.TradeEvent{
				{CandidateID: "other", StockCode: "000001", TradeType: domain.TradeTypeBuy, TradeDate: day(2), Shares: 5000, Price: 10, ResultingClose: 10},
				{CandidateID: "other", StockCode: "000001", TradeType: domain.TradeTypeSell, TradeDate: day(3), Shares: 5000, Price: 10, ResultingClose: 10, HoldingDayCount: 2},
			},
		},
		{CandidateID: "skipped", StockCode: "300750", InitCash: 100000},
		nil,
	}

	l := Fold(episodes)

	require.Len(t, l.Rows, 2)
	assert.Equal(t, "000001", l.Rows[0].StockCode)
	assert.Equal(t, domain.ProfitFlagFlat, domain.ProfitFlag(l.Rows[0].Profit))

	spdb := l.Rows[1]
	assert.Equal(t, 2, spdb.Episodes)
	assert.InDelta(t, 200000, spdb.InitCash, tolerance)
	assert.InDelta(t, 5000, spdb.Profit, tolerance)
	assert.Equal(t, day(1), spdb.BoughtDate)
	require.NotNil(t, spdb.TradeDate)
	assert.Equal(t, day(22), *spdb.TradeDate)

	assert.Equal(t, 2, l.Total.Stocks)
	assert.InDelta(t, 250000, l.Total.InitCash, tolerance)
	assert.InDelta(t, 5000, l.Total.Profit, tolerance)
	assert.InDelta(t, 0.02, l.Total.ProfitPercent, tolerance)
}

func TestFold_OrderIndependent(t *testing.T) {
	a := &domain.EpisodeResult{
		CandidateID: "a", StockCode: "600000", InitCash: 100000, EntryDate: day(1),
		Events: []domain.TradeEvent{
			buy("a", 0, 1, 10000, 10, 10),
			sell("a", 1, 2, 10000, 10.5, 10.5, 2, domain.ExitReasonEndOfData),
		},
	}
	b := &domain.EpisodeResult{
		CandidateID: "b", StockCode: "600000", InitCash: 100000, EntryDate: day(5),
		Events: []domain.TradeEvent{
			buy("b", 0, 5, 10000, 10, 10),
		},
	}

	first := Fold([]*domain.EpisodeResult{a, b})
	second := Fold([]*domain.EpisodeResult{b, a})

	assert.Equal(t, first, second)
}

func TestTotal_Empty(t *testing.T) {
	total := Total(nil)

	assert.Equal(t, 0, total.Stocks)
	assert.Zero(t, total.ProfitPercent)
}
