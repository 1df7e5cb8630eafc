package domain

import "time"

// LedgerRow is the per-stock fold of all trade events for that stock.
// Derived; recomputed from trade events, never stored by the simulator.
type LedgerRow struct {
	StockCode     string
	StockName     string
	Episodes      int
	InitCash      float64
	BoughtDate    time.Time  // earliest buy
	TradeDate     *time.Time // latest sell (nullable while nothing was sold)
	TotalShares   int64      // cumulative shares ever bought
	SharesHeld    int64      // shares still open after the last event
	CostPrice     float64    // final blended cost
	CashRemaining float64
	MarketValue   float64 // shares_held × last known close
	Profit        float64
	ProfitPercent float64
	HoldingDays   int // longest holding_day_count on a sell
}

// PortfolioTotal is the synthetic total row across all stocks.
// It is a distinct type so per-stock formatting never reprocesses it.
type PortfolioTotal struct {
	Stocks        int
	InitCash      float64
	MarketValue   float64
	CashRemaining float64
	Profit        float64
	ProfitPercent float64
}

// Profit flag values used in reports in place of cell coloring.
const (
	ProfitFlagGain = "gain"
	ProfitFlagLoss = "loss"
	ProfitFlagFlat = "flat"
)

// ProfitFlag classifies a profit amount.
func ProfitFlag(profit float64) string {
	switch {
	case profit > 0:
		return ProfitFlagGain
	case profit < 0:
		return ProfitFlagLoss
	default:
		return ProfitFlagFlat
	}
}
