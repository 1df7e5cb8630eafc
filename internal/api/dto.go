package api

import (
	"time"

	"breakout-backtest/internal/domain"
)

const dateLayout = "2006-01-02"

type ledgerRowJSON struct {
	StockCode     string  `json:"stock_code"`
	StockName     string  `json:"stock_name"`
	Episodes      int     `json:"episodes"`
	InitCash      float64 `json:"init_cash"`
	BoughtDate    string  `json:"bought_date"`
	TradeDate     string  `json:"trade_date,omitempty"`
	TotalShares   int64   `json:"total_shares"`
	SharesHeld    int64   `json:"shares_held"`
	CostPrice     float64 `json:"cost_price"`
	CashRemaining float64 `json:"cash_remaining"`
	MarketValue   float64 `json:"market_value"`
	Profit        float64 `json:"profit"`
	ProfitPercent float64 `json:"profit_pct"`
	HoldingDays   int     `json:"holding_days"`
	ProfitFlag    string  `json:"profit_flag"`
}

type totalJSON struct {
	Stocks        int     `json:"stocks"`
	InitCash      float64 `json:"init_cash"`
	CashRemaining float64 `json:"cash_remaining"`
	MarketValue   float64 `json:"market_value"`
	Profit        float64 `json:"profit"`
	ProfitPercent float64 `json:"profit_pct"`
	ProfitFlag    string  `json:"profit_flag"`
}

type eventJSON struct {
	EventID         string  `json:"event_id"`
	CandidateID     string  `json:"candidate_id"`
	StockCode       string  `json:"stock_code"`
	Seq             int     `json:"seq"`
	TradeType       string  `json:"trade_type"`
	TradeDate       string  `json:"trade_date"`
	Shares          int64   `json:"shares"`
	Price           float64 `json:"price"`
	ResultingClose  float64 `json:"resulting_close"`
	HoldingDayCount int     `json:"holding_days"`
	Reason          string  `json:"reason"`
}

type skipJSON struct {
	CandidateID string `json:"candidate_id,omitempty"`
	StockCode   string `json:"stock_code"`
	Reason      string `json:"reason"`
	CreatedAt   int64  `json:"created_at"`
}

func toLedgerRows(rows []domain.LedgerRow) []ledgerRowJSON {
	out := make([]ledgerRowJSON, 0, len(rows))
	for _, r := range rows {
		row := ledgerRowJSON{
			StockCode:     r.StockCode,
			StockName:     r.StockName,
			Episodes:      r.Episodes,
			InitCash:      r.InitCash,
			BoughtDate:    formatDate(r.BoughtDate),
			TotalShares:   r.TotalShares,
			SharesHeld:    r.SharesHeld,
			CostPrice:     r.CostPrice,
			CashRemaining: r.CashRemaining,
			MarketValue:   r.MarketValue,
			Profit:        r.Profit,
			ProfitPercent: r.ProfitPercent,
			HoldingDays:   r.HoldingDays,
			ProfitFlag:    domain.ProfitFlag(r.Profit),
		}
		if r.TradeDate != nil {
			row.TradeDate = formatDate(*r.TradeDate)
		}
		out = append(out, row)
	}
	return out
}

func toTotal(t domain.PortfolioTotal) totalJSON {
	return totalJSON{
		Stocks:        t.Stocks,
		InitCash:      t.InitCash,
		CashRemaining: t.CashRemaining,
		MarketValue:   t.MarketValue,
		Profit:        t.Profit,
		ProfitPercent: t.ProfitPercent,
		ProfitFlag:    domain.ProfitFlag(t.Profit),
	}
}

func toEvent(e *domain.TradeEvent) eventJSON {
	return eventJSON{
		EventID:         e.EventID,
		CandidateID:     e.CandidateID,
		StockCode:       e.StockCode,
		Seq:             e.Seq,
		TradeType:       string(e.TradeType),
		TradeDate:       formatDate(e.TradeDate),
		Shares:          e.Shares,
		Price:           e.Price,
		ResultingClose:  e.ResultingClose,
		HoldingDayCount: e.HoldingDayCount,
		Reason:          e.Reason,
	}
}

func toSkip(r *domain.SkipRecord) skipJSON {
	return skipJSON{
		CandidateID: r.CandidateID,
		StockCode:   r.StockCode,
		Reason:      r.Reason,
		CreatedAt:   r.CreatedAt,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
