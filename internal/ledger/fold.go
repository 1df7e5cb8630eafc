// Package ledger folds trade events into per-stock rows and a portfolio total.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"breakout-backtest/internal/domain"
)

// Ledger is the folded view of a run: one row per stock plus the portfolio total.
type Ledger struct {
	Rows  []domain.LedgerRow // sorted by stock code
	Total domain.PortfolioTotal
}

// FoldStock folds one stock's ordered events into a LedgerRow.
// Events must be grouped by episode with episodes in entry order; initCash is
// the capital committed across all of the stock's episodes.
//
// Cost is blended over the buys since the holding was last flat, which equals
// (committed − cash) / shares within an episode. Market value is marked at the
// resulting close of the most recent event.
func FoldStock(events []domain.TradeEvent, initCash float64) domain.LedgerRow {
	committed := decimal.NewFromFloat(initCash)
	cash := committed
	basis := decimal.Zero
	lastClose := decimal.Zero

	var row domain.LedgerRow
	row.InitCash = initCash
	episodes := make(map[string]struct{})

	for _, e := range events {
		if row.StockCode == "" {
			row.StockCode = e.StockCode
		}
		if row.StockName == "" {
			row.StockName = e.StockName
		}
		episodes[e.CandidateID] = struct{}{}

		price := decimal.NewFromFloat(e.Price)
		shares := decimal.NewFromInt(e.Shares)
		amount := price.Mul(shares)
		lastClose = decimal.NewFromFloat(e.ResultingClose)

		switch e.TradeType {
		case domain.TradeTypeBuy:
			if row.SharesHeld == 0 {
				basis = decimal.Zero
			}
			basis = basis.Add(amount)
			cash = cash.Sub(amount)
			row.SharesHeld += e.Shares
			row.TotalShares += e.Shares
			row.CostPrice = basis.Div(decimal.NewFromInt(row.SharesHeld)).InexactFloat64()
			if row.BoughtDate.IsZero() || e.TradeDate.Before(row.BoughtDate) {
				row.BoughtDate = e.TradeDate
			}

		case domain.TradeTypeSell:
			held := e.Shares
			if held > row.SharesHeld {
				held = row.SharesHeld
			}
			row.SharesHeld -= held
			cash = cash.Add(price.Mul(decimal.NewFromInt(held)))
			if row.TradeDate == nil || e.TradeDate.After(*row.TradeDate) {
				d := e.TradeDate
				row.TradeDate = &d
			}
			if e.HoldingDayCount > row.HoldingDays {
				row.HoldingDays = e.HoldingDayCount
			}
		}
	}

	mv := lastClose.Mul(decimal.NewFromInt(row.SharesHeld))
	profit := mv.Add(cash).Sub(committed)

	row.Episodes = len(episodes)
	row.CashRemaining = cash.InexactFloat64()
	row.MarketValue = mv.InexactFloat64()
	row.Profit = profit.InexactFloat64()
	if committed.IsPositive() {
		row.ProfitPercent = profit.Div(committed).InexactFloat64()
	}
	return row
}

// Fold merges episode results into one row per stock and the portfolio total.
// Episodes of a stock are folded in entry order; stocks are independent.
func Fold(episodes []*domain.EpisodeResult) *Ledger {
	byStock := make(map[string][]*domain.EpisodeResult)
	for _, ep := range episodes {
		if ep == nil || len(ep.Events) == 0 {
			continue
		}
		byStock[ep.StockCode] = append(byStock[ep.StockCode], ep)
	}

	codes := make([]string, 0, len(byStock))
	for code := range byStock {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([]domain.LedgerRow, 0, len(codes))
	for _, code := range codes {
		eps := byStock[code]
		sort.SliceStable(eps, func(i, j int) bool {
			if !eps[i].EntryDate.Equal(eps[j].EntryDate) {
				return eps[i].EntryDate.Before(eps[j].EntryDate)
			}
			return eps[i].CandidateID < eps[j].CandidateID
		})

		var events []domain.TradeEvent
		var initCash float64
		for _, ep := range eps {
			events = append(events, ep.Events...)
			initCash += ep.InitCash
		}

		row := FoldStock(events, initCash)
		if row.StockName == "" {
			row.StockName = eps[0].StockName
		}
		rows = append(rows, row)
	}

	return &Ledger{
		Rows:  rows,
		Total: Total(rows),
	}
}

// Total sums per-stock rows into the portfolio total.
func Total(rows []domain.LedgerRow) domain.PortfolioTotal {
	committed := decimal.Zero
	mv := decimal.Zero
	cash := decimal.Zero
	for _, r := range rows {
		committed = committed.Add(decimal.NewFromFloat(r.InitCash))
		mv = mv.Add(decimal.NewFromFloat(r.MarketValue))
		cash = cash.Add(decimal.NewFromFloat(r.CashRemaining))
	}

	profit := mv.Add(cash).Sub(committed)
	total := domain.PortfolioTotal{
		Stocks:        len(rows),
		InitCash:      committed.InexactFloat64(),
		MarketValue:   mv.InexactFloat64(),
		CashRemaining: cash.InexactFloat64(),
		Profit:        profit.InexactFloat64(),
	}
	if committed.IsPositive() {
		total.ProfitPercent = profit.Div(committed).InexactFloat64()
	}
	return total
}
