package reporting

import (
	"encoding/csv"
	"io"
	"strconv"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/ledger"
)

// TotalLabel marks the portfolio total row in exports.
const TotalLabel = "TOTAL"

var ledgerHeader = []string{
	"stock_code", "stock_name", "episodes", "init_cash", "bought_date", "trade_date",
	"total_shares", "shares_held", "cost_price", "cash_remaining", "market_value",
	"profit", "profit_pct", "holding_days", "profit_flag",
}

var eventHeader = []string{
	"candidate_id", "stock_code", "stock_name", "seq", "trade_type", "trade_date",
	"shares", "price", "amount", "resulting_close", "holding_days", "reason",
}

// WriteLedgerCSV writes one row per stock followed by the total row.
func WriteLedgerCSV(w io.Writer, l *ledger.Ledger) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ledgerHeader); err != nil {
		return err
	}
	for _, r := range l.Rows {
		if err := cw.Write(ledgerRecord(r)); err != nil {
			return err
		}
	}
	if err := cw.Write(totalRecord(l.Total)); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func ledgerRecord(r domain.LedgerRow) []string {
	return []string{
		r.StockCode,
		r.StockName,
		strconv.Itoa(r.Episodes),
		formatMoney(r.InitCash),
		formatDate(r.BoughtDate),
		formatDatePtr(r.TradeDate),
		strconv.FormatInt(r.TotalShares, 10),
		strconv.FormatInt(r.SharesHeld, 10),
		formatPrice(r.CostPrice),
		formatMoney(r.CashRemaining),
		formatMoney(r.MarketValue),
		formatMoney(r.Profit),
		formatPercent(r.ProfitPercent),
		strconv.Itoa(r.HoldingDays),
		domain.ProfitFlag(r.Profit),
	}
}

// totalRecord fills only the columns that aggregate; the rest stay blank.
func totalRecord(t domain.PortfolioTotal) []string {
	rec := make([]string, len(ledgerHeader))
	rec[0] = TotalLabel
	rec[1] = strconv.Itoa(t.Stocks) + " stocks"
	rec[3] = formatMoney(t.InitCash)
	rec[9] = formatMoney(t.CashRemaining)
	rec[10] = formatMoney(t.MarketValue)
	rec[11] = formatMoney(t.Profit)
	rec[12] = formatPercent(t.ProfitPercent)
	rec[14] = domain.ProfitFlag(t.Profit)
	return rec
}

// WriteTradeEventsCSV writes the audit trail of fills in the order given.
func WriteTradeEventsCSV(w io.Writer, events []domain.TradeEvent) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(eventHeader); err != nil {
		return err
	}
	for _, e := range events {
		rec := []string{
			e.CandidateID,
			e.StockCode,
			e.StockName,
			strconv.Itoa(e.Seq),
			string(e.TradeType),
			formatDate(e.TradeDate),
			strconv.FormatInt(e.Shares, 10),
			formatPrice(e.Price),
			formatMoney(e.Amount()),
			formatPrice(e.ResultingClose),
			strconv.Itoa(e.HoldingDayCount),
			e.Reason,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
