package ingestion

import (
	"fmt"
	"io"

	"breakout-backtest/internal/domain"
)

// Bar file fields.
const (
	fieldStockCode = "stock_code"
	fieldStockName = "stock_name"
	fieldTradeDate = "trade_date"
	fieldOpen      = "open"
	fieldHigh      = "high"
	fieldLow       = "low"
	fieldClose     = "close"
	fieldPrevClose = "prev_close"
	fieldVolume    = "volume"
)

var barColumns = columnSet{
	fieldStockCode: {"股票代码", "代码", "stock_code", "code"},
	fieldStockName: {"股票名称", "名称", "stock_name", "name"},
	fieldTradeDate: {"交易日期", "trade_date", "date"},
	fieldOpen:      {"开盘价", "open", "open_price"},
	fieldHigh:      {"最高价", "high", "high_price"},
	fieldLow:       {"最低价", "low", "low_price"},
	fieldClose:     {"收盘价", "close", "close_price"},
	fieldPrevClose: {"前收盘价", "prev_close", "prev_close_price"},
	fieldVolume:    {"成交量", "volume"},
}

var barRequired = []string{fieldStockCode, fieldTradeDate, fieldOpen, fieldHigh, fieldLow, fieldClose}

// BarFile is the parsed content of one daily-bar file.
type BarFile struct {
	Bars   []*domain.Bar
	Errors []RowError
}

// ReadBars parses a vendor daily-bar file.
// Rows that fail to parse are reported in Errors and left out; a second row
// for the same (stock, date) is reported as a duplicate.
func ReadBars(r io.Reader) (*BarFile, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read bar file: %w", err)
	}
	data, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	records, err := readTable(data, barColumns, barRequired)
	if err != nil {
		return nil, err
	}

	out := &BarFile{Bars: make([]*domain.Bar, 0, len(records))}
	seen := make(map[string]int, len(records))
	for _, rec := range records {
		bar, err := parseBar(rec)
		if err != nil {
			out.Errors = append(out.Errors, RowError{Line: rec.line, Err: err})
			continue
		}

		key := bar.StockCode + "|" + bar.TradeDate.Format("2006-01-02")
		if first, dup := seen[key]; dup {
			out.Errors = append(out.Errors, RowError{
				Line: rec.line,
				Err:  fmt.Errorf("duplicate bar for %s on %s (first on line %d)", bar.StockCode, bar.TradeDate.Format("2006-01-02"), first),
			})
			continue
		}
		seen[key] = rec.line
		out.Bars = append(out.Bars, bar)
	}

	return out, nil
}

func parseBar(rec record) (*domain.Bar, error) {
	code := rec.get(fieldStockCode)
	if code == "" {
		return nil, fmt.Errorf("missing %s", fieldStockCode)
	}
	date, err := parseDate(rec.get(fieldTradeDate))
	if err != nil {
		return nil, err
	}

	bar := &domain.Bar{
		StockCode: code,
		StockName: rec.get(fieldStockName),
		TradeDate: date,
	}

	prices := []struct {
		field    string
		dst      *float64
		required bool
	}{
		{fieldOpen, &bar.Open, true},
		{fieldHigh, &bar.High, true},
		{fieldLow, &bar.Low, true},
		{fieldClose, &bar.Close, true},
		{fieldPrevClose, &bar.PrevClose, false},
		{fieldVolume, &bar.Volume, false},
	}
	for _, p := range prices {
		v, err := parseFloat(p.field, rec.get(p.field), p.required)
		if err != nil {
			return nil, err
		}
		*p.dst = v
	}

	return bar, nil
}
