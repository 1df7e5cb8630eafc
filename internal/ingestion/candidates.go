package ingestion

import (
	"fmt"
	"io"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/idhash"
)

// Candidate file fields.
const (
	fieldBreakthroughDate = "breakthrough_date"
	fieldSupportPrice     = "support_price"
	fieldSupportDate      = "support_date"
)

var candidateColumns = columnSet{
	fieldStockCode:        {"股票代码", "代码", "stock_code", "code"},
	fieldStockName:        {"股票名称", "名称", "stock_name", "name"},
	fieldBreakthroughDate: {"突破日期", "交易日期", "备注", "breakthrough_date", "trade_date", "date"},
	fieldSupportPrice:     {"支撑价", "第一支撑位价格", "support_price"},
	fieldSupportDate:      {"支撑日期", "第一支撑位日期", "support_date"},
}

var candidateRequired = []string{fieldStockCode, fieldBreakthroughDate}

// CandidateFile is the parsed content of one candidate list.
type CandidateFile struct {
	Candidates []*domain.Candidate
	Errors     []RowError
}

// ReadCandidates parses a screened candidate list.
// CandidateID is derived from (stock_code, breakthrough_date), so a repeated
// pair is reported as a duplicate row. createdAt is stamped on every candidate (ms).
func ReadCandidates(r io.Reader, createdAt int64) (*CandidateFile, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read candidate file: %w", err)
	}
	data, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	records, err := readTable(data, candidateColumns, candidateRequired)
	if err != nil {
		return nil, err
	}

	out := &CandidateFile{Candidates: make([]*domain.Candidate, 0, len(records))}
	seen := make(map[string]int, len(records))
	for _, rec := range records {
		c, err := parseCandidate(rec, createdAt)
		if err != nil {
			out.Errors = append(out.Errors, RowError{Line: rec.line, Err: err})
			continue
		}

		if first, dup := seen[c.CandidateID]; dup {
			out.Errors = append(out.Errors, RowError{
				Line: rec.line,
				Err:  fmt.Errorf("duplicate candidate %s on %s (first on line %d)", c.StockCode, c.BreakthroughDate.Format("2006-01-02"), first),
			})
			continue
		}
		seen[c.CandidateID] = rec.line
		out.Candidates = append(out.Candidates, c)
	}

	return out, nil
}

func parseCandidate(rec record, createdAt int64) (*domain.Candidate, error) {
	code := rec.get(fieldStockCode)
	if code == "" {
		return nil, fmt.Errorf("missing %s", fieldStockCode)
	}
	date, err := parseDate(rec.get(fieldBreakthroughDate))
	if err != nil {
		return nil, err
	}

	support, err := parseFloat(fieldSupportPrice, rec.get(fieldSupportPrice), false)
	if err != nil {
		return nil, err
	}
	if support < 0 {
		return nil, fmt.Errorf("negative %s %v", fieldSupportPrice, support)
	}

	c := &domain.Candidate{
		CandidateID:      idhash.ComputeCandidateID(code, date),
		StockCode:        code,
		StockName:        rec.get(fieldStockName),
		BreakthroughDate: date,
		SupportPrice:     support,
		CreatedAt:        createdAt,
	}

	if s := rec.get(fieldSupportDate); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return nil, err
		}
		c.SupportDate = &d
	}

	return c, nil
}
