package ingestion

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Parse errors.
var (
	ErrMissingColumns = errors.New("required columns not found in header")
	ErrEmptyFile      = errors.New("file has no header row")
)

// RowError describes one data row that could not be loaded.
type RowError struct {
	Line int // 1-based line in the source file
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// columnSet maps a canonical field name to the header spellings accepted for it.
type columnSet map[string][]string

// resolve finds the index of each known field in header.
// Fields without a matching header are absent from the result.
func (cs columnSet) resolve(header []string) map[string]int {
	idx := make(map[string]int, len(cs))
	for i, h := range header {
		h = normalizeHeader(h)
		for field, names := range cs {
			if _, done := idx[field]; done {
				continue
			}
			for _, name := range names {
				if h == name {
					idx[field] = i
					break
				}
			}
		}
	}
	return idx
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// record is one data row plus the line it started on.
type record struct {
	line   int
	fields []string
	cols   map[string]int
}

// get returns the trimmed value of field, or "" if the column or cell is absent.
func (r record) get(field string) string {
	i, ok := r.cols[field]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// readTable parses CSV data whose header is on the first or second line.
// Vendor exports put a one-line banner above the header; a first line that
// lacks the required columns is treated as that banner.
func readTable(data []byte, cols columnSet, required []string) ([]record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var idx map[string]int
	for attempt := 0; attempt < 2 && idx == nil; attempt++ {
		header, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		found := cols.resolve(header)
		if missing := missingFields(found, required); len(missing) == 0 {
			idx = found
		} else if attempt == 1 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
		}
	}

	var records []record
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
		line, _ := r.FieldPos(0)
		if blank(fields) {
			continue
		}
		records = append(records, record{line: line, fields: fields, cols: idx})
	}

	return records, nil
}

func missingFields(found map[string]int, required []string) []string {
	var missing []string
	for _, f := range required {
		if _, ok := found[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{"20060102", "2006-01-02", "2006/01/02"}

// parseDate accepts YYYYMMDD, YYYY-MM-DD and YYYY/MM/DD, returning UTC midnight.
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseFloat parses a numeric cell. Empty cells are 0 unless required.
func parseFloat(field, s string, required bool) (float64, error) {
	if s == "" {
		if required {
			return 0, fmt.Errorf("missing %s", field)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, s)
	}
	return v, nil
}
