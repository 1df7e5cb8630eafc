package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"breakout-backtest/internal/domain"
)

// Export file names inside the output directory.
const (
	LedgerCSVFile = "ledger.csv"
	EventsCSVFile = "trade_events.csv"
	MarkdownFile  = "report.md"
)

// WriteFiles writes the ledger CSV, the trade-event CSV and the Markdown report into dir.
// Returns the written paths in that order.
func WriteFiles(dir string, r *Report, events []domain.TradeEvent) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string

	ledgerPath := filepath.Join(dir, LedgerCSVFile)
	if err := writeFile(ledgerPath, func(f *os.File) error { return WriteLedgerCSV(f, r.Ledger) }); err != nil {
		return written, err
	}
	written = append(written, ledgerPath)

	eventsPath := filepath.Join(dir, EventsCSVFile)
	if err := writeFile(eventsPath, func(f *os.File) error { return WriteTradeEventsCSV(f, events) }); err != nil {
		return written, err
	}
	written = append(written, eventsPath)

	mdPath := filepath.Join(dir, MarkdownFile)
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(r)), 0o644); err != nil {
		return written, fmt.Errorf("write %s: %w", mdPath, err)
	}
	written = append(written, mdPath)

	return written, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
