package reporting

import (
	"sort"
	"time"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/ledger"
	"breakout-backtest/internal/metrics"
)

// Report is the rendered outcome of one backtest run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string // empty when rebuilt from stored events
	StrategyID  string

	Summary RunSummary

	// Ledger rows sorted by stock code, total kept apart
	Ledger *ledger.Ledger

	// Exit reasons sorted by count DESC, reason ASC
	ExitReasons []ExitReasonRow

	// Return distribution over episodes
	Stats metrics.Stats

	// Diagnostics
	Skips             []domain.SkipRecord
	MissingCandidates []string
}

// RunSummary contains run-level counts.
type RunSummary struct {
	Candidates int
	Episodes   int
	Skipped    int
	Stocks     int
	Events     int
}

// ExitReasonRow counts episodes by the reason of their terminal sell.
type ExitReasonRow struct {
	Reason string
	Count  int
}

// BuildInput carries everything Build needs.
type BuildInput struct {
	GeneratedAt       time.Time
	RunID             string
	StrategyID        string
	Candidates        int // candidates considered; 0 means "episodes + skips"
	Events            []domain.TradeEvent
	Ledger            *ledger.Ledger
	Skips             []domain.SkipRecord
	MissingCandidates []string
}

// Build assembles a report from a folded ledger and the events behind it.
func Build(in BuildInput) *Report {
	exits, episodes := exitReasons(in.Events)

	candidates := in.Candidates
	if candidates == 0 {
		candidates = episodes + len(in.Skips)
	}

	l := in.Ledger
	if l == nil {
		l = &ledger.Ledger{}
	}

	return &Report{
		GeneratedAt: in.GeneratedAt,
		RunID:       in.RunID,
		StrategyID:  in.StrategyID,
		Summary: RunSummary{
			Candidates: candidates,
			Episodes:   episodes,
			Skipped:    len(in.Skips),
			Stocks:     len(l.Rows),
			Events:     len(in.Events),
		},
		Ledger:            l,
		ExitReasons:       exits,
		Stats:             metrics.Compute(metrics.Outcomes(in.Events)),
		Skips:             in.Skips,
		MissingCandidates: in.MissingCandidates,
	}
}

// exitReasons counts each episode's final event reason when it is a sell.
// Also returns the number of distinct episodes seen.
func exitReasons(events []domain.TradeEvent) ([]ExitReasonRow, int) {
	last := make(map[string]domain.TradeEvent)
	for _, e := range events {
		if prev, ok := last[e.CandidateID]; !ok || e.Seq > prev.Seq {
			last[e.CandidateID] = e
		}
	}

	counts := make(map[string]int)
	for _, e := range last {
		if e.TradeType == domain.TradeTypeSell {
			counts[e.Reason]++
		}
	}

	rows := make([]ExitReasonRow, 0, len(counts))
	for reason, n := range counts {
		rows = append(rows, ExitReasonRow{Reason: reason, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Reason < rows[j].Reason
	})

	return rows, len(last)
}
