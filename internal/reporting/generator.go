package reporting

import (
	"context"
	"fmt"
	"time"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/ledger"
	"breakout-backtest/internal/storage"
)

// Generator produces reports from stored trade events.
type Generator struct {
	eventStore     storage.TradeEventStore
	candidateStore storage.CandidateStore
	skipStore      storage.SkipRecordStore
	budget         float64
	now            func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
// candidateStore and skipStore may be nil.
func NewGenerator(
	eventStore storage.TradeEventStore,
	candidateStore storage.CandidateStore,
	skipStore storage.SkipRecordStore,
	budget float64,
) *Generator {
	return &Generator{
		eventStore:     eventStore,
		candidateStore: candidateStore,
		skipStore:      skipStore,
		budget:         budget,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate re-folds every stored trade event into a report.
// runID selects the skip diagnostics to include; empty means none.
func (g *Generator) Generate(ctx context.Context, strategyID, runID string) (*Report, error) {
	stored, err := g.eventStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trade events: %w", err)
	}

	agg := ledger.NewAggregator(g.eventStore, g.candidateStore, g.budget)
	l, err := agg.Compute(ctx, stored)
	if err != nil {
		return nil, err
	}

	events := make([]domain.TradeEvent, len(stored))
	for i, e := range stored {
		events[i] = *e
	}

	var skips []domain.SkipRecord
	if g.skipStore != nil && runID != "" {
		records, err := g.skipStore.GetByRunID(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("load skip records: %w", err)
		}
		for _, r := range records {
			skips = append(skips, *r)
		}
	}

	return Build(BuildInput{
		GeneratedAt:       g.now(),
		RunID:             runID,
		StrategyID:        strategyID,
		Events:            events,
		Ledger:            l,
		Skips:             skips,
		MissingCandidates: agg.GetMissingCandidateErrors(),
	}), nil
}
