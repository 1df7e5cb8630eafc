package simulation

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/idhash"
	"breakout-backtest/internal/storage/memory"
	"breakout-backtest/internal/strategy"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func day(n int) time.Time {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// makeBars returns count bars for code starting on day from, all open == close == price.
func makeBars(code string, from, count int, price float64) []*domain.Bar {
	bars := make([]*domain.Bar, count)
	for i := range bars {
		bars[i] = &domain.Bar{
			StockCode: code,
			TradeDate: day(from + i),
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			PrevClose: price,
		}
	}
	return bars
}

func makeCandidate(code string, breakout int) *domain.Candidate {
	return &domain.Candidate{
		CandidateID:      idhash.ComputeCandidateID(code, day(breakout)),
		StockCode:        code,
		StockName:        "name-" + code,
		BreakthroughDate: day(breakout),
	}
}

func newTestStrategy(t *testing.T) strategy.Strategy {
	t.Helper()
	s, err := strategy.FromConfig(domain.DefaultStrategyConfig())
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	return s
}

type fixture struct {
	bars   *memory.BarStore
	events *memory.TradeEventStore
	skips  *memory.SkipRecordStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bars:   memory.NewBarStore(),
		events: memory.NewTradeEventStore(),
		skips:  memory.NewSkipRecordStore(),
	}
	if err := f.bars.InsertBulk(context.Background(), makeBars("600000", 0, 6, 10)); err != nil {
		t.Fatalf("Insert bars failed: %v", err)
	}
	return f
}

func (f *fixture) runner(t *testing.T, workers int) *Runner {
	t.Helper()
	r, err := NewRunner(RunnerOptions{
		BarStore:            f.bars,
		EventStore:          f.events,
		SkipStore:           f.skips,
		Strategy:            newTestStrategy(t),
		SupportLookbackDays: 40,
		Workers:             workers,
		Now:                 func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	return r
}

func TestNewRunner_RequiresStrategyAndBars(t *testing.T) {
	if _, err := NewRunner(RunnerOptions{BarStore: memory.NewBarStore()}); !errors.Is(err, ErrNoStrategy) {
		t.Errorf("expected ErrNoStrategy, got %v", err)
	}
	if _, err := NewRunner(RunnerOptions{Strategy: newTestStrategy(t)}); err == nil {
		t.Error("expected error for missing bar store")
	}
}

func TestRunner_RunAll_EndOfData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.runner(t, 1).RunAll(ctx, []*domain.Candidate{makeCandidate("600000", 0)})
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}

	if len(result.Episodes) != 1 {
		t.Fatalf("expected 1 episode, got %d", len(result.Episodes))
	}
	if len(result.Skips) != 0 {
		t.Errorf("expected no skips, got %v", result.Skips)
	}

	ep := result.Episodes[0]
	if ep.ExitReason != domain.ExitReasonEndOfData {
		t.Errorf("expected END_OF_DATA, got %s", ep.ExitReason)
	}
	if !ep.EntryDate.Equal(day(1)) {
		t.Errorf("expected entry on day 1, got %v", ep.EntryDate)
	}
	if len(ep.Events) != 3 {
		t.Fatalf("expected 2 buys and 1 sell, got %d events", len(ep.Events))
	}
	last := ep.Events[2]
	if last.TradeType != domain.TradeTypeSell || last.Shares != 10000 || last.Price != 10 {
		t.Errorf("unexpected final sell: %+v", last)
	}
	if !last.TradeDate.Equal(day(5)) {
		t.Errorf("expected final sell on the last bar, got %v", last.TradeDate)
	}
}

func TestRunner_RunAll_Skips(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	candidates := []*domain.Candidate{
		makeCandidate("600000", 0),
		makeCandidate("600000", 5), // breakout on the last bar: no entry bar
		makeCandidate("000001", 0), // no bars at all
	}

	result, err := f.runner(t, 2).RunAll(ctx, candidates)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}

	if len(result.Episodes) != 1 {
		t.Errorf("expected 1 episode, got %d", len(result.Episodes))
	}
	if len(result.Skips) != 2 {
		t.Fatalf("expected 2 skips, got %d", len(result.Skips))
	}
	if result.Stocks != 2 {
		t.Errorf("expected 2 stocks, got %d", result.Stocks)
	}

	// Skips keep candidate input order
	if result.Skips[0].CandidateID != candidates[1].CandidateID {
		t.Errorf("expected first skip for %s, got %s", candidates[1].CandidateID, result.Skips[0].CandidateID)
	}
	if !strings.HasPrefix(result.Skips[0].Reason, SkipReasonNoEntryBar) {
		t.Errorf("expected %s reason, got %q", SkipReasonNoEntryBar, result.Skips[0].Reason)
	}
	if !strings.HasPrefix(result.Skips[1].Reason, SkipReasonNoBars) {
		t.Errorf("expected %s reason, got %q", SkipReasonNoBars, result.Skips[1].Reason)
	}
	for _, s := range result.Skips {
		if s.RunID != result.RunID {
			t.Errorf("skip carries run %s, want %s", s.RunID, result.RunID)
		}
	}
}

func TestRunner_RunAll_Persists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	candidates := []*domain.Candidate{makeCandidate("600000", 0), makeCandidate("000001", 0)}
	result, err := f.runner(t, 1).RunAll(ctx, candidates)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}

	events, err := f.events.GetByCandidateID(ctx, candidates[0].CandidateID)
	if err != nil {
		t.Fatalf("GetByCandidateID failed: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 persisted events, got %d", len(events))
	}

	skips, err := f.skips.GetByRunID(ctx, result.RunID)
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(skips) != 1 || skips[0].StockCode != "000001" {
		t.Errorf("expected one persisted skip for 000001, got %+v", skips)
	}

	// The same run persisted twice collides on event ids
	if _, err := f.runner(t, 1).RunAll(ctx, candidates[:1]); err == nil {
		t.Error("expected duplicate error on second persist")
	}
}

func TestRunner_RunAll_Deterministic(t *testing.T) {
	ctx := context.Background()

	var first *RunResult
	for run := 0; run < 5; run++ {
		f := newFixture(t)
		if err := f.bars.InsertBulk(ctx, makeBars("000002", 0, 8, 20)); err != nil {
			t.Fatalf("Run %d: insert bars failed: %v", run, err)
		}

		candidates := []*domain.Candidate{
			makeCandidate("000002", 1),
			makeCandidate("600000", 0),
			makeCandidate("000002", 3),
		}

		result, err := f.runner(t, 4).RunAll(ctx, candidates)
		if err != nil {
			t.Fatalf("Run %d: RunAll failed: %v", run, err)
		}
		if len(result.Episodes) != 3 {
			t.Fatalf("Run %d: expected 3 episodes, got %d", run, len(result.Episodes))
		}
		for i, ep := range result.Episodes {
			if ep.CandidateID != candidates[i].CandidateID {
				t.Errorf("Run %d: episode %d is %s, want %s", run, i, ep.CandidateID, candidates[i].CandidateID)
			}
		}

		if first == nil {
			first = result
			continue
		}
		if result.RunID != first.RunID {
			t.Errorf("Run %d: run id %s differs from %s", run, result.RunID, first.RunID)
		}
		if !reflect.DeepEqual(result.Episodes, first.Episodes) {
			t.Errorf("Run %d: episodes differ from the first run", run)
		}
	}
}

func TestRunner_RunAll_DoesNotMutateCandidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Up day before the breakout gives a resolvable support level
	prior := &domain.Bar{StockCode: "600001", TradeDate: day(0), Open: 9.0, High: 9.6, Low: 8.9, Close: 9.5, PrevClose: 9.0}
	rest := makeBars("600001", 1, 5, 10)
	rest[0].PrevClose = 9.5
	bars := append([]*domain.Bar{prior}, rest...)
	if err := f.bars.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("Insert bars failed: %v", err)
	}

	c := makeCandidate("600001", 1)
	if _, err := f.runner(t, 1).RunAll(ctx, []*domain.Candidate{c}); err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}

	if c.SupportPrice != 0 || c.SupportDate != nil {
		t.Errorf("caller's candidate was modified: %+v", c)
	}
}

func TestRunner_RunAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFixture(t)
	if _, err := f.runner(t, 1).RunAll(ctx, []*domain.Candidate{makeCandidate("600000", 0)}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWindowFrom(t *testing.T) {
	adjusted := make([]domain.AdjustedBar, 3)
	for i := range adjusted {
		adjusted[i].TradeDate = day(i * 2)
	}

	tests := []struct {
		name  string
		start time.Time
		want  int
	}{
		{"before first", day(-1), 3},
		{"exact match", day(2), 2},
		{"between bars", day(3), 1},
		{"after last", day(5), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(windowFrom(adjusted, tt.start)); got != tt.want {
				t.Errorf("expected %d bars, got %d", tt.want, got)
			}
		})
	}
}

func TestSkipReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{strategy.ErrNoEntryBar, SkipReasonNoEntryBar},
		{strategy.ErrZeroFill, SkipReasonZeroFill},
		{strategy.ErrNonMonotonicBars, SkipReasonNonMonotonic},
		{strategy.ErrInvalidEntryPrice, SkipReasonInvalidEntryPrice},
		{strategy.ErrStockMismatch, SkipReasonStockMismatch},
		{errors.New("boom"), SkipReasonOther},
	}

	for _, tt := range tests {
		if got := skipReason(tt.err); got != tt.want {
			t.Errorf("skipReason(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
