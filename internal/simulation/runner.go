// Package simulation runs the strategy over a batch of candidates.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"breakout-backtest/internal/adjust"
	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/idhash"
	"breakout-backtest/internal/observability"
	"breakout-backtest/internal/storage"
	"breakout-backtest/internal/strategy"
	"breakout-backtest/internal/support"
)

// Skip reason codes, used as metric labels.
const (
	SkipReasonNoBars            = "no_bars"
	SkipReasonAdjustFailed      = "adjust_failed"
	SkipReasonNoEntryBar        = "no_entry_bar"
	SkipReasonZeroFill          = "zero_fill"
	SkipReasonNonMonotonic      = "non_monotonic_bars"
	SkipReasonInvalidEntryPrice = "invalid_entry_price"
	SkipReasonStockMismatch     = "stock_mismatch"
	SkipReasonOther             = "other"
)

// ErrNoStrategy is returned when the runner has nothing to execute.
var ErrNoStrategy = errors.New("simulation runner requires a strategy")

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	BarStore   storage.BarStore        // required
	EventStore storage.TradeEventStore // optional; events are persisted when set
	SkipStore  storage.SkipRecordStore // optional; skips are persisted when set
	Strategy   strategy.Strategy       // required

	// SupportLookbackDays bounds the support supplement; 0 disables it.
	SupportLookbackDays int

	// Workers bounds concurrent stocks; <= 0 means one.
	Workers int

	Logger  *zap.Logger
	Metrics *observability.Metrics
	Now     func() time.Time
}

// Runner executes simulations for a batch of candidates.
type Runner struct {
	opts RunnerOptions
}

// RunResult is the outcome of one RunAll call.
type RunResult struct {
	RunID    string
	Episodes []*domain.EpisodeResult // in candidate input order, skips omitted
	Skips    []domain.SkipRecord     // in candidate input order
	Stocks   int                     // distinct stocks touched
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Strategy == nil {
		return nil, ErrNoStrategy
	}
	if opts.BarStore == nil {
		return nil, fmt.Errorf("simulation runner requires a bar store: %w", storage.ErrInvalidInput)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{opts: opts}, nil
}

// outcome is the per-candidate slot filled by a worker.
type outcome struct {
	episode *domain.EpisodeResult
	skip    *domain.SkipRecord
}

// RunAll simulates every candidate.
// Steps:
//  1. Group candidates by stock
//  2. Per stock (bounded by Workers): load the full history and adjust it once
//  3. Per candidate: resolve missing support, cut the window, execute the strategy
//  4. Collect results in input order
//  5. Persist events and skips when stores are configured
//
// Data problems skip candidates; only store and context errors fail the run.
func (r *Runner) RunAll(ctx context.Context, candidates []*domain.Candidate) (*RunResult, error) {
	startedAt := r.opts.Now()
	runID := idhash.ComputeRunID(r.opts.Strategy.ID(), startedAt.UnixMilli())
	logger := r.opts.Logger.With(zap.String("run_id", runID))

	// 1. Group by stock, keeping the first-seen order
	byStock := make(map[string][]int)
	var stocks []string
	for i, c := range candidates {
		if _, ok := byStock[c.StockCode]; !ok {
			stocks = append(stocks, c.StockCode)
		}
		byStock[c.StockCode] = append(byStock[c.StockCode], i)
	}

	results := make([]outcome, len(candidates))

	// 2-3. One task per stock; each task writes only its own candidates' slots
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for _, code := range stocks {
		code := code
		idx := byStock[code]
		g.Go(func() error {
			return r.runStock(gctx, logger, runID, code, candidates, idx, results)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 4. Collect
	res := &RunResult{RunID: runID, Stocks: len(stocks)}
	for _, o := range results {
		if o.episode != nil {
			res.Episodes = append(res.Episodes, o.episode)
		}
		if o.skip != nil {
			res.Skips = append(res.Skips, *o.skip)
		}
	}

	// 5. Persist
	if err := r.persist(ctx, res); err != nil {
		return nil, err
	}

	logger.Info("simulation finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("episodes", len(res.Episodes)),
		zap.Int("skipped", len(res.Skips)),
		zap.Duration("elapsed", r.opts.Now().Sub(startedAt)),
	)

	return res, nil
}

// runStock adjusts one stock's history and runs each of its candidates in order.
func (r *Runner) runStock(ctx context.Context, logger *zap.Logger, runID, code string, candidates []*domain.Candidate, idx []int, results []outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := r.opts.BarStore.GetByStockCode(ctx, code)
	if err != nil {
		return fmt.Errorf("load bars for %s: %w", code, err)
	}

	adjusted, err := adjust.Adjust(rawBars(raw))
	if err != nil {
		reason := SkipReasonAdjustFailed
		if errors.Is(err, adjust.ErrNoBars) {
			reason = SkipReasonNoBars
		}
		for _, i := range idx {
			results[i].skip = r.skip(logger, runID, candidates[i], reason, err)
		}
		return nil
	}
	if r.opts.Metrics != nil {
		r.opts.Metrics.StocksAdjusted.Inc()
	}

	for _, i := range idx {
		if err := ctx.Err(); err != nil {
			return err
		}

		ep, err := r.runCandidate(ctx, *candidates[i], adjusted)
		if err != nil {
			results[i].skip = r.skip(logger, runID, candidates[i], skipReason(err), err)
			continue
		}
		results[i].episode = ep
		r.record(ep)
	}

	return nil
}

// runCandidate executes the strategy for one candidate on its stock's adjusted bars.
func (r *Runner) runCandidate(ctx context.Context, c domain.Candidate, adjusted []domain.AdjustedBar) (*domain.EpisodeResult, error) {
	ep, resolved, err := Simulate(ctx, r.opts.Strategy, c, adjusted, r.opts.SupportLookbackDays)
	if resolved && r.opts.Metrics != nil {
		r.opts.Metrics.SupportResolved.Inc()
	}
	return ep, err
}

// Simulate runs strat for one candidate on its stock's full adjusted history.
// Missing support is resolved first when lookback is positive; resolved reports
// whether that happened. c is a copy, so the caller's record is never touched.
func Simulate(ctx context.Context, strat strategy.Strategy, c domain.Candidate, adjusted []domain.AdjustedBar, lookback int) (ep *domain.EpisodeResult, resolved bool, err error) {
	if lookback > 0 {
		resolved = support.Apply(&c, adjusted, lookback)
	}

	window := windowFrom(adjusted, c.BreakthroughDate)
	if len(window) == 0 {
		return nil, resolved, strategy.ErrNoEntryBar
	}

	ep, err = strat.Execute(ctx, &strategy.Input{
		Candidate: c,
		Bars:      window,
	})
	return ep, resolved, err
}

func (r *Runner) skip(logger *zap.Logger, runID string, c *domain.Candidate, reason string, err error) *domain.SkipRecord {
	logger.Warn("candidate skipped",
		zap.String("stock_code", c.StockCode),
		zap.String("candidate_id", c.CandidateID),
		zap.String("reason", reason),
		zap.Error(err),
	)
	if r.opts.Metrics != nil {
		r.opts.Metrics.RecordSkip(reason)
	}

	return &domain.SkipRecord{
		RunID:       runID,
		CandidateID: c.CandidateID,
		StockCode:   c.StockCode,
		Reason:      fmt.Sprintf("%s: %v", reason, err),
		CreatedAt:   r.opts.Now().UnixMilli(),
	}
}

func (r *Runner) record(ep *domain.EpisodeResult) {
	if r.opts.Metrics == nil {
		return
	}
	var buys, sells int
	for _, e := range ep.Events {
		if e.TradeType == domain.TradeTypeBuy {
			buys++
		} else {
			sells++
		}
	}
	r.opts.Metrics.RecordEpisode(buys, sells, ep.ExitReason)
}

// persist writes events and skips. Events go in one batch so a rerun of the
// same run fails as a whole on the first duplicate.
func (r *Runner) persist(ctx context.Context, res *RunResult) error {
	if r.opts.EventStore != nil {
		var events []*domain.TradeEvent
		for _, ep := range res.Episodes {
			for i := range ep.Events {
				events = append(events, &ep.Events[i])
			}
		}
		if err := r.opts.EventStore.InsertBulk(ctx, events); err != nil {
			return fmt.Errorf("persist trade events: %w", err)
		}
	}

	if r.opts.SkipStore != nil && len(res.Skips) > 0 {
		records := make([]*domain.SkipRecord, len(res.Skips))
		for i := range res.Skips {
			records[i] = &res.Skips[i]
		}
		if err := r.opts.SkipStore.InsertBulk(ctx, records); err != nil {
			return fmt.Errorf("persist skip records: %w", err)
		}
	}

	return nil
}

// skipReason maps a strategy error to its reason code.
func skipReason(err error) string {
	switch {
	case errors.Is(err, strategy.ErrNoEntryBar):
		return SkipReasonNoEntryBar
	case errors.Is(err, strategy.ErrZeroFill):
		return SkipReasonZeroFill
	case errors.Is(err, strategy.ErrNonMonotonicBars):
		return SkipReasonNonMonotonic
	case errors.Is(err, strategy.ErrInvalidEntryPrice):
		return SkipReasonInvalidEntryPrice
	case errors.Is(err, strategy.ErrStockMismatch):
		return SkipReasonStockMismatch
	default:
		return SkipReasonOther
	}
}
