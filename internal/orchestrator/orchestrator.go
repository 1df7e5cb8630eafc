// Package orchestrator provides end-to-end backtest orchestration.
// It coordinates: load candidates → simulate → fold ledger → report
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/ledger"
	"breakout-backtest/internal/observability"
	"breakout-backtest/internal/reporting"
	"breakout-backtest/internal/simulation"
	"breakout-backtest/internal/storage"
	"breakout-backtest/internal/strategy"
)

// Run phases, used as metric labels.
const (
	PhaseLoad     = "load"
	PhaseSimulate = "simulate"
	PhaseFold     = "fold"
	PhaseReport   = "report"
)

// Orchestrator coordinates one backtest run.
type Orchestrator struct {
	// Stores
	candidateStore  storage.CandidateStore
	barStore        storage.BarStore
	tradeEventStore storage.TradeEventStore
	skipRecordStore storage.SkipRecordStore

	// Config
	strategyCfg domain.StrategyConfig
	workers     int
	outputDir   string

	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	CandidateStore storage.CandidateStore
	BarStore       storage.BarStore

	// Optional stores; results are persisted when set
	TradeEventStore storage.TradeEventStore
	SkipRecordStore storage.SkipRecordStore

	Strategy domain.StrategyConfig
	Workers  int

	// OutputDir receives CSV and Markdown exports; empty disables them
	OutputDir string

	Logger  *zap.Logger
	Metrics *observability.Metrics
	Now     func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		candidateStore:  opts.CandidateStore,
		barStore:        opts.BarStore,
		tradeEventStore: opts.TradeEventStore,
		skipRecordStore: opts.SkipRecordStore,
		strategyCfg:     opts.Strategy,
		workers:         opts.Workers,
		outputDir:       opts.OutputDir,
		logger:          logger,
		metrics:         opts.Metrics,
		now:             now,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID               string
	StrategyID          string
	CandidatesProcessed int
	EpisodesSimulated   int
	CandidatesSkipped   int
	Ledger              *ledger.Ledger
	Report              *reporting.Report
	Events              []domain.TradeEvent
	Files               []string
	Errors              []string
}

// Run executes the full pipeline.
// Phases:
//  1. Load candidates
//  2. Simulate every candidate (adjust, support, strategy)
//  3. Fold episodes into the ledger
//  4. Build the report and write exports
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	strat, err := strategy.FromConfig(o.strategyCfg)
	if err != nil {
		return nil, fmt.Errorf("strategy config: %w", err)
	}
	result := &RunResult{StrategyID: strat.ID()}

	// Phase 1: Load all candidates
	o.logger.Info("Phase 1: Loading candidates...")
	var candidates []*domain.Candidate
	err = o.phase(PhaseLoad, func() error {
		var err error
		candidates, err = o.candidateStore.GetAll(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load candidates) failed: %w", err)
	}
	result.CandidatesProcessed = len(candidates)
	o.logger.Info("  candidates loaded", zap.Int("count", len(candidates)))

	// Phase 2: Simulation
	o.logger.Info("Phase 2: Running simulations...")
	var sim *simulation.RunResult
	err = o.phase(PhaseSimulate, func() error {
		runner, err := simulation.NewRunner(simulation.RunnerOptions{
			BarStore:            o.barStore,
			EventStore:          o.tradeEventStore,
			SkipStore:           o.skipRecordStore,
			Strategy:            strat,
			SupportLookbackDays: o.strategyCfg.SupportLookbackDays,
			Workers:             o.workers,
			Logger:              o.logger,
			Metrics:             o.metrics,
			Now:                 o.now,
		})
		if err != nil {
			return err
		}
		sim, err = runner.RunAll(ctx, candidates)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("phase 2 (simulation) failed: %w", err)
	}
	result.RunID = sim.RunID
	result.EpisodesSimulated = len(sim.Episodes)
	result.CandidatesSkipped = len(sim.Skips)
	for _, s := range sim.Skips {
		result.Errors = append(result.Errors, fmt.Sprintf("skip %s/%s: %s", s.StockCode, s.CandidateID, s.Reason))
	}
	o.logger.Info("  simulations finished",
		zap.String("run_id", sim.RunID),
		zap.Int("episodes", len(sim.Episodes)),
		zap.Int("skipped", len(sim.Skips)),
	)

	// Phase 3: Ledger
	o.logger.Info("Phase 3: Folding ledger...")
	_ = o.phase(PhaseFold, func() error {
		result.Ledger = ledger.Fold(sim.Episodes)
		return nil
	})
	for _, ep := range sim.Episodes {
		result.Events = append(result.Events, ep.Events...)
	}
	if o.metrics != nil {
		o.metrics.PortfolioProfit.Set(result.Ledger.Total.Profit)
	}
	o.logger.Info("  ledger folded",
		zap.Int("stocks", len(result.Ledger.Rows)),
		zap.Float64("profit", result.Ledger.Total.Profit),
		zap.Float64("profit_pct", result.Ledger.Total.ProfitPercent),
	)

	// Phase 4: Report
	o.logger.Info("Phase 4: Writing report...")
	result.Report = reporting.Build(reporting.BuildInput{
		GeneratedAt: o.now().UTC(),
		RunID:       sim.RunID,
		StrategyID:  result.StrategyID,
		Candidates:  len(candidates),
		Events:      result.Events,
		Ledger:      result.Ledger,
		Skips:       sim.Skips,
	})
	if o.outputDir != "" {
		err = o.phase(PhaseReport, func() error {
			var err error
			result.Files, err = reporting.WriteFiles(o.outputDir, result.Report, result.Events)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("phase 4 (report) failed: %w", err)
		}
		if o.metrics != nil {
			o.metrics.ReportsWritten.WithLabelValues("csv").Add(2)
			o.metrics.ReportsWritten.WithLabelValues("markdown").Inc()
		}
		o.logger.Info("  report written", zap.Strings("files", result.Files))
	}

	if o.metrics != nil {
		o.metrics.LastSuccessfulRun.SetToCurrentTime()
	}
	o.logger.Info("Pipeline completed",
		zap.Int("candidates", result.CandidatesProcessed),
		zap.Int("episodes", result.EpisodesSimulated),
		zap.Int("skipped", result.CandidatesSkipped),
	)

	return result, nil
}

// phase runs fn and records its duration and outcome.
func (o *Orchestrator) phase(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
			if errors.Is(err, context.Canceled) {
				status = "canceled"
			}
		}
		o.metrics.RecordRun(name, status, time.Since(start).Seconds())
	}
	return err
}
