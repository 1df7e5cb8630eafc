// Package main regenerates the ledger report from persisted trade events.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"breakout-backtest/internal/config"
	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/ledger"
	"breakout-backtest/internal/observability"
	"breakout-backtest/internal/reporting"
	"breakout-backtest/internal/storage/backends"
	"breakout-backtest/internal/strategy"
	"breakout-backtest/internal/verification"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	outputDir := flag.String("output-dir", "", "Export directory (overrides config)")
	runID := flag.String("run-id", "", "Include skip diagnostics of this run")
	stdout := flag.Bool("stdout", false, "Print the Markdown report instead of writing files")
	verify := flag.Bool("verify", false, "Replay every stored episode and check it before reporting")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	logger, err := observability.NewLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	strat, err := strategy.FromConfig(cfg.Strategy)
	if err != nil {
		logger.Fatal("strategy config", zap.Error(err))
	}

	// Reports only make sense over persisted data
	ctx := context.Background()
	stores, err := backends.Open(ctx, backends.Options{
		PostgresDSN:   cfg.PostgresDSN,
		ClickhouseDSN: cfg.ClickhouseDSN,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	defer stores.Close()

	if *verify {
		if err := runVerification(ctx, logger, stores, cfg); err != nil {
			logger.Fatal("verification failed", zap.Error(err))
		}
	}

	gen := reporting.NewGenerator(stores.Events, stores.Candidates, stores.Skips, cfg.Strategy.InitialCash)
	report, err := gen.Generate(ctx, strat.ID(), *runID)
	if errors.Is(err, ledger.ErrNoEvents) {
		logger.Fatal("no trade events stored; run backtest with --persist first")
	}
	if err != nil {
		logger.Fatal("generate report", zap.Error(err))
	}

	if *stdout {
		fmt.Print(reporting.RenderMarkdown(report))
		return
	}

	stored, err := stores.Events.GetAll(ctx)
	if err != nil {
		logger.Fatal("load trade events", zap.Error(err))
	}
	events := make([]domain.TradeEvent, len(stored))
	for i, e := range stored {
		events[i] = *e
	}

	files, err := reporting.WriteFiles(cfg.OutputDir, report, events)
	if err != nil {
		logger.Fatal("write report", zap.Error(err))
	}
	for _, f := range files {
		logger.Info("report written", zap.String("path", f))
	}
}

// runVerification replays stored episodes against the current bars.
// Divergent episodes are logged one by one and fail the command.
func runVerification(ctx context.Context, logger *zap.Logger, stores *backends.Stores, cfg *config.Config) error {
	verifier, err := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		EventStore:     stores.Events,
		CandidateStore: stores.Candidates,
		BarStore:       stores.Bars,
		Config:         cfg.Strategy,
	})
	if err != nil {
		return err
	}

	report, err := verifier.VerifyAll(ctx)
	if err != nil {
		return err
	}

	for _, r := range report.Results {
		if r.Match {
			continue
		}
		for _, d := range r.Divergences {
			logger.Warn("episode diverges from replay",
				zap.String("candidate_id", r.CandidateID),
				zap.Int("seq", d.Seq),
				zap.String("field", d.Field),
				zap.Any("stored", d.Expected),
				zap.Any("replayed", d.Actual),
			)
		}
		for _, v := range r.Violations {
			logger.Warn("episode invariant violated", zap.String("violation", v.String()))
		}
	}

	logger.Info("verification finished",
		zap.Int("episodes", report.TotalEpisodes),
		zap.Int("matched", report.MatchedEpisodes),
		zap.Int("divergent", report.DivergentEpisodes),
	)
	if report.DivergentEpisodes > 0 {
		return fmt.Errorf("%d of %d episodes diverge", report.DivergentEpisodes, report.TotalEpisodes)
	}
	return nil
}
