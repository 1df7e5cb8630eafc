// Package main runs the breakout ladder backtest over every stored candidate.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"breakout-backtest/internal/config"
	"breakout-backtest/internal/observability"
	"breakout-backtest/internal/orchestrator"
	"breakout-backtest/internal/reporting"
	"breakout-backtest/internal/storage/backends"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	outputDir := flag.String("output-dir", "", "Export directory (overrides config)")
	workers := flag.Int("workers", 0, "Concurrent stocks (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	persist := flag.Bool("persist", false, "Persist trade events and skip records")
	outputJSON := flag.Bool("json", false, "Print the ledger as JSON")
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
	if *workers > 0 {
		cfg.Workers = *workers
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	metrics := observability.NewMetrics("", nil)
	stores, err := backends.Open(ctx, backends.Options{
		UseMemory:     *useMemory,
		PostgresDSN:   cfg.PostgresDSN,
		ClickhouseDSN: cfg.ClickhouseDSN,
		Logger:        logger,
		Metrics:       metrics,
	})
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	defer stores.Close()

	opts := orchestrator.Options{
		CandidateStore: stores.Candidates,
		BarStore:       stores.Bars,
		Strategy:       cfg.Strategy,
		Workers:        cfg.Workers,
		OutputDir:      cfg.OutputDir,
		Logger:         logger,
		Metrics:        metrics,
	}
	if *persist {
		opts.TradeEventStore = stores.Events
		opts.SkipRecordStore = stores.Skips
	}

	result, err := orchestrator.New(opts).Run(ctx)
	if err != nil {
		logger.Fatal("backtest failed", zap.Error(err))
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(result.Ledger, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Println()
	fmt.Printf("Run:        %s\n", result.RunID)
	fmt.Printf("Strategy:   %s\n", result.StrategyID)
	fmt.Printf("Candidates: %d (episodes %d, skipped %d)\n",
		result.CandidatesProcessed, result.EpisodesSimulated, result.CandidatesSkipped)
	fmt.Println()
	fmt.Print(reporting.RenderMarkdown(result.Report))
	for _, f := range result.Files {
		fmt.Printf("wrote %s\n", f)
	}
}
