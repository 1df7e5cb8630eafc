// Package main loads daily-bar and breakout-candidate CSV files into storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"breakout-backtest/internal/config"
	"breakout-backtest/internal/ingestion"
	"breakout-backtest/internal/observability"
	"breakout-backtest/internal/storage/backends"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	barsPath := flag.String("bars", "", "Daily-bar CSV file or directory")
	candidatesPath := flag.String("candidates", "", "Breakout-candidate CSV file or directory")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry run)")
	migrate := flag.Bool("migrate", true, "Apply database migrations before loading")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	logger, err := observability.NewLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *barsPath == "" && *candidatesPath == "" {
		logger.Fatal("at least one of --bars or --candidates is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	metrics := observability.NewMetrics("", nil)
	stores, err := backends.Open(ctx, backends.Options{
		UseMemory:     *useMemory,
		PostgresDSN:   cfg.PostgresDSN,
		ClickhouseDSN: cfg.ClickhouseDSN,
		Migrate:       *migrate,
		Logger:        logger,
		Metrics:       metrics,
	})
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	defer stores.Close()

	mgr := ingestion.NewManager(ingestion.ManagerOptions{
		BarStore:       stores.Bars,
		CandidateStore: stores.Candidates,
		ProgressStore:  stores.Progress,
		Logger:         logger,
		Metrics:        metrics,
	})

	// Bars first so a later backtest never sees candidates without history
	var results []*ingestion.FileResult
	for _, src := range []struct{ path, kind string }{
		{*barsPath, ingestion.KindBars},
		{*candidatesPath, ingestion.KindCandidates},
	} {
		if src.path == "" {
			continue
		}
		res, err := ingestPath(ctx, mgr, src.path, src.kind)
		results = append(results, res...)
		if err != nil {
			logger.Fatal("ingest failed", zap.String("path", src.path), zap.Error(err))
		}
	}

	printSummary(results)
}

// ingestPath loads a single file or every CSV under a directory.
func ingestPath(ctx context.Context, mgr *ingestion.Manager, path, kind string) ([]*ingestion.FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return mgr.IngestDir(ctx, path, kind)
	}
	res, err := mgr.IngestFile(ctx, path, kind)
	if err != nil {
		return nil, err
	}
	return []*ingestion.FileResult{res}, nil
}

func printSummary(results []*ingestion.FileResult) {
	fmt.Println()
	fmt.Println("=== Ingestion Summary ===")
	for _, r := range results {
		status := "loaded"
		if r.Skipped {
			status = "skipped (already ingested)"
		}
		fmt.Printf("%-11s %-40s rows=%-6d row_errors=%-4d %s\n", r.Kind, r.Path, r.Rows, len(r.RowErrors), status)
		for _, re := range r.RowErrors {
			fmt.Printf("    %v\n", re)
		}
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	return ctx, cancel
}
