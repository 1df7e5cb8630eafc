// Package main serves the ledger HTTP API and Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"breakout-backtest/internal/api"
	"breakout-backtest/internal/config"
	"breakout-backtest/internal/observability"
	"breakout-backtest/internal/storage/backends"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	migrate := flag.Bool("migrate", true, "Apply database migrations on startup")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
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
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	ctx, cancel := context.WithCancel(context.Background())
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

	srv := api.NewServer(api.ServerOptions{
		Addr:           cfg.HTTPAddr,
		EventStore:     stores.Events,
		CandidateStore: stores.Candidates,
		SkipStore:      stores.Skips,
		Budget:         cfg.Strategy.InitialCash,
		MetricsHandler: observability.Handler(),
		Logger:         logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}
