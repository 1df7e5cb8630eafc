// Package backends opens the store set a command runs against:
// in-memory for dry runs, or ClickHouse for bars plus PostgreSQL for the rest.
package backends

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"breakout-backtest/internal/observability"
	"breakout-backtest/internal/storage"
	chstore "breakout-backtest/internal/storage/clickhouse"
	"breakout-backtest/internal/storage/memory"
	"breakout-backtest/internal/storage/migrations"
	pgstore "breakout-backtest/internal/storage/postgres"
)

// ErrMissingDSN is returned when database mode is requested without both DSNs.
var ErrMissingDSN = errors.New("postgres and clickhouse DSNs are required unless using memory storage")

// Options selects and configures the backends.
type Options struct {
	UseMemory     bool
	PostgresDSN   string
	ClickhouseDSN string

	// Migrate applies the embedded schema before returning
	Migrate bool

	Logger  *zap.Logger
	Metrics *observability.Metrics // optional; database stores are instrumented when set
}

// Stores is one complete set of stores plus the connections behind them.
type Stores struct {
	Candidates storage.CandidateStore
	Bars       storage.BarStore
	Events     storage.TradeEventStore
	Skips      storage.SkipRecordStore
	Progress   storage.IngestProgressStore

	closers []func()
}

// Close releases database connections. Safe to call on memory stores.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// NewMemory returns an empty in-memory store set.
func NewMemory() *Stores {
	return &Stores{
		Candidates: memory.NewCandidateStore(),
		Bars:       memory.NewBarStore(),
		Events:     memory.NewTradeEventStore(),
		Skips:      memory.NewSkipRecordStore(),
		Progress:   memory.NewIngestProgressStore(),
	}
}

// Open connects the configured backends.
func Open(ctx context.Context, opts Options) (*Stores, error) {
	if opts.UseMemory {
		return NewMemory(), nil
	}
	if opts.PostgresDSN == "" || opts.ClickhouseDSN == "" {
		return nil, ErrMissingDSN
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Stores{}

	// PostgreSQL for candidates, trade events, skips and ingest progress
	pool, err := pgstore.NewPool(ctx, opts.PostgresDSN)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, pool.Close)

	if opts.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}

	// ClickHouse for daily bars
	var conn *chstore.Conn
	if opts.Migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, opts.ClickhouseDSN, logger)
	} else {
		conn, err = chstore.NewConn(ctx, opts.ClickhouseDSN)
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	s.closers = append(s.closers, func() { _ = conn.Close() })

	s.Candidates = pgstore.NewCandidateStore(pool)
	s.Events = pgstore.NewTradeEventStore(pool)
	s.Skips = pgstore.NewSkipRecordStore(pool)
	s.Progress = pgstore.NewIngestProgressStore(pool)
	s.Bars = chstore.NewBarStore(conn)

	if opts.Metrics != nil {
		s.Instrument(opts.Metrics)
	}

	logger.Info("storage connected", zap.Bool("migrated", opts.Migrate))
	return s, nil
}

// Instrument wraps the bar, candidate and trade-event stores with query timing.
func (s *Stores) Instrument(m *observability.Metrics) {
	s.Bars = &timedBarStore{BarStore: s.Bars, m: m}
	s.Candidates = &timedCandidateStore{CandidateStore: s.Candidates, m: m}
	s.Events = &timedEventStore{TradeEventStore: s.Events, m: m}
}
