package backends

import (
	"context"
	"time"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/observability"
	"breakout-backtest/internal/storage"
)

// Database labels for query metrics.
const (
	dbClickhouse = "clickhouse"
	dbPostgres   = "postgres"
)

func observe(m *observability.Metrics, database, op string, start time.Time, err error) {
	m.RecordDBQuery(database, op, time.Since(start).Seconds(), err)
}

// timedBarStore records the bulk paths of a BarStore; other methods pass through.
type timedBarStore struct {
	storage.BarStore
	m *observability.Metrics
}

func (s *timedBarStore) InsertBulk(ctx context.Context, bars []*domain.Bar) error {
	start := time.Now()
	err := s.BarStore.InsertBulk(ctx, bars)
	observe(s.m, dbClickhouse, "bars_insert", start, err)
	return err
}

func (s *timedBarStore) GetByStockCode(ctx context.Context, stockCode string) ([]*domain.Bar, error) {
	start := time.Now()
	bars, err := s.BarStore.GetByStockCode(ctx, stockCode)
	observe(s.m, dbClickhouse, "bars_get", start, err)
	return bars, err
}

type timedCandidateStore struct {
	storage.CandidateStore
	m *observability.Metrics
}

func (s *timedCandidateStore) InsertBulk(ctx context.Context, candidates []*domain.Candidate) error {
	start := time.Now()
	err := s.CandidateStore.InsertBulk(ctx, candidates)
	observe(s.m, dbPostgres, "candidates_insert", start, err)
	return err
}

func (s *timedCandidateStore) GetAll(ctx context.Context) ([]*domain.Candidate, error) {
	start := time.Now()
	cs, err := s.CandidateStore.GetAll(ctx)
	observe(s.m, dbPostgres, "candidates_get_all", start, err)
	return cs, err
}

type timedEventStore struct {
	storage.TradeEventStore
	m *observability.Metrics
}

func (s *timedEventStore) InsertBulk(ctx context.Context, events []*domain.TradeEvent) error {
	start := time.Now()
	err := s.TradeEventStore.InsertBulk(ctx, events)
	observe(s.m, dbPostgres, "events_insert", start, err)
	return err
}

func (s *timedEventStore) GetAll(ctx context.Context) ([]*domain.TradeEvent, error) {
	start := time.Now()
	events, err := s.TradeEventStore.GetAll(ctx)
	observe(s.m, dbPostgres, "events_get_all", start, err)
	return events, err
}

var (
	_ storage.BarStore        = (*timedBarStore)(nil)
	_ storage.CandidateStore  = (*timedCandidateStore)(nil)
	_ storage.TradeEventStore = (*timedEventStore)(nil)
)
