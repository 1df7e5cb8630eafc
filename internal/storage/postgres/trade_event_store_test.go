package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/storage"
)

func makeTradeEvent(id, candidateID, stockCode string, seq, day int, tradeType domain.TradeType) *domain.TradeEvent {
	return &domain.TradeEvent{
		EventID:         id,
		CandidateID:     candidateID,
		StockCode:       stockCode,
		StockName:       "name-" + stockCode,
		Seq:             seq,
		TradeType:       tradeType,
		TradeDate:       date(2024, 3, day),
		Shares:          5000,
		Price:           10.25,
		ResultingClose:  10.40,
		HoldingDayCount: day,
		Reason:          domain.EntryReasonOpen,
	}
}

func TestTradeEventStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeEventStore(pool)
	ctx := context.Background()

	events := []*domain.TradeEvent{
		makeTradeEvent("e1", "c1", "600000", 0, 1, domain.TradeTypeBuy),
		makeTradeEvent("e2", "c1", "600000", 1, 1, domain.TradeTypeBuy),
		makeTradeEvent("e3", "c1", "600000", 2, 6, domain.TradeTypeSell),
		makeTradeEvent("e4", "c2", "000001", 0, 2, domain.TradeTypeBuy),
	}
	require.NoError(t, store.InsertBulk(ctx, events))

	got, err := store.GetByCandidateID(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "e1", got[0].EventID)
	assert.Equal(t, domain.TradeTypeSell, got[2].TradeType)
	assert.Equal(t, int64(5000), got[2].Shares)
	assert.Equal(t, 10.25, got[2].Price)
	assert.Equal(t, 10.40, got[2].ResultingClose)
	assert.Equal(t, 6, got[2].HoldingDayCount)
	assert.True(t, got[2].TradeDate.Equal(date(2024, 3, 6)))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "e4", all[0].EventID)

	byStock, err := store.GetByStockCode(ctx, "000001")
	require.NoError(t, err)
	require.Len(t, byStock, 1)
	assert.Equal(t, "name-000001", byStock[0].StockName)
}

func TestTradeEventStore_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeEventStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.TradeEvent{
		makeTradeEvent("e1", "c1", "600000", 0, 1, domain.TradeTypeBuy),
	}))

	err := store.InsertBulk(ctx, []*domain.TradeEvent{
		makeTradeEvent("e2", "c1", "600000", 1, 1, domain.TradeTypeBuy),
		makeTradeEvent("e1", "c1", "600000", 0, 1, domain.TradeTypeBuy),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByCandidateID(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTradeEventStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeEventStore(pool)

	err := store.InsertBulk(context.Background(), []*domain.TradeEvent{{EventID: "e1"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
