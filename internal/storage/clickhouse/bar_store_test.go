package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/storage"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func makeBar(code string, d time.Time, close float64) *domain.Bar {
	return &domain.Bar{
		StockCode: code,
		StockName: "name-" + code,
		TradeDate: d,
		Open:      close - 0.1,
		High:      close + 0.2,
		Low:       close - 0.3,
		Close:     close,
		PrevClose: close - 0.05,
		Volume:    125000,
	}
}

func TestBarStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(conn)
	ctx := context.Background()

	bars := []*domain.Bar{
		makeBar("600000", date(2024, 1, 3), 10.3),
		makeBar("600000", date(2024, 1, 2), 10.2),
		makeBar("000001", date(2024, 1, 2), 9.1),
	}
	require.NoError(t, store.InsertBulk(ctx, bars))

	got, err := store.GetByStockCode(ctx, "600000")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.True(t, got[0].TradeDate.Equal(date(2024, 1, 2)))
	assert.Equal(t, "name-600000", got[0].StockName)
	assert.InDelta(t, 10.2, got[0].Close, 1e-9)
	assert.InDelta(t, 10.15, got[0].PrevClose, 1e-9)
	assert.InDelta(t, 125000, got[0].Volume, 1e-9)

	codes, err := store.ListStockCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001", "600000"}, codes)
}

func TestBarStore_Duplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.Bar{makeBar("600000", date(2024, 1, 2), 10)}))

	err := store.InsertBulk(ctx, []*domain.Bar{
		makeBar("600000", date(2024, 1, 3), 10.5),
		makeBar("600000", date(2024, 1, 2), 10),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []*domain.Bar{
		makeBar("000001", date(2024, 1, 2), 9),
		makeBar("000001", date(2024, 1, 2), 9),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByStockCode(ctx, "600000")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBarStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(conn)

	err := store.InsertBulk(context.Background(), []*domain.Bar{{StockCode: "600000"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
