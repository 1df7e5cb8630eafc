package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-backtest/internal/storage"
)

func TestIngestProgressStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewIngestProgressStore(pool)
	ctx := context.Background()

	seen, err := store.IsFileSeen(ctx, "digest-a")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.MarkFileSeen(ctx, &storage.IngestedFile{Digest: "digest-a", Path: "bars/b.csv", Kind: "bars", Rows: 250}))
	require.NoError(t, store.MarkFileSeen(ctx, &storage.IngestedFile{Digest: "digest-a", Path: "ignored.csv", Kind: "bars"}))
	require.NoError(t, store.MarkFileSeen(ctx, &storage.IngestedFile{Digest: "digest-b", Path: "bars/a.csv", Kind: "candidates", Rows: 3}))

	seen, err = store.IsFileSeen(ctx, "digest-a")
	require.NoError(t, err)
	assert.True(t, seen)

	files, err := store.LoadSeenFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "bars/a.csv", files[0].Path)
	assert.Equal(t, "bars/b.csv", files[1].Path)
	assert.Equal(t, 250, files[1].Rows)

	_, err = store.IsFileSeen(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
