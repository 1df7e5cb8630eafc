package memory

import (
	"context"
	"errors"
	"testing"

	"breakout-backtest/internal/storage"
)

func TestIngestProgressStore(t *testing.T) {
	store := NewIngestProgressStore()
	ctx := context.Background()

	seen, err := store.IsFileSeen(ctx, "abc")
	if err != nil || seen {
		t.Fatalf("fresh store: seen=%v err=%v", seen, err)
	}

	if err := store.MarkFileSeen(ctx, &storage.IngestedFile{Digest: "abc", Path: "b.csv", Kind: "bars", Rows: 10}); err != nil {
		t.Fatalf("MarkFileSeen failed: %v", err)
	}
	// Second mark keeps the first record
	if err := store.MarkFileSeen(ctx, &storage.IngestedFile{Digest: "abc", Path: "other.csv"}); err != nil {
		t.Fatalf("MarkFileSeen failed: %v", err)
	}
	if err := store.MarkFileSeen(ctx, &storage.IngestedFile{Digest: "def", Path: "a.csv", Kind: "candidates"}); err != nil {
		t.Fatalf("MarkFileSeen failed: %v", err)
	}

	seen, _ = store.IsFileSeen(ctx, "abc")
	if !seen {
		t.Errorf("abc should be seen")
	}

	files, err := store.LoadSeenFiles(ctx)
	if err != nil {
		t.Fatalf("LoadSeenFiles failed: %v", err)
	}
	if len(files) != 2 || files[0].Path != "a.csv" || files[1].Path != "b.csv" {
		t.Errorf("LoadSeenFiles: got %+v", files)
	}

	if _, err := store.IsFileSeen(ctx, ""); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
