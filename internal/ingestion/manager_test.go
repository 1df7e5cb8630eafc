package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"breakout-backtest/internal/observability"
	"breakout-backtest/internal/storage/memory"
)

type managerFixture struct {
	bars       *memory.BarStore
	candidates *memory.CandidateStore
	progress   *memory.IngestProgressStore
	metrics    *observability.Metrics
	manager    *Manager
}

func newManagerFixture() *managerFixture {
	f := &managerFixture{
		bars:       memory.NewBarStore(),
		candidates: memory.NewCandidateStore(),
		progress:   memory.NewIngestProgressStore(),
		metrics:    observability.NewMetrics("ingest_test", prometheus.NewRegistry()),
	}
	f.manager = NewManager(ManagerOptions{
		BarStore:       f.bars,
		CandidateStore: f.candidates,
		ProgressStore:  f.progress,
		Metrics:        f.metrics,
		Now:            func() time.Time { return time.UnixMilli(1700000000000) },
	})
	return f
}

func TestManager_Ingest_Bars(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture()

	res, err := f.manager.Ingest(ctx, "bars.csv", KindBars, []byte(chineseBars))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if res.Rows != 2 || res.Skipped {
		t.Errorf("unexpected result: %+v", res)
	}

	bars, err := f.bars.GetByStockCode(ctx, "sh600000")
	if err != nil {
		t.Fatalf("GetByStockCode failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 stored bars, got %d", len(bars))
	}
	if !bars[0].TradeDate.Before(bars[1].TradeDate) {
		t.Error("expected stored bars in date order")
	}

	files, err := f.progress.LoadSeenFiles(ctx)
	if err != nil {
		t.Fatalf("LoadSeenFiles failed: %v", err)
	}
	if len(files) != 1 || files[0].Digest != res.Digest || files[0].Rows != 2 {
		t.Errorf("unexpected progress: %+v", files)
	}
}

func TestManager_Ingest_SkipsSeenFile(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture()

	if _, err := f.manager.Ingest(ctx, "a.csv", KindBars, []byte(chineseBars)); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}

	// Same contents under another name: skipped instead of a duplicate-key failure
	res, err := f.manager.Ingest(ctx, "b.csv", KindBars, []byte(chineseBars))
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if !res.Skipped || res.Rows != 0 {
		t.Errorf("expected skipped result, got %+v", res)
	}
}

func TestManager_Ingest_Candidates(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture()

	data := "代码,名称,突破日期\n600519,贵州茅台,20240205\n000001,平安银行,bad\n"
	res, err := f.manager.Ingest(ctx, "cands.csv", KindCandidates, []byte(data))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if res.Rows != 1 || len(res.RowErrors) != 1 || res.RowErrors[0].Line != 3 {
		t.Errorf("unexpected result: %+v", res)
	}

	all, err := f.candidates.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 1 || all[0].CreatedAt != 1700000000000 {
		t.Errorf("unexpected stored candidates: %+v", all)
	}
}

func TestManager_Ingest_UnknownKind(t *testing.T) {
	f := newManagerFixture()
	if _, err := f.manager.Ingest(context.Background(), "x.csv", "ticks", nil); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestManager_IngestDir(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture()

	dir := t.TempDir()
	files := map[string]string{
		"b_000001.csv": "stock_code,trade_date,open,high,low,close\n000001,20240102,5,5.5,4.9,5.2\n",
		"a_600000.csv": chineseBars,
		"notes.txt":    "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	results, err := f.manager.IngestDir(ctx, dir, KindBars)
	if err != nil {
		t.Fatalf("IngestDir failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 csv files, got %d", len(results))
	}
	if filepath.Base(results[0].Path) != "a_600000.csv" {
		t.Errorf("expected lexical order, first was %s", results[0].Path)
	}

	codes, err := f.bars.ListStockCodes(ctx)
	if err != nil {
		t.Fatalf("ListStockCodes failed: %v", err)
	}
	if len(codes) != 2 {
		t.Errorf("expected 2 stocks, got %v", codes)
	}
}
