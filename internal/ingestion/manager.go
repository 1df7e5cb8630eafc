// Package ingestion loads vendor daily-bar files and candidate lists into storage.
package ingestion

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"breakout-backtest/internal/observability"
	"breakout-backtest/internal/storage"
)

// File kinds.
const (
	KindBars       = "bars"
	KindCandidates = "candidates"
)

// ErrUnknownKind is returned for a file kind other than KindBars or KindCandidates.
var ErrUnknownKind = errors.New("unknown ingest file kind")

// Manager loads files into stores.
// Files are identified by content digest, so loading the same file twice is a no-op
// when a progress store is configured.
type Manager struct {
	barStore       storage.BarStore
	candidateStore storage.CandidateStore
	progressStore  storage.IngestProgressStore
	logger         *zap.Logger
	metrics        *observability.Metrics
	now            func() time.Time
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	BarStore       storage.BarStore
	CandidateStore storage.CandidateStore
	ProgressStore  storage.IngestProgressStore // optional
	Logger         *zap.Logger
	Metrics        *observability.Metrics // optional
	Now            func() time.Time
}

// FileResult reports what happened to one file.
type FileResult struct {
	Path      string
	Digest    string
	Kind      string
	Rows      int // rows stored
	Skipped   bool
	RowErrors []RowError
}

// NewManager creates a new ingestion manager with the provided stores.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{
		barStore:       opts.BarStore,
		candidateStore: opts.CandidateStore,
		progressStore:  opts.ProgressStore,
		logger:         logger,
		metrics:        opts.Metrics,
		now:            now,
	}
}

// IngestDir loads every *.csv file under dir, in lexical path order.
// It stops at the first file that fails to store.
func (m *Manager) IngestDir(ctx context.Context, dir, kind string) ([]*FileResult, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	results := make([]*FileResult, 0, len(paths))
	for _, path := range paths {
		res, err := m.IngestFile(ctx, path, kind)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// IngestFile loads one file of the given kind.
func (m *Manager) IngestFile(ctx context.Context, path, kind string) (*FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m.Ingest(ctx, path, kind, data)
}

// Ingest loads file contents already in memory. path is only used for reporting.
// Steps:
//  1. Digest the contents; skip if already ingested
//  2. Parse rows, collecting per-row errors
//  3. Sort deterministically and insert in one batch
//  4. Mark the file as seen
func (m *Manager) Ingest(ctx context.Context, path, kind string, data []byte) (*FileResult, error) {
	if kind != KindBars && kind != KindCandidates {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	// 1. Digest
	sum := sha256.Sum256(data)
	res := &FileResult{Path: path, Digest: hex.EncodeToString(sum[:]), Kind: kind}
	logger := m.logger.With(zap.String("path", path), zap.String("kind", kind))

	if m.progressStore != nil {
		seen, err := m.progressStore.IsFileSeen(ctx, res.Digest)
		if err != nil {
			return nil, fmt.Errorf("check progress for %s: %w", path, err)
		}
		if seen {
			res.Skipped = true
			if m.metrics != nil {
				m.metrics.FilesSkipped.Inc()
			}
			logger.Info("file already ingested, skipping", zap.String("digest", res.Digest))
			return res, nil
		}
	}

	// 2-3. Parse and store
	var err error
	switch kind {
	case KindBars:
		err = m.storeBars(ctx, res, data)
	case KindCandidates:
		err = m.storeCandidates(ctx, res, data)
	}
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}

	for _, rowErr := range res.RowErrors {
		logger.Warn("row rejected", zap.Int("line", rowErr.Line), zap.Error(rowErr.Err))
	}
	if m.metrics != nil && len(res.RowErrors) > 0 {
		m.metrics.RowErrors.WithLabelValues(kind).Add(float64(len(res.RowErrors)))
	}

	// 4. Mark seen
	if m.progressStore != nil {
		err := m.progressStore.MarkFileSeen(ctx, &storage.IngestedFile{
			Digest: res.Digest,
			Path:   path,
			Kind:   kind,
			Rows:   res.Rows,
		})
		if err != nil {
			return nil, fmt.Errorf("mark %s as ingested: %w", path, err)
		}
	}

	logger.Info("file ingested",
		zap.Int("rows", res.Rows),
		zap.Int("row_errors", len(res.RowErrors)),
	)
	return res, nil
}

func (m *Manager) storeBars(ctx context.Context, res *FileResult, data []byte) error {
	if m.barStore == nil {
		return fmt.Errorf("no bar store configured: %w", storage.ErrInvalidInput)
	}

	file, err := ReadBars(bytes.NewReader(data))
	if err != nil {
		return err
	}
	res.RowErrors = file.Errors

	SortBars(file.Bars)
	if err := m.barStore.InsertBulk(ctx, file.Bars); err != nil {
		return err
	}

	res.Rows = len(file.Bars)
	if m.metrics != nil {
		m.metrics.BarsIngested.Add(float64(res.Rows))
	}
	return nil
}

func (m *Manager) storeCandidates(ctx context.Context, res *FileResult, data []byte) error {
	if m.candidateStore == nil {
		return fmt.Errorf("no candidate store configured: %w", storage.ErrInvalidInput)
	}

	file, err := ReadCandidates(bytes.NewReader(data), m.now().UnixMilli())
	if err != nil {
		return err
	}
	res.RowErrors = file.Errors

	SortCandidates(file.Candidates)
	if err := m.candidateStore.InsertBulk(ctx, file.Candidates); err != nil {
		return err
	}

	res.Rows = len(file.Candidates)
	if m.metrics != nil {
		m.metrics.CandidatesIngested.Add(float64(res.Rows))
	}
	return nil
}
