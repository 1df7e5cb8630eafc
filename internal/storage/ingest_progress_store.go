package storage

import "context"

// IngestedFile records one source file that has been loaded.
type IngestedFile struct {
	Digest string // sha256 of the file contents
	Path   string // path as given on the command line
	Kind   string // "bars" or "candidates"
	Rows   int    // rows loaded from the file
}

// IngestProgressStore tracks which source files were already loaded.
// This lets ingestion rerun over a directory without duplicating rows.
type IngestProgressStore interface {
	// IsFileSeen checks if a file digest has been ingested.
	IsFileSeen(ctx context.Context, digest string) (bool, error)

	// MarkFileSeen records an ingested file. Marking the same digest twice is a no-op.
	MarkFileSeen(ctx context.Context, f *IngestedFile) error

	// LoadSeenFiles returns all ingested files ordered by path.
	LoadSeenFiles(ctx context.Context) ([]*IngestedFile, error)
}
