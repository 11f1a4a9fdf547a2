package ingest

import (
	"context"
	"time"
)

// Scope identifies who is ingesting and under which upload context.
type Scope struct {
	CompanyID string
	UserID    string
	Context   string
}

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath          string
	DocumentID          string
	Checksum            string
	FileExt             string
	Recommendation      string
	Action              string
	OverallScore        float64
	WarningLevel        string
	ExactDuplicates     int
	PotentialDuplicates int
	Warnings            []string
	Stored              bool
	AlreadyCataloged    bool
	AnalyzedAt          time.Time
	Err                 string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Accepted  uint32
	Warned    uint32
	Rejected  uint32
	Stored    uint32
	Failed    uint32
}

// Ingestor is the behavior the CLI and watcher depend on.
type Ingestor interface {
	// IngestPath analyzes a single file.
	IngestPath(ctx context.Context, scope Scope, path string) (IngestionResult, error)
	// IngestDirectory analyzes all matching files under root.
	IngestDirectory(ctx context.Context, scope Scope, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
