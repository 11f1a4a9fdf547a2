package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/core"
	"github.com/joseph-ayodele/docintel/internal/entity"
)

// Analyzer is implemented by core.Processor.
type Analyzer interface {
	Analyze(ctx context.Context, req core.AnalyzeRequest) (core.Analysis, error)
}

// DocumentStore persists accepted documents so later uploads can be compared against them.
type DocumentStore interface {
	UpsertByChecksum(ctx context.Context, doc *entity.Document) (*entity.Document, bool, error)
}

// maxReadBytes bounds how much of a file is read into memory. Files between the upload
// cap and this bound are still analyzed so the security layer can flag them.
const maxReadBytes = 2 * constants.MaxUploadBytes

// FSIngestor reads from the local filesystem.
type FSIngestor struct {
	Analyzer    Analyzer
	Docs        DocumentStore
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> default set
	Logger      *slog.Logger
	Now         func() time.Time
}

func NewFSIngestor(a Analyzer, docs DocumentStore, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Analyzer: a, Docs: docs, Logger: logger, Now: time.Now}
}

func (i *FSIngestor) IngestPath(ctx context.Context, scope Scope, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext, i.AllowedExts) {
		i.Logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return out, fmt.Errorf("unsupported or missing extension %q", ext)
	}
	out.FileExt = ext

	st, err := os.Stat(abs)
	if err != nil {
		return out, fmt.Errorf("stat: %w", err)
	}
	if st.Size() > maxReadBytes {
		return out, fmt.Errorf("file too large to analyze: %d bytes", st.Size())
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return out, fmt.Errorf("read: %w", err)
	}

	name := filepath.Base(abs)
	a, err := i.Analyzer.Analyze(ctx, core.AnalyzeRequest{
		Filename:         name,
		OriginalFilename: abs,
		MimeType:         constants.MimeTypeForExt(ext),
		Content:          content,
		Context:          scope.Context,
		CompanyID:        scope.CompanyID,
		UserID:           scope.UserID,
	})
	out.DocumentID = a.DocumentID
	out.Checksum = a.Fingerprint.Checksum
	out.Recommendation = string(a.Decision.Recommendation)
	out.Action = a.Decision.Action
	out.OverallScore = a.Decision.OverallScore
	out.WarningLevel = string(a.Relevance.WarningLevel)
	out.ExactDuplicates = len(a.Duplicates.Exact)
	out.PotentialDuplicates = len(a.Duplicates.Potential)
	out.Warnings = a.Decision.Warnings
	out.AnalyzedAt = i.now()
	if err != nil {
		return out, fmt.Errorf("analyze: %w", err)
	}

	if i.Docs == nil || !a.Catalogable() {
		return out, nil
	}
	row, existed, err := i.Docs.UpsertByChecksum(ctx, a.Document(scope.CompanyID, scope.UserID, int64(len(content)), out.AnalyzedAt))
	if err != nil {
		return out, fmt.Errorf("store document: %w", err)
	}
	out.DocumentID = row.ID
	out.Stored = !existed
	out.AlreadyCataloged = existed
	i.Logger.Debug("document cataloged", "path", abs, "document_id", row.ID, "existed", existed)
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and calls IngestPath
// for each matching file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, scope Scope, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path), i.AllowedExts) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, scope, path)
		if err != nil {
			i.Logger.Warn("ingest failed", "path", path, "error", err)
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		switch constants.Recommendation(r.Recommendation) {
		case constants.RecommendationAccept:
			stats.Accepted++
		case constants.RecommendationWarn:
			stats.Warned++
		case constants.RecommendationReject:
			stats.Rejected++
		}
		if r.Stored {
			stats.Stored++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.Logger.Info("directory ingested", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched, "accepted", stats.Accepted,
		"warned", stats.Warned, "rejected", stats.Rejected, "failed", stats.Failed)
	return results, stats, nil
}

func (i *FSIngestor) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}
