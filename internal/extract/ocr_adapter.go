package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/ocr"
)

// localOCRMethod labels results the local tools failed before choosing a method.
const localOCRMethod = "local-ocr"

// OCRAdapter exposes the local CLI-backed ocr.Extractor as a TextExtractor.
type OCRAdapter struct {
	extractor *ocr.Extractor
	logger    *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{extractor: e, logger: logger}
}

// ExtractText spools content to a temp file carrying the right extension, since the
// underlying tools work on paths.
func (a *OCRAdapter) ExtractText(ctx context.Context, content []byte, mimeType, filename string) (TextExtractionResult, error) {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if ext == "" || constants.MapExtToFormat(ext) == "" {
		ext = constants.ExtForMime(mimeType)
	}
	if ext == "" {
		return TextExtractionResult{Method: localOCRMethod}, fmt.Errorf("cannot determine file type for %q (%s)", filename, mimeType)
	}

	f, err := os.CreateTemp("", "docintel-*."+ext)
	if err != nil {
		return TextExtractionResult{Method: localOCRMethod}, fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err := os.Remove(f.Name()); err != nil {
			a.logger.Warn("failed to remove temp file", "file", f.Name(), "error", err)
		}
	}()
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return TextExtractionResult{Method: localOCRMethod}, fmt.Errorf("write temp: %w", err)
	}
	if err := f.Close(); err != nil {
		return TextExtractionResult{Method: localOCRMethod}, fmt.Errorf("close temp: %w", err)
	}

	sum := sha256.Sum256(content)
	r, err := a.extractor.Extract(ocr.WithContentHash(ctx, hex.EncodeToString(sum[:])), f.Name())
	if r.Method == "" {
		r.Method = localOCRMethod
	}
	return TextExtractionResult{
		Text:       r.Text,
		Pages:      r.Pages,
		SourceType: r.SourceType,
		Method:     r.Method,
		Language:   r.Language,
		Duration:   r.Duration,
		Warnings:   r.Warnings,
		Confidence: r.Confidence,
	}, err
}
