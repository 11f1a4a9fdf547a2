package extract

import (
	"context"
	"time"
)

// TextExtractor turns raw document bytes into text. Implementations are black boxes
// to the analysis pipeline; callers substitute empty text when they fail.
type TextExtractor interface {
	ExtractText(ctx context.Context, content []byte, mimeType, filename string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE | constants.TXT
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr" | "plain-text" | "remote"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float64
}

// TextExtractorFunc adapts a function to TextExtractor.
type TextExtractorFunc func(ctx context.Context, content []byte, mimeType, filename string) (TextExtractionResult, error)

func (f TextExtractorFunc) ExtractText(ctx context.Context, content []byte, mimeType, filename string) (TextExtractionResult, error) {
	return f(ctx, content, mimeType, filename)
}
