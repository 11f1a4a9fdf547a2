package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// RemoteConfig points at an HTTP text-extraction service.
type RemoteConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type remoteRequest struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Content  []byte `json:"content"`
}

type remoteResponse struct {
	Text       string   `json:"text"`
	Pages      int      `json:"pages"`
	Language   string   `json:"language"`
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings"`
}

// RemoteExtractor calls an external OCR/AI provider over HTTP.
type RemoteExtractor struct {
	cfg    RemoteConfig
	client *http.Client
	logger *slog.Logger
}

const remoteMethod = "remote"

func NewRemoteExtractor(cfg RemoteConfig, client *http.Client, logger *slog.Logger) (*RemoteExtractor, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote extractor: url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &RemoteExtractor{cfg: cfg, client: client, logger: logger}, nil
}

func (r *RemoteExtractor) ExtractText(ctx context.Context, content []byte, mimeType, filename string) (TextExtractionResult, error) {
	start := time.Now()
	headers := map[string]string{}
	if r.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + r.cfg.APIKey
	}
	raw, status, err := sendJSON(ctx, r.client, r.cfg.URL, remoteRequest{
		Filename: filename,
		MimeType: mimeType,
		Content:  content,
	}, headers, r.logger)
	if err != nil {
		return TextExtractionResult{Method: remoteMethod}, fmt.Errorf("remote extract (status %d): %w", status, err)
	}

	var out remoteResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return TextExtractionResult{Method: remoteMethod}, fmt.Errorf("decode remote response: %w", err)
	}
	return TextExtractionResult{
		Text:       out.Text,
		Pages:      out.Pages,
		SourceType: mimeType,
		Method:     remoteMethod,
		Language:   out.Language,
		Duration:   time.Since(start),
		Warnings:   out.Warnings,
		Confidence: out.Confidence,
	}, nil
}
