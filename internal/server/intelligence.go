package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docintel/internal/common"
	"github.com/joseph-ayodele/docintel/internal/core"
	"github.com/joseph-ayodele/docintel/internal/ingest"
)

// AnalyzeRequest is the wire form of core.AnalyzeRequest. Store asks for accepted
// and warned documents to be added to the duplicate catalog.
type AnalyzeRequest struct {
	core.AnalyzeRequest
	Store bool `json:"store,omitempty"`
}

// AnalyzeResponse always carries a decision. Degraded is set when the decision is
// the safe default produced after an internal failure.
type AnalyzeResponse struct {
	Analysis core.Analysis `json:"analysis"`
	Stored   bool          `json:"stored,omitempty"`
	Degraded bool          `json:"degraded,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type IntelligenceService struct {
	analyzer ingest.Analyzer
	docs     ingest.DocumentStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewIntelligenceService builds the service. docs may be nil, in which case Store is ignored.
func NewIntelligenceService(a ingest.Analyzer, docs ingest.DocumentStore, logger *slog.Logger) *IntelligenceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntelligenceService{analyzer: a, docs: docs, logger: logger, now: time.Now}
}

// Analyze implements IntelligenceServer.
func (s *IntelligenceService) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	if req == nil {
		return nil, common.InvalidArgumentError("request is required")
	}
	in := req.AnalyzeRequest
	in.Filename = strings.TrimSpace(in.Filename)
	if in.CompanyID == "" || in.UserID == "" {
		company, user := common.CallerFromContext(ctx)
		if in.CompanyID == "" {
			in.CompanyID = company
		}
		if in.UserID == "" {
			in.UserID = user
		}
	}

	v := common.NewValidator().
		Field("filename", in.Filename, common.Required, common.MaxLength(255)).
		Field("document_id", in.DocumentID, common.OptionalUUID).
		Field("context", in.Context, common.MaxLength(64))
	if in.Checksum == "" {
		v.Field("content", in.Content, common.Required)
	}
	if req.Store {
		v.Field("company_id", in.CompanyID, common.Required)
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		s.logger.Warn("invalid analyze request", "filename", in.Filename, "error", err)
		return nil, err
	}

	a, err := s.analyzer.Analyze(ctx, in)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, common.StatusFromError(err)
		}
		s.logger.Error("analysis degraded to safe default", "filename", in.Filename, "request_id", common.RequestIDFromContext(ctx), "error", err)
		return &AnalyzeResponse{Analysis: a, Degraded: true, Error: err.Error()}, nil
	}

	resp := &AnalyzeResponse{Analysis: a}
	if req.Store && s.docs != nil && a.Catalogable() {
		row, existed, err := s.docs.UpsertByChecksum(ctx, a.Document(in.CompanyID, in.UserID, int64(len(in.Content)), s.now()))
		if err != nil {
			s.logger.Error("failed to catalog document", "document_id", a.DocumentID, "error", err)
			return nil, common.InternalErrorf("store document: %v", err)
		}
		resp.Stored = !existed
		resp.Analysis.DocumentID = row.ID
	}
	return resp, nil
}
