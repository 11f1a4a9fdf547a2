package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/decision"
	"github.com/joseph-ayodele/docintel/internal/duplicate"
	"github.com/joseph-ayodele/docintel/internal/entity"
	"github.com/joseph-ayodele/docintel/internal/events"
	"github.com/joseph-ayodele/docintel/internal/extract"
	"github.com/joseph-ayodele/docintel/internal/fingerprint"
	"github.com/joseph-ayodele/docintel/internal/relevance"
	"github.com/joseph-ayodele/docintel/internal/repository"
	"github.com/joseph-ayodele/docintel/internal/security"
)

// CandidateSource supplies catalog documents visible to the uploader.
type CandidateSource interface {
	FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]entity.DuplicateCandidate, error)
}

// Recorder receives per-analysis measurements.
type Recorder interface {
	StartAnalysis()
	FinishAnalysis(uploadContext, recommendation string, relevance float64, exact, potential, scanned int, duration time.Duration)
	ObserveExtraction(method string, err error)
	ObserveFailure(stage string)
}

type Config struct {
	Detection      duplicate.Options
	CandidateLimit int
	LookbackDays   int
	StrictMode     bool
}

// Processor runs extraction, fingerprinting, duplicate detection, relevance scoring and
// the final decision for one document at a time. It is safe for concurrent use.
type Processor struct {
	logger       *slog.Logger
	cfg          Config
	text         extract.TextExtractor
	entities     *extract.EntityExtractor
	fingerprints *fingerprint.Builder
	checker      *security.Checker
	candidates   CandidateSource
	detector     *duplicate.Detector
	scorer       *relevance.Scorer
	orchestrator *decision.Orchestrator
	recorder     Recorder
	publisher    events.Publisher
	now          func() time.Time
}

type Option func(*Processor)

// WithTextExtractor sets the provider used when the request carries no text.
func WithTextExtractor(x extract.TextExtractor) Option {
	return func(p *Processor) { p.text = x }
}

func WithCandidateSource(s CandidateSource) Option {
	return func(p *Processor) { p.candidates = s }
}

func WithRules(rules *relevance.RuleSet) Option {
	return func(p *Processor) {
		if rules != nil {
			p.scorer = relevance.NewScorer(rules, p.logger)
		}
	}
}

func WithSecurityChecker(c *security.Checker) Option {
	return func(p *Processor) {
		if c != nil {
			p.checker = c
		}
	}
}

func WithDetector(d *duplicate.Detector) Option {
	return func(p *Processor) {
		if d != nil {
			p.detector = d
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

func WithPublisher(pub events.Publisher) Option {
	return func(p *Processor) {
		if pub != nil {
			p.publisher = pub
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

func NewProcessor(logger *slog.Logger, cfg Config, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 200
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 365
	}
	if cfg.Detection == (duplicate.Options{}) {
		cfg.Detection = duplicate.DefaultOptions()
	}
	p := &Processor{
		logger:       logger,
		cfg:          cfg,
		entities:     extract.NewEntityExtractor(extract.DefaultPatterns()),
		fingerprints: fingerprint.NewBuilder(logger),
		checker:      security.NewChecker(security.Config{}, logger),
		orchestrator: decision.NewOrchestrator(logger),
		publisher:    events.Noop{},
		now:          time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	if p.scorer == nil {
		p.scorer = relevance.NewScorer(relevance.MustDefaultRules(), logger)
	}
	if p.detector == nil {
		p.detector = duplicate.NewDetector(duplicate.WithLogger(logger), duplicate.WithClock(p.now))
	}
	return p
}

// Analyze always returns an Analysis with a usable Decision. When something fails
// internally the decision is the safe default and the error is returned alongside it.
func (p *Processor) Analyze(ctx context.Context, req AnalyzeRequest) (a Analysis, err error) {
	start := p.now()
	if p.recorder != nil {
		p.recorder.StartAnalysis()
	}
	a = Analysis{DocumentID: req.DocumentID, Filename: req.Filename, OriginalFilename: req.OriginalFilename}
	if a.OriginalFilename == "" {
		a.OriginalFilename = req.Filename
	}
	if a.DocumentID == "" {
		a.DocumentID = uuid.NewString()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panicked: %v", r)
			p.logger.Error("analysis panicked", "document_id", a.DocumentID, "panic", r, "stack", string(debug.Stack()))
			p.fail(&a, "panic", err)
		}
		a.Duration = p.now().Sub(start)
		if p.recorder != nil {
			p.recorder.FinishAnalysis(string(a.Context), string(a.Decision.Recommendation), a.Relevance.OverallScore,
				len(a.Duplicates.Exact), len(a.Duplicates.Potential), a.Duplicates.CandidatesScanned, a.Duration)
		}
	}()

	if err = p.analyze(ctx, req, &a); err != nil {
		p.logger.Error("analysis failed; returning safe default", "document_id", a.DocumentID, "filename", req.Filename, "error", err)
		return a, err
	}

	p.logger.Info("document analyzed",
		"document_id", a.DocumentID,
		"filename", a.Filename,
		"context", a.Context,
		"recommendation", a.Decision.Recommendation,
		"overall_score", a.Decision.OverallScore,
		"exact_duplicates", len(a.Duplicates.Exact),
		"potential_duplicates", len(a.Duplicates.Potential),
		"warning_level", a.Relevance.WarningLevel,
	)
	p.publish(ctx, req, a)
	return a, nil
}

func (p *Processor) analyze(ctx context.Context, req AnalyzeRequest, a *Analysis) error {
	if err := ctx.Err(); err != nil {
		p.fail(a, "context", err)
		return err
	}

	uploadCtx, ok := constants.CanonicalizeContext(req.Context)
	if !ok && req.Context != "" {
		p.logger.Warn("unknown upload context; using generic", "context", req.Context)
	}
	a.Context = uploadCtx

	a.MimeType = resolveMime(req)
	info := entity.FileInfo{Filename: req.Filename, MimeType: a.MimeType, Size: int64(len(req.Content))}

	text := p.resolveText(ctx, req, a)
	a.TextLength = len(text)

	if req.Entities != nil {
		a.Entities = req.Entities.Normalized()
	} else {
		a.Entities = p.entities.Extract(text)
	}
	if req.Structure != nil {
		a.Structure = *req.Structure
	} else {
		a.Structure = extract.DetectStructure(text)
	}
	if a.ContentConfidence == 0 {
		a.ContentConfidence = a.Entities.MeanConfidence()
	}

	a.Fingerprint = p.fingerprints.Build(req.Content, a.MimeType, entity.DocumentFingerprint{
		Checksum:       req.Checksum,
		PerceptualHash: req.PerceptualHash,
	})

	a.SecurityFlags = append([]entity.SecurityFlag{}, req.SecurityFlags...)
	if len(req.Content) == 0 && req.Checksum != "" {
		// Bytes were fingerprinted and scanned by the caller.
		a.SecurityFlags = append(a.SecurityFlags, p.checker.CheckMetadata(info)...)
	} else {
		a.SecurityFlags = append(a.SecurityFlags, p.checker.Check(info, req.Content)...)
	}

	candidates, err := p.loadCandidates(ctx, req, a.DocumentID)
	if err != nil {
		p.fail(a, "candidates", err)
		return err
	}

	opts := p.cfg.Detection
	opts.ExactOnly = opts.ExactOnly || req.Options.ExactOnly
	a.Duplicates = p.detector.Detect(duplicate.Input{
		Fingerprint: a.Fingerprint,
		Entities:    a.Entities,
		Text:        text,
		Candidates:  candidates,
	}, opts)

	a.Relevance = p.scorer.Score(relevance.Input{
		Entities:  a.Entities,
		Text:      text,
		Structure: a.Structure,
		File:      info,
		Context:   uploadCtx,
	}, relevance.Options{
		StrictMode:  p.cfg.StrictMode || req.Options.StrictMode,
		CustomRules: req.CustomRules,
	})

	a.Decision = p.orchestrator.Decide(decision.Input{
		Duplicates:        a.Duplicates,
		Relevance:         a.Relevance,
		SecurityFlags:     a.SecurityFlags,
		ContentConfidence: a.ContentConfidence,
	})
	return nil
}

const unknownExtractionMethod = "unknown"

// resolveText prefers caller-supplied text, then the extractor. Extraction errors
// degrade to empty text.
func (p *Processor) resolveText(ctx context.Context, req AnalyzeRequest, a *Analysis) string {
	if req.Text != nil {
		a.ExtractionMethod = "provided"
		return *req.Text
	}
	if p.text == nil || len(req.Content) == 0 {
		return ""
	}
	res, err := p.text.ExtractText(ctx, req.Content, a.MimeType, req.Filename)
	if res.Method == "" {
		res.Method = unknownExtractionMethod
	}
	if p.recorder != nil {
		p.recorder.ObserveExtraction(res.Method, err)
	}
	if err != nil {
		p.logger.Warn("text extraction failed; continuing with empty text",
			"document_id", a.DocumentID, "filename", req.Filename, "error", err)
		a.ExtractionWarnings = append(a.ExtractionWarnings, "text extraction failed: "+err.Error())
		return ""
	}
	a.ExtractionMethod = res.Method
	a.ExtractionWarnings = append(a.ExtractionWarnings, res.Warnings...)
	a.ContentConfidence = clamp01(res.Confidence)
	return res.Text
}

func (p *Processor) loadCandidates(ctx context.Context, req AnalyzeRequest, docID string) ([]entity.DuplicateCandidate, error) {
	if p.candidates == nil || req.Options.SkipCatalog {
		return nil, nil
	}
	if req.CompanyID == "" && req.UserID == "" {
		return nil, nil
	}
	cands, err := p.candidates.FindCandidates(ctx, repository.CandidateQuery{
		CompanyID: req.CompanyID,
		UserID:    req.UserID,
		Since:     p.now().AddDate(0, 0, -p.cfg.LookbackDays),
		Limit:     p.cfg.CandidateLimit,
		ExcludeID: req.DocumentID,
	})
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	return cands, nil
}

func (p *Processor) fail(a *Analysis, stage string, err error) {
	a.Decision = decision.SafeDefault(err)
	if p.recorder != nil {
		p.recorder.ObserveFailure(stage)
	}
}

func (p *Processor) publish(ctx context.Context, req AnalyzeRequest, a Analysis) {
	ev := events.DecisionEvent{
		DocumentID:          a.DocumentID,
		CompanyID:           req.CompanyID,
		UserID:              req.UserID,
		Filename:            a.Filename,
		Checksum:            a.Fingerprint.Checksum,
		Context:             string(a.Context),
		Recommendation:      string(a.Decision.Recommendation),
		Action:              a.Decision.Action,
		OverallScore:        a.Decision.OverallScore,
		WarningLevel:        string(a.Relevance.WarningLevel),
		ExactDuplicates:     len(a.Duplicates.Exact),
		PotentialDuplicates: len(a.Duplicates.Potential),
		OccurredAt:          p.now().UTC(),
	}
	if err := p.publisher.PublishDecision(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Warn("failed to publish decision event", "document_id", a.DocumentID, "error", err)
	}
}

// resolveMime trusts a specific declared type and sniffs otherwise.
func resolveMime(req AnalyzeRequest) string {
	declared := strings.ToLower(strings.TrimSpace(req.MimeType))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(req.Content) > 0 {
		if sniffed := security.DetectMime(req.Content); sniffed != "application/octet-stream" {
			return sniffed
		}
	}
	if ext := extOf(req.Filename); ext != "" {
		return constants.MimeTypeForExt(ext)
	}
	return "application/octet-stream"
}

func extOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return name[i+1:]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
