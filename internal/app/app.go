package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/docintel/internal/common"
	"github.com/joseph-ayodele/docintel/internal/core"
	"github.com/joseph-ayodele/docintel/internal/duplicate"
	"github.com/joseph-ayodele/docintel/internal/events"
	"github.com/joseph-ayodele/docintel/internal/export"
	"github.com/joseph-ayodele/docintel/internal/extract"
	"github.com/joseph-ayodele/docintel/internal/metrics"
	"github.com/joseph-ayodele/docintel/internal/ocr"
	"github.com/joseph-ayodele/docintel/internal/relevance"
	repo "github.com/joseph-ayodele/docintel/internal/repository"
	"github.com/joseph-ayodele/docintel/internal/security"
	"github.com/joseph-ayodele/docintel/internal/server"
)

const healthTimeout = 3 * time.Second

// Options control which external systems Build connects to.
type Options struct {
	// UseCatalog opens the database; without it duplicate detection sees no candidates.
	UseCatalog bool
	// Migrate applies pending catalog migrations on open.
	Migrate bool
	// Publish connects to NATS when an URL is configured.
	Publish bool
}

// App is a fully wired processor plus the resources it holds.
type App struct {
	Config    *common.Config
	Processor *core.Processor
	Metrics   *metrics.Metrics
	DB        *repo.DB
	Docs      repo.DocumentRepository
	Exporter  *export.Service

	publisher *events.NATSPublisher
	logger    *slog.Logger
}

// Build wires text extraction, the catalog, relevance rules, metrics and events
// into one Processor according to cfg.
func Build(ctx context.Context, cfg *common.Config, opts Options, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Metrics: metrics.New(), logger: logger}

	rules, err := loadRules(cfg.Relevance.RulesPath)
	if err != nil {
		return nil, err
	}

	procOpts := []core.Option{
		core.WithTextExtractor(a.textExtractor(cfg.OCR)),
		core.WithRules(rules),
		core.WithSecurityChecker(security.NewChecker(security.Config{MaxBytes: cfg.Server.MaxUploadBytes}, logger)),
		core.WithDetector(duplicate.NewDetector(
			duplicate.WithLogger(logger),
			duplicate.WithWorkers(cfg.Detection.Workers),
			duplicate.WithRecurringKeywords(rules.Keywords().Recurring),
		)),
		core.WithRecorder(a.Metrics),
	}

	if opts.UseCatalog {
		db, err := server.ConnectDB(ctx, cfg.Database, opts.Migrate, logger)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		a.DB = db
		a.Docs = repo.NewDocumentRepository(db, logger)
		a.Exporter = export.NewService(a.Docs, logger)
		procOpts = append(procOpts, core.WithCandidateSource(a.Docs))
	}

	if opts.Publish && cfg.Events.NATSURL != "" {
		pub, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject, events.Options{}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect events: %w", err)
		}
		a.publisher = pub
		procOpts = append(procOpts, core.WithPublisher(pub))
	}

	a.Processor = core.NewProcessor(logger, core.Config{
		Detection: duplicate.Options{
			VisualThreshold:       cfg.Detection.VisualThreshold,
			ContentThreshold:      cfg.Detection.ContentThreshold,
			TemporalToleranceDays: cfg.Detection.TemporalToleranceDays,
			RecurringPeriodDays:   cfg.Detection.RecurringPeriodDays,
			RecurringWeight:       cfg.Detection.RecurringWeight,
			MinOverall:            cfg.Detection.MinOverall,
		},
		CandidateLimit: cfg.Detection.CandidateLimit,
		LookbackDays:   cfg.Detection.LookbackDays,
		StrictMode:     cfg.Relevance.StrictMode,
	}, procOpts...)
	return a, nil
}

// textExtractor puts the remote service (if configured) in front of local OCR.
func (a *App) textExtractor(cfg common.OCRConfig) extract.TextExtractor {
	local := extract.NewOCRAdapter(ocr.NewExtractor(ocr.Config{
		Pdftotext:        cfg.Pdftotext,
		Pdftoppm:         cfg.Pdftoppm,
		Tesseract:        cfg.Tesseract,
		TesseractLang:    cfg.TesseractLang,
		DPI:              cfg.DPI,
		MaxPages:         cfg.MaxPages,
		TessdataDir:      cfg.TessdataDir,
		HeicConverter:    cfg.HeicConverter,
		ArtifactCacheDir: cfg.ArtifactCacheDir,
	}, a.logger), a.logger)
	if cfg.RemoteURL == "" {
		return local
	}
	remote, err := extract.NewRemoteExtractor(extract.RemoteConfig{
		URL:     cfg.RemoteURL,
		APIKey:  cfg.RemoteAPIKey,
		Timeout: cfg.RemoteTimeout,
	}, nil, a.logger)
	if err != nil {
		a.logger.Warn("remote extraction disabled", "error", err)
		return local
	}
	return extract.NewResilientExtractor(remote, local, extract.ResilienceConfig{
		Name:          "remote_extract",
		Timeout:       cfg.RemoteTimeout,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         cfg.Burst,
	}, a.logger)
}

func loadRules(path string) (*relevance.RuleSet, error) {
	if path == "" {
		return relevance.DefaultRules()
	}
	rules, err := relevance.LoadRules(path)
	if err != nil {
		return nil, fmt.Errorf("load relevance rules: %w", err)
	}
	return rules, nil
}

// Health pings the catalog when one is open.
func (a *App) Health(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return server.PingDB(ctx, a.DB, a.logger, healthTimeout)
}

// MetricsHandler exposes the private metrics registry.
func (a *App) MetricsHandler() http.Handler {
	return a.Metrics.Handler()
}

// Close releases the catalog and event connections.
func (a *App) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.DB != nil {
		repo.Close(a.DB, a.logger)
	}
}
