package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// ResilienceConfig tunes the guard placed around a text-extraction provider.
type ResilienceConfig struct {
	Name                string
	Timeout             time.Duration
	RatePerSecond       float64
	Burst               int
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
	BreakerHalfOpenMax  uint32
}

func (c ResilienceConfig) normalize() ResilienceConfig {
	if c.Name == "" {
		c.Name = "text_extraction"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 5
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = 5
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = 0.6
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = 30 * time.Second
	}
	if c.BreakerHalfOpenMax == 0 {
		c.BreakerHalfOpenMax = 1
	}
	return c
}

// ResilientExtractor rate-limits calls to a primary provider, trips a circuit
// breaker on repeated failures and falls through to a secondary provider.
type ResilientExtractor struct {
	primary   TextExtractor
	secondary TextExtractor
	breaker   *gobreaker.CircuitBreaker[TextExtractionResult]
	limiter   *rate.Limiter
	timeout   time.Duration
	logger    *slog.Logger
}

// NewResilientExtractor wraps primary. secondary may be nil.
func NewResilientExtractor(primary, secondary TextExtractor, cfg ResilienceConfig, logger *slog.Logger) *ResilientExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.normalize()
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.BreakerHalfOpenMax,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation says nothing about provider health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &ResilientExtractor{
		primary:   primary,
		secondary: secondary,
		breaker:   gobreaker.NewCircuitBreaker[TextExtractionResult](settings),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// resilientMethod labels failures where no wrapped extractor produced a result,
// e.g. a rate limit or an open breaker.
const resilientMethod = "resilient"

func (r *ResilientExtractor) ExtractText(ctx context.Context, content []byte, mimeType, filename string) (TextExtractionResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return TextExtractionResult{Method: resilientMethod}, fmt.Errorf("rate limit: %w", err)
	}
	res, err := r.breaker.Execute(func() (TextExtractionResult, error) {
		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.primary.ExtractText(cctx, content, mimeType, filename)
	})
	if err == nil {
		return res, nil
	}
	if r.secondary == nil {
		if res.Method == "" {
			res.Method = resilientMethod
		}
		return res, err
	}
	r.logger.Warn("primary text extraction failed, using secondary",
		"filename", filename,
		"mime_type", mimeType,
		"breaker_state", r.breaker.State().String(),
		"error", err,
	)
	res2, err2 := r.secondary.ExtractText(ctx, content, mimeType, filename)
	if err2 != nil {
		if res2.Method == "" {
			res2.Method = resilientMethod
		}
		return res2, errors.Join(err, err2)
	}
	res2.Warnings = append(res2.Warnings, fmt.Sprintf("primary extractor failed: %v", err))
	return res2, nil
}

// IsCircuitOpen reports whether err came from an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
