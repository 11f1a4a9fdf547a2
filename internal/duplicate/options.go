package duplicate

import (
	"log/slog"
	"runtime"
	"time"
)

// Options are the per-call detection thresholds. Zero values take the defaults.
type Options struct {
	// ExactOnly stops after the checksum stage when it finds anything.
	ExactOnly bool `json:"exact_only"`
	// VisualThreshold is the minimum 1 - distance/bits for a visual match.
	VisualThreshold float64 `json:"visual_threshold"`
	// ContentThreshold is the minimum entity-similarity score for a content match.
	ContentThreshold float64 `json:"content_threshold"`
	// TemporalToleranceDays is the width of the window around RecurringPeriodDays.
	TemporalToleranceDays float64 `json:"temporal_tolerance_days"`
	RecurringPeriodDays   float64 `json:"recurring_period_days"`
	// RecurringWeight multiplies the score of recurring same-vendor matches.
	RecurringWeight float64 `json:"recurring_weight"`
	// MinOverall drops potential matches scoring below it after down-weighting.
	MinOverall float64 `json:"min_overall"`
}

func DefaultOptions() Options {
	return Options{
		VisualThreshold:       0.85,
		ContentThreshold:      0.8,
		TemporalToleranceDays: 35,
		RecurringPeriodDays:   30,
		RecurringWeight:       0.7,
		MinOverall:            0.6,
	}
}

func (o Options) normalize() Options {
	d := DefaultOptions()
	if o.VisualThreshold <= 0 {
		o.VisualThreshold = d.VisualThreshold
	}
	if o.ContentThreshold <= 0 {
		o.ContentThreshold = d.ContentThreshold
	}
	if o.TemporalToleranceDays <= 0 {
		o.TemporalToleranceDays = d.TemporalToleranceDays
	}
	if o.RecurringPeriodDays <= 0 {
		o.RecurringPeriodDays = d.RecurringPeriodDays
	}
	if o.RecurringWeight <= 0 || o.RecurringWeight > 1 {
		o.RecurringWeight = d.RecurringWeight
	}
	if o.MinOverall <= 0 {
		o.MinOverall = d.MinOverall
	}
	return o
}

// DefaultRecurringKeywords mark text that reads like a periodic bill.
var DefaultRecurringKeywords = []string{
	"monthly",
	"month",
	"billing cycle",
	"service period",
	"subscription",
	"recurring",
	"bill",
	"statement",
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock injects the time source used for day differences.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// WithWorkers bounds how many candidates are scored concurrently.
func WithWorkers(n int) Option {
	return func(d *Detector) { d.workers = n }
}

// WithRecurringKeywords replaces the recurring-bill keyword table. An empty
// table keeps DefaultRecurringKeywords.
func WithRecurringKeywords(kw []string) Option {
	return func(d *Detector) {
		if len(kw) > 0 {
			d.keywords = kw
		}
	}
}

func defaultWorkers() int {
	return max(2, runtime.GOMAXPROCS(0))
}
